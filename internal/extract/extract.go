// Package extract loads the five input tables of a run: it resolves each
// table to a datasource, decompresses and parses it, checks its column
// contract and fingerprints the raw bytes.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/zeebo/xxh3"

	"orderdocs/internal/config"
	"orderdocs/internal/datasource"
	"orderdocs/internal/datasource/compress"
	"orderdocs/internal/datasource/file"
	s3ds "orderdocs/internal/datasource/s3"
	"orderdocs/internal/metrics"
	"orderdocs/internal/parser"
	"orderdocs/internal/schema"
)

// Fingerprint identifies the raw input a table was read from.
type Fingerprint struct {
	Source string
	XXH3   uint64
	Bytes  int64
	Rows   int
}

// String renders the hash the way it is logged.
func (f Fingerprint) String() string { return fmt.Sprintf("%016x", f.XXH3) }

// Tables are the five inputs of one run.
type Tables struct {
	Orders     *schema.Table
	OrderItems *schema.Table
	Customers  *schema.Table
	Products   *schema.Table
	Payments   *schema.Table

	// Fingerprints is keyed by logical table name.
	Fingerprints map[string]Fingerprint
}

// Get returns the table for a logical name, or nil.
func (t *Tables) Get(name string) *schema.Table {
	switch name {
	case schema.TableOrders:
		return t.Orders
	case schema.TableOrderItems:
		return t.OrderItems
	case schema.TableCustomers:
		return t.Customers
	case schema.TableProducts:
		return t.Products
	case schema.TablePayments:
		return t.Payments
	}
	return nil
}

func (t *Tables) set(name string, tbl *schema.Table) {
	switch name {
	case schema.TableOrders:
		t.Orders = tbl
	case schema.TableOrderItems:
		t.OrderItems = tbl
	case schema.TableCustomers:
		t.Customers = tbl
	case schema.TableProducts:
		t.Products = tbl
	case schema.TablePayments:
		t.Payments = tbl
	}
}

// Check verifies every table against its contract and reports all missing
// columns at once.
func (t *Tables) Check() error {
	contracts := schema.Contracts()
	var errs []error
	for _, name := range schema.TableNames() {
		if err := contracts[name].Check(t.Get(name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Resolver maps a file name from the config to a datasource.
type Resolver func(name string) datasource.Source

// newS3Client is a test hook.
var newS3Client = func(ctx context.Context, c config.SourceS3) (s3ds.Getter, error) {
	return s3ds.NewClient(ctx, c.Region, c.Endpoint)
}

// NewResolver builds the Resolver for the configured source kind.
func NewResolver(ctx context.Context, src config.Source) (Resolver, error) {
	switch src.Kind {
	case "file", "":
		return func(name string) datasource.Source { return file.InDir(src.File.Dir, name) }, nil
	case "s3":
		client, err := newS3Client(ctx, src.S3)
		if err != nil {
			return nil, err
		}
		return func(name string) datasource.Source {
			return s3ds.NewObject(client, src.S3.Bucket, src.S3.Prefix, name)
		}, nil
	}
	return nil, fmt.Errorf("unknown source kind %q", src.Kind)
}

// Load reads all five tables named by spec. A missing file, a parse error or
// a missing required column aborts the load; nothing is written before that.
func Load(ctx context.Context, spec config.Pipeline) (Tables, error) {
	resolve, err := NewResolver(ctx, spec.Source)
	if err != nil {
		return Tables{}, err
	}
	p, err := parser.New(spec.Parser)
	if err != nil {
		return Tables{}, err
	}
	return LoadWith(ctx, spec.Job, spec.Source.Tables, resolve, p)
}

// LoadWith is Load with the source and parser supplied by the caller.
func LoadWith(ctx context.Context, job string, files map[string]string, resolve Resolver, p parser.Parser) (Tables, error) {
	out := Tables{Fingerprints: make(map[string]Fingerprint, len(schema.TableNames()))}
	for _, name := range schema.TableNames() {
		fileName := files[name]
		if fileName == "" {
			fileName = config.DefaultTableFiles[name]
		}
		start := time.Now()
		tbl, fp, err := loadOne(ctx, name, resolve(fileName), p)
		metrics.RecordStep(job, "extract:"+name, err, time.Since(start))
		if err != nil {
			return Tables{}, err
		}
		metrics.RecordRow(job, "input_"+name, int64(fp.Rows))
		log.Printf("extract: table=%s source=%s rows=%d bytes=%d xxh3=%s elapsed=%s",
			name, fp.Source, fp.Rows, fp.Bytes, fp, time.Since(start).Truncate(time.Millisecond))
		out.set(name, tbl)
		out.Fingerprints[name] = fp
	}
	if err := out.Check(); err != nil {
		return Tables{}, err
	}
	return out, nil
}

func loadOne(ctx context.Context, name string, src datasource.Source, p parser.Parser) (*schema.Table, Fingerprint, error) {
	hs := &hashingSource{Source: src, h: xxh3.New()}
	rc, _, err := compress.Open(ctx, hs)
	if err != nil {
		return nil, Fingerprint{}, fmt.Errorf("extract %s: %w", name, err)
	}
	defer rc.Close()

	tbl, err := p.Parse(name, rc)
	if err != nil {
		return nil, Fingerprint{}, fmt.Errorf("extract %s: %w", name, err)
	}
	// Drain what the parser left unread so the hash covers the whole input.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return nil, Fingerprint{}, fmt.Errorf("extract %s: %w", name, err)
	}
	return tbl, Fingerprint{
		Source: src.Name(),
		XXH3:   hs.h.Sum64(),
		Bytes:  hs.n,
		Rows:   tbl.Len(),
	}, nil
}

// hashingSource hashes the raw (still compressed) bytes as they are read.
type hashingSource struct {
	datasource.Source
	h *xxh3.Hasher
	n int64
}

func (s *hashingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	rc, err := s.Source.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &teeCloser{r: rc, c: rc, s: s}, nil
}

type teeCloser struct {
	r io.Reader
	c io.Closer
	s *hashingSource
}

func (t *teeCloser) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		_, _ = t.s.h.Write(p[:n])
		t.s.n += int64(n)
	}
	return n, err
}

func (t *teeCloser) Close() error { return t.c.Close() }
