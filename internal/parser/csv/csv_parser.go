// Package csv parses delimited text into a schema.Table. The whole input is
// materialized: a full reload needs every row of every table in memory.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"orderdocs/internal/config"
	"orderdocs/internal/schema"
)

// Options configures the CSV parser. The zero value reads comma-separated
// input without trimming.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// LazyQuotes relaxes quote handling (csv.Reader.LazyQuotes).
	LazyQuotes bool

	// HeaderMap maps source header names to canonical keys.
	HeaderMap map[string]string
}

// OptionsFrom reads parser options from a config bag:
//
//	comma (string; default ","), trim_space (bool; default true),
//	lazy_quotes (bool), header_map (object)
func OptionsFrom(o config.Options) Options {
	return Options{
		Comma:      o.Rune("comma", ','),
		TrimSpace:  o.Bool("trim_space", true),
		LazyQuotes: o.Bool("lazy_quotes", false),
		HeaderMap:  o.StringMap("header_map"),
	}
}

// Parser parses CSV input according to Options. It holds no state between
// calls and is safe for concurrent use.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// ErrEmpty is returned for input without a header row.
var ErrEmpty = errors.New("csv: empty input")

// Parse reads a header row and every data row. Empty cells become nil. A row
// whose field count differs from the header is an error: skipping it would
// silently drop orders, items or payments.
func (p *Parser) Parse(name string, r io.Reader) (*schema.Table, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.ReuseRecord = true

	h, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read csv header: %w", name, err)
	}
	headers := schema.NormalizeHeaders(h, p.opt.HeaderMap)

	var rows [][]*string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		row := make([]*string, len(rec))
		for i, val := range rec {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			if val == "" {
				continue
			}
			v := strings.Clone(val)
			row[i] = &v
		}
		rows = append(rows, row)
	}
	return schema.NewTable(name, headers, rows), nil
}
