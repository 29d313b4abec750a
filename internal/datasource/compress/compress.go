// Package compress decompresses input streams by file extension:
//
//	.gz   gzip
//	.zst  zstandard
//	.lz4  lz4 frame
//	.sz   snappy framed
//
// Anything else passes through unchanged.
package compress

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"orderdocs/internal/datasource"
)

// Codec names the decompressor chosen for a stream.
type Codec string

const (
	None   Codec = "none"
	Gzip   Codec = "gzip"
	Zstd   Codec = "zstd"
	LZ4    Codec = "lz4"
	Snappy Codec = "snappy"
)

var byExt = []struct {
	ext   string
	codec Codec
}{
	{".gz", Gzip},
	{".zst", Zstd},
	{".lz4", LZ4},
	{".sz", Snappy},
}

// Detect returns the codec for name and name with the compression extension
// removed ("orders.csv.gz" -> Gzip, "orders.csv").
func Detect(name string) (Codec, string) {
	lower := strings.ToLower(name)
	for _, e := range byExt {
		if strings.HasSuffix(lower, e.ext) {
			return e.codec, name[:len(name)-len(e.ext)]
		}
	}
	return None, name
}

// Open opens src and wraps it with the decompressor its name calls for. The
// returned name has the compression extension stripped so callers can pick a
// parser from it.
func Open(ctx context.Context, src datasource.Source) (io.ReadCloser, string, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, "", err
	}
	codec, inner := Detect(src.Name())
	out, err := Wrap(codec, rc)
	if err != nil {
		rc.Close()
		return nil, "", fmt.Errorf("%s: %w", src.Name(), err)
	}
	return out, inner, nil
}

// Wrap returns a ReadCloser that decompresses rc with codec. Closing it closes
// rc as well.
func Wrap(codec Codec, rc io.ReadCloser) (io.ReadCloser, error) {
	switch codec {
	case None, "":
		return rc, nil
	case Gzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &readCloser{Reader: zr, close: func() error { zr.Close(); return rc.Close() }}, nil
	case Zstd:
		zr, err := zstd.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return &readCloser{Reader: zr, close: func() error { zr.Close(); return rc.Close() }}, nil
	case LZ4:
		return &readCloser{Reader: lz4.NewReader(rc), close: rc.Close}, nil
	case Snappy:
		return &readCloser{Reader: snappy.NewReader(rc), close: rc.Close}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", codec)
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error { return r.close() }
