// Package datasource defines where raw table bytes come from. Concrete
// sources live in subpackages: file (local disk) and s3 (AWS S3 objects).
// Transparent decompression is layered on top by package compress.
package datasource

import (
	"context"
	"io"
)

// Source opens one input stream.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)

	// Name identifies the stream in logs and selects decompression and
	// parsing by extension, e.g. "data/raw/orders.csv.gz".
	Name() string
}
