// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local opens one file from the local disk. It is safe for concurrent use.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// InDir returns a Local for name inside dir.
func InDir(dir, name string) *Local { return NewLocal(filepath.Join(dir, name)) }

// Name implements datasource.Source.
func (l *Local) Name() string { return l.path }

// Open returns the file for reading. A context that is already done short
// circuits before the filesystem is touched; open errors keep the os error
// chain so callers can test errors.Is(err, os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
