package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLocalOpen covers success, missing file, and pre-canceled context.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	const payload = "order_id\no1\n"
	if err := os.WriteFile(filepath.Join(dir, "orders.csv"), []byte(payload), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name            string
		file            string
		ctx             context.Context
		wantErrIs       error
		wantErrContains string
	}{
		{name: "success_reads_content", file: "orders.csv", ctx: context.Background()},
		{name: "missing_file", file: "missing.csv", ctx: context.Background(), wantErrIs: os.ErrNotExist, wantErrContains: "open "},
		{name: "pre_canceled_context", file: "orders.csv", ctx: canceled, wantErrIs: context.Canceled},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			src := InDir(dir, c.file)
			if src.Name() != filepath.Join(dir, c.file) {
				t.Fatalf("Name() = %q", src.Name())
			}
			rc, err := src.Open(c.ctx)
			if c.wantErrIs != nil {
				if !errors.Is(err, c.wantErrIs) {
					t.Fatalf("errors.Is(%v, %v) = false", err, c.wantErrIs)
				}
				if c.wantErrContains != "" && !strings.Contains(err.Error(), c.wantErrContains) {
					t.Fatalf("error %q does not contain %q", err, c.wantErrContains)
				}
				if rc != nil {
					_ = rc.Close()
					t.Fatalf("got non-nil ReadCloser on error: %T", rc)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() unexpected error: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("reading: %v", err)
			}
			if string(got) != payload {
				t.Fatalf("content = %q, want %q", got, payload)
			}
		})
	}
}
