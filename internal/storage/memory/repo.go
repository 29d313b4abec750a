// Package memory is a process-local document store. Collections live for
// the life of the process, so reopening a name sees earlier inserts.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"orderdocs/internal/document"
	"orderdocs/internal/storage"
)

// ErrDuplicateID is reported for a document whose _id is already stored.
var ErrDuplicateID = errors.New("duplicate _id")

// Repository is one in-memory collection.
type Repository struct {
	mu   sync.RWMutex
	docs []document.Document
	ids  map[string]struct{}
}

var (
	collMu      sync.Mutex
	collections = map[string]*Repository{}
)

// Open returns the collection called name, creating it on first use.
func Open(name string) *Repository {
	collMu.Lock()
	defer collMu.Unlock()
	r, ok := collections[name]
	if !ok {
		r = &Repository{ids: map[string]struct{}{}}
		collections[name] = r
	}
	return r
}

func init() {
	storage.Register("memory", func(_ context.Context, cfg storage.Config) (storage.Repository, error) {
		return Open(cfg.Database + "." + cfg.Collection), nil
	})
}

var _ storage.Repository = (*Repository)(nil)

// Reset empties the collection. Indexes are implicit.
func (r *Repository) Reset(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = nil
	r.ids = map[string]struct{}{}
	return nil
}

// InsertMany stores each valid document whose _id is new.
func (r *Repository) InsertMany(ctx context.Context, docs []document.Document) (storage.InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.InsertResult{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var res storage.InsertResult
	for _, d := range docs {
		if err := d.Validate(); err != nil {
			res.Failed++
			res.AddError(err)
			continue
		}
		if _, dup := r.ids[d.ID]; dup {
			res.Failed++
			res.AddError(fmt.Errorf("memory: %w: %s", ErrDuplicateID, d.ID))
			continue
		}
		r.ids[d.ID] = struct{}{}
		r.docs = append(r.docs, d)
		res.Inserted++
	}
	return res, nil
}

// Scan visits documents in insertion order over a snapshot taken at the
// start of the call.
func (r *Repository) Scan(ctx context.Context, fn func(document.Document) error) error {
	r.mu.RLock()
	snap := append([]document.Document(nil), r.docs...)
	r.mu.RUnlock()
	for _, d := range snap {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored documents.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// Close is a no-op; the collection outlives its handles.
func (r *Repository) Close() {}
