package sqlite

import (
	"context"

	"orderdocs/internal/storage"
)

// newRepository lets tests swap in a repository over a scratch database.
var newRepository = NewRepository

// registered is the storage.Repository handed out by the "sqlite" factory.
type registered struct {
	*Repository
	release func()
}

func (r *registered) Close() {
	if r.release != nil {
		r.release()
	}
}

var _ storage.Repository = (*registered)(nil)

// The collection name doubles as the documents table name.
func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		repo, release, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Collection})
		if err != nil {
			return nil, err
		}
		return &registered{Repository: repo, release: release}, nil
	})
}
