package postgres

import (
	"context"
	"fmt"

	"orderdocs/internal/storage"
)

// newRepository lets tests avoid a live server.
var newRepository = NewRepository

// pooled closes the pgx pool behind a Repository.
type pooled struct {
	*Repository
	release func()
}

func (p *pooled) Close() { p.release() }

var _ storage.Repository = (*pooled)(nil)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		repo, release, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Collection})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return &pooled{Repository: repo, release: release}, nil
	})
}
