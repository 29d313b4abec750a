// Package postgres stores order documents as JSONB rows using pgx v5. Each
// document is one row keyed by its _id; indexes are expression indexes over
// the JSONB column.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"orderdocs/internal/document"
	"orderdocs/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // target table, optionally schema-qualified
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("postgres: table must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg}, pool.Close, nil
}

// CreateTableSQL returns the DDL of the document table.
func CreateTableSQL(table string) string {
	return fmt.Sprintf("CREATE TABLE %s (id text PRIMARY KEY, doc jsonb NOT NULL)", pgFQN(table))
}

// IndexSQL returns the DDL of ix on table. Scalar paths get a btree over
// the extracted text; array paths get a GIN index over the array.
func IndexSQL(table string, ix storage.Index) string {
	name := pgIdent(indexName(table, ix))
	segs := strings.Split(ix.Path, ".")
	if ix.Array {
		return fmt.Sprintf("CREATE INDEX %s ON %s USING GIN ((doc -> %s) jsonb_path_ops)",
			name, pgFQN(table), pgLiteral(segs[0]))
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s ((doc #>> %s))",
		name, pgFQN(table), pgLiteral("{"+strings.Join(segs, ",")+"}"))
}

const insertSQL = `INSERT INTO %s (id, doc)
SELECT x.id, x.doc::jsonb FROM unnest($1::text[], $2::text[]) AS x(id, doc)
ON CONFLICT (id) DO NOTHING
RETURNING id`

// Reset drops and recreates the table and its indexes in one transaction.
func (r *Repository) Reset(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmts := []string{
		"DROP TABLE IF EXISTS " + pgFQN(r.cfg.Table),
		CreateTableSQL(r.cfg.Table),
	}
	for _, ix := range storage.Indexes {
		stmts = append(stmts, IndexSQL(r.cfg.Table, ix))
	}
	for _, s := range stmts {
		if _, err := tx.Exec(ctx, s); err != nil {
			return fmt.Errorf("postgres: %s: %w", s, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// InsertMany writes docs in one statement. Rows that hit an existing _id
// are skipped by the database and reported as failures.
func (r *Repository) InsertMany(ctx context.Context, docs []document.Document) (storage.InsertResult, error) {
	var (
		res  storage.InsertResult
		ids  = make([]string, 0, len(docs))
		body = make([]string, 0, len(docs))
	)
	for _, d := range docs {
		b, err := marshal(d)
		if err != nil {
			res.Failed++
			res.AddError(err)
			continue
		}
		ids = append(ids, d.ID)
		body = append(body, string(b))
	}
	if len(ids) == 0 {
		return res, nil
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(insertSQL, pgFQN(r.cfg.Table)), ids, body)
	if err != nil {
		return res, fmt.Errorf("postgres: insert: %w", err)
	}
	inserted := make(map[string]int, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return res, fmt.Errorf("postgres: insert: %w", err)
		}
		inserted[id]++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("postgres: insert: %w", err)
	}

	for _, id := range ids {
		if inserted[id] > 0 {
			inserted[id]--
			res.Inserted++
			continue
		}
		res.Failed++
		res.AddError(fmt.Errorf("postgres: _id=%s: duplicate key", id))
	}
	return res, nil
}

// Scan reads every document ordered by _id.
func (r *Repository) Scan(ctx context.Context, fn func(document.Document) error) error {
	rows, err := r.pool.Query(ctx, fmt.Sprintf("SELECT doc FROM %s ORDER BY id", pgFQN(r.cfg.Table)))
	if err != nil {
		return fmt.Errorf("postgres: scan: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("postgres: scan: %w", err)
		}
		var d document.Document
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("postgres: decode: %w", err)
		}
		d.Normalize()
		if err := fn(d); err != nil {
			return err
		}
	}
	return rows.Err()
}

func marshal(d document.Document) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode %s: %w", d.ID, err)
	}
	return b, nil
}

func indexName(table string, ix storage.Index) string {
	t := table
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	return t + "_" + ix.Name + "_idx"
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.orders" to
// "public"."orders".
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

func pgLiteral(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }
