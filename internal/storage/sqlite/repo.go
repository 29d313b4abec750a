// Package sqlite stores order documents as JSON text in SQLite via the
// pure-Go modernc driver. Scalar index paths become json_extract expression
// indexes; the items array is mirrored into a side table so its category
// can be indexed too.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"orderdocs/internal/document"
	"orderdocs/internal/storage"
)

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is a file path or URI, e.g. "orders.db" or ":memory:".
	DSN string
	// Table holds the documents; Table+"_items" holds the item mirror.
	Table string
}

// Repository is a SQLite-backed storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// Open opens dsn with a single connection, which keeps ":memory:"
// databases alive and shared for the life of the handle.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewRepository opens the database and returns a Repository plus a Close
// function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("sqlite: table must not be empty")
	}
	db, err := Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { db.Close() }, nil
}

// SchemaSQL returns the statements Reset runs after dropping the tables.
func SchemaSQL(table string) []string {
	items := table + "_items"
	stmts := []string{
		fmt.Sprintf("CREATE TABLE %s (id TEXT PRIMARY KEY, doc TEXT NOT NULL)", quote(table)),
		fmt.Sprintf("CREATE TABLE %s (order_id TEXT NOT NULL, product_category TEXT)", quote(items)),
	}
	for _, ix := range storage.Indexes {
		name := quote(table + "_" + ix.Name + "_idx")
		if ix.Array {
			field := ix.Path[strings.LastIndex(ix.Path, ".")+1:]
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s (%s)", name, quote(items), quote(field)))
			continue
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s (json_extract(doc, '$.%s'))", name, quote(table), ix.Path))
	}
	return stmts
}

// Reset drops and recreates both tables and their indexes.
func (r *Repository) Reset(ctx context.Context) error {
	stmts := []string{
		"DROP TABLE IF EXISTS " + quote(r.cfg.Table+"_items"),
		"DROP TABLE IF EXISTS " + quote(r.cfg.Table),
	}
	stmts = append(stmts, SchemaSQL(r.cfg.Table)...)
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("sqlite: %s: %w", s, err)
		}
	}
	return nil
}

// InsertMany writes docs in one transaction. A document that fails to
// insert is counted and skipped; the transaction continues.
func (r *Repository) InsertMany(ctx context.Context, docs []document.Document) (storage.InsertResult, error) {
	var res storage.InsertResult
	if len(docs) == 0 {
		return res, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	docStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (id, doc) VALUES (?, ?) ON CONFLICT(id) DO NOTHING", quote(r.cfg.Table)))
	if err != nil {
		return res, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer docStmt.Close()
	itemStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (order_id, product_category) VALUES (?, ?)", quote(r.cfg.Table+"_items")))
	if err != nil {
		return res, fmt.Errorf("sqlite: prepare item insert: %w", err)
	}
	defer itemStmt.Close()

	for _, d := range docs {
		if err := r.insertOne(ctx, docStmt, itemStmt, d); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			res.AddError(err)
			continue
		}
		res.Inserted++
	}
	if err := tx.Commit(); err != nil {
		return storage.InsertResult{}, fmt.Errorf("sqlite: commit: %w", err)
	}
	return res, nil
}

func (r *Repository) insertOne(ctx context.Context, docStmt, itemStmt *sql.Stmt, d document.Document) error {
	if err := d.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s: %w", d.ID, err)
	}
	out, err := docStmt.ExecContext(ctx, d.ID, string(b))
	if err != nil {
		return fmt.Errorf("sqlite: _id=%s: %w", d.ID, err)
	}
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sqlite: _id=%s: duplicate key", d.ID)
	}
	for _, it := range d.Items {
		if _, err := itemStmt.ExecContext(ctx, d.ID, it.ProductCategory); err != nil {
			return fmt.Errorf("sqlite: _id=%s items: %w", d.ID, err)
		}
	}
	return nil
}

// Scan reads every document in insertion order.
func (r *Repository) Scan(ctx context.Context, fn func(document.Document) error) error {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT doc FROM %s ORDER BY rowid", quote(r.cfg.Table)))
	if err != nil {
		return fmt.Errorf("sqlite: scan: %w", err)
	}
	// Buffer first: the single connection is held until rows is closed.
	var raws []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite: scan: %w", err)
		}
		raws = append(raws, raw)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: scan: %w", err)
	}
	for _, raw := range raws {
		var d document.Document
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return fmt.Errorf("sqlite: decode: %w", err)
		}
		d.Normalize()
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func quote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
