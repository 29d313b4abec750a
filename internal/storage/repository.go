// Package storage defines the document store contract, a registry of
// backends keyed by kind, and the batched inserter used by the ETL run.
//
// Backends register themselves from init; import storage/all to get every
// built-in kind.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"orderdocs/internal/document"
)

// MaxReportedErrors caps InsertResult.Errors.
const MaxReportedErrors = 10

// Repository is one collection of order documents.
type Repository interface {
	// Reset drops the collection, recreates it and builds Indexes.
	Reset(ctx context.Context) error
	// InsertMany writes docs without stopping at the first failure.
	// Per-document failures are reported in the result; the error is
	// reserved for failures that affect the whole call.
	InsertMany(ctx context.Context, docs []document.Document) (InsertResult, error)
	// Scan calls fn for every stored document. It never writes.
	Scan(ctx context.Context, fn func(document.Document) error) error
	Close()
}

// InsertResult aggregates the outcome of one or more InsertMany calls.
type InsertResult struct {
	Inserted int64
	Failed   int64
	// Errors holds up to MaxReportedErrors per-document failures.
	Errors []error
}

// Add folds o into r.
func (r *InsertResult) Add(o InsertResult) {
	r.Inserted += o.Inserted
	r.Failed += o.Failed
	for _, err := range o.Errors {
		r.AddError(err)
	}
}

// AddError keeps err if fewer than MaxReportedErrors are held. It does not
// touch the counters.
func (r *InsertResult) AddError(err error) {
	if len(r.Errors) < MaxReportedErrors {
		r.Errors = append(r.Errors, err)
	}
}

// Index is a single-field ascending index on a dotted document path.
type Index struct {
	Name string
	Path string
	// Array is set when the path crosses the items or payments array.
	Array bool
}

// Indexes are built by every backend on Reset.
var Indexes = []Index{
	{Name: "order_status", Path: "order.status"},
	{Name: "customer_state", Path: "customer.state"},
	{Name: "customer_city", Path: "customer.city"},
	{Name: "items_product_category", Path: "items.product_category", Array: true},
	{Name: "order_purchase_timestamp", Path: "order.purchase_timestamp"},
}

// Config selects and configures a backend.
type Config struct {
	Kind       string
	DSN        string
	Database   string
	Collection string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds or replaces the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository of cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
