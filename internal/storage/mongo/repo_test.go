package mongo

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"orderdocs/internal/document"
	"orderdocs/internal/storage"
)

func docs(ids ...string) []document.Document {
	out := make([]document.Document, len(ids))
	for i, id := range ids {
		out[i] = document.Document{ID: id, Items: []document.OrderItem{}, Payments: []document.Payment{}}
	}
	return out
}

// TestAdapterRegistrationAndClose stubs newRepository and checks that
// storage.New maps the config and that Close reaches the close function.
func TestAdapterRegistrationAndClose(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		got    Config
		closed int32
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{}, func() { atomic.AddInt32(&closed, 1) }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind: "mongo", DSN: "mongodb://localhost:27017", Database: "olist_ecommerce", Collection: "orders",
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if got.URI != "mongodb://localhost:27017" || got.Database != "olist_ecommerce" || got.Collection != "orders" {
		t.Fatalf("config = %+v", got)
	}
	repo.Close()
	if atomic.LoadInt32(&closed) != 1 {
		t.Fatalf("close calls = %d, want 1", closed)
	}
}

func TestAdapterPropagatesErrors(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	want := errors.New("no reachable servers")
	newRepository = func(context.Context, Config) (*Repository, func(), error) { return nil, nil, want }
	if _, err := storage.New(context.Background(), storage.Config{Kind: "mongo"}); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestClassify(t *testing.T) {
	batch := docs("a", "b", "c")

	res, err := classify(batch, nil)
	if err != nil || res.Inserted != 3 {
		t.Fatalf("nil error: %+v %v", res, err)
	}

	dup := mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{
		{WriteError: mongo.WriteError{Index: 1, Code: 11000, Message: "E11000 duplicate key"}},
	}}
	res, err = classify(batch, dup)
	if err != nil {
		t.Fatalf("duplicate should not fail the call: %v", err)
	}
	if res.Inserted != 2 || res.Failed != 1 || !strings.Contains(res.Errors[0].Error(), "_id=b") {
		t.Fatalf("result = %+v", res)
	}

	wc := mongo.BulkWriteException{WriteConcernError: &mongo.WriteConcernError{Code: 64, Message: "waiting for replication timed out"}}
	if _, err := classify(batch, wc); err == nil {
		t.Fatalf("write concern error should fail the call")
	}
	if _, err := classify(batch, errors.New("socket closed")); err == nil {
		t.Fatalf("transport error should fail the call")
	}
}

func TestIndexModels(t *testing.T) {
	models := IndexModels()
	if len(models) != len(storage.Indexes) {
		t.Fatalf("len = %d, want %d", len(models), len(storage.Indexes))
	}
	keys, ok := models[3].Keys.(bson.D)
	if !ok || keys[0].Key != "items.product_category" || keys[0].Value != 1 {
		t.Fatalf("models[3].Keys = %#v", models[3].Keys)
	}
}

// TestIntegration_RoundTrip runs against a live server when
// ORDERDOCS_MONGO_URI is set.
func TestIntegration_RoundTrip(t *testing.T) {
	uri := os.Getenv("ORDERDOCS_MONGO_URI")
	if uri == "" {
		t.Skip("ORDERDOCS_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r, closeFn, err := NewRepository(ctx, Config{URI: uri, Database: "orderdocs_test", Collection: "orders_it"})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer closeFn()
	if err := r.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	res, err := r.InsertMany(ctx, docs("a", "b", "a"))
	if err != nil {
		t.Fatalf("InsertMany: %v", err)
	}
	if res.Inserted != 2 || res.Failed != 1 {
		t.Fatalf("result = %+v, want 2 inserted 1 failed", res)
	}
	n := 0
	if err := r.Scan(ctx, func(d document.Document) error {
		if d.Items == nil || d.Payments == nil {
			t.Errorf("scanned doc %s has nil arrays", d.ID)
		}
		n++
		return nil
	}); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 2 {
		t.Fatalf("scanned %d docs, want 2", n)
	}
}
