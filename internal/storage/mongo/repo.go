// Package mongo stores order documents in a MongoDB collection using the
// official driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"orderdocs/internal/document"
	"orderdocs/internal/storage"
)

// Config holds MongoDB repository configuration.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Repository is a MongoDB-backed storage.Repository.
type Repository struct {
	client *mongo.Client
	coll   *mongo.Collection
	cfg    Config
}

// NewRepository connects, pings, and returns a Repository plus a Close
// function that disconnects the client.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, nil, fmt.Errorf("mongo: database and collection are required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo: ping: %w", err)
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
	r := &Repository{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		cfg:    cfg,
	}
	return r, closeFn, nil
}

// IndexModels renders storage.Indexes as ascending single-field indexes.
// Mongo indexes array paths as multikey without extra syntax.
func IndexModels() []mongo.IndexModel {
	out := make([]mongo.IndexModel, 0, len(storage.Indexes))
	for _, ix := range storage.Indexes {
		out = append(out, mongo.IndexModel{
			Keys:    bson.D{{Key: ix.Path, Value: 1}},
			Options: options.Index().SetName(ix.Name),
		})
	}
	return out
}

// Reset drops and recreates the collection with its indexes.
func (r *Repository) Reset(ctx context.Context) error {
	if err := r.coll.Drop(ctx); err != nil {
		return fmt.Errorf("mongo: drop %s: %w", r.cfg.Collection, err)
	}
	db := r.client.Database(r.cfg.Database)
	if err := db.CreateCollection(ctx, r.cfg.Collection); err != nil {
		return fmt.Errorf("mongo: create %s: %w", r.cfg.Collection, err)
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, IndexModels()); err != nil {
		return fmt.Errorf("mongo: create indexes: %w", err)
	}
	return nil
}

// InsertMany performs an unordered insert so one rejected document does not
// block the others.
func (r *Repository) InsertMany(ctx context.Context, docs []document.Document) (storage.InsertResult, error) {
	if len(docs) == 0 {
		return storage.InsertResult{}, nil
	}
	batch := make([]any, len(docs))
	for i := range docs {
		batch[i] = docs[i]
	}
	_, err := r.coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
	return classify(docs, err)
}

// classify turns an InsertMany error into per-document failures where the
// server reported them. Anything else fails the whole call.
func classify(docs []document.Document, err error) (storage.InsertResult, error) {
	if err == nil {
		return storage.InsertResult{Inserted: int64(len(docs))}, nil
	}
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return storage.InsertResult{}, fmt.Errorf("mongo: insert: %w", err)
	}
	res := storage.InsertResult{
		Inserted: int64(len(docs) - len(bwe.WriteErrors)),
		Failed:   int64(len(bwe.WriteErrors)),
	}
	for _, we := range bwe.WriteErrors {
		id := "?"
		if we.Index >= 0 && we.Index < len(docs) {
			id = docs[we.Index].ID
		}
		res.AddError(fmt.Errorf("mongo: _id=%s code=%d: %s", id, we.Code, we.Message))
	}
	return res, nil
}

// Scan streams the collection through fn.
func (r *Repository) Scan(ctx context.Context, fn func(document.Document) error) error {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("mongo: find: %w", err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var d document.Document
		if err := cur.Decode(&d); err != nil {
			return fmt.Errorf("mongo: decode: %w", err)
		}
		d.Normalize()
		if err := fn(d); err != nil {
			return err
		}
	}
	return cur.Err()
}
