// Package mongo implements a MongoDB-backed storage.Repository. Each row
// becomes one document whose keys are the dataset columns, in column order.
package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Config holds MongoDB repository configuration.
type Config struct {
	URI        string // mongodb:// or mongodb+srv:// connection string
	Database   string
	Collection string
}

// inserter is the subset of *mongo.Collection used by Repository.
type inserter interface {
	InsertMany(ctx context.Context, documents interface{}, opts ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error)
}

// Repository is a MongoDB-backed implementation of storage.Repository.
type Repository struct {
	coll inserter
	cfg  Config
}

// NewRepository connects, pings and returns a Repository plus a close
// function that disconnects the client.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, nil, fmt.Errorf("mongo: URI must not be empty")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, nil, fmt.Errorf("mongo: database and collection are required")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	return &Repository{coll: coll, cfg: cfg}, closeFn, nil
}

// CopyFrom inserts one document per row with an ordered InsertMany.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	docs, err := documents(columns, rows)
	if err != nil {
		return 0, err
	}
	res, err := r.coll.InsertMany(ctx, docs)
	if err != nil {
		var n int64
		if res != nil {
			n = int64(len(res.InsertedIDs))
		}
		return n, fmt.Errorf("mongo: insert into %s.%s: %w", r.cfg.Database, r.cfg.Collection, err)
	}
	return int64(len(res.InsertedIDs)), nil
}

// Exec is a no-op: collections are created on first insert.
func (r *Repository) Exec(context.Context, string) error { return nil }

func documents(columns []string, rows [][]any) ([]bson.D, error) {
	docs := make([]bson.D, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("mongo: row %d: %d values for %d columns", i, len(row), len(columns))
		}
		doc := make(bson.D, len(columns))
		for j, c := range columns {
			doc[j] = bson.E{Key: c, Value: row[j]}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
