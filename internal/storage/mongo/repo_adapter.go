package mongo

import (
	"context"

	"orderetl/internal/ddl"
	"orderetl/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// init registers the "mongo" backend. Table maps to the collection name.
func init() {
	storage.Register("mongo", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{URI: cfg.DSN, Database: cfg.Database, Collection: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("mongo", "", func(ddl.TableDef) (string, error) { return "", nil })
}
