package sink

import (
	"context"
	"fmt"

	"orderetl/internal/config"
	"orderetl/internal/diag"
	"orderetl/internal/storage"
	"orderetl/pkg/records"
)

// openRepository is a test hook pointing at storage.New.
var openRepository = storage.New

func init() {
	for _, kind := range []string{"postgres", "mssql", "sqlite", "mysql", "mongo"} {
		Register(kind, newDB)
	}
}

// DB writes the dataset through a storage.Repository. Backends must be
// registered by importing orderetl/internal/storage/all (or a subset).
type DB struct {
	kind       string
	table      string
	autoCreate bool
	batchSize  int
	repo       storage.Repository
	log        *diag.Logger
}

func newDB(ctx context.Context, out config.Output, opt Options) (Sink, error) {
	repo, err := openRepository(ctx, storage.Config{
		Kind:     out.Kind,
		DSN:      out.DB.DSN,
		Table:    out.DB.Table,
		Database: out.DB.Database,
	})
	if err != nil {
		return nil, err
	}
	return &DB{
		kind:       out.Kind,
		table:      out.DB.Table,
		autoCreate: out.DB.AutoCreateTable,
		batchSize:  opt.batchSize(),
		repo:       repo,
		log:        opt.Log,
	}, nil
}

func (s *DB) String() string { return s.kind + ":" + s.table }

// Save implements Sink. With auto_create_table the table is created from
// the dataset columns first.
func (s *DB) Save(ctx context.Context, ds records.Dataset) (int64, error) {
	if s.autoCreate {
		if err := storage.EnsureTable(ctx, s.kind, s.repo, s.table, ds.Columns); err != nil {
			return 0, fmt.Errorf("ensure table %s: %w", s.table, err)
		}
	}
	n, err := storage.LoadRows(ctx, ds.Columns, stringRows(ds), s.batchSize, s.repo.CopyFrom, s.log)
	if err != nil {
		return n, fmt.Errorf("load into %s: %w", s, err)
	}
	s.log.Infof("Saved %d rows to %s", n, s)
	return n, nil
}

// Close releases the repository.
func (s *DB) Close() error {
	s.repo.Close()
	return nil
}
