package storage

import (
	"context"
	"fmt"
	"sync"

	"orderetl/internal/ddl"
	"orderetl/pkg/records"
)

// DDLBuilder renders the CREATE TABLE statement for a backend. An empty
// statement means the backend needs no DDL (schemaless stores).
type DDLBuilder func(def ddl.TableDef) (string, error)

type dialect struct {
	textType string
	build    DDLBuilder
}

var (
	ddlMu    sync.RWMutex
	dialects = map[string]dialect{}
)

// RegisterDDL registers (or replaces) the DDL builder for kind. textType is
// the column type used for every order field.
func RegisterDDL(kind, textType string, build DDLBuilder) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	dialects[kind] = dialect{textType: textType, build: build}
}

// EnsureTable creates table with the given columns if it does not exist yet.
// Every column is text; order_id is NOT NULL.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, columns []string) error {
	ddlMu.RLock()
	d, ok := dialects[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL registered for storage.kind=%q", kind)
	}
	def := ddl.FromColumns(table, columns, d.textType, records.OrderID)
	stmt, err := d.build(def)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if stmt == "" {
		return nil
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}
