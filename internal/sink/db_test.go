package sink

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"orderetl/internal/config"
	_ "orderetl/internal/storage/sqlite"
)

// TestDBSaveIntoSQLite runs the database sink end to end against a real
// SQLite file, creating the table from the dataset columns.
func TestDBSaveIntoSQLite(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "orders.db")
	s, err := New(context.Background(), config.Output{
		Kind: "sqlite",
		DB:   config.DBConfig{DSN: dsn, Table: "orders", AutoCreateTable: true},
	}, Options{WriteBatchSize: 2})
	require.NoError(t, err)

	n, err := s.Save(context.Background(), dataset())
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count))
	require.Equal(t, 3, count)

	var days string
	require.NoError(t, db.QueryRow(`SELECT delivery_time_days FROM orders WHERE order_id = 'o2'`).Scan(&days))
	require.Equal(t, "N/A", days)
}

func TestDBSaveWithoutTableFails(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "orders.db")
	s, err := New(context.Background(), config.Output{
		Kind: "sqlite",
		DB:   config.DBConfig{DSN: dsn, Table: "orders"},
	}, Options{})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Save(context.Background(), dataset())
	require.Error(t, err)
}
