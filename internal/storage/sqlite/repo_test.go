package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"orderetl/internal/storage"
)

/*
Package-level test helpers (TB-aware)
*/

func newFileRepo(tb testing.TB, table string) *Repository {
	tb.Helper()
	dsn := filepath.Join(tb.TempDir(), "orders.db")
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: dsn, Table: table})
	if err != nil {
		tb.Fatalf("NewRepository: %v", err)
	}
	tb.Cleanup(closeFn)
	return r
}

func countRows(tb testing.TB, r *Repository, table string) int {
	tb.Helper()
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM " + quoteTable(table)).Scan(&n); err != nil {
		tb.Fatalf("count: %v", err)
	}
	return n
}

/*
Unit tests
*/

// TestEnsureTableAndCopyFrom creates the table through the registered DDL
// builder and loads rows through CopyFrom against a real database file.
func TestEnsureTableAndCopyFrom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newFileRepo(t, "orders")
	cols := []string{"order_id", "order_status", "delivery_time_days"}

	w := &wrappedRepo{Repository: r}
	if err := storage.EnsureTable(ctx, "sqlite", w, "orders", cols); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	// Idempotent.
	if err := storage.EnsureTable(ctx, "sqlite", w, "orders", cols); err != nil {
		t.Fatalf("EnsureTable (second): %v", err)
	}

	rows := [][]any{
		{"o1", "delivered", "3"},
		{"o2", "shipped", "N/A"},
	}
	n, err := r.CopyFrom(ctx, cols, rows)
	if err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if n != 2 {
		t.Fatalf("CopyFrom = %d, want 2", n)
	}
	if got := countRows(t, r, "orders"); got != 2 {
		t.Fatalf("rows in table = %d, want 2", got)
	}

	var days string
	if err := r.db.QueryRow(`SELECT delivery_time_days FROM orders WHERE order_id = 'o2'`).Scan(&days); err != nil {
		t.Fatalf("select: %v", err)
	}
	if days != "N/A" {
		t.Fatalf("delivery_time_days = %q, want N/A", days)
	}
}

// TestCopyFromRollsBackOnBadRow checks that a ragged row aborts the whole
// transaction.
func TestCopyFromRollsBackOnBadRow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newFileRepo(t, "orders")
	if err := r.Exec(ctx, `CREATE TABLE orders (order_id TEXT, order_status TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := r.CopyFrom(ctx, []string{"order_id", "order_status"}, [][]any{
		{"o1", "delivered"},
		{"o2"},
	})
	if err == nil || !strings.Contains(err.Error(), "row length") {
		t.Fatalf("err = %v, want row length error", err)
	}
	if got := countRows(t, r, "orders"); got != 0 {
		t.Fatalf("rows after rollback = %d, want 0", got)
	}
}

func TestCopyFromMissingTable(t *testing.T) {
	t.Parallel()

	r := newFileRepo(t, "nope")
	if _, err := r.CopyFrom(context.Background(), []string{"a"}, [][]any{{"x"}}); err == nil {
		t.Fatal("expected error for missing table")
	}
}

func TestCopyFromArgs(t *testing.T) {
	t.Parallel()

	r := &Repository{cfg: Config{Table: "orders"}}
	if _, err := r.CopyFrom(context.Background(), nil, [][]any{{"x"}}); err == nil {
		t.Fatal("expected error for empty columns")
	}
	if n, err := r.CopyFrom(context.Background(), []string{"a"}, nil); err != nil || n != 0 {
		t.Fatalf("CopyFrom(nil rows) = %d, %v", n, err)
	}
}

func TestNewRepositoryEmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "  "}); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestInsertSQL(t *testing.T) {
	t.Parallel()

	got := insertSQL("main.orders", []string{"order_id", `we"ird`})
	want := `INSERT INTO "main"."orders" ("order_id", "we""ird") VALUES (?, ?)`
	if got != want {
		t.Fatalf("insertSQL = %q, want %q", got, want)
	}
}

/*
Benchmarks
*/

func BenchmarkCopyFrom(b *testing.B) {
	ctx := context.Background()
	r := newFileRepo(b, "orders")
	cols := []string{"order_id", "order_status"}
	if err := r.Exec(ctx, `CREATE TABLE orders (order_id TEXT, order_status TEXT)`); err != nil {
		b.Fatalf("create: %v", err)
	}
	rows := make([][]any, 1000)
	for i := range rows {
		rows[i] = []any{"o", "delivered"}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.CopyFrom(ctx, cols, rows); err != nil {
			b.Fatalf("CopyFrom: %v", err)
		}
	}
}
