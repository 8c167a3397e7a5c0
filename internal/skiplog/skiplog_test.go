package skiplog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"orderetl/pkg/records"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("readall: %v", err)
	}
	return rows
}

// TestOpen_CreatesDirAndHeader verifies that Open creates missing parent
// directories and writes the header immediately.
func TestOpen_CreatesDirAndHeader(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "rejects", "orders.csv")
	l, err := Open(target)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows := readAll(t, target)
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], Header) {
		t.Fatalf("rows = %#v, want only the header", rows)
	}
}

func TestAdd_WritesRowsAndCounts(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "r.csv")
	l, err := Open(target)
	if err != nil {
		t.Fatal(err)
	}

	cols := []string{records.OrderID, records.OrderStatus}
	l.Add("duplicate", records.New(3, cols, []string{"a", "delivered"}))
	l.Add("status", records.New(4, cols, []string{"b", "shipped"}))
	l.Add("duplicate", records.New(9, cols, []string{"a", "canceled"}))
	l.Add("missing_order_id", records.New(10, cols[1:], []string{"delivered"}))
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := [][]string{
		Header,
		{"duplicate", "3", "a", "delivered"},
		{"status", "4", "b", "shipped"},
		{"duplicate", "9", "a", "canceled"},
		{"missing_order_id", "10", "", "delivered"},
	}
	if got := readAll(t, target); !reflect.DeepEqual(got, want) {
		t.Fatalf("rows:\n got %#v\nwant %#v", got, want)
	}
	if got := l.Counts(); got["duplicate"] != 2 || got["status"] != 1 || got["missing_order_id"] != 1 {
		t.Fatalf("Counts = %v", got)
	}
	if got := l.Summary(); got != "duplicate=2 missing_order_id=1 status=1" {
		t.Fatalf("Summary = %q", got)
	}
}

func TestNilLog(t *testing.T) {
	t.Parallel()

	var l *Log
	l.Add("status", records.Record{})
	if len(l.Counts()) != 0 || l.Summary() != "" || l.Close() != nil {
		t.Fatalf("nil Log should be inert")
	}
}

func TestOpen_BadPath(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	// Parent is a regular file.
	if _, err := Open(filepath.Join(file, "r.csv")); err == nil {
		t.Fatalf("expected error when parent is a file")
	}
}
