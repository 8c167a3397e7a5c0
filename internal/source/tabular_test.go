package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"orderetl/internal/config"
	"orderetl/internal/datasource"
	"orderetl/internal/diag"
	"orderetl/pkg/records"
)

const header = "order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_customer_date\n"

// memSource serves the same bytes on every Open and counts the opens.
type memSource struct {
	data  []byte
	opens int
	err   error
}

func (m *memSource) Open(ctx context.Context) (io.ReadCloser, error) {
	m.opens++
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func csvSource(t *testing.T, body string) (*Tabular, *memSource, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	ms := &memSource{data: []byte(body)}
	src, err := NewTabular(ms, "mem", "csv", nil, diag.New(&buf, true))
	if err != nil {
		t.Fatalf("NewTabular: %v", err)
	}
	return src, ms, &buf
}

func rows(n int) string {
	var sb strings.Builder
	sb.WriteString(header)
	for i := 0; i < n; i++ {
		sb.WriteString("o")
		sb.WriteString(string(rune('a' + i)))
		sb.WriteString(",c,delivered,2017-10-02 10:56:33,x,2017-10-10 21:25:13\n")
	}
	return sb.String()
}

func TestLoadAll_KeepsAllColumns(t *testing.T) {
	t.Parallel()

	src, _, _ := csvSource(t, rows(3))
	ds, err := src.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("Len = %d, want 3", ds.Len())
	}
	if len(ds.Columns) != 6 || ds.Columns[1] != "customer_id" {
		t.Fatalf("Columns = %q", ds.Columns)
	}
	r := ds.Records[1]
	if r.Line != 3 || r.Value(records.OrderID) != "ob" || r.Value("customer_id") != "c" {
		t.Fatalf("record = %+v", r)
	}
}

func TestLoadBatches_ProjectsAndBounds(t *testing.T) {
	t.Parallel()

	src, _, _ := csvSource(t, rows(5))
	var sizes, idx []int
	var all []records.Record
	for b, err := range src.LoadBatches(context.Background(), 2) {
		if err != nil {
			t.Fatalf("LoadBatches: %v", err)
		}
		want := []string{records.OrderID, records.OrderStatus, records.PurchaseTimestamp, records.DeliveredDate}
		if !reflect.DeepEqual(b.Columns, want) {
			t.Fatalf("Columns = %q, want %q", b.Columns, want)
		}
		sizes = append(sizes, b.Len())
		idx = append(idx, b.Index)
		all = append(all, b.Records...)
	}
	if !reflect.DeepEqual(sizes, []int{2, 2, 1}) || !reflect.DeepEqual(idx, []int{0, 1, 2}) {
		t.Fatalf("sizes = %v idx = %v", sizes, idx)
	}
	if _, ok := all[0].Get("customer_id"); ok {
		t.Fatalf("extra column survived projection")
	}
	if all[4].Value(records.OrderID) != "oe" || all[4].Line != 6 {
		t.Fatalf("last record = %+v", all[4])
	}
}

func TestLoadBatches_Restartable(t *testing.T) {
	t.Parallel()

	src, ms, _ := csvSource(t, rows(3))
	count := func() int {
		n := 0
		for b, err := range src.LoadBatches(context.Background(), 10) {
			if err != nil {
				t.Fatalf("LoadBatches: %v", err)
			}
			n += b.Len()
		}
		return n
	}
	if a, b := count(), count(); a != 3 || b != 3 {
		t.Fatalf("passes = %d, %d", a, b)
	}
	if ms.opens != 2 {
		t.Fatalf("opens = %d, want 2", ms.opens)
	}
}

func TestLoadBatches_EarlyBreak(t *testing.T) {
	t.Parallel()

	src, _, _ := csvSource(t, rows(5))
	n := 0
	for range src.LoadBatches(context.Background(), 1) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("iterations = %d", n)
	}
}

func TestLoadBatches_BadSize(t *testing.T) {
	t.Parallel()

	src, ms, _ := csvSource(t, rows(1))
	for _, err := range src.LoadBatches(context.Background(), 0) {
		if err == nil {
			t.Fatalf("expected error for size 0")
		}
	}
	if ms.opens != 0 {
		t.Fatalf("opened input for invalid size")
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		openErr error
		want    error
	}{
		{name: "not_found", openErr: datasource.ErrNotFound, want: ErrNotFound},
		{name: "missing_columns", body: "order_id,order_status\n1,delivered\n", want: ErrSchema},
		{name: "empty_file", body: "", want: ErrSchema},
		{name: "header_only", body: header, want: ErrEmptyDataset},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			src, ms, _ := csvSource(t, c.body)
			ms.err = c.openErr

			if _, err := src.LoadAll(context.Background()); !errors.Is(err, c.want) {
				t.Fatalf("LoadAll err = %v, want %v", err, c.want)
			}

			var last error
			n := 0
			for _, err := range src.LoadBatches(context.Background(), 2) {
				last = err
				n++
			}
			if n != 1 || !errors.Is(last, c.want) {
				t.Fatalf("LoadBatches yielded %d items, last err = %v, want %v", n, last, c.want)
			}
		})
	}
}

func TestSchemaError_ListsMissing(t *testing.T) {
	t.Parallel()

	src, _, _ := csvSource(t, "order_id,order_status\n1,delivered\n")
	_, err := src.LoadAll(context.Background())
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SchemaError", err)
	}
	want := []string{records.PurchaseTimestamp, records.DeliveredDate}
	if !reflect.DeepEqual(se.Missing, want) {
		t.Fatalf("Missing = %q, want %q", se.Missing, want)
	}
}

func TestLoadAll_SkipsMalformedRows(t *testing.T) {
	t.Parallel()

	body := header +
		"a,c,delivered,2017-10-02 10:56:33,x,2017-10-10 21:25:13\n" +
		"b,c\"bad,delivered,2017-10-02 10:56:33,x,\n" +
		"c,c,delivered,2017-10-02 10:56:33,x,\n"
	src, _, logs := csvSource(t, body)
	ds, err := src.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if ds.Len() != 2 || src.Malformed() != 1 {
		t.Fatalf("Len = %d Malformed = %d", ds.Len(), src.Malformed())
	}
	if !strings.Contains(logs.String(), "WARNING - Skipping malformed row: line 3") {
		t.Fatalf("missing malformed-row warning:\n%s", logs.String())
	}
}

func TestLoadAll_XLSX(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	defer f.Close()
	data := [][]any{
		{"order_id", "order_status", "order_purchase_timestamp", "order_delivered_customer_date"},
		{"x1", "delivered", "2018-01-01 00:00:00", "2018-01-05 00:00:00"},
	}
	for i := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &data[i]); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	p := config.Default(path, "unused.csv")
	p.Parser.Kind = "xlsx"
	src, err := FromConfig(p, nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	ds, err := src.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if ds.Len() != 1 || ds.Records[0].Value(records.DeliveredDate) != "2018-01-05 00:00:00" {
		t.Fatalf("ds = %+v", ds)
	}
}

func TestFromConfig_MissingFile(t *testing.T) {
	t.Parallel()

	p := config.Default(filepath.Join(t.TempDir(), "nope.csv"), "out.csv")
	src, err := FromConfig(p, nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, err := src.LoadAll(context.Background()); !errors.Is(err, ErrNotFound) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestNewTabular_UnknownKind(t *testing.T) {
	t.Parallel()

	if _, err := NewTabular(&memSource{}, "mem", "parquet", nil, nil); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
