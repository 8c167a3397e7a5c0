package csv

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"orderetl/internal/config"
	"orderetl/internal/parser"
)

type readRow struct {
	line int
	vals []string
}

// drain reads every row, collecting soft errors separately.
func drain(t *testing.T, r *Reader) (rows []readRow, soft []int) {
	t.Helper()
	for {
		row, line, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, soft
		}
		if err != nil {
			var re *parser.RowError
			if !errors.As(err, &re) {
				t.Fatalf("hard error: %v", err)
			}
			soft = append(soft, re.Line)
			continue
		}
		rows = append(rows, readRow{line: line, vals: append([]string(nil), row...)})
	}
}

func TestReader_HeaderNormalization(t *testing.T) {
	t.Parallel()

	in := "\uFEFFOrder ID , Order_Status,Purchase Date\n1,delivered,x\n"
	r, err := NewReader(strings.NewReader(in), config.Options{
		"header_map": map[string]any{"Purchase Date": "order_purchase_timestamp"},
	})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	want := []string{"order_id", "order_status", "order_purchase_timestamp"}
	if !reflect.DeepEqual(r.Header(), want) {
		t.Fatalf("Header = %q, want %q", r.Header(), want)
	}
}

func TestReader_Rows(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		in       string
		opt      config.Options
		wantRows []readRow
		wantSoft []int
	}{
		{
			name: "trim_default_and_line_numbers",
			in:   "a,b\n 1 , x \n\n2,y\n",
			wantRows: []readRow{
				{line: 2, vals: []string{"1", "x"}},
				{line: 4, vals: []string{"2", "y"}},
			},
		},
		{
			name:     "no_trim",
			in:       "a,b\n 1 ,x\n",
			opt:      config.Options{"trim_space": false},
			wantRows: []readRow{{line: 2, vals: []string{" 1 ", "x"}}},
		},
		{
			name:     "semicolon",
			in:       "a;b\n1;x\n",
			opt:      config.Options{"comma": ";"},
			wantRows: []readRow{{line: 2, vals: []string{"1", "x"}}},
		},
		{
			name: "short_and_long_rows_are_kept",
			in:   "a,b,c\n1\n1,2,3,4\n",
			wantRows: []readRow{
				{line: 2, vals: []string{"1"}},
				{line: 3, vals: []string{"1", "2", "3", "4"}},
			},
		},
		{
			name:     "bare_quote_is_soft",
			in:       "a,b\n1,x\"y\n2,z\n",
			wantRows: []readRow{{line: 3, vals: []string{"2", "z"}}},
			wantSoft: []int{2},
		},
		{
			name:     "lazy_quotes_accepts_bare_quote",
			in:       "a,b\n1,x\"y\n",
			opt:      config.Options{"lazy_quotes": true},
			wantRows: []readRow{{line: 2, vals: []string{"1", "x\"y"}}},
		},
		{
			name: "quoted_newline_reports_start_line",
			in:   "a,b\n\"multi\nline\",x\n3,y\n",
			wantRows: []readRow{
				{line: 2, vals: []string{"multi\nline", "x"}},
				{line: 4, vals: []string{"3", "y"}},
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			opt := c.opt
			if opt == nil {
				opt = config.Options{}
			}
			r, err := NewReader(strings.NewReader(c.in), opt)
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			rows, soft := drain(t, r)
			if !reflect.DeepEqual(rows, c.wantRows) {
				t.Fatalf("rows = %+v, want %+v", rows, c.wantRows)
			}
			if !reflect.DeepEqual(soft, c.wantSoft) {
				t.Fatalf("soft errors at %v, want %v", soft, c.wantSoft)
			}
		})
	}
}

func TestReader_EmptyInput(t *testing.T) {
	t.Parallel()

	r, err := NewReader(strings.NewReader(""), config.Options{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if len(r.Header()) != 0 {
		t.Fatalf("Header = %q, want empty", r.Header())
	}
	if _, _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next = %v, want io.EOF", err)
	}
}

func TestReader_Encoding(t *testing.T) {
	t.Parallel()

	// "stav" header plus a windows-1250 encoded "Nezjištěno" (š=0x9A, ě=0xEC).
	in := []byte("stav\nNezji\x9At\xECno\n")
	r, err := NewReader(strings.NewReader(string(in)), config.Options{"encoding": "windows-1250"})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	rows, _ := drain(t, r)
	if len(rows) != 1 || rows[0].vals[0] != "Nezjištěno" {
		t.Fatalf("rows = %+v", rows)
	}

	if _, err := NewReader(strings.NewReader("a\n"), config.Options{"encoding": "klingon"}); err == nil {
		t.Fatalf("expected error for unknown encoding")
	}
}
