package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"orderetl/internal/config"
	"orderetl/internal/diag"
	"orderetl/pkg/records"
)

// DefaultSheet names the worksheet when the output sets none.
const DefaultSheet = "orders"

func init() {
	Register("xlsx", func(_ context.Context, out config.Output, opt Options) (Sink, error) {
		return NewXLSX(out.Path, out.Sheet, opt.Log)
	})
}

// XLSX writes the dataset to a single worksheet with excelize's stream
// writer, header in row 1.
type XLSX struct {
	path  string
	sheet string
	log   *diag.Logger
}

// NewXLSX returns an XLSX sink. An empty sheet selects DefaultSheet.
func NewXLSX(path, sheet string, log *diag.Logger) (*XLSX, error) {
	if path == "" {
		return nil, errors.New("xlsx output needs a path")
	}
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &XLSX{path: path, sheet: sheet, log: log}, nil
}

func (s *XLSX) String() string { return "xlsx:" + s.path }

// Save implements Sink.
func (s *XLSX) Save(ctx context.Context, ds records.Dataset) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), s.sheet); err != nil {
		return 0, fmt.Errorf("name sheet %q: %w", s.sheet, err)
	}
	sw, err := f.NewStreamWriter(s.sheet)
	if err != nil {
		return 0, fmt.Errorf("stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(ds.Columns)); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	var n int64
	for i, r := range ds.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		if err := sw.SetRow(cell, toCells(r.Values(ds.Columns))); err != nil {
			return 0, fmt.Errorf("write row %d: %w", i+2, err)
		}
		n++
	}
	if err := sw.Flush(); err != nil {
		return 0, fmt.Errorf("flush sheet: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	if err := f.SaveAs(s.path); err != nil {
		return 0, fmt.Errorf("save %s: %w", s.path, err)
	}
	s.log.Infof("Saved %d rows to %s (sheet %s)", n, s.path, s.sheet)
	return n, nil
}

// Close implements Sink.
func (s *XLSX) Close() error { return nil }

func toCells(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
