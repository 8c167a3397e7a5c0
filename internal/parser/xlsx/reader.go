// Package xlsx reads the rows of one worksheet of an Excel workbook.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"orderetl/internal/config"
	"orderetl/internal/parser"
)

// Reader implements parser.RowReader over an excelize row iterator.
//
// Options: sheet (string; default the first sheet), trim_space (bool;
// default true), header_map (object).
type Reader struct {
	f      *excelize.File
	rows   *excelize.Rows
	header []string
	line   int
	trim   bool
}

// NewReader opens the workbook in r and reads the header row. The caller
// must Close the Reader.
func NewReader(r io.Reader, opt config.Options) (*Reader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheet := opt.String("sheet", "")
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			f.Close()
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = list[0]
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}

	rd := &Reader{f: f, rows: rows, trim: opt.Bool("trim_space", true)}
	h, _, err := rd.next()
	switch {
	case err == io.EOF:
		return rd, nil
	case err != nil:
		rd.Close()
		return nil, fmt.Errorf("read xlsx header: %w", err)
	}
	rd.header = parser.NormalizeHeader(h, opt.StringMap("header_map"))
	return rd, nil
}

// Header implements parser.RowReader.
func (r *Reader) Header() []string { return r.header }

// Next implements parser.RowReader. Blank rows are skipped; the line is the
// 1-based sheet row.
func (r *Reader) Next() ([]string, int, error) {
	if r.header == nil {
		return nil, 0, io.EOF
	}
	return r.next()
}

func (r *Reader) next() ([]string, int, error) {
	for r.rows.Next() {
		r.line++
		cols, err := r.rows.Columns()
		if err != nil {
			return nil, r.line, &parser.RowError{Line: r.line, Err: err}
		}
		if blank(cols) {
			continue
		}
		if r.trim {
			for i, v := range cols {
				cols[i] = strings.TrimSpace(v)
			}
		}
		return cols, r.line, nil
	}
	if err := r.rows.Error(); err != nil {
		return nil, r.line, fmt.Errorf("xlsx rows: %w", err)
	}
	return nil, r.line, io.EOF
}

// Close releases the row iterator and the workbook.
func (r *Reader) Close() error {
	rerr := r.rows.Close()
	if err := r.f.Close(); err != nil {
		return err
	}
	return rerr
}

func blank(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
