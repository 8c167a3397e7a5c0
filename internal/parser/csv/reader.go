// Package csv reads delimited text into normalized rows. Malformed lines are
// reported as soft *parser.RowError values so one bad line never ends a run.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"orderetl/internal/config"
	"orderetl/internal/parser"
)

// Reader implements parser.RowReader over encoding/csv.
//
// Options (all optional):
//   - comma (string; first rune used; default ',')
//   - trim_space (bool; default true)
//   - lazy_quotes (bool; default false)
//   - header_map (object; source header -> canonical name)
//   - encoding (string; input charset, default UTF-8)
type Reader struct {
	cr     *csv.Reader
	header []string
	trim   bool
}

// NewReader reads the header line from r. An input with no header at all
// yields a Reader whose Header is empty and whose Next returns io.EOF.
func NewReader(r io.Reader, opt config.Options) (*Reader, error) {
	dec, err := parser.Decode(r, opt.String("encoding", ""))
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(dec)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1 // short rows leave trailing fields absent
	cr.ReuseRecord = true

	rd := &Reader{cr: cr, trim: opt.Bool("trim_space", true)}

	h, err := cr.Read()
	switch {
	case errors.Is(err, io.EOF):
		return rd, nil
	case err != nil:
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	rd.header = parser.NormalizeHeader(h, opt.StringMap("header_map"))
	return rd, nil
}

// Header implements parser.RowReader.
func (r *Reader) Header() []string { return r.header }

// Next implements parser.RowReader. The returned slice is reused by the next
// call.
func (r *Reader) Next() ([]string, int, error) {
	if r.header == nil {
		return nil, 0, io.EOF
	}
	row, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, io.EOF
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, pe.StartLine, &parser.RowError{Line: pe.StartLine, Err: pe.Err}
		}
		return nil, 0, fmt.Errorf("csv read: %w", err)
	}
	line, _ := r.cr.FieldPos(0)
	if r.trim {
		for i, v := range row {
			row[i] = strings.TrimSpace(v)
		}
	}
	return row, line, nil
}
