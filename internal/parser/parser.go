// Package parser turns an input stream into a header plus raw rows. The
// csv and xlsx subpackages implement RowReader; internal/source picks one by
// parser kind and builds records from the rows.
package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// RowReader yields the rows of one tabular input.
type RowReader interface {
	// Header returns the normalized column names.
	Header() []string

	// Next returns the next row and its 1-based line in the input. It returns
	// io.EOF after the last row. A *RowError means only that row is bad; the
	// caller may keep reading.
	Next() (row []string, line int, err error)
}

// RowError reports a row that could not be read. Reading can continue.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }

// IsRowError reports whether err is a soft, per-row error.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}

// utf8BOM is stripped from the first header cell.
const utf8BOM = "\uFEFF"

// NormalizeHeader produces canonical column names: trimmed, BOM removed from
// the first cell, then mapped through headerMap when the trimmed name is a
// key, otherwise lowercased with spaces replaced by underscores.
func NormalizeHeader(h []string, headerMap map[string]string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := col
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		c = strings.TrimSpace(c)
		if m, ok := headerMap[c]; ok {
			res[i] = m
			continue
		}
		res[i] = strings.ReplaceAll(strings.ToLower(c), " ", "_")
	}
	return res
}

// Decode wraps r so that bytes in the named encoding ("windows-1250",
// "latin1", "utf-16le", ...) are converted to UTF-8. An empty name or any
// UTF-8 alias returns r unchanged.
func Decode(r io.Reader, encoding string) (io.Reader, error) {
	name := strings.ToLower(strings.TrimSpace(encoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("input encoding %q: %w", encoding, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
