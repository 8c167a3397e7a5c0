// Package source loads order records from a tabular input, either all at
// once or as a lazy sequence of bounded batches.
package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"orderetl/internal/datasource"
	"orderetl/pkg/records"
)

var (
	// ErrNotFound reports that the input does not exist.
	ErrNotFound = datasource.ErrNotFound

	// ErrSchema is matched by *SchemaError.
	ErrSchema = errors.New("source: required columns missing")

	// ErrEmptyDataset reports that the input holds zero records.
	ErrEmptyDataset = errors.New("source: no records")
)

// SchemaError lists the required columns absent from the input header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required columns missing: %s", strings.Join(e.Missing, ", "))
}

// Is makes errors.Is(err, ErrSchema) true.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// Source yields order records.
type Source interface {
	// LoadAll reads every record with every input column.
	LoadAll(ctx context.Context) (records.Dataset, error)

	// LoadBatches lazily reads batches of at most size records, projected to
	// records.RequiredColumns. An error ends the sequence. Ranging again
	// re-reads the input from the start.
	LoadBatches(ctx context.Context, size int) iter.Seq2[records.Batch, error]
}

// checkSchema returns a *SchemaError when header lacks any required column.
func checkSchema(header []string) error {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[h] = struct{}{}
	}
	var missing []string
	for _, c := range records.RequiredColumns {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// projection returns the positions of the required columns in header, in
// header order, and their names.
func projection(header []string) (idx []int, cols []string) {
	want := make(map[string]struct{}, len(records.RequiredColumns))
	for _, c := range records.RequiredColumns {
		want[c] = struct{}{}
	}
	for i, h := range header {
		if _, ok := want[h]; ok {
			idx = append(idx, i)
			cols = append(cols, h)
			delete(want, h) // first occurrence wins
		}
	}
	return idx, cols
}

// pick builds a record from the projected positions of row.
func pick(line int, cols []string, idx []int, row []string) records.Record {
	fs := make([]records.Field, 0, len(idx))
	for k, i := range idx {
		if i < len(row) {
			fs = append(fs, records.Field{Name: cols[k], Value: row[i]})
		}
	}
	return records.Record{Line: line, Fields: fs}
}
