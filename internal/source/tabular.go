package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"orderetl/internal/config"
	"orderetl/internal/datasource"
	"orderetl/internal/datasource/file"
	"orderetl/internal/datasource/httpds"
	"orderetl/internal/diag"
	"orderetl/internal/parser"
	"orderetl/internal/parser/csv"
	"orderetl/internal/parser/xlsx"
	"orderetl/pkg/records"
)

// maxRowWarnings caps the per-load warnings for malformed rows; the rest are
// only counted.
const maxRowWarnings = 400

// Tabular reads records from a CSV or XLSX stream.
type Tabular struct {
	ds   datasource.Source
	name string
	kind string
	opt  config.Options
	log  *diag.Logger

	malformed int
}

// NewTabular returns a Tabular source reading ds with the given parser kind
// ("csv" or "xlsx"). name identifies the input in logs.
func NewTabular(ds datasource.Source, name, kind string, opt config.Options, log *diag.Logger) (*Tabular, error) {
	switch kind {
	case "csv", "xlsx":
	default:
		return nil, fmt.Errorf("unsupported parser kind %q", kind)
	}
	if opt == nil {
		opt = config.Options{}
	}
	return &Tabular{ds: ds, name: name, kind: kind, opt: opt, log: log}, nil
}

// FromConfig builds the Tabular source described by p.Source and p.Parser.
func FromConfig(p config.Pipeline, log *diag.Logger) (*Tabular, error) {
	var (
		ds   datasource.Source
		name string
	)
	switch p.Source.Kind {
	case "file":
		ds, name = file.NewLocal(p.Source.File.Path), p.Source.File.Path
	case "http":
		ds = httpds.NewSource(p.Source.HTTP.URL, httpds.Config{
			MaxRetries: p.Source.HTTP.MaxRetries,
			Timeout:    time.Duration(p.Source.HTTP.TimeoutSec) * time.Second,
		})
		name = p.Source.HTTP.URL
	default:
		return nil, fmt.Errorf("unsupported source kind %q", p.Source.Kind)
	}
	return NewTabular(ds, name, p.Parser.Kind, p.Parser.Options, log)
}

// Malformed returns the number of rows skipped as unreadable by the most
// recent load.
func (t *Tabular) Malformed() int { return t.malformed }

// LoadAll implements Source.
func (t *Tabular) LoadAll(ctx context.Context) (records.Dataset, error) {
	t.log.Infof("Loading data from %s", t.name)
	in, err := t.open(ctx)
	if err != nil {
		return records.Dataset{}, err
	}
	defer in.close()

	ds := records.Dataset{Columns: append([]string(nil), in.header...)}
	for {
		row, line, err := in.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records.Dataset{}, err
		}
		ds.Records = append(ds.Records, records.New(line, ds.Columns, row))
	}
	if ds.Len() == 0 {
		return records.Dataset{}, fmt.Errorf("%s: %w", t.name, ErrEmptyDataset)
	}
	t.log.Infof("Data loaded successfully with %d rows and %d columns", ds.Len(), len(ds.Columns))
	return ds, nil
}

// LoadBatches implements Source.
func (t *Tabular) LoadBatches(ctx context.Context, size int) iter.Seq2[records.Batch, error] {
	return func(yield func(records.Batch, error) bool) {
		if size <= 0 {
			yield(records.Batch{}, fmt.Errorf("batch size must be positive, got %d", size))
			return
		}
		t.log.Infof("Loading data from %s in batches of %d", t.name, size)
		in, err := t.open(ctx)
		if err != nil {
			yield(records.Batch{}, err)
			return
		}
		defer in.close()

		idx, cols := projection(in.header)
		newBatch := func(i int) records.Batch {
			return records.Batch{Index: i, Dataset: records.Dataset{Columns: cols, Records: make([]records.Record, 0, size)}}
		}

		b := newBatch(0)
		total := 0
		for {
			row, line, err := in.next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield(records.Batch{}, err)
				return
			}
			b.Records = append(b.Records, pick(line, cols, idx, row))
			total++
			if len(b.Records) < size {
				continue
			}
			if !yield(b, nil) {
				return
			}
			if err := ctx.Err(); err != nil {
				yield(records.Batch{}, err)
				return
			}
			b = newBatch(b.Index + 1)
		}
		if len(b.Records) > 0 && !yield(b, nil) {
			return
		}
		if total == 0 {
			yield(records.Batch{}, fmt.Errorf("%s: %w", t.name, ErrEmptyDataset))
		}
	}
}

// input is one open pass over the stream.
type input struct {
	header []string
	rows   parser.RowReader
	closer func()
	t      *Tabular
}

func (t *Tabular) open(ctx context.Context) (*input, error) {
	t.malformed = 0
	rc, err := t.ds.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	var (
		rows   parser.RowReader
		closer = func() { rc.Close() }
	)
	switch t.kind {
	case "xlsx":
		xr, err := xlsx.NewReader(rc, t.opt)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("%s: %w", t.name, err)
		}
		rows = xr
		closer = func() { xr.Close(); rc.Close() }
	default:
		cr, err := csv.NewReader(rc, t.opt)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("%s: %w", t.name, err)
		}
		rows = cr
	}

	if err := checkSchema(rows.Header()); err != nil {
		closer()
		return nil, fmt.Errorf("%s: %w", t.name, err)
	}
	return &input{header: rows.Header(), rows: rows, closer: closer, t: t}, nil
}

// next returns the next readable row, logging and skipping malformed ones.
func (in *input) next() ([]string, int, error) {
	for {
		row, line, err := in.rows.Next()
		if err == nil || errors.Is(err, io.EOF) {
			return row, line, err
		}
		if !parser.IsRowError(err) {
			return nil, line, fmt.Errorf("%s: %w", in.t.name, err)
		}
		if in.t.malformed < maxRowWarnings {
			in.t.log.Warnf("Skipping malformed row: %v", err)
		}
		in.t.malformed++
	}
}

func (in *input) close() {
	if in.t.malformed > 0 {
		in.t.log.Warnf("Skipped %d malformed rows in %s", in.t.malformed, in.t.name)
	}
	in.closer()
}
