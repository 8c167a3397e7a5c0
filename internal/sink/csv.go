package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"orderetl/internal/config"
	"orderetl/internal/diag"
	"orderetl/pkg/records"
)

func init() {
	Register("csv", func(_ context.Context, out config.Output, opt Options) (Sink, error) {
		return NewCSV(out.Path, opt.Log)
	})
}

// CSV writes the dataset as a comma-separated file with a header row. The
// file is written next to its destination and renamed into place, so a
// failed run never leaves a truncated file behind.
type CSV struct {
	path string
	log  *diag.Logger
}

// NewCSV returns a CSV sink writing to path.
func NewCSV(path string, log *diag.Logger) (*CSV, error) {
	if path == "" {
		return nil, errors.New("csv output needs a path")
	}
	return &CSV{path: path, log: log}, nil
}

func (s *CSV) String() string { return "csv:" + s.path }

// Save implements Sink.
func (s *CSV) Save(ctx context.Context, ds records.Dataset) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(ds.Columns); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write header: %w", err)
	}
	var n int64
	for _, r := range ds.Records {
		if err := w.Write(r.Values(ds.Columns)); err != nil {
			tmp.Close()
			return 0, fmt.Errorf("write line %d: %w", n+2, err)
		}
		n++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("flush %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return 0, fmt.Errorf("rename into %s: %w", s.path, err)
	}
	s.log.Infof("Saved %d rows to %s", n, s.path)
	return n, nil
}

// Close implements Sink.
func (s *CSV) Close() error { return nil }
