package sink

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"orderetl/internal/diag"
	"orderetl/pkg/records"
)

// Multi saves one dataset to several sinks concurrently. The dataset is
// only read while the sinks run.
type Multi struct {
	sinks []Sink
	log   *diag.Logger
}

// NewMulti combines sinks.
func NewMulti(log *diag.Logger, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, log: log}
}

// Save implements Sink. The first failure cancels the others and is
// returned; on success the count is the number of records in ds, which
// every sink must have written.
func (m *Multi) Save(ctx context.Context, ds records.Dataset) (int64, error) {
	g, gctx := errgroup.WithContext(ctx)
	counts := make([]int64, len(m.sinks))
	for i, s := range m.sinks {
		g.Go(func() error {
			n, err := s.Save(gctx, ds)
			counts[i] = n
			if err != nil {
				return fmt.Errorf("%v: %w", s, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	for i, n := range counts {
		if n != int64(ds.Len()) {
			m.log.Warnf("Output %v wrote %d of %d rows", m.sinks[i], n, ds.Len())
		}
	}
	return int64(ds.Len()), nil
}

// Close closes every sink and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
