// Package sink persists a finished order dataset. Each output kind named in
// the pipeline config (csv, xlsx, the database backends, kafka) has a
// constructor in the registry; Multi fans one dataset out to several sinks.
//
// A sink write failure is fatal for the run. Sinks never modify the dataset
// they are handed.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"orderetl/internal/config"
	"orderetl/internal/diag"
	"orderetl/pkg/records"
)

// Sink writes a dataset to one destination.
type Sink interface {
	// Save writes every record of ds and returns the number written.
	Save(ctx context.Context, ds records.Dataset) (int64, error)
	Close() error
}

// Options carries what every sink constructor may need.
type Options struct {
	Log *diag.Logger

	// WriteBatchSize bounds rows per database round trip and messages per
	// Kafka write. Zero selects config.DefaultWriteBatchSize.
	WriteBatchSize int
}

func (o Options) batchSize() int {
	if o.WriteBatchSize > 0 {
		return o.WriteBatchSize
	}
	return config.DefaultWriteBatchSize
}

// Factory builds a sink for one configured output.
type Factory func(ctx context.Context, out config.Output, opt Options) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds (or replaces) the factory for an output kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// Kinds returns the registered output kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds the sink for out.
func New(ctx context.Context, out config.Output, opt Options) (Sink, error) {
	mu.RLock()
	f, ok := factories[out.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported output kind %q", out.Kind)
	}
	s, err := f(ctx, out, opt)
	if err != nil {
		return nil, fmt.Errorf("open %s output: %w", out.Kind, err)
	}
	return s, nil
}

// NewAll builds one sink per output. A single output is returned as is;
// several are combined with Multi. Sinks opened before a failure are closed.
func NewAll(ctx context.Context, outs []config.Output, opt Options) (Sink, error) {
	if len(outs) == 0 {
		return nil, errors.New("no outputs configured")
	}
	sinks := make([]Sink, 0, len(outs))
	for i, o := range outs {
		s, err := New(ctx, o, opt)
		if err != nil {
			for _, opened := range sinks {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("outputs[%d]: %w", i, err)
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMulti(opt.Log, sinks...), nil
}

// stringRows renders ds as rows aligned to ds.Columns.
func stringRows(ds records.Dataset) [][]any {
	rows := make([][]any, len(ds.Records))
	for i, r := range ds.Records {
		vals := r.Values(ds.Columns)
		row := make([]any, len(vals))
		for j, v := range vals {
			row[j] = v
		}
		rows[i] = row
	}
	return rows
}
