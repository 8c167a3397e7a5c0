// Package skiplog writes the records dropped during cleaning to a CSV file
// and keeps per-reason counts.
package skiplog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"orderetl/pkg/records"
)

// Header is the first line of every reject file.
var Header = []string{"reason", "line", "order_id", "order_status"}

// Log records rejected rows. A nil *Log counts nothing and writes nothing.
type Log struct {
	mu      sync.Mutex
	reasons map[string]int
	f       *os.File
	w       *csv.Writer
	err     error
}

// Open creates path (and its parent directories) and writes the header.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create reject file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write reject header: %w", err)
	}
	return &Log{reasons: make(map[string]int), f: f, w: w}, nil
}

// Add records one rejected record. The first write error is kept and
// returned by Close.
func (l *Log) Add(reason string, r records.Record) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reasons[reason]++
	if l.err != nil {
		return
	}
	l.err = l.w.Write([]string{
		reason,
		strconv.Itoa(r.Line),
		r.Value(records.OrderID),
		r.Value(records.OrderStatus),
	})
}

// Counts returns a copy of the per-reason counts.
func (l *Log) Counts() map[string]int {
	out := map[string]int{}
	if l == nil {
		return out
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, v := range l.reasons {
		out[k] = v
	}
	return out
}

// Summary formats the counts as "reason=n" pairs sorted by reason.
func (l *Log) Summary() string {
	counts := l.Counts()
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%d", k, counts[k])
	}
	return s
}

// Close flushes and closes the file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	if l.err == nil {
		l.err = l.w.Error()
	}
	if err := l.f.Close(); err != nil && l.err == nil {
		l.err = err
	}
	return l.err
}
