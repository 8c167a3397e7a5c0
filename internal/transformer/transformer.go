// Package transformer holds the record transforms of the order pipeline: the
// Cleaner (dedupe, normalize, status filter) and the DeliveryTime calculator.
//
// Transforms never fail. Row-level problems are logged and resolved locally
// (the row is dropped or its derived value becomes "N/A"), so one bad row can
// never abort a run.
package transformer

import "orderetl/pkg/records"

// Transformer maps a slice of records to a new slice. Implementations must
// not mutate the input records.
type Transformer interface {
	Apply([]records.Record) []records.Record
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs each transformer in order, feeding the output of one into the
// next.
func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}
