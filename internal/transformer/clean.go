package transformer

import (
	"strings"

	"orderetl/internal/diag"
	"orderetl/pkg/records"
)

// RejectReason explains why the Cleaner dropped a record.
type RejectReason string

const (
	RejectMissingID RejectReason = "missing_order_id"
	RejectDuplicate RejectReason = "duplicate"
	RejectStatus    RejectReason = "status"
)

// CleanStats counts what the Cleaner did. Counters accumulate across calls
// when the same *CleanStats is reused.
type CleanStats struct {
	In           int
	MissingID    int
	Duplicates   int
	NotDelivered int
	Normalized   int // delivery dates replaced by the sentinel
	Kept         int
}

// Add accumulates o into s.
func (s *CleanStats) Add(o CleanStats) {
	s.In += o.In
	s.MissingID += o.MissingID
	s.Duplicates += o.Duplicates
	s.NotDelivered += o.NotDelivered
	s.Normalized += o.Normalized
	s.Kept += o.Kept
}

// Cleaner deduplicates records by order_id (first occurrence wins), replaces
// a blank delivery date with records.NotDelivered, and keeps only delivered
// orders. Input order is preserved.
//
// Deduplication happens before the status filter: an earlier non-delivered
// row shadows a later delivered row with the same id.
type Cleaner struct {
	// Seen scopes deduplication. When nil each Apply call starts from an
	// empty set; pass one set to every call to dedupe across calls.
	Seen *SeenSet

	// Log receives a warning per row dropped for a missing order_id.
	Log *diag.Logger

	// Stats, when non-nil, accumulates counters.
	Stats *CleanStats

	// OnReject, when non-nil, is called for every dropped record.
	OnReject func(r records.Record, reason RejectReason)
}

// Apply implements Transformer.
func (c Cleaner) Apply(in []records.Record) []records.Record {
	seen := c.Seen
	if seen == nil {
		seen = NewSeenSet(len(in))
	}

	var st CleanStats
	st.In = len(in)
	out := make([]records.Record, 0, len(in))

	for _, r := range in {
		id, ok := r.Get(records.OrderID)
		if !ok || strings.TrimSpace(id) == "" {
			c.Log.Warnf("Skipping row with missing order_id (line %d)", r.Line)
			st.MissingID++
			c.reject(r, RejectMissingID)
			continue
		}
		if !seen.Add(id) {
			st.Duplicates++
			c.reject(r, RejectDuplicate)
			continue
		}

		if d, ok := r.Get(records.DeliveredDate); !ok || strings.TrimSpace(d) == "" {
			r = r.With(records.DeliveredDate, records.NotDelivered)
			st.Normalized++
		}

		if r.Value(records.OrderStatus) != records.StatusDelivered {
			st.NotDelivered++
			c.reject(r, RejectStatus)
			continue
		}
		out = append(out, r)
	}

	st.Kept = len(out)
	if st.Duplicates == 0 {
		c.Log.Debugf("No duplicate order_ids detected")
	}
	if c.Stats != nil {
		c.Stats.Add(st)
	}
	return out
}

func (c Cleaner) reject(r records.Record, reason RejectReason) {
	if c.OnReject != nil {
		c.OnReject(r, reason)
	}
}
