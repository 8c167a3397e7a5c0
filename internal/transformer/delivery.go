package transformer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"orderetl/internal/diag"
	"orderetl/pkg/records"
)

// CalcStats counts the outcome of the delivery-time calculation.
type CalcStats struct {
	Computed     int // rows with an integer day count
	NotDelivered int // rows whose delivery date was the sentinel or blank
	ParseErrors  int // rows with an unparseable timestamp
}

// NA returns the number of rows resolved to "N/A".
func (s CalcStats) NA() int { return s.NotDelivered + s.ParseErrors }

// Add accumulates o into s.
func (s *CalcStats) Add(o CalcStats) {
	s.Computed += o.Computed
	s.NotDelivered += o.NotDelivered
	s.ParseErrors += o.ParseErrors
}

// progressEvery is the row interval of the calculator's progress line.
const progressEvery = 10000

// DeliveryTime derives delivery_time_days from the purchase and delivery
// timestamps of each record.
type DeliveryTime struct {
	format string // strftime format; empty when layout was given directly
	layout string
	log    *diag.Logger

	// Stats, when non-nil, accumulates counters.
	Stats *CalcStats
}

// NewDeliveryTime returns a calculator parsing timestamps with format (see
// ResolveLayout). An empty format selects DefaultTimestampFormat.
func NewDeliveryTime(format string, log *diag.Logger) (*DeliveryTime, error) {
	if strings.TrimSpace(format) == "" {
		format = DefaultTimestampFormat
	}
	layout, err := ResolveLayout(format)
	if err != nil {
		return nil, err
	}
	d := &DeliveryTime{layout: layout, log: log}
	if strings.Contains(format, "%") {
		d.format = format
	}
	return d, nil
}

// Layout returns the resolved Go time layout.
func (d *DeliveryTime) Layout() string { return d.layout }

// Apply implements Transformer. Every output record carries
// delivery_time_days.
func (d *DeliveryTime) Apply(in []records.Record) []records.Record {
	var st CalcStats
	start := time.Now()
	out := make([]records.Record, len(in))

	for i, r := range in {
		if i > 0 && i%progressEvery == 0 {
			d.log.Debugf("Processed %d rows for delivery time calculation", i)
		}
		days, err := d.Days(r.Value(records.PurchaseTimestamp), r.Value(records.DeliveredDate))
		switch {
		case err != nil:
			d.log.Warnf("Timestamp error in row %s: %v", orderRef(r), err)
			st.ParseErrors++
		case days == records.DeliveryNA:
			st.NotDelivered++
		default:
			st.Computed++
		}
		out[i] = r.With(records.DeliveryTimeDays, days)
	}

	d.log.Debugf("Calculated delivery times: %d with times, %d N/A in %.3f seconds",
		st.Computed, st.NA(), time.Since(start).Seconds())
	if d.Stats != nil {
		d.Stats.Add(st)
	}
	return out
}

// Days returns the day count between the two timestamps as a string, or
// records.DeliveryNA. A non-nil error means one of the timestamps could not
// be parsed; the returned value is records.DeliveryNA in that case.
func (d *DeliveryTime) Days(purchase, delivered string) (string, error) {
	p, err := d.parse(purchase)
	if err != nil {
		return records.DeliveryNA, fmt.Errorf("purchase timestamp: %w", err)
	}
	if delivered == records.NotDelivered || strings.TrimSpace(delivered) == "" {
		return records.DeliveryNA, nil
	}
	t, err := d.parse(delivered)
	if err != nil {
		return records.DeliveryNA, fmt.Errorf("delivery timestamp: %w", err)
	}
	return strconv.FormatInt(DaysBetween(p, t), 10), nil
}

func (d *DeliveryTime) parse(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	return ParseTimestamp(d.format, d.layout, s)
}

func orderRef(r records.Record) string {
	if id := r.Value(records.OrderID); id != "" {
		return id
	}
	return "Unknown"
}
