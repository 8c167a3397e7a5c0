// Package records defines the in-memory shape of order rows as they move
// through the pipeline: an ordered list of string fields tagged with the
// source line they were read from.
//
// Values are opaque strings until a transformer interprets them. Stages never
// mutate a Record they were handed; With returns a modified copy so a record
// keeps its identity (Line, field order) while acquiring derived fields.
package records

// Column names of the fixed order schema.
const (
	OrderID           = "order_id"
	OrderStatus       = "order_status"
	PurchaseTimestamp = "order_purchase_timestamp"
	DeliveredDate     = "order_delivered_customer_date"
	DeliveryTimeDays  = "delivery_time_days"
)

// Sentinel values written by the cleaner and the delivery-time calculator.
const (
	NotDelivered    = "Not Delivered"
	DeliveryNA      = "N/A"
	StatusDelivered = "delivered"
)

// RequiredColumns must be present in every input header.
var RequiredColumns = []string{OrderID, OrderStatus, PurchaseTimestamp, DeliveredDate}

// Field is a single named value.
type Field struct {
	Name  string
	Value string
}

// Record is one order row. Fields keep the order they had in the source.
type Record struct {
	// Line is the 1-based physical line (or sheet row) the record came from.
	// Zero when unknown.
	Line   int
	Fields []Field
}

// New builds a record from parallel name/value slices. Extra values beyond
// len(names) are ignored; missing values leave the field absent.
func New(line int, names, values []string) Record {
	n := len(names)
	if len(values) < n {
		n = len(values)
	}
	fs := make([]Field, n)
	for i := 0; i < n; i++ {
		fs[i] = Field{Name: names[i], Value: values[i]}
	}
	return Record{Line: line, Fields: fs}
}

// Get returns the value of name and whether the field is present.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Value returns the value of name, or "" when absent.
func (r Record) Value(name string) string {
	v, _ := r.Get(name)
	return v
}

// With returns a copy of r with name set to value. An existing field keeps
// its position; a new one is appended.
func (r Record) With(name, value string) Record {
	fs := make([]Field, len(r.Fields), len(r.Fields)+1)
	copy(fs, r.Fields)
	for i := range fs {
		if fs[i].Name == name {
			fs[i].Value = value
			return Record{Line: r.Line, Fields: fs}
		}
	}
	fs = append(fs, Field{Name: name, Value: value})
	return Record{Line: r.Line, Fields: fs}
}

// Values returns the values of r aligned to columns; absent fields are "".
func (r Record) Values(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = r.Value(c)
	}
	return out
}

// Dataset is an ordered sequence of records sharing one column layout.
type Dataset struct {
	Columns []string
	Records []Record
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.Records) }

// Batch is a bounded slice of a dataset processed together in chunked mode.
type Batch struct {
	Index int // 0-based position in the source stream
	Dataset
}

// WithColumn returns cols with name appended unless already present.
func WithColumn(cols []string, name string) []string {
	for _, c := range cols {
		if c == name {
			return cols
		}
	}
	out := make([]string, len(cols), len(cols)+1)
	copy(out, cols)
	return append(out, name)
}
