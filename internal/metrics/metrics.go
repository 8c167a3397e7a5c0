// Package metrics records operational metrics of pipeline runs through a
// small backend-agnostic interface. Concrete systems live in subpackages
// (prompush, datadog); the default backend discards everything so callers
// never need to check whether metrics are configured.
package metrics

import "time"

// Metric names emitted by Recorder.
const (
	StepTotal           = "orderetl_step_total"
	StepDurationSeconds = "orderetl_step_duration_seconds"
	RecordsTotal        = "orderetl_records_total"
	BatchesTotal        = "orderetl_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// Nop discards every metric.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }

// Recorder binds a backend to one job name. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	job     string
	backend Backend
}

// NewRecorder returns a Recorder for job. A nil backend selects Nop.
func NewRecorder(job string, b Backend) *Recorder {
	if b == nil {
		b = Nop{}
	}
	return &Recorder{job: job, backend: b}
}

// Step records one execution of a pipeline stage: a success/failure counter
// and its duration.
func (r *Recorder) Step(step string, err error, d time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": r.job, "step": step, "status": status}
	r.backend.IncCounter(StepTotal, 1, lbls)
	r.backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// Rows adds delta to the record counter of kind. Typical kinds:
//   - "loaded"
//   - "missing_id"
//   - "duplicates"
//   - "not_delivered"
//   - "na"
//   - "written"
func (r *Recorder) Rows(kind string, delta int64) {
	if r == nil || delta <= 0 {
		return
	}
	r.backend.IncCounter(RecordsTotal, float64(delta), Labels{"job": r.job, "kind": kind})
}

// Batches adds delta to the processed-batch counter.
func (r *Recorder) Batches(delta int64) {
	if r == nil || delta <= 0 {
		return
	}
	r.backend.IncCounter(BatchesTotal, float64(delta), Labels{"job": r.job})
}

// Flush delegates to the backend.
func (r *Recorder) Flush() error {
	if r == nil {
		return nil
	}
	return r.backend.Flush()
}
