// Package pipeline runs the order pipeline: load, clean, derive
// delivery_time_days, save. The Driver owns the run state machine; in
// chunked mode the batch coordinator feeds the cleaner and calculator one
// bounded batch at a time.
//
// The core is sequential. Context is consulted only at the source and sink
// boundaries.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"orderetl/internal/config"
	"orderetl/internal/diag"
	"orderetl/internal/metrics"
	"orderetl/internal/sink"
	"orderetl/internal/source"
	"orderetl/internal/transformer"
	"orderetl/pkg/records"
)

// Settings are the run parameters taken from the pipeline config.
type Settings struct {
	UseChunks       bool
	BatchSize       int
	DedupScope      string // config.DedupGlobal (default) or config.DedupBatch
	TimestampFormat string
}

// SettingsFrom extracts Settings from a pipeline config.
func SettingsFrom(p config.Pipeline) Settings {
	return Settings{
		UseChunks:       p.Runtime.UseChunks,
		BatchSize:       p.Runtime.BatchSize,
		DedupScope:      p.Runtime.DedupScope,
		TimestampFormat: p.Transform.TimestampFormat,
	}
}

// Options are the injected collaborators besides source and sink.
type Options struct {
	Log     *diag.Logger
	Metrics *metrics.Recorder

	// OnReject receives every record the cleaner drops.
	OnReject func(r records.Record, reason transformer.RejectReason)

	// OnState, when set, observes every state transition.
	OnState func(from, to State)
}

// Stats summarises one run.
type Stats struct {
	Loaded    int // records read from the source
	Malformed int // source rows skipped as unparseable
	Batches   int // chunked mode only
	Clean     transformer.CleanStats
	Calc      transformer.CalcStats
}

// Result describes a finished run.
type Result struct {
	RunID       uuid.UUID
	State       State
	RowsWritten int64
	Stats       Stats
	Duration    time.Duration
}

// Driver sequences source, cleaner, calculator and sink. A Driver may run
// repeatedly (scheduled runs); each Run starts again from Idle.
type Driver struct {
	set  Settings
	src  source.Source
	out  sink.Sink
	calc *transformer.DeliveryTime
	opt  Options

	state State
}

// New validates settings and returns a Driver. An unsupported timestamp
// format or a non-positive batch size in chunked mode is an error here, so
// a bad configuration fails before any input is touched.
func New(set Settings, src source.Source, out sink.Sink, opt Options) (*Driver, error) {
	if src == nil || out == nil {
		return nil, errors.New("pipeline: source and sink are required")
	}
	calc, err := transformer.NewDeliveryTime(set.TimestampFormat, opt.Log)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if set.BatchSize == 0 {
		set.BatchSize = config.DefaultBatchSize
	}
	if set.UseChunks && set.BatchSize < 0 {
		return nil, fmt.Errorf("pipeline: batch size must be positive, got %d", set.BatchSize)
	}
	if set.DedupScope == "" {
		set.DedupScope = config.DedupGlobal
	}
	if set.DedupScope != config.DedupGlobal && set.DedupScope != config.DedupBatch {
		return nil, fmt.Errorf("pipeline: unknown dedup scope %q", set.DedupScope)
	}
	return &Driver{set: set, src: src, out: out, calc: calc, opt: opt}, nil
}

// State returns the state of the current or last run.
func (d *Driver) State() State { return d.state }

// Run executes one pipeline run. A fatal failure is logged and returned as
// a *StageError; the Driver never retries.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	log := d.opt.Log
	res := Result{RunID: uuid.New()}
	start := time.Now()
	d.state = Idle

	log.Infof("Starting pipeline run %s (chunked=%v)", res.RunID, d.set.UseChunks)

	var (
		ds  records.Dataset
		err error
	)
	if d.set.UseChunks {
		ds, err = d.processChunks(ctx, &res.Stats)
	} else {
		ds, err = d.processWhole(ctx, &res.Stats)
	}
	if m, ok := d.src.(interface{ Malformed() int }); ok {
		res.Stats.Malformed = m.Malformed()
	}
	if err == nil {
		res.RowsWritten, err = d.save(ctx, ds)
	}

	res.Duration = time.Since(start)
	if err != nil {
		d.transition(Failed)
		res.State = Failed
		log.Errorf("Pipeline failed: %v", err)
		d.record(res)
		return res, err
	}

	d.transition(Done)
	res.State = Done
	log.Infof("Pipeline completed successfully in %.2f seconds", res.Duration.Seconds())
	d.summarise(res)
	d.record(res)
	return res, nil
}

// processWhole runs Loading → Cleaning → Calculating on the full dataset.
func (d *Driver) processWhole(ctx context.Context, st *Stats) (records.Dataset, error) {
	var ds records.Dataset
	err := d.step(Loading, func() error {
		var err error
		ds, err = d.src.LoadAll(ctx)
		return err
	})
	if err != nil {
		return records.Dataset{}, err
	}
	st.Loaded = ds.Len()

	var cleaned []records.Record
	if err := d.step(Cleaning, func() error {
		cleaned = d.cleaner(nil, &st.Clean).Apply(ds.Records)
		d.opt.Log.Infof("Cleaned data: %d rows remain (removed %d rows)", len(cleaned), ds.Len()-len(cleaned))
		return nil
	}); err != nil {
		return records.Dataset{}, err
	}

	var out []records.Record
	if err := d.step(Calculating, func() error {
		out = d.calculator(&st.Calc).Apply(cleaned)
		return nil
	}); err != nil {
		return records.Dataset{}, err
	}

	return records.Dataset{
		Columns: records.WithColumn(ds.Columns, records.DeliveryTimeDays),
		Records: out,
	}, nil
}

// save writes ds unless it is empty, in which case saving is skipped.
func (d *Driver) save(ctx context.Context, ds records.Dataset) (int64, error) {
	if ds.Len() == 0 {
		d.opt.Log.Warnf("No data to save")
		return 0, nil
	}
	var n int64
	err := d.step(Saving, func() error {
		var err error
		n, err = d.out.Save(ctx, ds)
		return err
	})
	return n, err
}

// step enters state, runs fn, and records its duration and outcome. A
// failure is wrapped in a *StageError carrying state.
func (d *Driver) step(state State, fn func() error) error {
	d.transition(state)
	start := time.Now()
	err := fn()
	d.opt.Metrics.Step(state.String(), err, time.Since(start))
	if err != nil {
		return &StageError{Stage: state, Err: err}
	}
	return nil
}

func (d *Driver) transition(to State) {
	from := d.state
	d.state = to
	d.opt.Log.Debugf("state %s -> %s", from, to)
	if d.opt.OnState != nil {
		d.opt.OnState(from, to)
	}
}

func (d *Driver) cleaner(seen *transformer.SeenSet, st *transformer.CleanStats) transformer.Cleaner {
	return transformer.Cleaner{
		Seen:     seen,
		Log:      d.opt.Log,
		Stats:    st,
		OnReject: d.opt.OnReject,
	}
}

// calculator returns a per-run copy of the configured calculator so stats
// never leak between runs.
func (d *Driver) calculator(st *transformer.CalcStats) *transformer.DeliveryTime {
	c := *d.calc
	c.Stats = st
	return &c
}

func (d *Driver) summarise(res Result) {
	s := res.Stats
	d.opt.Log.Infof(
		"summary: run=%s loaded=%d malformed=%d missing_id=%d duplicates=%d not_delivered=%d kept=%d with_times=%d na=%d written=%d",
		res.RunID, s.Loaded, s.Malformed, s.Clean.MissingID, s.Clean.Duplicates, s.Clean.NotDelivered,
		s.Clean.Kept, s.Calc.Computed, s.Calc.NA(), res.RowsWritten,
	)
	if dropped := s.Clean.MissingID + s.Clean.Duplicates + s.Clean.NotDelivered; s.Loaded != dropped+s.Clean.Kept {
		d.opt.Log.Warnf("row accounting mismatch: loaded=%d accounted=%d", s.Loaded, dropped+s.Clean.Kept)
	}
}

func (d *Driver) record(res Result) {
	m := d.opt.Metrics
	s := res.Stats
	m.Rows("loaded", int64(s.Loaded))
	m.Rows("malformed", int64(s.Malformed))
	m.Rows("missing_id", int64(s.Clean.MissingID))
	m.Rows("duplicates", int64(s.Clean.Duplicates))
	m.Rows("not_delivered", int64(s.Clean.NotDelivered))
	m.Rows("na", int64(s.Calc.NA()))
	m.Rows("written", res.RowsWritten)
	m.Batches(int64(s.Batches))
}
