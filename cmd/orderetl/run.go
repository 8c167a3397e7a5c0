package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"orderetl/internal/config"
	"orderetl/internal/diag"
	"orderetl/internal/metrics"
	"orderetl/internal/metrics/datadog"
	"orderetl/internal/metrics/prompush"
	"orderetl/internal/pipeline"
	"orderetl/internal/sink"
	"orderetl/internal/skiplog"
	"orderetl/internal/source"
	"orderetl/internal/transformer"
	"orderetl/pkg/records"
)

const (
	defaultPushgatewayURL = "http://localhost:9091"
	defaultDogStatsDAddr  = "127.0.0.1:8125"
)

// execute opens the diagnostics log and metrics, then runs the pipeline
// once, or on o.schedule until ctx is cancelled.
func execute(ctx context.Context, o cliOptions, p config.Pipeline, stdout, stderr io.Writer) error {
	fc := diag.FileConfig{
		Path:       p.Diagnostics.LogFile,
		MaxSizeMB:  p.Diagnostics.MaxSizeMB,
		MaxBackups: p.Diagnostics.MaxBackups,
		Debug:      o.verbose,
	}
	if o.verbose {
		fc.Tee = stderr
	}
	lg, closer, err := diag.OpenFile(fc)
	if err != nil {
		return err
	}
	defer closer.Close()

	rec, closeMetrics := newMetrics(o, p.Job, lg)
	defer closeMetrics()

	lg.Debugf("pipeline: job=%s source=%s parser=%s outputs=%d chunked=%v batch_size=%d",
		p.Job, p.Source.Kind, p.Parser.Kind, len(p.Outputs), p.Runtime.UseChunks, p.Runtime.BatchSize)

	j, err := newJob(ctx, p, rec, lg)
	if err != nil {
		return err
	}
	defer j.close()

	if o.schedule == "" {
		res, err := j.run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "run %s: wrote %d rows in %s\n", res.RunID, res.RowsWritten, res.Duration.Round(time.Millisecond))
		return nil
	}
	return runScheduled(ctx, o.schedule, j, lg)
}

// newMetrics picks the metrics backend: flag → env → none. A backend that
// fails to initialise is logged and replaced by the nop backend.
func newMetrics(o cliOptions, job string, lg *diag.Logger) (*metrics.Recorder, func()) {
	noop := func() {}

	env, err := config.LoadMetricsEnv()
	if err != nil {
		lg.Warnf("metrics: %v; metrics disabled", err)
		return metrics.NewRecorder(job, nil), noop
	}
	name := o.metricsBackend
	if name == "" {
		name = env.Backend
	}

	switch name {
	case "pushgateway":
		// Decide Pushgateway URL: flag → env → default.
		url := o.pushgatewayURL
		if url == "" {
			url = env.PushgatewayURL
		}
		if url == "" {
			url = defaultPushgatewayURL
		}
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			lg.Warnf("metrics: failed to init prom push backend: %v; using nop", err)
			return metrics.NewRecorder(job, nil), noop
		}
		lg.Infof("metrics: url=%v, backend=%v, job_name=%v", url, name, job)
		return metrics.NewRecorder(job, b), noop

	case "datadog":
		addr := env.DogStatsDAddr
		if addr == "" {
			addr = defaultDogStatsDAddr
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "orderetl.", Tags: []string{"job:" + job}})
		if err != nil {
			lg.Warnf("metrics: failed to init datadog backend: %v; using nop", err)
			return metrics.NewRecorder(job, nil), noop
		}
		lg.Infof("metrics: addr=%v, backend=%v, job_name=%v", addr, name, job)
		return metrics.NewRecorder(job, b), func() {
			if err := b.Close(); err != nil {
				lg.Warnf("metrics: close datadog client: %v", err)
			}
		}

	case "", "none":
		lg.Debugf("metrics: disabled (backend=%q)", name)
	default:
		lg.Warnf("metrics: unknown backend %q; metrics disabled", name)
	}
	return metrics.NewRecorder(job, nil), noop
}

// job owns the long-lived parts of a pipeline: the driver and its outputs.
// Outputs stay open across scheduled runs; the reject file is rewritten on
// every run.
type job struct {
	p      config.Pipeline
	driver *pipeline.Driver
	out    sink.Sink
	rec    *metrics.Recorder
	log    *diag.Logger

	mu      sync.Mutex
	rejects *skiplog.Log
}

func newJob(ctx context.Context, p config.Pipeline, rec *metrics.Recorder, lg *diag.Logger) (*job, error) {
	src, err := source.FromConfig(p, lg)
	if err != nil {
		return nil, err
	}
	out, err := sink.NewAll(ctx, p.Outputs, sink.Options{Log: lg, WriteBatchSize: p.Runtime.WriteBatchSize})
	if err != nil {
		return nil, err
	}

	j := &job{p: p, out: out, rec: rec, log: lg}
	j.driver, err = pipeline.New(pipeline.SettingsFrom(p), src, out, pipeline.Options{
		Log:      lg,
		Metrics:  rec,
		OnReject: j.reject,
	})
	if err != nil {
		out.Close()
		return nil, err
	}
	return j, nil
}

func (j *job) reject(r records.Record, reason transformer.RejectReason) {
	j.mu.Lock()
	l := j.rejects
	j.mu.Unlock()
	l.Add(string(reason), r)
}

// run executes one pipeline run and flushes metrics.
func (j *job) run(ctx context.Context) (pipeline.Result, error) {
	var rejects *skiplog.Log
	if path := j.p.Diagnostics.RejectFile; path != "" {
		var err error
		if rejects, err = skiplog.Open(path); err != nil {
			return pipeline.Result{}, err
		}
	}
	j.mu.Lock()
	j.rejects = rejects
	j.mu.Unlock()

	res, runErr := j.driver.Run(ctx)

	if rejects != nil {
		if err := rejects.Close(); err != nil {
			j.log.Warnf("reject file %s: %v", j.p.Diagnostics.RejectFile, err)
		}
		j.log.Infof("Rejected rows written to %s: %s", j.p.Diagnostics.RejectFile, rejects.Summary())
	}
	if err := j.rec.Flush(); err != nil {
		j.log.Warnf("metrics: flush error: %v", err)
	}
	return res, runErr
}

func (j *job) close() {
	if err := j.out.Close(); err != nil {
		j.log.Warnf("close outputs: %v", err)
	}
}

// checkSchedule reports whether spec is a valid cron expression.
func checkSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid -schedule %q: %w", spec, err)
	}
	return nil
}

// runScheduled runs j on spec until ctx is done. A run still in progress
// when the next tick fires makes that tick a no-op. A failed run is logged
// and the schedule continues.
func runScheduled(ctx context.Context, spec string, j *job, lg *diag.Logger) error {
	cl := cron.PrintfLogger(cronLogger{lg})
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(spec, func() {
		if _, err := j.run(ctx); err != nil {
			lg.Errorf("scheduled run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid -schedule %q: %w", spec, err)
	}

	lg.Infof("Scheduled pipeline %s with %q", j.p.Job, spec)
	c.Start()
	<-ctx.Done()
	lg.Infof("Stopping scheduler: %v", ctx.Err())
	<-c.Stop().Done()
	return nil
}

// cronLogger routes scheduler messages to the diagnostics log.
type cronLogger struct{ l *diag.Logger }

func (c cronLogger) Printf(format string, args ...any) { c.l.Infof(format, args...) }
