// Package diag is the diagnostics sink shared by every pipeline stage.
//
// It is a thin wrapper over the standard library logger that adds a level
// tag to each line ("<time> WARNING - message"). A *Logger is handed to each
// component at construction; nothing in the pipeline logs through package
// globals. A nil *Logger discards everything, which keeps call sites free of
// nil checks in tests.
package diag

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level names as they appear in the log.
const (
	levelDebug = "DEBUG"
	levelInfo  = "INFO"
	levelWarn  = "WARNING"
	levelError = "ERROR"
)

// Logger writes leveled diagnostic lines.
type Logger struct {
	l     *log.Logger
	debug bool
}

// New returns a Logger writing to w. Debug lines are emitted only when debug
// is true.
func New(w io.Writer, debug bool) *Logger {
	return &Logger{l: log.New(w, "", log.LstdFlags|log.Lmicroseconds), debug: debug}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger { return New(io.Discard, false) }

// FileConfig configures a rotating log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int // rotate after this many megabytes (default 1)
	MaxBackups int // rotated files kept (default 3)
	Debug      bool
	// Tee, when non-nil, receives a copy of every line (e.g. os.Stderr).
	Tee io.Writer
}

// OpenFile returns a Logger backed by a size-rotated file. The returned
// closer must be called at shutdown.
func OpenFile(cfg FileConfig) (*Logger, io.Closer, error) {
	if cfg.Path == "" {
		return nil, nil, fmt.Errorf("diag: log file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("diag: create log dir: %w", err)
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 1
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	var w io.Writer = lj
	if cfg.Tee != nil {
		w = io.MultiWriter(lj, cfg.Tee)
	}
	return New(w, cfg.Debug), lj, nil
}

// DebugEnabled reports whether Debugf lines are written.
func (d *Logger) DebugEnabled() bool { return d != nil && d.debug }

// Debugf logs a debug line.
func (d *Logger) Debugf(format string, args ...any) {
	if !d.DebugEnabled() {
		return
	}
	d.printf(levelDebug, format, args...)
}

// Infof logs an informational line.
func (d *Logger) Infof(format string, args ...any) { d.printf(levelInfo, format, args...) }

// Warnf logs a warning. Row-level anomalies use this level.
func (d *Logger) Warnf(format string, args ...any) { d.printf(levelWarn, format, args...) }

// Errorf logs an error line. It does not return an error value.
func (d *Logger) Errorf(format string, args ...any) { d.printf(levelError, format, args...) }

func (d *Logger) printf(level, format string, args ...any) {
	if d == nil || d.l == nil {
		return
	}
	d.l.Printf(level+" - "+format, args...)
}
