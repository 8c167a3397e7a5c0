// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"orderetl/internal/transformer"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced but does not
	// block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "source.file.path",
// "outputs[1].db.table"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so paths match the pipeline file.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// Struct tag rules run first (go-playground/validator), then the checks that
// depend on more than one field. It does not mutate the pipeline.
//
// Example:
//
//	p, err := config.Load("configs/orders.yaml")
//	if err != nil { ... }
//	for _, iss := range config.ValidatePipeline(p) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	issues = append(issues, structIssues(p)...)
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateTransform(p.Transform)...)
	for i, o := range p.Outputs {
		issues = append(issues, validateOutput(i, o)...)
	}
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

// structIssues converts validator failures into Issues.
func structIssues(p Pipeline) []Issue {
	err := structValidator.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Severity: SeverityError, Path: "", Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     issuePath(fe.Namespace()),
			Message:  ruleMessage(fe),
		})
	}
	return issues
}

// issuePath drops the root type name: "Pipeline.outputs[0].kind" becomes
// "outputs[0].kind".
func issuePath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " must not be empty"
	case "oneof":
		return fmt.Sprintf("%q is not one of [%s]", fe.Value(), fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", fe.Field(), fe.Param())
	case "gte":
		return fe.Field() + " must not be negative"
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func validateSource(s Source) []Issue {
	var issues []Issue
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	case "http":
		if strings.TrimSpace(s.HTTP.URL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.url",
				Message:  "http source requires a url",
			})
		}
	}
	return issues
}

func validateTransform(t Transform) []Issue {
	if _, err := transformer.ResolveLayout(t.TimestampFormat); err != nil {
		return []Issue{{
			Severity: SeverityError,
			Path:     "transform.timestamp_format",
			Message:  fmt.Sprintf("unsupported timestamp format %q: %v", t.TimestampFormat, err),
		}}
	}
	return nil
}

// validateOutput checks the fields each output kind needs.
func validateOutput(i int, o Output) []Issue {
	var issues []Issue
	path := func(field string) string { return fmt.Sprintf("outputs[%d].%s", i, field) }
	need := func(field, val, msg string) {
		if strings.TrimSpace(val) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path(field), Message: msg})
		}
	}

	switch o.Kind {
	case "csv", "xlsx":
		need("path", o.Path, o.Kind+" output requires a path")
	case "postgres", "mssql", "sqlite", "mysql":
		need("db.dsn", o.DB.DSN, o.Kind+" output requires db.dsn")
		need("db.table", o.DB.Table, o.Kind+" output requires db.table")
		if !o.DB.AutoCreateTable {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path("db.auto_create_table"),
				Message:  "auto_create_table is false; the table must already exist with the output columns",
			})
		}
	case "mongo":
		need("db.dsn", o.DB.DSN, "mongo output requires db.dsn")
		need("db.database", o.DB.Database, "mongo output requires db.database")
		need("db.table", o.DB.Table, "mongo output requires db.table (collection)")
	case "kafka":
		if len(o.Kafka.Brokers) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path("kafka.brokers"),
				Message:  "kafka output requires at least one broker",
			})
		}
		need("kafka.topic", o.Kafka.Topic, "kafka output requires a topic")
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; chunked mode needs a positive batch size", r.BatchSize),
		})
	}
	if r.UseChunks && r.DedupScope == DedupBatch {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.dedup_scope",
			Message:  "dedup_scope=batch only removes duplicates within one batch; duplicates across batches are kept",
		})
	}
	return issues
}
