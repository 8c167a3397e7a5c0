package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validPipeline() Pipeline {
	p := Pipeline{
		Job:     "orders",
		Source:  Source{Kind: "file", File: SourceFile{Path: "input.csv"}},
		Parser:  Parser{Kind: "csv"},
		Outputs: []Output{{Kind: "csv", Path: "out.csv"}},
	}
	p.ApplyDefaults()
	return p
}

/*
TestValidatePipeline_ValidMinimal verifies that a well-formed pipeline produces
no issues (errors or warnings).
*/
func TestValidatePipeline_ValidMinimal(t *testing.T) {
	t.Parallel()

	if issues := ValidatePipeline(validPipeline()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

/*
TestValidatePipeline_MissingJob verifies that an empty Job produces a
SeverityError with path "job". Decode fills the default, so this only
happens for hand-built values.
*/
func TestValidatePipeline_MissingJob(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Job = ""
	if !hasIssue(t, ValidatePipeline(p), SeverityError, "job", "must not be empty") {
		t.Fatalf("expected SeverityError for job")
	}
}

/*
TestValidatePipeline_StructRules covers the tag-driven rules and the json
paths they report.
*/
func TestValidatePipeline_StructRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Pipeline)
		path   string
		msg    string
	}{
		{"unknown source kind", func(p *Pipeline) { p.Source.Kind = "ftp" }, "source.kind", `"ftp" is not one of`},
		{"unknown parser kind", func(p *Pipeline) { p.Parser.Kind = "xml" }, "parser.kind", "is not one of"},
		{"no outputs", func(p *Pipeline) { p.Outputs = nil }, "outputs", "at least 1"},
		{"unknown output kind", func(p *Pipeline) { p.Outputs[0].Kind = "s3" }, "outputs[0].kind", "is not one of"},
		{"bad dedup scope", func(p *Pipeline) { p.Runtime.DedupScope = "none" }, "runtime.dedup_scope", "is not one of"},
		{"bad url", func(p *Pipeline) { p.Source = Source{Kind: "http", HTTP: SourceHTTP{URL: "not a url"}} }, "source.http.url", "not a valid URL"},
		{"negative retries", func(p *Pipeline) { p.Source.HTTP.MaxRetries = -1 }, "source.http.max_retries", "must not be negative"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			p := validPipeline()
			c.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(t, issues, SeverityError, c.path, c.msg) {
				t.Fatalf("expected error at %s containing %q; got %+v", c.path, c.msg, issues)
			}
		})
	}
}

/*
TestValidatePipeline_SourceFields verifies the kind-specific source checks.
*/
func TestValidatePipeline_SourceFields(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Source.File.Path = " "
	if !hasIssue(t, ValidatePipeline(p), SeverityError, "source.file.path", "non-empty path") {
		t.Fatalf("expected error for empty file path")
	}

	p = validPipeline()
	p.Source = Source{Kind: "http"}
	if !hasIssue(t, ValidatePipeline(p), SeverityError, "source.http.url", "requires a url") {
		t.Fatalf("expected error for empty url")
	}
}

/*
TestValidatePipeline_TimestampFormat verifies that a strftime directive with
no Go layout equivalent is rejected before a run starts.
*/
func TestValidatePipeline_TimestampFormat(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Transform.TimestampFormat = "%Y week %U"
	if !hasIssue(t, ValidatePipeline(p), SeverityError, "transform.timestamp_format", "unsupported timestamp format") {
		t.Fatalf("expected error for %%U")
	}

	p.Transform.TimestampFormat = "2006-01-02T15:04:05Z07:00"
	if issues := ValidatePipeline(p); HasErrors(issues) {
		t.Fatalf("Go layout rejected: %+v", issues)
	}
}

/*
TestValidatePipeline_Outputs checks the per-kind required fields.
*/
func TestValidatePipeline_Outputs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		out  Output
		path string
		msg  string
		sev  IssueSeverity
	}{
		{Output{Kind: "xlsx"}, "outputs[0].path", "requires a path", SeverityError},
		{Output{Kind: "postgres", DB: DBConfig{Table: "t"}}, "outputs[0].db.dsn", "requires db.dsn", SeverityError},
		{Output{Kind: "sqlite", DB: DBConfig{DSN: "file:x.db"}}, "outputs[0].db.table", "requires db.table", SeverityError},
		{Output{Kind: "mysql", DB: DBConfig{DSN: "d", Table: "t"}}, "outputs[0].db.auto_create_table", "must already exist", SeverityWarning},
		{Output{Kind: "mongo", DB: DBConfig{DSN: "mongodb://h", Table: "orders"}}, "outputs[0].db.database", "requires db.database", SeverityError},
		{Output{Kind: "kafka", Kafka: KafkaConfig{Topic: "orders"}}, "outputs[0].kafka.brokers", "at least one broker", SeverityError},
		{Output{Kind: "kafka", Kafka: KafkaConfig{Brokers: []string{"b:9092"}}}, "outputs[0].kafka.topic", "requires a topic", SeverityError},
	}

	for _, c := range cases {
		p := validPipeline()
		p.Outputs = []Output{c.out}
		issues := ValidatePipeline(p)
		if !hasIssue(t, issues, c.sev, c.path, c.msg) {
			t.Fatalf("%s: expected %s at %s containing %q; got %+v", c.out.Kind, c.sev, c.path, c.msg, issues)
		}
	}
}

/*
TestValidatePipeline_Runtime verifies batch size and dedup scope findings.
*/
func TestValidatePipeline_Runtime(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Runtime.BatchSize = 0
	if !hasIssue(t, ValidatePipeline(p), SeverityError, "runtime.batch_size", "positive batch size") {
		t.Fatalf("expected error for batch_size=0")
	}

	p = validPipeline()
	p.Runtime.UseChunks = true
	p.Runtime.DedupScope = DedupBatch
	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityWarning, "runtime.dedup_scope", "within one batch") {
		t.Fatalf("expected warning for batch dedup scope; got %+v", issues)
	}
	if HasErrors(issues) {
		t.Fatalf("batch dedup scope must not be an error: %+v", issues)
	}
}

func TestIssue_Error(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "job", Message: "empty"}
	if got := iss.Error(); got != "error at job: empty" {
		t.Fatalf("Error() = %q", got)
	}
}
