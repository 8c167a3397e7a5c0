// Package config defines the JSON/YAML-serializable configuration model of
// the order pipeline, plus loading, defaults, environment overrides, and
// validation.
//
// Example (trimmed):
//
//	{
//	  "job":       "olist_orders",
//	  "source":    { "kind": "file", "file": { "path": "data/raw/olist_orders_dataset.csv" } },
//	  "parser":    { "kind": "csv", "options": { "trim_space": true } },
//	  "transform": { "timestamp_format": "%Y-%m-%d %H:%M:%S" },
//	  "outputs":   [ { "kind": "csv", "path": "data/processed/processed_orders.csv" } ],
//	  "runtime":   { "use_chunks": false, "batch_size": 10000 }
//	}
package config

import "encoding/json"

// Defaults applied by ApplyDefaults.
const (
	DefaultJob             = "orderetl"
	DefaultTimestampFormat = "%Y-%m-%d %H:%M:%S"
	DefaultBatchSize       = 10000
	DefaultWriteBatchSize  = 5000
	DefaultLogFile         = "logs/orderetl.log"

	DedupGlobal = "global"
	DedupBatch  = "batch"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job" yaml:"job" validate:"required"`

	Source      Source        `json:"source" yaml:"source"`
	Parser      Parser        `json:"parser" yaml:"parser"`
	Transform   Transform     `json:"transform" yaml:"transform"`
	Outputs     []Output      `json:"outputs" yaml:"outputs" validate:"min=1,dive"`
	Runtime     RuntimeConfig `json:"runtime" yaml:"runtime"`
	Diagnostics Diagnostics   `json:"diagnostics" yaml:"diagnostics"`
}

// Source identifies where raw order rows come from.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string     `json:"kind" yaml:"kind" validate:"required,oneof=file http"`
	File SourceFile `json:"file" yaml:"file"`
	HTTP SourceHTTP `json:"http" yaml:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path" yaml:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL        string `json:"url" yaml:"url" validate:"omitempty,url"`
	MaxRetries int    `json:"max_retries" yaml:"max_retries" validate:"gte=0"`
	TimeoutSec int    `json:"timeout_sec" yaml:"timeout_sec" validate:"gte=0"`
}

// Parser selects how raw bytes become rows.
type Parser struct {
	// Kind is "csv" or "xlsx".
	Kind string `json:"kind" yaml:"kind" validate:"required,oneof=csv xlsx"`

	// Options is interpreted by the parser. CSV keys: comma (string),
	// trim_space (bool), lazy_quotes (bool), encoding (string),
	// header_map (object). XLSX keys: sheet (string).
	Options Options `json:"options" yaml:"options"`
}

// Transform configures the record transforms.
type Transform struct {
	// TimestampFormat is a strftime format ("%Y-%m-%d %H:%M:%S") or a Go
	// layout used for both order timestamps.
	TimestampFormat string `json:"timestamp_format" yaml:"timestamp_format"`
}

// Output selects one sink for the final dataset.
type Output struct {
	// Kind is one of csv, xlsx, postgres, mssql, sqlite, mysql, mongo, kafka.
	Kind string `json:"kind" yaml:"kind" validate:"required,oneof=csv xlsx postgres mssql sqlite mysql mongo kafka"`

	// Path is the destination file for csv and xlsx outputs.
	Path string `json:"path" yaml:"path"`

	// Sheet names the xlsx worksheet (default "orders").
	Sheet string `json:"sheet" yaml:"sheet"`

	DB    DBConfig    `json:"db" yaml:"db"`
	Kafka KafkaConfig `json:"kafka" yaml:"kafka"`
}

// DBConfig configures database outputs.
type DBConfig struct {
	// DSN is the driver connection string (or Mongo URI).
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is the destination table (or Mongo collection). May be
	// schema-qualified ("public.orders").
	Table string `json:"table" yaml:"table"`

	// Database names the Mongo database. Ignored by SQL backends.
	Database string `json:"database" yaml:"database"`

	// AutoCreateTable creates the table with TEXT columns when missing.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
}

// KafkaConfig configures the kafka output.
type KafkaConfig struct {
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
}

// RuntimeConfig controls chunking and write batching.
type RuntimeConfig struct {
	// UseChunks processes the input in bounded batches.
	UseChunks bool `json:"use_chunks" yaml:"use_chunks"`

	// BatchSize is the number of records per batch in chunked mode.
	BatchSize int `json:"batch_size" yaml:"batch_size" validate:"gte=0"`

	// DedupScope is "global" (default: duplicates are removed across the
	// whole input) or "batch" (only within one chunk).
	DedupScope string `json:"dedup_scope" yaml:"dedup_scope" validate:"omitempty,oneof=global batch"`

	// WriteBatchSize is the number of rows per bulk insert for DB outputs.
	WriteBatchSize int `json:"write_batch_size" yaml:"write_batch_size" validate:"gte=0"`
}

// Diagnostics configures the diagnostics log and the reject file.
type Diagnostics struct {
	LogFile    string `json:"log_file" yaml:"log_file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" validate:"gte=0"`

	// RejectFile, when set, receives one CSV line per dropped record.
	RejectFile string `json:"reject_file" yaml:"reject_file"`
}

// ApplyDefaults fills zero values with defaults.
func (p *Pipeline) ApplyDefaults() {
	if p.Job == "" {
		p.Job = DefaultJob
	}
	if p.Source.Kind == "" {
		p.Source.Kind = "file"
	}
	if p.Parser.Kind == "" {
		p.Parser.Kind = "csv"
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	if p.Transform.TimestampFormat == "" {
		p.Transform.TimestampFormat = DefaultTimestampFormat
	}
	if p.Runtime.BatchSize <= 0 {
		p.Runtime.BatchSize = DefaultBatchSize
	}
	if p.Runtime.WriteBatchSize <= 0 {
		p.Runtime.WriteBatchSize = DefaultWriteBatchSize
	}
	if p.Runtime.DedupScope == "" {
		p.Runtime.DedupScope = DedupGlobal
	}
	if p.Diagnostics.LogFile == "" {
		p.Diagnostics.LogFile = DefaultLogFile
	}
}

// Options is a small helper to fetch typed values from free-form maps. It
// performs only minimal type coercion and returns the provided default when
// a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// YAML integers as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object.
// Non-string values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// UnmarshalJSON makes a missing or null "options" object decode to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
