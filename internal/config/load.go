package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every pipeline override read from the environment.
const EnvPrefix = "ORDERETL"

// Env holds pipeline overrides read from ORDERETL_* variables. Pointer
// fields stay nil when the variable is unset.
type Env struct {
	Input           string `envconfig:"INPUT"`
	Output          string `envconfig:"OUTPUT"`
	TimestampFormat string `envconfig:"TIMESTAMP_FORMAT"`
	BatchSize       *int   `envconfig:"BATCH_SIZE"`
	UseChunks       *bool  `envconfig:"USE_CHUNKS"`
	DedupScope      string `envconfig:"DEDUP_SCOPE"`
	LogFile         string `envconfig:"LOG_FILE"`
}

// MetricsEnv holds the unprefixed metrics settings shared with other jobs
// on the same host.
type MetricsEnv struct {
	Backend        string `envconfig:"METRICS_BACKEND"`
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
	DogStatsDAddr  string `envconfig:"DOGSTATSD_ADDR"`
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads a pipeline file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON. Defaults are applied to the result.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config %s: %w", path, err)
	}
	p, err := Decode(b, filepath.Ext(path))
	if err != nil {
		return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return p, nil
}

// Decode parses b as YAML when ext is ".yaml"/".yml" and as JSON otherwise,
// then applies defaults.
func Decode(b []byte, ext string) (Pipeline, error) {
	var p Pipeline
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &p); err != nil {
			return Pipeline{}, err
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, err
		}
	}
	p.ApplyDefaults()
	return p, nil
}

// Default returns a pipeline reading path as CSV and writing a CSV file to
// out. It is used when no pipeline file is given.
func Default(path, out string) Pipeline {
	p := Pipeline{
		Source:  Source{Kind: "file", File: SourceFile{Path: path}},
		Outputs: []Output{FileOutput(out)},
	}
	p.ApplyDefaults()
	return p
}

// ApplyEnv overlays ORDERETL_* variables on p.
func ApplyEnv(p *Pipeline) error {
	var e Env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	if e.Input != "" {
		if strings.HasPrefix(e.Input, "http://") || strings.HasPrefix(e.Input, "https://") {
			p.Source.Kind = "http"
			p.Source.HTTP.URL = e.Input
		} else {
			p.Source.Kind = "file"
			p.Source.File.Path = e.Input
		}
	}
	if e.Output != "" {
		p.Outputs = []Output{FileOutput(e.Output)}
	}
	if e.TimestampFormat != "" {
		p.Transform.TimestampFormat = e.TimestampFormat
	}
	if e.BatchSize != nil {
		p.Runtime.BatchSize = *e.BatchSize
	}
	if e.UseChunks != nil {
		p.Runtime.UseChunks = *e.UseChunks
	}
	if e.DedupScope != "" {
		p.Runtime.DedupScope = e.DedupScope
	}
	if e.LogFile != "" {
		p.Diagnostics.LogFile = e.LogFile
	}
	return nil
}

// FileOutput returns a file output for path: xlsx when the extension is
// .xlsx (any case), csv otherwise.
func FileOutput(path string) Output {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return Output{Kind: "xlsx", Path: path}
	}
	return Output{Kind: "csv", Path: path}
}

// LoadMetricsEnv reads METRICS_BACKEND, PUSHGATEWAY_URL and DOGSTATSD_ADDR.
func LoadMetricsEnv() (MetricsEnv, error) {
	var m MetricsEnv
	if err := envconfig.Process("", &m); err != nil {
		return MetricsEnv{}, fmt.Errorf("metrics env: %w", err)
	}
	return m, nil
}
