// Command orderetl loads an orders export, removes duplicate and
// undelivered orders, derives delivery_time_days, and writes the result to
// every configured output.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"orderetl/internal/config"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "orderetl/internal/storage/all"
)

const (
	defaultInput  = "data/raw/olist_orders_dataset.csv"
	defaultOutput = "data/processed/processed_orders.csv"
)

// cliOptions are the parsed command line flags. Pointer fields are nil when
// the flag was not given, so they only override the config when set.
type cliOptions struct {
	configPath     string
	input          string
	output         string
	chunks         *bool
	batchSize      *int
	dedupScope     string
	validate       bool
	verbose        bool
	metricsBackend string
	pushgatewayURL string
	schedule       string
}

func parseFlags(args []string, errOut io.Writer) (cliOptions, error) {
	var o cliOptions
	fs := flag.NewFlagSet("orderetl", flag.ContinueOnError)
	fs.SetOutput(errOut)

	fs.StringVar(&o.configPath, "config", "", "pipeline config path (.json, .yaml); defaults to a CSV-to-CSV run")
	fs.StringVar(&o.input, "input", "", "input file path or http(s) URL (default "+defaultInput+")")
	fs.StringVar(&o.output, "output", "", "output file path, .csv or .xlsx (default "+defaultOutput+")")
	chunks := fs.Bool("chunks", false, "process the input in batches")
	batchSize := fs.Int("batch-size", 0, "records per batch in chunked mode")
	fs.StringVar(&o.dedupScope, "dedup-scope", "", "duplicate scope in chunked mode: global or batch")
	fs.BoolVar(&o.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&o.verbose, "v", false, "enable verbose logs on stderr")
	fs.StringVar(&o.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog, none (overrides env METRICS_BACKEND)")
	fs.StringVar(&o.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&o.schedule, "schedule", "", "cron expression; when set the pipeline runs on this schedule until interrupted")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chunks":
			o.chunks = chunks
		case "batch-size":
			o.batchSize = batchSize
		}
	})
	return o, nil
}

// main is the entry point for the orderetl binary. It resolves the pipeline
// config, opens the diagnostics log and metrics backend, and executes one
// run or a scheduled series of runs.
func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	if err := config.LoadDotEnv(); err != nil {
		fatalf("%v", err)
	}

	p, err := loadPipeline(o)
	if err != nil {
		fatalf("%v", err)
	}

	// Validate pipeline config.
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", describeConfig(o))
		os.Exit(1)
	}
	if o.schedule != "" {
		if err := checkSchedule(o.schedule); err != nil {
			fatalf("%v", err)
		}
	}

	// If validate flag is set, only validate the configuration and exit
	if o.validate {
		log.Printf("Configuration is valid: %v", describeConfig(o))
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, o, p, os.Stdout, os.Stderr); err != nil {
		stop()
		fatalf("%v", err)
	}
}

// loadPipeline resolves the run config: pipeline file (or the default
// CSV-to-CSV pipeline), then ORDERETL_* environment overrides, then flags.
func loadPipeline(o cliOptions) (config.Pipeline, error) {
	var (
		p   config.Pipeline
		err error
	)
	if o.configPath != "" {
		p, err = config.Load(o.configPath)
		if err != nil {
			return config.Pipeline{}, err
		}
	} else {
		p = config.Default(defaultInput, defaultOutput)
	}

	if err := config.ApplyEnv(&p); err != nil {
		return config.Pipeline{}, err
	}

	if o.input != "" {
		setInput(&p, o.input)
	}
	if o.output != "" {
		p.Outputs = []config.Output{config.FileOutput(o.output)}
	}
	if o.chunks != nil {
		p.Runtime.UseChunks = *o.chunks
	}
	if o.batchSize != nil {
		p.Runtime.BatchSize = *o.batchSize
	}
	if o.dedupScope != "" {
		p.Runtime.DedupScope = o.dedupScope
	}
	if p.Source.Kind == "file" && strings.EqualFold(filepath.Ext(p.Source.File.Path), ".xlsx") {
		p.Parser.Kind = "xlsx"
	}
	return p, nil
}

func setInput(p *config.Pipeline, in string) {
	if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
		p.Source.Kind = "http"
		p.Source.HTTP.URL = in
		return
	}
	p.Source.Kind = "file"
	p.Source.File.Path = in
}

func describeConfig(o cliOptions) string {
	if o.configPath != "" {
		return o.configPath
	}
	return "(flags and environment)"
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
