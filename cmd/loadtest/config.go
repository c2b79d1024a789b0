package main

import (
	"flag"
	"fmt"
	"time"
)

// Config governs one load test run: how many workers hammer the
// gateway, for how long, against which endpoint, and how results are
// reported. Mirrors cmd/benchmark's Config shape (target, concurrency,
// duration, output format) narrowed to an HTTP target.
type Config struct {
	TargetAddr string
	Workers    int
	Duration   time.Duration
	Endpoint   string // "lease" or "arm_move"
	Timeout    time.Duration

	OutputFormat string
	OutputFile   string
	Verbose      bool
}

func defaultConfig() Config {
	return Config{
		TargetAddr:   "http://localhost:8080",
		Workers:      10,
		Duration:     10 * time.Second,
		Endpoint:     "lease",
		Timeout:      5 * time.Second,
		OutputFormat: "text",
	}
}

func parseFlags() Config {
	cfg := defaultConfig()
	flag.StringVar(&cfg.TargetAddr, "addr", cfg.TargetAddr, "Gateway base URL")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Test duration")
	flag.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "Endpoint to hammer: lease|arm_move")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	flag.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Report format: text|json")
	flag.StringVar(&cfg.OutputFile, "out", cfg.OutputFile, "Write report to file instead of stdout")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Accepted but unused: the text report has no per-worker detail")
	flag.Parse()
	return cfg
}

func (c Config) validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("loadtest: workers must be positive")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("loadtest: duration must be positive")
	}
	switch c.Endpoint {
	case "lease", "arm_move":
	default:
		return fmt.Errorf("loadtest: unknown endpoint %q", c.Endpoint)
	}
	return nil
}
