package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCase = cases.Title(language.English)

// Reporter renders a completed run's LatencyStats.
type Reporter interface {
	Generate(cfg Config, stats LatencyStats) error
}

// newReporter returns a Reporter per cfg.OutputFormat and the writer it
// owns (the caller must close it).
func newReporter(cfg Config) (Reporter, io.WriteCloser, error) {
	var writer io.WriteCloser = os.Stdout
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loadtest: create output file: %w", err)
		}
		writer = f
	}

	switch strings.ToLower(cfg.OutputFormat) {
	case "json":
		return &jsonReporter{writer: writer}, writer, nil
	case "text":
		return &textReporter{writer: writer}, writer, nil
	default:
		if writer != os.Stdout {
			writer.Close()
		}
		return nil, nil, fmt.Errorf("loadtest: unsupported output format %q", cfg.OutputFormat)
	}
}

type textReporter struct {
	writer io.Writer
}

func (r *textReporter) Generate(cfg Config, stats LatencyStats) error {
	w := tabwriter.NewWriter(r.writer, 0, 0, 3, ' ', 0)
	p := func(format string, a ...any) { fmt.Fprintf(w, format+"\n", a...) }

	p("%s Load Test Report", titleCase.String("robogate"))
	p("Target:\t%s", cfg.TargetAddr)
	p("Endpoint:\t%s", cfg.Endpoint)
	p("Workers:\t%d", cfg.Workers)
	p("Duration:\t%s", cfg.Duration)
	p("")
	p("Total Requests:\t%d", stats.Count)
	p("Successful:\t%d", stats.SuccessfulCount)
	p("Failed:\t%d", stats.FailedCount)
	p("Success Rate:\t%.2f%%", stats.SuccessRate)
	p("Throughput:\t%.2f ops/sec", stats.ThroughputOpsPerSec)
	p("")
	p("Mean Latency:\t%s", stats.Mean)
	p("Median Latency:\t%s", stats.Median)
	p("P90 Latency:\t%s", stats.P90)
	p("P95 Latency:\t%s", stats.P95)
	p("P99 Latency:\t%s", stats.P99)
	p("Min Latency:\t%s", stats.Min)
	p("Max Latency:\t%s", stats.Max)
	p("Std Dev:\t%s", stats.StdDev)

	return w.Flush()
}

type jsonReporter struct {
	writer io.Writer
}

func (r *jsonReporter) Generate(cfg Config, stats LatencyStats) error {
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"target":   cfg.TargetAddr,
		"endpoint": cfg.Endpoint,
		"workers":  cfg.Workers,
		"duration": cfg.Duration.String(),
		"stats":    stats,
	})
}
