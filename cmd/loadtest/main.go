// Command loadtest drives concurrent load against a running robogate
// gateway and reports latency percentiles and throughput for the
// chosen endpoint. Adapted from cmd/benchmark's client pool and stats
// pipeline, narrowed to the gateway's HTTP surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg := parseFlags()
	if err := cfg.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reporter, writer, err := newReporter(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer writer.Close()

	fmt.Fprintf(os.Stderr, "loadtest: hammering %s (%s) with %d workers for %s\n", cfg.TargetAddr, cfg.Endpoint, cfg.Workers, cfg.Duration)

	pool := newWorkerPool(cfg)
	stats := pool.run(ctx)

	if err := reporter.Generate(cfg, stats); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
