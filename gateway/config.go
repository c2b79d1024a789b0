package gateway

import "time"

// Config tunes the gateway's HTTP surface: listen address, connection
// and rate limiting, and WebSocket defaults. Mirrors the teacher's
// server.ServerConfig shape (host/port plus a handful of resource-limit
// knobs) re-targeted at HTTP.
type Config struct {
	Host string
	Port int

	// MaxConcurrentConns bounds accepted TCP connections via
	// golang.org/x/net/netutil.LimitListener. Zero disables the limit.
	MaxConcurrentConns int

	// MutatingRPS and MutatingBurst configure the token-bucket limiter
	// applied to every lease-gated, state-changing route.
	MutatingRPS   float64
	MutatingBurst int

	// DefaultWSRate is the snapshot-stream rate a /ws/state client gets
	// if it doesn't specify one.
	DefaultWSRate time.Duration
	MaxWSRate     time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ShutdownGrace bounds how long graceful shutdown waits for
	// in-flight requests and WebSocket sessions to drain.
	ShutdownGrace time.Duration
}

// DefaultConfig matches spec.md §6's CLI defaults (host/port passed
// separately by cmd/gateway) plus conservative resource limits.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		MaxConcurrentConns: 256,
		MutatingRPS:        20,
		MutatingBurst:      10,
		DefaultWSRate:      100 * time.Millisecond, // 10 Hz
		MaxWSRate:          5 * time.Millisecond,   // 200 Hz ceiling
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		ShutdownGrace:      10 * time.Second,
	}
}

// Option mutates a Config in place.
type Option func(*Config)

func WithHostPort(host string, port int) Option {
	return func(c *Config) {
		if host != "" {
			c.Host = host
		}
		if port > 0 {
			c.Port = port
		}
	}
}

func WithMaxConcurrentConns(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxConcurrentConns = n
		}
	}
}

func WithMutatingRateLimit(rps float64, burst int) Option {
	return func(c *Config) {
		if rps > 0 {
			c.MutatingRPS = rps
		}
		if burst > 0 {
			c.MutatingBurst = burst
		}
	}
}

func WithShutdownGrace(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ShutdownGrace = d
		}
	}
}
