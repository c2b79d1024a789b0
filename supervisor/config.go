package supervisor

import "time"

// Config tunes the supervisor's health polling, stop grace period,
// restart backoff, and persistence paths. Most Option setters below
// ignore zero values (WithAutoStartGap accepts 0); use DefaultConfig
// as a base.
type Config struct {
	LogLines            int
	HealthInterval      time.Duration
	HealthFailThreshold int
	StopGrace           time.Duration
	RestartBackoff      time.Duration
	PIDFile             string

	// AutoStartGap is how long AutoStartAll waits after starting each
	// service before starting the next, giving a slow-to-initialize
	// backend time to come up before its dependents do.
	AutoStartGap time.Duration
}

// DefaultConfig matches spec.md §4.G: 5 s health polling, three
// consecutive failures to mark unhealthy, a 100-line log ring.
func DefaultConfig() Config {
	return Config{
		LogLines:            100,
		HealthInterval:      5 * time.Second,
		HealthFailThreshold: 3,
		StopGrace:           5 * time.Second,
		RestartBackoff:      time.Second,
		PIDFile:             "robogate-services.pid",
		AutoStartGap:        3 * time.Second,
	}
}

// Option mutates a Config in place.
type Option func(*Config)

func WithLogLines(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.LogLines = n
		}
	}
}

func WithHealthInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.HealthInterval = d
		}
	}
}

func WithHealthFailThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.HealthFailThreshold = n
		}
	}
}

func WithStopGrace(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.StopGrace = d
		}
	}
}

func WithRestartBackoff(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.RestartBackoff = d
		}
	}
}

func WithPIDFile(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.PIDFile = path
		}
	}
}

func WithAutoStartGap(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.AutoStartGap = d
		}
	}
}
