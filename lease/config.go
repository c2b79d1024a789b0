package lease

import "time"

// Option applies a configuration setting to a Config during
// construction.
type Option func(*Config)

// Config holds tunables for a Coordinator.
type Config struct {
	// DefaultTTL bounds how long a lease may live before the background
	// revoker reclaims it, measured from grant time, regardless of
	// activity.
	DefaultTTL time.Duration

	// DefaultIdleTimeout bounds how long a lease may sit without an
	// extend/authorize call before the background revoker reclaims it.
	DefaultIdleTimeout time.Duration

	// RevokeCheckInterval is the minimum granularity at which the
	// background revoker re-evaluates its wake deadline; it wakes
	// earlier than this whenever a new, sooner deadline is scheduled.
	RevokeCheckInterval time.Duration

	// MaxQueueLength caps the wait queue; an acquire beyond this limit
	// fails with ErrQueueFull instead of queueing.
	MaxQueueLength int
}

// DefaultConfig returns a Config with a 5-minute TTL, a 30-second idle
// timeout, and an unbounded queue.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:          5 * time.Minute,
		DefaultIdleTimeout:  30 * time.Second,
		RevokeCheckInterval: time.Second,
		MaxQueueLength:      0,
	}
}

// WithDefaultTTL sets the lease TTL.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.DefaultTTL = d
		}
	}
}

// WithDefaultIdleTimeout sets the lease idle timeout.
func WithDefaultIdleTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.DefaultIdleTimeout = d
		}
	}
}

// WithRevokeCheckInterval sets the revoker's minimum wake granularity.
func WithRevokeCheckInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.RevokeCheckInterval = d
		}
	}
}

// WithMaxQueueLength caps the wait queue length. A value of 0 means
// unbounded.
func WithMaxQueueLength(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxQueueLength = n
		}
	}
}
