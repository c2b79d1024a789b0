package aggregator

import "time"

// Option applies a configuration setting to a Config during
// construction.
type Option func(*Config)

// Config governs the per-backend polling rates and the publish
// cadence.
type Config struct {
	ArmPollInterval     time.Duration
	BasePollInterval    time.Duration
	GripperPollInterval time.Duration
	PublishInterval     time.Duration
}

// DefaultConfig polls the arm at 1kHz, base/gripper at 20Hz, and
// publishes composed snapshots at 50Hz.
func DefaultConfig() Config {
	return Config{
		ArmPollInterval:     time.Millisecond,
		BasePollInterval:    50 * time.Millisecond,
		GripperPollInterval: 50 * time.Millisecond,
		PublishInterval:     20 * time.Millisecond,
	}
}

// WithArmPollInterval sets the arm poll rate.
func WithArmPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ArmPollInterval = d
		}
	}
}

// WithBasePollInterval sets the base poll rate.
func WithBasePollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.BasePollInterval = d
		}
	}
}

// WithGripperPollInterval sets the gripper poll rate.
func WithGripperPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.GripperPollInterval = d
		}
	}
}

// WithPublishInterval sets how often slots are composed into a
// published snapshot.
func WithPublishInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PublishInterval = d
		}
	}
}
