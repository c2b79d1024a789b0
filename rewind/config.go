package rewind

import "time"

// Option customizes a Config.
type Option func(*Config)

// Config governs how the rewind engine chunks and replays recorded
// waypoints.
type Config struct {
	// ChunkSize caps how many consecutive same-kind waypoints a single
	// chunk replays before settling.
	ChunkSize int

	// ChunkDuration bounds how long a chunk's interpolated stream runs
	// before it is considered reached regardless of tolerance.
	ChunkDuration time.Duration

	// StreamRate is the arm/base interpolation sampling period (50 Hz
	// default, matching the live command path).
	StreamRate time.Duration

	// SettleTime is how long a base chunk waits for motion to
	// complete after issuing its absolute pose target.
	SettleTime time.Duration

	// JointTolerance is the per-joint radian error below which a joint
	// chunk is considered reached.
	JointTolerance float64

	// CartesianTolerance is the translation error, in meters, below
	// which a Cartesian or base chunk is considered reached.
	CartesianTolerance float64

	// AutoRewindSteps is how many waypoints the auto-rewind monitor
	// replays when it detects an envelope violation.
	AutoRewindSteps int

	// AutoRewindPollInterval is how often the monitor samples the
	// aggregator's snapshot.
	AutoRewindPollInterval time.Duration

	// GripperCalibratedTravel is the gripper's full open-to-close
	// width, in meters. Replayed gripper waypoints are clamped to
	// [0, GripperCalibratedTravel] before being sent to the adapter,
	// since a recorded width can predate a recalibration.
	GripperCalibratedTravel float64

	// BoundaryMargin is how close, in meters, the base's pose may get
	// to its workspace edge before /rewind/status reports it as near
	// the boundary.
	BoundaryMargin float64
}

// DefaultConfig returns conservative defaults: 10-waypoint chunks, a
// 2s chunk budget, 50 Hz streaming, 0.3s settle, 0.01 rad / 5 mm
// tolerances, a 5 Hz auto-rewind monitor replaying 5 steps, an 85mm
// gripper travel, and a 0.5m boundary margin.
func DefaultConfig() Config {
	return Config{
		ChunkSize:               10,
		ChunkDuration:           2 * time.Second,
		StreamRate:              20 * time.Millisecond,
		SettleTime:              300 * time.Millisecond,
		JointTolerance:          0.01,
		CartesianTolerance:      0.005,
		AutoRewindSteps:         5,
		AutoRewindPollInterval:  200 * time.Millisecond,
		GripperCalibratedTravel: 0.085,
		BoundaryMargin:          0.5,
	}
}

// WithChunkSize sets the number of same-kind waypoints per chunk.
func WithChunkSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ChunkSize = n
		}
	}
}

// WithChunkDuration sets the per-chunk time budget.
func WithChunkDuration(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ChunkDuration = d
		}
	}
}

// WithStreamRate sets the arm/base interpolation sampling period.
func WithStreamRate(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.StreamRate = d
		}
	}
}

// WithSettleTime sets the post-move settle wait for base chunks.
func WithSettleTime(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.SettleTime = d
		}
	}
}

// WithTolerances sets the joint and Cartesian "reached" tolerances.
func WithTolerances(joint, cartesian float64) Option {
	return func(c *Config) {
		if joint > 0 {
			c.JointTolerance = joint
		}
		if cartesian > 0 {
			c.CartesianTolerance = cartesian
		}
	}
}

// WithAutoRewind sets the auto-rewind monitor's step count and poll
// interval.
func WithAutoRewind(steps int, interval time.Duration) Option {
	return func(c *Config) {
		if steps > 0 {
			c.AutoRewindSteps = steps
		}
		if interval > 0 {
			c.AutoRewindPollInterval = interval
		}
	}
}

// WithGripperCalibratedTravel sets the gripper's full travel, used to
// clamp replayed discrete width waypoints.
func WithGripperCalibratedTravel(meters float64) Option {
	return func(c *Config) {
		if meters > 0 {
			c.GripperCalibratedTravel = meters
		}
	}
}

// WithBoundaryMargin sets how close the base may get to its workspace
// edge before it is reported as near the boundary.
func WithBoundaryMargin(meters float64) Option {
	return func(c *Config) {
		if meters > 0 {
			c.BoundaryMargin = meters
		}
	}
}
