// Package recorder maintains the bounded, in-memory trajectory of
// waypoints the gateway has executed, so the rewind engine can replay
// it in reverse and operators can inspect recent motion history.
package recorder

import (
	"sync"

	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/types"
)

// Config bounds the recorder's retained history.
type Config struct {
	// MaxWaypoints caps how many waypoints are retained; once exceeded,
	// the oldest waypoints are dropped.
	MaxWaypoints int
}

// Option customizes a Config.
type Option func(*Config)

// DefaultConfig returns a 10,000-waypoint history, matching the
// original recorder's default.
func DefaultConfig() Config {
	return Config{MaxWaypoints: 10000}
}

// WithMaxWaypoints sets the retained-history cap.
func WithMaxWaypoints(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxWaypoints = n
		}
	}
}

// Recorder is an append-only, bounded-capacity history of waypoints.
// Every successful command handler calls Record after the command
// reaches its adapter; the rewind engine consumes the history through
// Slice and Truncate.
type Recorder struct {
	mu        sync.RWMutex
	cfg       Config
	clock     clock.Clock
	waypoints []types.Waypoint
}

// New returns a Recorder governed by cfg, using clk to timestamp
// waypoints recorded without an explicit time.
func New(cfg Config, clk clock.Clock) *Recorder {
	return &Recorder{cfg: cfg, clock: clk}
}

// Record appends a waypoint, dropping the oldest entries if the
// history exceeds its configured capacity.
func (r *Recorder) Record(wp types.Waypoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wp.Time.IsZero() {
		wp.Time = r.clock.Now()
	}
	r.waypoints = append(r.waypoints, wp)
	if over := len(r.waypoints) - r.cfg.MaxWaypoints; over > 0 {
		r.waypoints = append([]types.Waypoint(nil), r.waypoints[over:]...)
	}
}

// Len reports how many waypoints are currently retained.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.waypoints)
}

// Snapshot returns a copy of the full retained history, oldest first.
func (r *Recorder) Snapshot() []types.Waypoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Waypoint, len(r.waypoints))
	copy(out, r.waypoints)
	return out
}

// Tail returns a copy of the last n waypoints, oldest first within the
// returned slice. If n exceeds the retained history, the whole history
// is returned.
func (r *Recorder) Tail(n int) []types.Waypoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := len(r.waypoints) - n
	if start < 0 {
		start = 0
	}
	out := make([]types.Waypoint, len(r.waypoints)-start)
	copy(out, r.waypoints[start:])
	return out
}

// ReverseTail returns the last n waypoints in reverse chronological
// order (most recent first) — the order the rewind engine replays
// them in.
func (r *Recorder) ReverseTail(n int) []types.Waypoint {
	tail := r.Tail(n)
	out := make([]types.Waypoint, len(tail))
	for i, wp := range tail {
		out[len(tail)-1-i] = wp
	}
	return out
}

// TruncateLast drops the last n waypoints from the history, called by
// the rewind engine once it has consumed and replayed them.
func (r *Recorder) TruncateLast(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 {
		return
	}
	cut := len(r.waypoints) - n
	if cut < 0 {
		cut = 0
	}
	r.waypoints = append([]types.Waypoint(nil), r.waypoints[:cut]...)
}

// Clear discards the entire history.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waypoints = nil
}
