// Package rewind replays recently recorded waypoints in reverse,
// coordinating the arm and base through the same safety envelope and
// adapters the live command path uses, to let an operator or the
// auto-rewind monitor back the robot out of a bad state.
package rewind

import (
	"context"
	"math"
	"sync"

	"github.com/arcwell/robogate/adapters"
	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/envelope"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/recorder"
	"github.com/arcwell/robogate/types"
)

// Result reports the outcome of a completed, stopped, or aborted
// rewind. Targets is the exact, in-order sequence of waypoints the
// engine reached (or would have reached, for a dry run) — the
// deterministic trace spec.md's dry-run scenarios assert against.
type Result struct {
	Success      bool             `json:"success"`
	StepsRewound int              `json:"steps_rewound"`
	AbortedAt    int              `json:"aborted_at,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	Targets      []types.Waypoint `json:"-"`
}

// Engine replays resolved waypoint selections through env and set,
// consuming history from rec. Only one replay runs at a time.
type Engine struct {
	rec *recorder.Recorder
	env *envelope.Envelope
	set *adapters.Set

	clock clock.Clock
	log   logger.Logger
	cfg   Config

	mu     sync.Mutex
	busy   bool
	cancel context.CancelFunc
}

// New returns an Engine replaying through set and env, consuming rec's
// history.
func New(cfg Config, rec *recorder.Recorder, env *envelope.Envelope, set *adapters.Set, clk clock.Clock, log logger.Logger) *Engine {
	return &Engine{rec: rec, env: env, set: set, clock: clk, log: log.WithComponent("rewind"), cfg: cfg}
}

// IsActive reports whether a rewind is currently in progress.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// Rewind resolves sel into a waypoint list and replays it in reverse,
// coordinating arm and base chunks. It returns types.ErrBusy
// immediately if another rewind is already active. dryRun performs
// every envelope validation but suppresses adapter calls and the
// real-time pacing between segments, so a preview returns instantly.
func (e *Engine) Rewind(ctx context.Context, sel Selection, dryRun bool) (Result, error) {
	if !e.tryAcquire() {
		return Result{}, types.ErrBusy
	}
	defer e.release()

	waypoints, err := resolve(e.rec, e.env, sel)
	if err != nil {
		return Result{}, err
	}
	if len(waypoints) == 0 {
		return Result{}, ErrNoWaypoints
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.cancel = nil
		e.mu.Unlock()
		cancel()
	}()

	groups := groupChunks(partition(waypoints, e.cfg.ChunkSize))

	var targets []types.Waypoint
	for _, g := range groups {
		if runCtx.Err() != nil {
			e.stopAdapters(ctx, dryRun)
			return Result{Reason: "stopped", StepsRewound: len(targets), Targets: targets}, nil
		}

		got, out, reason := e.executeGroup(runCtx, g, dryRun)
		targets = append(targets, got...)
		switch out {
		case outcomeRejected:
			return Result{Success: false, AbortedAt: len(targets), Reason: reason, StepsRewound: len(targets), Targets: targets}, nil
		case outcomeStopped:
			e.stopAdapters(ctx, dryRun)
			return Result{Success: false, Reason: "stopped", StepsRewound: len(targets), Targets: targets}, nil
		}
	}

	if !dryRun {
		e.rec.TruncateLast(len(targets))
	}
	return Result{Success: true, StepsRewound: len(targets), Targets: targets}, nil
}

// Stop cancels an in-flight rewind, if any. The blocked Rewind call
// returns once it observes the cancellation.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Config returns the engine's current chunking/tolerance
// configuration, for GET /rewind/config.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig replaces the engine's configuration, for PUT
// /rewind/config. It takes effect on the next Rewind call; a replay
// already in flight keeps running with the configuration it started
// with.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// BoundaryStatus reports how close the base's last known pose is to
// its configured workspace edge.
type BoundaryStatus struct {
	NearBoundary   bool    `json:"near_boundary"`
	DistanceMeters float64 `json:"distance_meters"`
	MarginMeters   float64 `json:"margin_meters"`
}

// BoundaryStatus computes base's distance to the nearest workspace
// edge against the envelope's configured base workspace, and whether
// that distance is within the engine's configured margin.
func (e *Engine) BoundaryStatus(base types.BaseState) BoundaryStatus {
	ws := e.env.Config().BaseWorkspace
	margin := e.Config().BoundaryMargin

	dist := math.Min(
		math.Min(base.X-ws.X.Min, ws.X.Max-base.X),
		math.Min(base.Y-ws.Y.Min, ws.Y.Max-base.Y),
	)

	return BoundaryStatus{
		NearBoundary:   dist <= margin,
		DistanceMeters: dist,
		MarginMeters:   margin,
	}
}

func (e *Engine) tryAcquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return false
	}
	e.busy = true
	return true
}

func (e *Engine) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

func (e *Engine) stopAdapters(ctx context.Context, dryRun bool) {
	if dryRun {
		return
	}
	if e.set.Arm != nil {
		if err := e.set.Arm.Stop(ctx); err != nil {
			e.log.Warnw("arm stop after rewind cancellation failed", "error", err)
		}
	}
	if e.set.Base != nil {
		if err := e.set.Base.Stop(ctx); err != nil {
			e.log.Warnw("base stop after rewind cancellation failed", "error", err)
		}
	}
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeRejected
	outcomeStopped
)

// executeGroup replays an arm chunk and a base chunk concurrently
// (waiting for both to finish) when present together, then a gripper
// chunk discretely, and returns the waypoints actually reached.
func (e *Engine) executeGroup(ctx context.Context, g group, dryRun bool) ([]types.Waypoint, outcome, string) {
	var (
		wg                      sync.WaitGroup
		armTargets, baseTargets []types.Waypoint
		armOut, baseOut         outcome
		armReason, baseReason   string
	)
	if g.arm != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			armTargets, armOut, armReason = e.executeArmChunk(ctx, *g.arm, dryRun)
		}()
	}
	if g.base != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			baseTargets, baseOut, baseReason = e.executeBaseChunk(ctx, *g.base, dryRun)
		}()
	}
	wg.Wait()

	targets := append(append([]types.Waypoint{}, armTargets...), baseTargets...)

	if g.gripper != nil && armOut == outcomeOK && baseOut == outcomeOK {
		got, out, reason := e.executeGripperChunk(ctx, *g.gripper, dryRun)
		targets = append(targets, got...)
		if out != outcomeOK {
			return targets, out, reason
		}
	}

	if armOut == outcomeRejected {
		return targets, outcomeRejected, armReason
	}
	if baseOut == outcomeRejected {
		return targets, outcomeRejected, baseReason
	}
	if armOut == outcomeStopped || baseOut == outcomeStopped {
		return targets, outcomeStopped, ""
	}
	return targets, outcomeOK, ""
}

// executeArmChunk replays every waypoint in the chunk in order. Each
// waypoint is one interpolated segment from the previous target (or
// itself, for the first segment) to its own payload, cubically eased
// across up to cfg.ChunkDuration at cfg.StreamRate, considered reached
// once the live joint state is within tolerance or the budget elapses.
// A dry run validates every waypoint and returns the exact target
// sequence without pacing or issuing adapter calls.
func (e *Engine) executeArmChunk(ctx context.Context, c chunk, dryRun bool) ([]types.Waypoint, outcome, string) {
	mode := types.ArmJointPosition
	if c.kind == types.WaypointArmCartesian {
		mode = types.ArmCartesianPose
	}

	if dryRun {
		var visited []types.Waypoint
		for _, wp := range c.waypoints {
			cmd := types.ArmCommand{Mode: mode, Values: append([]float64(nil), wp.Payload...)}
			if result := e.env.ValidateArmCommand(&cmd); result.Outcome == envelope.OutcomeRejected {
				return visited, outcomeRejected, result.Reason
			}
			visited = append(visited, wp)
		}
		return visited, outcomeOK, ""
	}

	if err := e.set.Arm.SetMode(ctx, mode); err != nil {
		e.log.Warnw("arm set-mode failed during rewind", "error", err)
	}

	start := c.first().Payload
	var visited []types.Waypoint
	for _, wp := range c.waypoints {
		target := wp.Payload
		reached, out, reason := e.streamArmSegment(ctx, mode, start, target)
		if out != outcomeOK {
			return visited, out, reason
		}
		if reached {
			visited = append(visited, wp)
		}
		start = target
	}
	return visited, outcomeOK, ""
}

func (e *Engine) streamArmSegment(ctx context.Context, mode types.ArmMode, start, target []float64) (bool, outcome, string) {
	ticker := e.clock.NewTicker(e.cfg.StreamRate)
	defer ticker.Stop()
	began := e.clock.Now()

	for {
		if ctx.Err() != nil {
			return false, outcomeStopped, ""
		}

		elapsed := e.clock.Since(began)
		frac := float64(elapsed) / float64(e.cfg.ChunkDuration)
		if frac > 1 {
			frac = 1
		}
		values := lerpCubic(start, target, frac)

		cmd := types.ArmCommand{Mode: mode, Values: values}
		result := e.env.ValidateArmCommand(&cmd)
		if result.Outcome == envelope.OutcomeRejected {
			return false, outcomeRejected, result.Reason
		}
		if err := e.set.Arm.Move(ctx, cmd); err != nil {
			e.log.Warnw("arm move failed during rewind", "error", err)
		}

		reached := frac >= 1
		if !reached {
			if state, err := e.set.Arm.GetState(ctx); err == nil {
				reached = withinTolerance(state.Joints, target, e.cfg.JointTolerance)
			}
		}
		if reached {
			return true, outcomeOK, ""
		}

		select {
		case <-ctx.Done():
			return false, outcomeStopped, ""
		case <-ticker.Chan():
		}
	}
}

// executeBaseChunk replays every waypoint in the chunk as a single
// absolute pose target, waiting up to cfg.SettleTime for the base to
// arrive before advancing to the next waypoint.
func (e *Engine) executeBaseChunk(ctx context.Context, c chunk, dryRun bool) ([]types.Waypoint, outcome, string) {
	var visited []types.Waypoint
	for _, wp := range c.waypoints {
		if ctx.Err() != nil {
			return visited, outcomeStopped, ""
		}
		if len(wp.Payload) != 3 {
			return visited, outcomeRejected, "safety:pose_shape"
		}
		cmd := types.BaseCommand{Pose: &types.BasePoseTarget{X: wp.Payload[0], Y: wp.Payload[1], Theta: wp.Payload[2]}}
		result := e.env.ValidateBaseCommand(&cmd)
		if result.Outcome == envelope.OutcomeRejected {
			return visited, outcomeRejected, result.Reason
		}

		if dryRun {
			visited = append(visited, wp)
			continue
		}

		if err := e.set.Base.Move(ctx, cmd); err != nil {
			e.log.Warnw("base move failed during rewind", "error", err)
		}
		if out := e.settleBase(ctx, wp.Payload); out != outcomeOK {
			return visited, out, ""
		}
		visited = append(visited, wp)
	}
	return visited, outcomeOK, ""
}

func (e *Engine) settleBase(ctx context.Context, target []float64) outcome {
	ticker := e.clock.NewTicker(e.cfg.StreamRate)
	defer ticker.Stop()
	began := e.clock.Now()
	for {
		if ctx.Err() != nil {
			return outcomeStopped
		}
		if state, err := e.set.Base.GetState(ctx); err == nil {
			if math.Hypot(state.X-target[0], state.Y-target[1]) <= e.cfg.CartesianTolerance {
				return outcomeOK
			}
		}
		if e.clock.Since(began) >= e.cfg.SettleTime {
			return outcomeOK
		}
		select {
		case <-ctx.Done():
			return outcomeStopped
		case <-ticker.Chan():
		}
	}
}

// executeGripperChunk replays every waypoint in the chunk as a
// discrete width target; the gripper is never streamed. Each recorded
// width is clamped to the gripper's calibrated travel before replay,
// since a waypoint recorded before a recalibration can fall outside
// the gripper's current range.
func (e *Engine) executeGripperChunk(ctx context.Context, c chunk, dryRun bool) ([]types.Waypoint, outcome, string) {
	var visited []types.Waypoint
	for _, wp := range c.waypoints {
		if ctx.Err() != nil {
			return visited, outcomeStopped, ""
		}
		if len(wp.Payload) != 1 {
			return visited, outcomeRejected, "safety:gripper_payload_shape"
		}
		width := clampGripperWidth(wp.Payload[0], e.cfg.GripperCalibratedTravel)
		cmd := types.GripperCommand{Action: types.GripperMove, Width: &width}
		if result := e.env.ValidateGripperCommand(&cmd); result.Outcome == envelope.OutcomeRejected {
			return visited, outcomeRejected, result.Reason
		}
		if !dryRun {
			if err := e.set.Gripper.Command(ctx, cmd); err != nil {
				e.log.Warnw("gripper command failed during rewind", "error", err)
			}
		}
		visited = append(visited, wp)
	}
	return visited, outcomeOK, ""
}

// clampGripperWidth bounds a recorded width to [0, travel].
func clampGripperWidth(width, travel float64) float64 {
	if width < 0 {
		return 0
	}
	if travel > 0 && width > travel {
		return travel
	}
	return width
}

// lerpCubic interpolates element-wise from start to target using a
// smoothstep ease (zero velocity at both endpoints), matching
// spec.md's "cubic interpolation between chunk endpoints."
func lerpCubic(start, target []float64, frac float64) []float64 {
	s := frac * frac * (3 - 2*frac)
	out := make([]float64, len(target))
	copy(out, target)
	n := len(target)
	if len(start) < n {
		n = len(start)
	}
	for i := 0; i < n; i++ {
		out[i] = start[i] + (target[i]-start[i])*s
	}
	return out
}

func withinTolerance(actual, target []float64, tol float64) bool {
	if len(actual) != len(target) {
		return false
	}
	for i := range actual {
		if math.Abs(actual[i]-target[i]) > tol {
			return false
		}
	}
	return true
}
