// Package commands is the glue component between the agent-facing
// gateway surface (4.I) and the sandboxed code executor (4.H): both
// issue robot motion through exactly the same path — envelope check,
// adapter call, waypoint record — so "a waypoint is recorded iff the
// adapter returned success for the command" (spec.md §8 invariant 4)
// holds regardless of whether the caller was an HTTP handler or a
// script step.
package commands

import (
	"context"
	"fmt"

	"github.com/arcwell/robogate/adapters"
	"github.com/arcwell/robogate/aggregator"
	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/envelope"
	"github.com/arcwell/robogate/recorder"
	"github.com/arcwell/robogate/rewind"
	"github.com/arcwell/robogate/types"
)

// Handler issues validated commands to the backend adapters and
// records the resulting waypoints. It holds no mutex of its own —
// each subsystem it wraps (envelope is pure, recorder and the
// adapters have their own locks) already provides the discipline
// spec.md §5 requires.
type Handler struct {
	set   *adapters.Set
	env   *envelope.Envelope
	rec   *recorder.Recorder
	agg   *aggregator.Aggregator
	rew   *rewind.Engine
	clock clock.Clock
	feed  *Feed
}

// New returns a Handler issuing commands to set, validated by env,
// recorded into rec, with read-only sensor access via agg and rewind
// via rew. Every call also publishes an ack/result Event on feed, for
// /ws/feedback subscribers.
func New(set *adapters.Set, env *envelope.Envelope, rec *recorder.Recorder, agg *aggregator.Aggregator, rew *rewind.Engine, clk clock.Clock, feed *Feed) *Handler {
	if feed == nil {
		feed = NewFeed()
	}
	return &Handler{set: set, env: env, rec: rec, agg: agg, rew: rew, clock: clk, feed: feed}
}

// Feed returns the handler's command event broadcaster.
func (h *Handler) Feed() *Feed {
	return h.feed
}

// Cameras returns the configured camera adapter, or nil if none is
// wired into this Handler's Set.
func (h *Handler) Cameras() adapters.Cameras {
	return h.set.Cameras
}

func (h *Handler) notify(method string, source types.CommandSource, err error) {
	evt := Event{Method: method, Source: source, Time: h.clock.Now()}
	if err != nil {
		evt.Error = err.Error()
	}
	h.feed.publish(evt)
}

// ArmMove validates and issues an arm command, recording a waypoint
// when the mode carries a recordable position target (joint_position,
// cartesian_pose). Velocity-mode commands are issued but not recorded
// — rewind only ever replays positions.
func (h *Handler) ArmMove(ctx context.Context, cmd types.ArmCommand, source types.CommandSource) (err error) {
	defer func() { h.notify("arm_move", source, err) }()

	result := h.env.ValidateArmCommand(&cmd)
	if result.Outcome == envelope.OutcomeRejected {
		return fmt.Errorf("%w: %s", types.ErrSafetyViolation, result.Reason)
	}
	if h.set.Arm == nil || !h.set.Arm.IsConnected() {
		return types.ErrBackendUnavailable
	}
	if err := h.set.Arm.SetMode(ctx, cmd.Mode); err != nil {
		return fmt.Errorf("%w: arm set_mode: %v", types.ErrBackendUnavailable, err)
	}
	if err := h.set.Arm.Move(ctx, cmd); err != nil {
		return fmt.Errorf("%w: arm move: %v", types.ErrBackendUnavailable, err)
	}

	if kind, ok := armWaypointKind(cmd.Mode); ok {
		h.rec.Record(types.Waypoint{
			Time:    h.clock.Now(),
			Kind:    kind,
			Payload: append([]float64(nil), cmd.Values...),
			Source:  source,
		})
	}
	return nil
}

func armWaypointKind(mode types.ArmMode) (types.WaypointKind, bool) {
	switch mode {
	case types.ArmJointPosition:
		return types.WaypointArmJoint, true
	case types.ArmCartesianPose:
		return types.WaypointArmCartesian, true
	default:
		return 0, false
	}
}

// ArmStop issues a hold-at-current command; it is never a safety
// rejection and is never recorded as a waypoint.
func (h *Handler) ArmStop(ctx context.Context) (err error) {
	defer func() { h.notify("arm_stop", types.SourceCommand, err) }()

	if h.set.Arm == nil || !h.set.Arm.IsConnected() {
		return types.ErrBackendUnavailable
	}
	if err := h.set.Arm.Stop(ctx); err != nil {
		return fmt.Errorf("%w: arm stop: %v", types.ErrBackendUnavailable, err)
	}
	return nil
}

// BaseMove validates and issues a base command, recording a
// base_pose waypoint for absolute pose targets (velocity targets are
// not recorded).
func (h *Handler) BaseMove(ctx context.Context, cmd types.BaseCommand, source types.CommandSource) (err error) {
	defer func() { h.notify("base_move", source, err) }()

	result := h.env.ValidateBaseCommand(&cmd)
	if result.Outcome == envelope.OutcomeRejected {
		return fmt.Errorf("%w: %s", types.ErrSafetyViolation, result.Reason)
	}
	if h.set.Base == nil || !h.set.Base.IsConnected() {
		return types.ErrBackendUnavailable
	}
	if err := h.set.Base.Move(ctx, cmd); err != nil {
		return fmt.Errorf("%w: base move: %v", types.ErrBackendUnavailable, err)
	}

	if cmd.Pose != nil {
		h.rec.Record(types.Waypoint{
			Time:    h.clock.Now(),
			Kind:    types.WaypointBasePose,
			Payload: []float64{cmd.Pose.X, cmd.Pose.Y, cmd.Pose.Theta},
			Source:  source,
		})
	}
	return nil
}

// BaseStop issues a zero-velocity stop; never recorded.
func (h *Handler) BaseStop(ctx context.Context) (err error) {
	defer func() { h.notify("base_stop", types.SourceCommand, err) }()

	if h.set.Base == nil || !h.set.Base.IsConnected() {
		return types.ErrBackendUnavailable
	}
	if err := h.set.Base.Stop(ctx); err != nil {
		return fmt.Errorf("%w: base stop: %v", types.ErrBackendUnavailable, err)
	}
	return nil
}

// Gripper validates and issues a gripper command, recording a
// gripper_width waypoint when the command carries an explicit width.
func (h *Handler) Gripper(ctx context.Context, cmd types.GripperCommand, source types.CommandSource) (err error) {
	defer func() { h.notify("gripper", source, err) }()

	if !cmd.Action.IsValid() {
		return fmt.Errorf("%w: unknown gripper action %q", types.ErrInvalidArgument, cmd.Action)
	}
	result := h.env.ValidateGripperCommand(&cmd)
	if result.Outcome == envelope.OutcomeRejected {
		return fmt.Errorf("%w: %s", types.ErrSafetyViolation, result.Reason)
	}
	if h.set.Gripper == nil || !h.set.Gripper.IsConnected() {
		return types.ErrBackendUnavailable
	}
	if err := h.set.Gripper.Command(ctx, cmd); err != nil {
		return fmt.Errorf("%w: gripper command: %v", types.ErrBackendUnavailable, err)
	}

	if cmd.Width != nil {
		h.rec.Record(types.Waypoint{
			Time:    h.clock.Now(),
			Kind:    types.WaypointGripperWidth,
			Payload: []float64{*cmd.Width},
			Source:  source,
		})
	}
	return nil
}

// Snapshot returns the aggregator's most recently published state; it
// never blocks on adapter I/O.
func (h *Handler) Snapshot() types.Snapshot {
	return h.agg.Snapshot()
}

// Rewind delegates to the rewind engine; see rewind.Engine.Rewind.
func (h *Handler) Rewind(ctx context.Context, sel rewind.Selection, dryRun bool) (rewind.Result, error) {
	return h.rew.Rewind(ctx, sel, dryRun)
}

// Trajectory returns the full recorded waypoint history.
func (h *Handler) Trajectory() []types.Waypoint {
	return h.rec.Snapshot()
}
