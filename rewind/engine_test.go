package rewind

import (
	"context"
	"testing"
	"time"

	"github.com/arcwell/robogate/adapters"
	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/envelope"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/recorder"
	"github.com/arcwell/robogate/testutil"
	"github.com/arcwell/robogate/types"
)

func armJointWaypoint(joint0 float64) types.Waypoint {
	values := make([]float64, 7)
	values[0] = joint0
	return types.Waypoint{Kind: types.WaypointArmJoint, Payload: values, Source: types.SourceCommand}
}

func newTestEngine(t *testing.T) (*Engine, *recorder.Recorder, *adapters.Set) {
	t.Helper()
	clk := clock.New()
	rec := recorder.New(recorder.DefaultConfig(), clk)
	env := envelope.New(envelope.DefaultConfig())
	set := adapters.NewDryRunSet(clk, 7)
	testutil.AssertNoError(t, set.Arm.Connect(context.Background()))
	testutil.AssertNoError(t, set.Base.Connect(context.Background()))
	testutil.AssertNoError(t, set.Gripper.Connect(context.Background()))

	cfg := DefaultConfig()
	cfg.ChunkDuration = 20 * time.Millisecond
	cfg.StreamRate = 2 * time.Millisecond
	cfg.SettleTime = 10 * time.Millisecond

	e := New(cfg, rec, env, set, clk, logger.NewNoOpLogger())
	return e, rec, set
}

func TestRewind_DryRunDeterminism(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	q0, q1, q2, q3 := armJointWaypoint(0), armJointWaypoint(0.1), armJointWaypoint(0.2), armJointWaypoint(0.3)
	rec.Record(q0)
	rec.Record(q1)
	rec.Record(q2)
	rec.Record(q3)

	result, err := e.Rewind(context.Background(), Selection{Kind: BySteps, Steps: 3}, true)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, result.Success, "expected success")
	testutil.AssertEqual(t, 3, result.StepsRewound, "steps mismatch")
	testutil.AssertLen(t, result.Targets, 3, "expected 3 targets")
	testutil.AssertEqual(t, q3.Payload, result.Targets[0].Payload, "first target should be q3")
	testutil.AssertEqual(t, q2.Payload, result.Targets[1].Payload, "second target should be q2")
	testutil.AssertEqual(t, q1.Payload, result.Targets[2].Payload, "third target should be q1")

	// Dry run must not mutate the recorded history.
	testutil.AssertEqual(t, 4, rec.Len(), "dry run should not truncate history")
}

func TestRewind_FullReversibility(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	qs := make([]types.Waypoint, 5)
	for i := range qs {
		qs[i] = armJointWaypoint(float64(i) * 0.1)
		rec.Record(qs[i])
	}

	result, err := e.Rewind(context.Background(), Selection{Kind: BySteps, Steps: len(qs)}, true)
	testutil.AssertNoError(t, err)
	testutil.AssertLen(t, result.Targets, len(qs), "expected every waypoint visited")
	for i, wp := range result.Targets {
		expected := qs[len(qs)-1-i]
		testutil.AssertEqual(t, expected.Payload, wp.Payload, "reversed order mismatch")
	}
}

func TestRewind_EnvelopeRejectionAbortsPartway(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	ok := armJointWaypoint(0.1)
	bad := armJointWaypoint(99) // outside +-2.9 rad joint limit
	rec.Record(ok)
	rec.Record(bad)

	result, err := e.Rewind(context.Background(), Selection{Kind: BySteps, Steps: 2}, true)
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, result.Success, "expected rejection")
	testutil.AssertEqual(t, 0, result.StepsRewound, "reject on the first (most recent) target should execute nothing")
}

func TestRewind_SecondCallWhileBusyIsRejected(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	for i := 0; i < 5; i++ {
		rec.Record(armJointWaypoint(float64(i) * 0.05))
	}

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		_, _ = e.Rewind(context.Background(), Selection{Kind: BySteps, Steps: 5}, false)
		close(done)
	}()
	<-started

	deadline := time.Now().Add(time.Second)
	for !e.IsActive() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	testutil.AssertTrue(t, e.IsActive(), "expected the first rewind to be active")

	_, err := e.Rewind(context.Background(), Selection{Kind: BySteps, Steps: 1}, false)
	testutil.AssertErrorIs(t, err, types.ErrBusy)

	<-done
}

func gripperWaypoint(width float64) types.Waypoint {
	return types.Waypoint{Kind: types.WaypointGripperWidth, Payload: []float64{width}, Source: types.SourceCommand}
}

func TestRewind_GripperWidthClampedToCalibratedTravel(t *testing.T) {
	e, rec, set := newTestEngine(t)
	rec.Record(gripperWaypoint(0.5)) // far beyond the 0.085m default travel
	rec.Record(gripperWaypoint(-0.2))

	result, err := e.Rewind(context.Background(), Selection{Kind: BySteps, Steps: 2}, false)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, result.Success, "expected success")

	state, err := set.Gripper.GetState(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 0.085, state.Width, "over-travel width should clamp to the calibrated travel")
}

func TestRewind_GripperWidthWithinTravelPassesThrough(t *testing.T) {
	e, rec, set := newTestEngine(t)
	rec.Record(gripperWaypoint(0.04))

	result, err := e.Rewind(context.Background(), Selection{Kind: BySteps, Steps: 1}, false)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, result.Success, "expected success")

	state, err := set.Gripper.GetState(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 0.04, state.Width, "width within travel should pass through unchanged")
}

func TestClampGripperWidth(t *testing.T) {
	testutil.AssertEqual(t, 0.0, clampGripperWidth(-1, 0.085), "negative clamps to 0")
	testutil.AssertEqual(t, 0.085, clampGripperWidth(0.5, 0.085), "over-travel clamps to travel")
	testutil.AssertEqual(t, 0.04, clampGripperWidth(0.04, 0.085), "in-range passes through")
	testutil.AssertEqual(t, 0.04, clampGripperWidth(0.04, 0), "non-positive travel disables the upper clamp")
}

func TestBoundaryStatus_ReportsDistanceAndNearFlag(t *testing.T) {
	e, _, _ := newTestEngine(t)
	cfg := e.Config()
	cfg.BoundaryMargin = 0.5
	e.SetConfig(cfg)

	ws := e.env.Config().BaseWorkspace

	far := e.BoundaryStatus(types.BaseState{X: 0, Y: 0})
	testutil.AssertFalse(t, far.NearBoundary, "center of workspace should not be near the boundary")

	edge := e.BoundaryStatus(types.BaseState{X: ws.X.Max - 0.1, Y: 0})
	testutil.AssertTrue(t, edge.NearBoundary, "within margin of the edge should report near")
	testutil.AssertTrue(t, edge.DistanceMeters <= 0.1+1e-9, "distance should reflect the remaining gap to the edge")
}

func TestRewind_StopReturnsStoppedState(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	e.cfg.ChunkDuration = time.Second
	for i := 0; i < 10; i++ {
		rec.Record(armJointWaypoint(float64(i) * 0.05))
	}

	resultCh := make(chan Result, 1)
	go func() {
		result, _ := e.Rewind(context.Background(), Selection{Kind: BySteps, Steps: 10}, false)
		resultCh <- result
	}()

	deadline := time.Now().Add(time.Second)
	for !e.IsActive() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	e.Stop()

	select {
	case result := <-resultCh:
		testutil.AssertFalse(t, result.Success, "expected a stopped rewind to report failure")
		testutil.AssertEqual(t, "stopped", result.Reason, "expected stopped reason")
	case <-time.After(2 * time.Second):
		t.Fatal("rewind did not return after Stop")
	}
}

func TestRewind_ToLastSafeStopsBeforeOutOfBoundsBasePose(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	safe := types.Waypoint{Kind: types.WaypointBasePose, Payload: []float64{0, 0, 0}}
	unsafe := types.Waypoint{Kind: types.WaypointBasePose, Payload: []float64{9, 9, 0}}
	rec.Record(safe)
	rec.Record(unsafe)

	result, err := e.Rewind(context.Background(), Selection{Kind: ToLastSafe}, true)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, result.Success, "expected success")
	testutil.AssertLen(t, result.Targets, 1, "expected only the unsafe waypoint to be replayed")
	testutil.AssertEqual(t, unsafe.Payload, result.Targets[0].Payload, "expected the out-of-bounds waypoint as the sole target")
}

func TestRewind_EmptyHistoryReturnsNoWaypoints(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.Rewind(context.Background(), Selection{Kind: BySteps, Steps: 1}, true)
	testutil.AssertErrorIs(t, err, ErrNoWaypoints)
}
