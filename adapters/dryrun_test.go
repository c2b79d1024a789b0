package adapters

import (
	"context"
	"testing"

	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/testutil"
	"github.com/arcwell/robogate/types"
)

func TestDryRunArm_MoveRequiresConnection(t *testing.T) {
	ctx := context.Background()
	arm := NewDryRunArm(clock.New(), 7)
	err := arm.Move(ctx, types.ArmCommand{Mode: types.ArmJointPosition, Values: make([]float64, 7)})
	testutil.AssertErrorIs(t, err, types.ErrBackendUnavailable)
}

func TestDryRunArm_MoveLatchesJoints(t *testing.T) {
	ctx := context.Background()
	arm := NewDryRunArm(clock.New(), 3)
	testutil.AssertNoError(t, arm.Connect(ctx))

	cmd := types.ArmCommand{Mode: types.ArmJointPosition, Values: []float64{1, 2, 3}}
	testutil.AssertNoError(t, arm.Move(ctx, cmd))

	state, err := arm.GetState(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, []float64{1, 2, 3}, state.Joints, "joints mismatch")
	testutil.AssertEqual(t, types.ArmJointPosition, state.ControlMode, "mode mismatch")
}

func TestDryRunArm_StopReturnsToIdle(t *testing.T) {
	ctx := context.Background()
	arm := NewDryRunArm(clock.New(), 3)
	testutil.AssertNoError(t, arm.Connect(ctx))
	testutil.AssertNoError(t, arm.Move(ctx, types.ArmCommand{Mode: types.ArmJointPosition, Values: []float64{1, 2, 3}}))
	testutil.AssertNoError(t, arm.Stop(ctx))

	state, err := arm.GetState(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, types.ArmIdle, state.ControlMode, "expected idle after stop")
}

func TestDryRunBase_MovePoseAndVelocity(t *testing.T) {
	ctx := context.Background()
	base := NewDryRunBase(clock.New())
	testutil.AssertNoError(t, base.Connect(ctx))

	testutil.AssertNoError(t, base.Move(ctx, types.BaseCommand{Pose: &types.BasePoseTarget{X: 1, Y: 2, Theta: 0.5}}))
	state, err := base.GetState(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1.0, state.X, "x mismatch")
	testutil.AssertEqual(t, 2.0, state.Y, "y mismatch")

	testutil.AssertNoError(t, base.Move(ctx, types.BaseCommand{Velocity: &types.BaseVelocityTarget{Vx: 0.5}}))
	state, err = base.GetState(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 0.5, state.Vx, "vx mismatch")
}

func TestDryRunGripper_OpenCloseGrasp(t *testing.T) {
	ctx := context.Background()
	g := NewDryRunGripper(clock.New())
	testutil.AssertNoError(t, g.Connect(ctx))

	testutil.AssertNoError(t, g.Command(ctx, types.GripperCommand{Action: types.GripperClose}))
	state, err := g.GetState(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 0.0, state.Width, "expected closed")

	testutil.AssertNoError(t, g.Command(ctx, types.GripperCommand{Action: types.GripperOpen}))
	state, err = g.GetState(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1.0, state.Width, "expected open")
}

func TestDryRunCameras_ListAndFetch(t *testing.T) {
	ctx := context.Background()
	cams := NewDryRunCameras(clock.New())
	testutil.AssertNoError(t, cams.Connect(ctx))

	names, err := cams.FrameNames(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertLen(t, names, 2, "expected two simulated cameras")

	_, ts, err := cams.LatestFrame(ctx, names[0])
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, !ts.IsZero(), "expected a non-zero timestamp")

	_, _, err = cams.LatestFrame(ctx, "nonexistent")
	testutil.AssertErrorIs(t, err, types.ErrInvalidArgument)
}

func TestDryRunSet_AllBackendsPresent(t *testing.T) {
	set := NewDryRunSet(clock.New(), 7)
	testutil.AssertTrue(t, set.Arm != nil, "expected arm")
	testutil.AssertTrue(t, set.Base != nil, "expected base")
	testutil.AssertTrue(t, set.Gripper != nil, "expected gripper")
	testutil.AssertTrue(t, set.Cameras != nil, "expected cameras")
}
