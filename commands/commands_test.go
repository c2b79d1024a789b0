package commands

import (
	"context"
	"testing"

	"github.com/arcwell/robogate/adapters"
	"github.com/arcwell/robogate/aggregator"
	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/envelope"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/recorder"
	"github.com/arcwell/robogate/rewind"
	"github.com/arcwell/robogate/testutil"
	"github.com/arcwell/robogate/types"
)

func permissiveEnvelopeConfig() envelope.Config {
	wide := envelope.Limit{Min: -1000, Max: 1000}
	cfg := envelope.Config{
		MaxArmJointVelocity:    1000,
		MaxArmLinearVelocity:   1000,
		MaxArmAngularVelocity:  1000,
		MaxBaseLinearVelocity:  1000,
		MaxBaseAngularVelocity: 1000,
		MaxGripperForce:        1000,
	}
	for i := range cfg.JointLimits {
		cfg.JointLimits[i] = wide
	}
	cfg.ArmWorkspace.X, cfg.ArmWorkspace.Y, cfg.ArmWorkspace.Z = wide, wide, wide
	cfg.BaseWorkspace.X, cfg.BaseWorkspace.Y = wide, wide
	return cfg
}

func newTestHandler(t *testing.T) (*Handler, *adapters.Set) {
	t.Helper()
	clk := clock.New()
	set := adapters.NewDryRunSet(clk, 7)
	ctx := context.Background()
	testutil.RequireNoError(t, set.Arm.Connect(ctx))
	testutil.RequireNoError(t, set.Base.Connect(ctx))
	testutil.RequireNoError(t, set.Gripper.Connect(ctx))
	testutil.RequireNoError(t, set.Cameras.Connect(ctx))

	log := logger.NewNoOpLogger()
	env := envelope.New(permissiveEnvelopeConfig())
	rec := recorder.New(recorder.DefaultConfig(), clk)
	agg := aggregator.New(aggregator.DefaultConfig(), set, clk, log)
	rew := rewind.New(rewind.DefaultConfig(), rec, env, set, clk, log)

	return New(set, env, rec, agg, rew, clk, nil), set
}

func TestArmMove_RecordsWaypointOnPositionMode(t *testing.T) {
	h, _ := newTestHandler(t)
	cmd := types.ArmCommand{Mode: types.ArmJointPosition, Values: make([]float64, 7)}
	testutil.RequireNoError(t, h.ArmMove(context.Background(), cmd, types.SourceCommand))
	testutil.AssertLen(t, h.Trajectory(), 1)
}

func TestArmMove_RejectsWrongJointCount(t *testing.T) {
	h, _ := newTestHandler(t)
	cmd := types.ArmCommand{Mode: types.ArmJointPosition, Values: []float64{0, 0}}
	err := h.ArmMove(context.Background(), cmd, types.SourceCommand)
	testutil.AssertErrorIs(t, err, types.ErrSafetyViolation)
	testutil.AssertLen(t, h.Trajectory(), 0)
}

func TestArmMove_BackendUnavailableWhenDisconnected(t *testing.T) {
	h, set := newTestHandler(t)
	testutil.RequireNoError(t, set.Arm.Close())
	cmd := types.ArmCommand{Mode: types.ArmJointPosition, Values: make([]float64, 7)}
	err := h.ArmMove(context.Background(), cmd, types.SourceCommand)
	testutil.AssertErrorIs(t, err, types.ErrBackendUnavailable)
}

func TestBaseMove_RecordsWaypointOnPoseTarget(t *testing.T) {
	h, _ := newTestHandler(t)
	cmd := types.BaseCommand{Pose: &types.BasePoseTarget{X: 1, Y: 2, Theta: 0.5}}
	testutil.RequireNoError(t, h.BaseMove(context.Background(), cmd, types.SourceCommand))
	testutil.AssertLen(t, h.Trajectory(), 1)
}

func TestBaseMove_VelocityTargetNotRecorded(t *testing.T) {
	h, _ := newTestHandler(t)
	cmd := types.BaseCommand{Velocity: &types.BaseVelocityTarget{Vx: 0.1}}
	testutil.RequireNoError(t, h.BaseMove(context.Background(), cmd, types.SourceCommand))
	testutil.AssertLen(t, h.Trajectory(), 0)
}

func TestGripper_InvalidActionRejected(t *testing.T) {
	h, _ := newTestHandler(t)
	cmd := types.GripperCommand{Action: types.GripperAction("not_a_real_action")}
	err := h.Gripper(context.Background(), cmd, types.SourceCommand)
	testutil.AssertErrorIs(t, err, types.ErrInvalidArgument)
}

func TestCommands_PublishFeedEvents(t *testing.T) {
	h, _ := newTestHandler(t)
	ch, unsubscribe := h.Feed().Subscribe()
	defer unsubscribe()

	cmd := types.ArmCommand{Mode: types.ArmJointPosition, Values: make([]float64, 7)}
	testutil.RequireNoError(t, h.ArmMove(context.Background(), cmd, types.SourceCommand))

	select {
	case evt := <-ch:
		testutil.AssertEqual(t, "arm_move", evt.Method)
		testutil.AssertEqual(t, "", evt.Error)
	default:
		t.Fatal("expected a feed event after ArmMove")
	}
}

func TestCommands_FeedEventCarriesError(t *testing.T) {
	h, _ := newTestHandler(t)
	ch, unsubscribe := h.Feed().Subscribe()
	defer unsubscribe()

	cmd := types.ArmCommand{Mode: types.ArmJointPosition, Values: []float64{0, 0}}
	err := h.ArmMove(context.Background(), cmd, types.SourceCommand)
	testutil.AssertError(t, err)

	select {
	case evt := <-ch:
		if evt.Error == "" {
			t.Fatal("expected feed event to carry the error")
		}
	default:
		t.Fatal("expected a feed event after failed ArmMove")
	}
}

func TestHandler_CamerasAccessor(t *testing.T) {
	h, set := newTestHandler(t)
	testutil.AssertEqual(t, set.Cameras, h.Cameras())
}
