package envelope

import (
	"strings"
	"testing"

	"github.com/arcwell/robogate/testutil"
	"github.com/arcwell/robogate/types"
)

func TestValidateArmCommand_JointPositionRejectsOutOfBounds(t *testing.T) {
	e := New(DefaultConfig())
	cmd := &types.ArmCommand{
		Mode:   types.ArmJointPosition,
		Values: []float64{0, 0, 0, 0, 0, 0, 99},
	}
	res := e.ValidateArmCommand(cmd)
	testutil.AssertEqual(t, OutcomeRejected, res.Outcome, "expected rejection")
	if !strings.HasPrefix(res.Reason, "safety:joint_out_of_bounds") {
		t.Errorf("unexpected reason %q", res.Reason)
	}
}

func TestValidateArmCommand_JointPositionAcceptsInBounds(t *testing.T) {
	e := New(DefaultConfig())
	cmd := &types.ArmCommand{
		Mode:   types.ArmJointPosition,
		Values: []float64{0, 0, 0, 0, 0, 0, 0},
	}
	res := e.ValidateArmCommand(cmd)
	testutil.AssertEqual(t, OutcomeOK, res.Outcome, "expected ok")
}

func TestValidateArmCommand_CartesianPoseRejectsZOutOfBounds(t *testing.T) {
	e := New(DefaultConfig())
	pose := make([]float64, 16)
	pose[0], pose[5], pose[10], pose[15] = 1, 1, 1, 1 // identity rotation
	pose[12], pose[13], pose[14] = 0.5, 0.0, 5.0       // z way out of bounds
	cmd := &types.ArmCommand{Mode: types.ArmCartesianPose, Values: pose}

	res := e.ValidateArmCommand(cmd)
	testutil.AssertEqual(t, OutcomeRejected, res.Outcome, "expected rejection")
	testutil.AssertEqual(t, "safety:z_out_of_bounds", res.Reason, "reason mismatch")
}

func TestValidateArmCommand_CartesianPoseWrongShape(t *testing.T) {
	e := New(DefaultConfig())
	cmd := &types.ArmCommand{Mode: types.ArmCartesianPose, Values: []float64{1, 2, 3}}
	res := e.ValidateArmCommand(cmd)
	testutil.AssertEqual(t, OutcomeRejected, res.Outcome, "expected rejection")
}

func TestValidateArmCommand_JointVelocityClamps(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	cmd := &types.ArmCommand{
		Mode:   types.ArmJointVelocity,
		Values: []float64{0, 0, 0, 0, 0, 0, cfg.MaxArmJointVelocity * 10},
	}
	res := e.ValidateArmCommand(cmd)
	testutil.AssertEqual(t, OutcomeClamped, res.Outcome, "expected clamp")
	testutil.AssertEqual(t, cfg.MaxArmJointVelocity, cmd.Values[6], "clamped value mismatch")
}

func TestValidateArmCommand_JointVelocityStrictRejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictVelocityLimits = true
	e := New(cfg)
	cmd := &types.ArmCommand{
		Mode:   types.ArmJointVelocity,
		Values: []float64{0, 0, 0, 0, 0, 0, cfg.MaxArmJointVelocity * 10},
	}
	res := e.ValidateArmCommand(cmd)
	testutil.AssertEqual(t, OutcomeRejected, res.Outcome, "expected rejection under strict limits")
}

func TestValidateArmCommand_CartesianVelocityClampsLinear(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	cmd := &types.ArmCommand{
		Mode:   types.ArmCartesianVelocity,
		Values: []float64{cfg.MaxArmLinearVelocity * 10, 0, 0, 0, 0, 0},
	}
	res := e.ValidateArmCommand(cmd)
	testutil.AssertEqual(t, OutcomeClamped, res.Outcome, "expected clamp")
	if cmd.Values[0] > cfg.MaxArmLinearVelocity+1e-9 {
		t.Errorf("clamped vx %.4f exceeds cap %.4f", cmd.Values[0], cfg.MaxArmLinearVelocity)
	}
}

func TestValidateBaseCommand_PoseRejectsOutOfBounds(t *testing.T) {
	e := New(DefaultConfig())
	cmd := &types.BaseCommand{Pose: &types.BasePoseTarget{X: 1000, Y: 0, Theta: 0}}
	res := e.ValidateBaseCommand(cmd)
	testutil.AssertEqual(t, OutcomeRejected, res.Outcome, "expected rejection")
	testutil.AssertEqual(t, "safety:x_out_of_bounds", res.Reason, "reason mismatch")
}

func TestValidateBaseCommand_VelocityClampsLinear(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	cmd := &types.BaseCommand{Velocity: &types.BaseVelocityTarget{Vx: cfg.MaxBaseLinearVelocity * 5, Vy: 0, Wz: 0}}
	res := e.ValidateBaseCommand(cmd)
	testutil.AssertEqual(t, OutcomeClamped, res.Outcome, "expected clamp")
	if cmd.Velocity.Vx > cfg.MaxBaseLinearVelocity+1e-9 {
		t.Errorf("clamped vx %.4f exceeds cap %.4f", cmd.Velocity.Vx, cfg.MaxBaseLinearVelocity)
	}
}

func TestValidateBaseCommand_VelocityClampsAngular(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	cmd := &types.BaseCommand{Velocity: &types.BaseVelocityTarget{Vx: 0, Vy: 0, Wz: cfg.MaxBaseAngularVelocity * 5}}
	res := e.ValidateBaseCommand(cmd)
	testutil.AssertEqual(t, OutcomeClamped, res.Outcome, "expected clamp")
	if cmd.Velocity.Wz > cfg.MaxBaseAngularVelocity+1e-9 {
		t.Errorf("clamped wz %.4f exceeds cap %.4f", cmd.Velocity.Wz, cfg.MaxBaseAngularVelocity)
	}
}

func TestValidateBaseCommand_EmptyRejected(t *testing.T) {
	e := New(DefaultConfig())
	res := e.ValidateBaseCommand(&types.BaseCommand{})
	testutil.AssertEqual(t, OutcomeRejected, res.Outcome, "expected rejection")
}

func TestValidateGripperCommand_ForceClamps(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	force := cfg.MaxGripperForce * 3
	cmd := &types.GripperCommand{Action: types.GripperGrasp, Force: &force}
	res := e.ValidateGripperCommand(cmd)
	testutil.AssertEqual(t, OutcomeClamped, res.Outcome, "expected clamp")
	testutil.AssertEqual(t, cfg.MaxGripperForce, *cmd.Force, "clamped force mismatch")
}

func TestValidateGripperCommand_NoForceIsOK(t *testing.T) {
	e := New(DefaultConfig())
	res := e.ValidateGripperCommand(&types.GripperCommand{Action: types.GripperOpen})
	testutil.AssertEqual(t, OutcomeOK, res.Outcome, "expected ok")
}

func TestValidateGripperCommand_StrictRejectsOverForce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictVelocityLimits = true
	e := New(cfg)
	force := cfg.MaxGripperForce * 3
	cmd := &types.GripperCommand{Action: types.GripperGrasp, Force: &force}
	res := e.ValidateGripperCommand(cmd)
	testutil.AssertEqual(t, OutcomeRejected, res.Outcome, "expected rejection under strict limits")
}
