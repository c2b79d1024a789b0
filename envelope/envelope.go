// Package envelope enforces the safety bounds every arm, base, and
// gripper command must pass before it reaches an adapter: position
// targets outside the configured workspace are rejected outright,
// while velocity and force magnitudes are clamped down to their caps
// (or rejected too, when Config.StrictVelocityLimits is set).
package envelope

import (
	"fmt"
	"math"

	"github.com/arcwell/robogate/types"
)

// Outcome classifies how the envelope disposed of a command.
type Outcome int

const (
	// OutcomeOK indicates the command passed unchanged.
	OutcomeOK Outcome = iota
	// OutcomeClamped indicates one or more fields were reduced in
	// magnitude to stay within bounds; the (possibly mutated) command
	// should still be sent to the adapter.
	OutcomeClamped
	// OutcomeRejected indicates the command must not reach the adapter.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeClamped:
		return "clamped"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result reports an envelope check's disposition. Reason is empty when
// Outcome is OutcomeOK, and otherwise a stable "safety:<cause>" code
// suitable for surfacing directly in an HTTP error body.
type Result struct {
	Outcome Outcome
	Reason  string
	Detail  string
}

func ok() Result { return Result{Outcome: OutcomeOK} }

func rejected(reason, detail string) Result {
	return Result{Outcome: OutcomeRejected, Reason: "safety:" + reason, Detail: detail}
}

func clamped(reason, detail string) Result {
	return Result{Outcome: OutcomeClamped, Reason: "safety:" + reason, Detail: detail}
}

// Envelope validates commands against a fixed Config.
type Envelope struct {
	cfg Config
}

// New returns an Envelope enforcing cfg.
func New(cfg Config) *Envelope {
	return &Envelope{cfg: cfg}
}

// Config returns the envelope's bounds, for callers that need to
// reason about the configured limits themselves (e.g. the rewind
// engine's boundary-proximity status).
func (e *Envelope) Config() Config {
	return e.cfg
}

// ValidateArmCommand checks an arm command in place, clamping velocity
// components that exceed their cap (unless StrictVelocityLimits is
// set, in which case it rejects instead) and rejecting any
// joint-position or Cartesian-pose target outside the configured
// workspace.
func (e *Envelope) ValidateArmCommand(cmd *types.ArmCommand) Result {
	switch cmd.Mode {
	case types.ArmJointPosition:
		return e.checkArmJointPosition(cmd.Values)
	case types.ArmCartesianPose:
		return e.checkArmCartesianPose(cmd.Values)
	case types.ArmJointVelocity:
		return e.checkArmJointVelocity(cmd)
	case types.ArmCartesianVelocity:
		return e.checkArmCartesianVelocity(cmd)
	case types.ArmIdle:
		return ok()
	default:
		return rejected("invalid_mode", fmt.Sprintf("unrecognized arm mode %q", cmd.Mode))
	}
}

func (e *Envelope) checkArmJointPosition(values []float64) Result {
	if len(values) != len(e.cfg.JointLimits) {
		return rejected("joint_count", fmt.Sprintf("expected %d joint values, got %d", len(e.cfg.JointLimits), len(values)))
	}
	for i, v := range values {
		lim := e.cfg.JointLimits[i]
		if v < lim.Min || v > lim.Max {
			return rejected("joint_out_of_bounds", fmt.Sprintf("joint %d value %.4f outside [%.4f, %.4f]", i, v, lim.Min, lim.Max))
		}
	}
	return ok()
}

// checkArmCartesianPose expects a 16-element column-major 4x4
// homogeneous transform; the translation lives at indices 12, 13, 14.
func (e *Envelope) checkArmCartesianPose(values []float64) Result {
	if len(values) != 16 {
		return rejected("pose_shape", fmt.Sprintf("expected 16 values for a 4x4 transform, got %d", len(values)))
	}
	x, y, z := values[12], values[13], values[14]
	if x < e.cfg.ArmWorkspace.X.Min || x > e.cfg.ArmWorkspace.X.Max {
		return rejected("x_out_of_bounds", fmt.Sprintf("x=%.4f outside [%.4f, %.4f]", x, e.cfg.ArmWorkspace.X.Min, e.cfg.ArmWorkspace.X.Max))
	}
	if y < e.cfg.ArmWorkspace.Y.Min || y > e.cfg.ArmWorkspace.Y.Max {
		return rejected("y_out_of_bounds", fmt.Sprintf("y=%.4f outside [%.4f, %.4f]", y, e.cfg.ArmWorkspace.Y.Min, e.cfg.ArmWorkspace.Y.Max))
	}
	if z < e.cfg.ArmWorkspace.Z.Min || z > e.cfg.ArmWorkspace.Z.Max {
		return rejected("z_out_of_bounds", fmt.Sprintf("z=%.4f outside [%.4f, %.4f]", z, e.cfg.ArmWorkspace.Z.Min, e.cfg.ArmWorkspace.Z.Max))
	}
	return ok()
}

func (e *Envelope) checkArmJointVelocity(cmd *types.ArmCommand) Result {
	var worst float64
	var worstIdx int
	mutated := false
	for i, v := range cmd.Values {
		av := math.Abs(v)
		if av <= e.cfg.MaxArmJointVelocity {
			continue
		}
		if av > worst {
			worst, worstIdx = av, i
		}
		if e.cfg.StrictVelocityLimits {
			return rejected("joint_velocity", fmt.Sprintf("joint %d velocity %.4f exceeds cap %.4f", i, v, e.cfg.MaxArmJointVelocity))
		}
		cmd.Values[i] = math.Copysign(e.cfg.MaxArmJointVelocity, v)
		mutated = true
	}
	if !mutated {
		return ok()
	}
	return clamped("joint_velocity", fmt.Sprintf("joint %d velocity %.4f clamped to cap %.4f", worstIdx, worst, e.cfg.MaxArmJointVelocity))
}

func (e *Envelope) checkArmCartesianVelocity(cmd *types.ArmCommand) Result {
	if len(cmd.Values) != 6 {
		return rejected("velocity_shape", fmt.Sprintf("expected 6 values [vx,vy,vz,wx,wy,wz], got %d", len(cmd.Values)))
	}
	vx, vy, vz := cmd.Values[0], cmd.Values[1], cmd.Values[2]
	linear := math.Sqrt(vx*vx + vy*vy + vz*vz)
	if linear > e.cfg.MaxArmLinearVelocity {
		if e.cfg.StrictVelocityLimits {
			return rejected("linear_velocity", fmt.Sprintf("linear speed %.4f exceeds cap %.4f", linear, e.cfg.MaxArmLinearVelocity))
		}
		scale := e.cfg.MaxArmLinearVelocity / linear
		cmd.Values[0], cmd.Values[1], cmd.Values[2] = vx*scale, vy*scale, vz*scale
		return clamped("linear_velocity", fmt.Sprintf("linear speed %.4f clamped to cap %.4f", linear, e.cfg.MaxArmLinearVelocity))
	}
	wx, wy, wz := cmd.Values[3], cmd.Values[4], cmd.Values[5]
	angular := math.Sqrt(wx*wx + wy*wy + wz*wz)
	if angular > e.cfg.MaxArmAngularVelocity {
		if e.cfg.StrictVelocityLimits {
			return rejected("angular_velocity", fmt.Sprintf("angular speed %.4f exceeds cap %.4f", angular, e.cfg.MaxArmAngularVelocity))
		}
		scale := e.cfg.MaxArmAngularVelocity / angular
		cmd.Values[3], cmd.Values[4], cmd.Values[5] = wx*scale, wy*scale, wz*scale
		return clamped("angular_velocity", fmt.Sprintf("angular speed %.4f clamped to cap %.4f", angular, e.cfg.MaxArmAngularVelocity))
	}
	return ok()
}

// ValidateBaseCommand checks a base pose or velocity target, rejecting
// out-of-workspace poses and clamping (or rejecting, under strict
// limits) over-cap velocities.
func (e *Envelope) ValidateBaseCommand(cmd *types.BaseCommand) Result {
	switch {
	case cmd.Pose != nil:
		return e.checkBasePose(cmd.Pose)
	case cmd.Velocity != nil:
		return e.checkBaseVelocity(cmd.Velocity)
	default:
		return rejected("empty_command", "base command has neither a pose nor a velocity target")
	}
}

func (e *Envelope) checkBasePose(p *types.BasePoseTarget) Result {
	if p.X < e.cfg.BaseWorkspace.X.Min || p.X > e.cfg.BaseWorkspace.X.Max {
		return rejected("x_out_of_bounds", fmt.Sprintf("x=%.4f outside [%.4f, %.4f]", p.X, e.cfg.BaseWorkspace.X.Min, e.cfg.BaseWorkspace.X.Max))
	}
	if p.Y < e.cfg.BaseWorkspace.Y.Min || p.Y > e.cfg.BaseWorkspace.Y.Max {
		return rejected("y_out_of_bounds", fmt.Sprintf("y=%.4f outside [%.4f, %.4f]", p.Y, e.cfg.BaseWorkspace.Y.Min, e.cfg.BaseWorkspace.Y.Max))
	}
	return ok()
}

func (e *Envelope) checkBaseVelocity(v *types.BaseVelocityTarget) Result {
	linear := math.Hypot(v.Vx, v.Vy)
	if linear > e.cfg.MaxBaseLinearVelocity {
		if e.cfg.StrictVelocityLimits {
			return rejected("linear_velocity", fmt.Sprintf("linear speed %.4f exceeds cap %.4f", linear, e.cfg.MaxBaseLinearVelocity))
		}
		scale := e.cfg.MaxBaseLinearVelocity / linear
		v.Vx, v.Vy = v.Vx*scale, v.Vy*scale
		return clamped("linear_velocity", fmt.Sprintf("linear speed %.4f clamped to cap %.4f", linear, e.cfg.MaxBaseLinearVelocity))
	}
	if angular := math.Abs(v.Wz); angular > e.cfg.MaxBaseAngularVelocity {
		if e.cfg.StrictVelocityLimits {
			return rejected("angular_velocity", fmt.Sprintf("angular speed %.4f exceeds cap %.4f", angular, e.cfg.MaxBaseAngularVelocity))
		}
		v.Wz = math.Copysign(e.cfg.MaxBaseAngularVelocity, v.Wz)
		return clamped("angular_velocity", fmt.Sprintf("angular speed %.4f clamped to cap %.4f", angular, e.cfg.MaxBaseAngularVelocity))
	}
	return ok()
}

// ValidateGripperCommand clamps (or rejects, under strict limits) a
// grasp/move force that exceeds the configured cap. Width and speed
// are not bounded here, and the gripper adapters pass them through
// unchanged.
func (e *Envelope) ValidateGripperCommand(cmd *types.GripperCommand) Result {
	if cmd.Force == nil {
		return ok()
	}
	force := math.Abs(*cmd.Force)
	if force <= e.cfg.MaxGripperForce {
		return ok()
	}
	if e.cfg.StrictVelocityLimits {
		return rejected("gripper_force", fmt.Sprintf("force %.4f exceeds cap %.4f", force, e.cfg.MaxGripperForce))
	}
	clampedForce := math.Copysign(e.cfg.MaxGripperForce, *cmd.Force)
	cmd.Force = &clampedForce
	return clamped("gripper_force", fmt.Sprintf("force %.4f clamped to cap %.4f", force, e.cfg.MaxGripperForce))
}
