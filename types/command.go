package types

import (
	"encoding/json"
	"fmt"
)

// ArmMode is the arm adapter's control mode. Setting the mode is a
// precondition for any move; the transition is confirmed before the next
// command is accepted.
type ArmMode string

const (
	ArmIdle              ArmMode = "idle"
	ArmJointPosition     ArmMode = "joint_position"
	ArmCartesianPose     ArmMode = "cartesian_pose"
	ArmJointVelocity     ArmMode = "joint_velocity"
	ArmCartesianVelocity ArmMode = "cartesian_velocity"
)

// IsValid reports whether m is one of the defined arm control modes.
func (m ArmMode) IsValid() bool {
	switch m {
	case ArmIdle, ArmJointPosition, ArmCartesianPose, ArmJointVelocity, ArmCartesianVelocity:
		return true
	default:
		return false
	}
}

// ArmCommand is the mode-discriminated payload for POST /cmd/arm/move.
// Values is interpreted according to Mode: 7 joint angles/velocities, or
// a 16-element column-major Cartesian transform (pose) / a 6-vector
// twist (velocity).
type ArmCommand struct {
	Mode   ArmMode   `json:"mode"`
	Values []float64 `json:"values"`
}

// BaseCommand is the tagged-variant payload for POST /cmd/base/move: a
// sum over an absolute pose target and a velocity target, decided by
// which fields are present on the wire rather than an explicit
// discriminator (matching the HTTP surface in spec.md §6).
type BaseCommand struct {
	Pose     *BasePoseTarget     `json:"-"`
	Velocity *BaseVelocityTarget `json:"-"`
}

// BasePoseTarget is an absolute base pose command.
type BasePoseTarget struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// BaseVelocityTarget is a base velocity command.
type BaseVelocityTarget struct {
	Vx    float64 `json:"vx"`
	Vy    float64 `json:"vy"`
	Wz    float64 `json:"wz"`
	Frame string  `json:"frame,omitempty"`
}

// UnmarshalJSON decodes a BaseCommand by probing for pose fields ("x",
// "y", "theta") versus velocity fields ("vx", "vy", "wz"), rejecting a
// payload that matches neither or both shapes.
func (c *BaseCommand) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("types: decode base command: %w", err)
	}

	_, hasX := probe["x"]
	_, hasVx := probe["vx"]

	switch {
	case hasX && !hasVx:
		var p BasePoseTarget
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("types: decode base pose target: %w", err)
		}
		c.Pose, c.Velocity = &p, nil
		return nil
	case hasVx && !hasX:
		var v BaseVelocityTarget
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("types: decode base velocity target: %w", err)
		}
		c.Pose, c.Velocity = nil, &v
		return nil
	default:
		return fmt.Errorf("types: base command must be either a pose ({x,y,theta}) or a velocity ({vx,vy,wz}) target")
	}
}

// MarshalJSON re-emits whichever variant is set.
func (c BaseCommand) MarshalJSON() ([]byte, error) {
	switch {
	case c.Pose != nil:
		return json.Marshal(c.Pose)
	case c.Velocity != nil:
		return json.Marshal(c.Velocity)
	default:
		return json.Marshal(struct{}{})
	}
}

// GripperAction identifies the operation a gripper command performs.
type GripperAction string

const (
	GripperActivate  GripperAction = "activate"
	GripperCalibrate GripperAction = "calibrate"
	GripperMove      GripperAction = "move"
	GripperOpen      GripperAction = "open"
	GripperClose     GripperAction = "close"
	GripperGrasp     GripperAction = "grasp"
	GripperStop      GripperAction = "stop"
)

// IsValid reports whether a is one of the defined gripper actions.
func (a GripperAction) IsValid() bool {
	switch a {
	case GripperActivate, GripperCalibrate, GripperMove, GripperOpen, GripperClose, GripperGrasp, GripperStop:
		return true
	default:
		return false
	}
}

// GripperCommand is the payload for POST /cmd/gripper. Width, Speed, and
// Force are only meaningful for the actions that use them (move/grasp).
type GripperCommand struct {
	Action GripperAction `json:"action"`
	Width  *float64      `json:"width,omitempty"`
	Speed  *float64      `json:"speed,omitempty"`
	Force  *float64      `json:"force,omitempty"`
}
