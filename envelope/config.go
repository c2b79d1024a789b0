package envelope

// Limit is an inclusive [Min, Max] bound.
type Limit struct {
	Min float64
	Max float64
}

// Config holds the workspace, velocity, and force bounds the envelope
// enforces on every command.
type Config struct {
	// JointLimits bounds each of the arm's 7 joints, in radians. A
	// joint_position command with any value outside its limit is
	// rejected outright (positions are never clamped).
	JointLimits [7]Limit

	// ArmWorkspace bounds the arm end-effector's Cartesian position
	// (translation elements of the 4x4 column-major pose transform), in
	// meters.
	ArmWorkspace struct{ X, Y, Z Limit }

	// BaseWorkspace bounds the base's absolute pose, in meters.
	BaseWorkspace struct{ X, Y Limit }

	// MaxArmJointVelocity bounds the magnitude of any joint velocity
	// command component, in radians/sec. Exceeding it clamps the
	// component, it does not reject the command.
	MaxArmJointVelocity float64

	// MaxArmLinearVelocity and MaxArmAngularVelocity bound a Cartesian
	// velocity command's translational and rotational magnitude.
	MaxArmLinearVelocity  float64
	MaxArmAngularVelocity float64

	// MaxBaseLinearVelocity and MaxBaseAngularVelocity bound a base
	// velocity command.
	MaxBaseLinearVelocity  float64
	MaxBaseAngularVelocity float64

	// MaxGripperForce bounds a gripper grasp/move force, in Newtons.
	MaxGripperForce float64

	// StrictVelocityLimits rejects out-of-bounds velocity/force commands
	// instead of clamping them, per shared.SafetyFlags.
	StrictVelocityLimits bool
}

// Option customizes a Config.
type Option func(*Config)

// DefaultConfig returns conservative default bounds suitable for a 7-DoF
// arm with a 1.4m x 2.4m x 1.2m Cartesian workspace box and a base
// confined to a 10m x 10m room.
func DefaultConfig() Config {
	c := Config{
		MaxArmJointVelocity:    2.0,
		MaxArmLinearVelocity:   1.5,
		MaxArmAngularVelocity:  3.0,
		MaxBaseLinearVelocity:  1.0,
		MaxBaseAngularVelocity: 1.5,
		MaxGripperForce:        40.0,
	}
	for i := range c.JointLimits {
		c.JointLimits[i] = Limit{Min: -2.9, Max: 2.9}
	}
	c.ArmWorkspace.X = Limit{Min: -0.2, Max: 1.2}
	c.ArmWorkspace.Y = Limit{Min: -1.2, Max: 1.2}
	c.ArmWorkspace.Z = Limit{Min: 0.0, Max: 1.2}
	c.BaseWorkspace.X = Limit{Min: -5.0, Max: 5.0}
	c.BaseWorkspace.Y = Limit{Min: -5.0, Max: 5.0}
	return c
}

// WithJointLimits sets all 7 joint limits at once.
func WithJointLimits(limits [7]Limit) Option {
	return func(c *Config) { c.JointLimits = limits }
}

// WithArmWorkspace sets the arm's Cartesian workspace box.
func WithArmWorkspace(x, y, z Limit) Option {
	return func(c *Config) { c.ArmWorkspace.X, c.ArmWorkspace.Y, c.ArmWorkspace.Z = x, y, z }
}

// WithBaseWorkspace sets the base's workspace box.
func WithBaseWorkspace(x, y Limit) Option {
	return func(c *Config) { c.BaseWorkspace.X, c.BaseWorkspace.Y = x, y }
}

// WithMaxGripperForce sets the gripper force cap.
func WithMaxGripperForce(n float64) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxGripperForce = n
		}
	}
}

// WithStrictVelocityLimits toggles reject-vs-clamp behavior for
// velocity/force commands.
func WithStrictVelocityLimits(strict bool) Option {
	return func(c *Config) { c.StrictVelocityLimits = strict }
}
