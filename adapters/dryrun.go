package adapters

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/types"
)

// NewDryRunSet returns a Set of fully in-memory, simulated backends
// for running the gateway without real hardware. Motion is instant:
// Move latches the target directly into the simulated state.
func NewDryRunSet(clk clock.Clock, numJoints int) *Set {
	return &Set{
		Arm:     NewDryRunArm(clk, numJoints),
		Base:    NewDryRunBase(clk),
		Gripper: NewDryRunGripper(clk),
		Cameras: NewDryRunCameras(clk),
	}
}

// DryRunArm simulates the arm backend.
type DryRunArm struct {
	mu        sync.Mutex
	clock     clock.Clock
	connected bool
	state     types.ArmState
}

// NewDryRunArm returns a simulated arm starting idle with numJoints
// joints at zero.
func NewDryRunArm(clk clock.Clock, numJoints int) *DryRunArm {
	return &DryRunArm{
		clock: clk,
		state: types.ArmState{
			ControlMode: types.ArmIdle,
			Joints:      make([]float64, numJoints),
			Pose:        identityPose(),
		},
	}
}

func (a *DryRunArm) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = true
	return nil
}

func (a *DryRunArm) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	return nil
}

func (a *DryRunArm) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *DryRunArm) SetMode(ctx context.Context, mode types.ArmMode) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return types.ErrBackendUnavailable
	}
	a.state.ControlMode = mode
	return nil
}

func (a *DryRunArm) Move(ctx context.Context, cmd types.ArmCommand) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return types.ErrBackendUnavailable
	}
	switch cmd.Mode {
	case types.ArmJointPosition, types.ArmJointVelocity:
		if len(cmd.Values) != len(a.state.Joints) {
			return fmt.Errorf("%w: expected %d joint values, got %d", types.ErrInvalidArgument, len(a.state.Joints), len(cmd.Values))
		}
		copy(a.state.Joints, cmd.Values)
	case types.ArmCartesianPose:
		if len(cmd.Values) != 16 {
			return fmt.Errorf("%w: expected 16-element pose, got %d", types.ErrInvalidArgument, len(cmd.Values))
		}
		a.state.Pose = append([]float64(nil), cmd.Values...)
	case types.ArmCartesianVelocity:
		// Velocity commands don't move the simulated pose instantaneously;
		// only the latched mode/values matter for dry-run purposes.
	default:
		return fmt.Errorf("%w: unsupported arm mode %q", types.ErrInvalidArgument, cmd.Mode)
	}
	a.state.ControlMode = cmd.Mode
	return nil
}

func (a *DryRunArm) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return types.ErrBackendUnavailable
	}
	a.state.ControlMode = types.ArmIdle
	return nil
}

func (a *DryRunArm) GetState(ctx context.Context) (types.ArmState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return types.ArmState{}, types.ErrBackendUnavailable
	}
	return cloneArmState(a.state), nil
}

func cloneArmState(s types.ArmState) types.ArmState {
	out := s
	out.Joints = append([]float64(nil), s.Joints...)
	out.Pose = append([]float64(nil), s.Pose...)
	return out
}

func identityPose() []float64 {
	p := make([]float64, 16)
	p[0], p[5], p[10], p[15] = 1, 1, 1, 1
	return p
}

// DryRunBase simulates the base backend.
type DryRunBase struct {
	mu        sync.Mutex
	clock     clock.Clock
	connected bool
	state     types.BaseState
}

// NewDryRunBase returns a simulated base at the origin.
func NewDryRunBase(clk clock.Clock) *DryRunBase {
	return &DryRunBase{clock: clk}
}

func (b *DryRunBase) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

func (b *DryRunBase) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}

func (b *DryRunBase) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *DryRunBase) Move(ctx context.Context, cmd types.BaseCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return types.ErrBackendUnavailable
	}
	switch {
	case cmd.Pose != nil:
		b.state.X, b.state.Y, b.state.Theta = cmd.Pose.X, cmd.Pose.Y, cmd.Pose.Theta
		b.state.Vx, b.state.Vy, b.state.Wz = 0, 0, 0
	case cmd.Velocity != nil:
		b.state.Vx, b.state.Vy, b.state.Wz = cmd.Velocity.Vx, cmd.Velocity.Vy, cmd.Velocity.Wz
	default:
		return fmt.Errorf("%w: base command has neither pose nor velocity", types.ErrInvalidArgument)
	}
	return nil
}

func (b *DryRunBase) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return types.ErrBackendUnavailable
	}
	b.state.Vx, b.state.Vy, b.state.Wz = 0, 0, 0
	return nil
}

func (b *DryRunBase) GetState(ctx context.Context) (types.BaseState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return types.BaseState{}, types.ErrBackendUnavailable
	}
	return b.state, nil
}

// DryRunGripper simulates the gripper backend.
type DryRunGripper struct {
	mu        sync.Mutex
	clock     clock.Clock
	connected bool
	state     types.GripperState
}

// NewDryRunGripper returns a simulated gripper, fully open.
func NewDryRunGripper(clk clock.Clock) *DryRunGripper {
	return &DryRunGripper{clock: clk, state: types.GripperState{Width: 1.0}}
}

func (g *DryRunGripper) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = true
	return nil
}

func (g *DryRunGripper) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
	return nil
}

func (g *DryRunGripper) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *DryRunGripper) Command(ctx context.Context, cmd types.GripperCommand) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return types.ErrBackendUnavailable
	}
	switch cmd.Action {
	case types.GripperOpen:
		g.state.Width = 1.0
	case types.GripperClose:
		g.state.Width = 0.0
	case types.GripperMove:
		if cmd.Width != nil {
			g.state.Width = *cmd.Width
		}
	case types.GripperGrasp:
		g.state.Width = 0.0
		if cmd.Force != nil {
			g.state.Force = *cmd.Force
		}
	case types.GripperActivate, types.GripperCalibrate, types.GripperStop:
		// No state change in simulation; backend-specific bookkeeping only.
	default:
		return fmt.Errorf("%w: unsupported gripper action %q", types.ErrInvalidArgument, cmd.Action)
	}
	return nil
}

func (g *DryRunGripper) GetState(ctx context.Context) (types.GripperState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return types.GripperState{}, types.ErrBackendUnavailable
	}
	return g.state, nil
}

// DryRunCameras simulates the camera backend with a fixed set of named
// feeds that never produce real frame bytes.
type DryRunCameras struct {
	mu        sync.Mutex
	clock     clock.Clock
	connected bool
	names     []string
}

// NewDryRunCameras returns a simulated two-camera rig.
func NewDryRunCameras(clk clock.Clock) *DryRunCameras {
	return &DryRunCameras{clock: clk, names: []string{"wrist", "overhead"}}
}

func (c *DryRunCameras) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *DryRunCameras) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *DryRunCameras) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *DryRunCameras) FrameNames(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, types.ErrBackendUnavailable
	}
	return append([]string(nil), c.names...), nil
}

func (c *DryRunCameras) LatestFrame(ctx context.Context, name string) ([]byte, time.Time, error) {
	c.mu.Lock()
	connected := c.connected
	names := c.names
	c.mu.Unlock()
	if !connected {
		return nil, time.Time{}, types.ErrBackendUnavailable
	}
	found := false
	for _, n := range names {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		return nil, time.Time{}, fmt.Errorf("%w: unknown camera %q", types.ErrInvalidArgument, name)
	}
	return []byte{}, c.clock.Now(), nil
}
