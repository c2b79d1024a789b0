package adapters

import (
	"context"
	"time"

	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/types"
)

type gripperCommandRequest struct {
	Op     string         `json:"op"`
	Action types.GripperAction `json:"action"`
	Width  *float64       `json:"width,omitempty"`
	Speed  *float64       `json:"speed,omitempty"`
	Force  *float64       `json:"force,omitempty"`
}

// RemoteGripper is a request/reply adapter to a real gripper
// controller over an opaque TCP transport.
type RemoteGripper struct {
	transport *transport
}

// NewRemoteGripper returns a gripper adapter dialing addr.
func NewRemoteGripper(addr string, log logger.Logger) *RemoteGripper {
	return &RemoteGripper{transport: newTransport(addr, 2*time.Second, log.WithComponent("adapters.gripper"))}
}

func (g *RemoteGripper) Connect(ctx context.Context) error { return g.transport.connect() }
func (g *RemoteGripper) Close() error                       { return g.transport.close() }
func (g *RemoteGripper) IsConnected() bool                  { return g.transport.connected() }

func (g *RemoteGripper) Command(ctx context.Context, cmd types.GripperCommand) error {
	if !g.IsConnected() {
		return types.ErrBackendUnavailable
	}
	req := gripperCommandRequest{Op: "command", Action: cmd.Action, Width: cmd.Width, Speed: cmd.Speed, Force: cmd.Force}
	var resp struct{}
	return g.transport.roundTrip(req, &resp)
}

func (g *RemoteGripper) GetState(ctx context.Context) (types.GripperState, error) {
	if !g.IsConnected() {
		return types.GripperState{}, types.ErrBackendUnavailable
	}
	var resp types.GripperState
	if err := g.transport.roundTrip(getStateRequest{Op: "get_state"}, &resp); err != nil {
		return types.GripperState{}, err
	}
	return resp, nil
}
