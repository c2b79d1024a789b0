package adapters

import (
	"context"
	"time"

	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/types"
)

type baseMoveRequest struct {
	Op   string              `json:"op"`
	Pose *types.BasePoseTarget     `json:"pose,omitempty"`
	Vel  *types.BaseVelocityTarget `json:"velocity,omitempty"`
}

// RemoteBase is a request/reply adapter to a real base controller over
// an opaque TCP transport.
type RemoteBase struct {
	transport *transport
}

// NewRemoteBase returns a base adapter dialing addr.
func NewRemoteBase(addr string, log logger.Logger) *RemoteBase {
	return &RemoteBase{transport: newTransport(addr, 2*time.Second, log.WithComponent("adapters.base"))}
}

func (b *RemoteBase) Connect(ctx context.Context) error { return b.transport.connect() }
func (b *RemoteBase) Close() error                       { return b.transport.close() }
func (b *RemoteBase) IsConnected() bool                  { return b.transport.connected() }

func (b *RemoteBase) Move(ctx context.Context, cmd types.BaseCommand) error {
	if !b.IsConnected() {
		return types.ErrBackendUnavailable
	}
	req := baseMoveRequest{Op: "move", Pose: cmd.Pose, Vel: cmd.Velocity}
	var resp struct{}
	return b.transport.roundTrip(req, &resp)
}

func (b *RemoteBase) Stop(ctx context.Context) error {
	if !b.IsConnected() {
		return types.ErrBackendUnavailable
	}
	var resp struct{}
	return b.transport.roundTrip(struct {
		Op string `json:"op"`
	}{Op: "stop"}, &resp)
}

func (b *RemoteBase) GetState(ctx context.Context) (types.BaseState, error) {
	if !b.IsConnected() {
		return types.BaseState{}, types.ErrBackendUnavailable
	}
	var resp types.BaseState
	if err := b.transport.roundTrip(getStateRequest{Op: "get_state"}, &resp); err != nil {
		return types.BaseState{}, err
	}
	return resp, nil
}
