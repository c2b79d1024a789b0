package adapters

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/types"
)

// RemoteArm streams the latched target to a real arm controller over
// an opaque TCP transport at a fixed rate, until a new target arrives
// or the adapter is stopped.
type RemoteArm struct {
	transport *transport
	limiter   *rate.Limiter
	log       logger.Logger

	mu      sync.Mutex
	state   types.ArmState
	target  types.ArmCommand
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// streamFrame is the opaque wire message sent to the arm controller on
// every tick of the streaming loop.
type streamFrame struct {
	Mode   types.ArmMode `json:"mode"`
	Values []float64     `json:"values"`
}

type getStateRequest struct {
	Op string `json:"op"`
}

// NewRemoteArm returns an arm adapter that streams at hz Hz to addr.
func NewRemoteArm(addr string, hz float64, numJoints int, log logger.Logger) *RemoteArm {
	return &RemoteArm{
		transport: newTransport(addr, 2*time.Second, log),
		limiter:   rate.NewLimiter(rate.Limit(hz), 1),
		log:       log.WithComponent("adapters.arm"),
		state: types.ArmState{
			ControlMode: types.ArmIdle,
			Joints:      make([]float64, numJoints),
		},
	}
}

func (a *RemoteArm) Connect(ctx context.Context) error {
	if err := a.transport.connect(); err != nil {
		return err
	}
	a.mu.Lock()
	if !a.running {
		runCtx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel
		a.done = make(chan struct{})
		a.running = true
		go a.streamLoop(runCtx, a.done)
	}
	a.mu.Unlock()
	return nil
}

func (a *RemoteArm) Close() error {
	a.mu.Lock()
	cancel := a.cancel
	done := a.done
	a.running = false
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return a.transport.close()
}

func (a *RemoteArm) IsConnected() bool {
	return a.transport.connected()
}

func (a *RemoteArm) SetMode(ctx context.Context, mode types.ArmMode) error {
	if !a.IsConnected() {
		return types.ErrBackendUnavailable
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.target.Mode = mode
	a.state.ControlMode = mode
	return nil
}

func (a *RemoteArm) Move(ctx context.Context, cmd types.ArmCommand) error {
	if !a.IsConnected() {
		return types.ErrBackendUnavailable
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.target = cmd
	a.state.ControlMode = cmd.Mode
	return nil
}

func (a *RemoteArm) Stop(ctx context.Context) error {
	return a.SetMode(ctx, types.ArmIdle)
}

func (a *RemoteArm) GetState(ctx context.Context) (types.ArmState, error) {
	if !a.IsConnected() {
		return types.ArmState{}, types.ErrBackendUnavailable
	}
	var resp types.ArmState
	if err := a.transport.roundTrip(getStateRequest{Op: "get_state"}, &resp); err != nil {
		return types.ArmState{}, err
	}
	a.mu.Lock()
	a.state = resp
	a.mu.Unlock()
	return resp, nil
}

// streamLoop emits the current target at the adapter's configured
// rate until ctx is cancelled.
func (a *RemoteArm) streamLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return
		}
		a.mu.Lock()
		frame := streamFrame{Mode: a.target.Mode, Values: a.target.Values}
		a.mu.Unlock()
		if err := a.transport.send(frame); err != nil {
			a.log.Warnw("arm stream send failed", "error", err)
		}
	}
}
