// Package adapters mediates access to the four backend servers (arm,
// base, gripper, cameras) behind a small, typed interface per backend.
// Backend wire protocols are opaque to the gateway (spec Non-goal): a
// real adapter only needs to dial, reconnect, and round-trip typed
// requests over whatever transport the backend speaks; this package
// supplies a TCP, line-delimited-JSON transport plus a fully in-memory
// dry-run implementation for running without real hardware.
package adapters

import (
	"context"
	"time"

	"github.com/arcwell/robogate/types"
)

// Lifecycle is the connect/close/is-connected contract every adapter
// shares.
type Lifecycle interface {
	Connect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Arm is a streaming controller: SetMode and Move update a target that
// a background sender emits at the controller's native rate until a
// new target arrives or the adapter stops. Calls return once the
// target has been latched, not once the physical motion completes.
type Arm interface {
	Lifecycle
	SetMode(ctx context.Context, mode types.ArmMode) error
	Move(ctx context.Context, cmd types.ArmCommand) error
	Stop(ctx context.Context) error
	GetState(ctx context.Context) (types.ArmState, error)
}

// Base is a request/reply controller: each call is a single round
// trip.
type Base interface {
	Lifecycle
	Move(ctx context.Context, cmd types.BaseCommand) error
	Stop(ctx context.Context) error
	GetState(ctx context.Context) (types.BaseState, error)
}

// Gripper is a request/reply controller.
type Gripper interface {
	Lifecycle
	Command(ctx context.Context, cmd types.GripperCommand) error
	GetState(ctx context.Context) (types.GripperState, error)
}

// Cameras exposes the byte-stream camera feeds as opaque frame
// providers; the gateway relays frames to WebSocket subscribers
// without interpreting them.
type Cameras interface {
	Lifecycle
	FrameNames(ctx context.Context) ([]string, error)
	LatestFrame(ctx context.Context, name string) ([]byte, time.Time, error)
}

// Set bundles all four backend adapters, the unit the aggregator and
// supervisor operate on.
type Set struct {
	Arm     Arm
	Base    Base
	Gripper Gripper
	Cameras Cameras
}
