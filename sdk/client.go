// Package sdk is the scoped client library statically linked into the
// gateway binary and reused by its re-exec'd script child (component
// J). Each exported method marshals one types.Step's payload into an
// RPCFrame request, writes it as a newline-delimited JSON line to the
// child's stdout, and blocks reading the matching reply frame from the
// child's stdin — the "RPC shim to the adapters" the design notes call
// for, without a second pipe: stdin carries the initial Program plus
// every reply frame, stdout carries nothing but request frames.
package sdk

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/arcwell/robogate/rewind"
	"github.com/arcwell/robogate/types"
)

// Client is the synchronous RPC surface a script step executes
// against. It is safe for concurrent use, though the executor's
// program loop only ever calls it from one goroutine.
type Client struct {
	mu   sync.Mutex
	r    *bufio.Reader
	w    io.Writer
	next uint64
}

// New returns a Client that writes request frames to w and reads
// reply frames from r.
func New(r io.Reader, w io.Writer) *Client {
	return &Client{r: bufio.NewReader(r), w: w}
}

// call marshals params, writes a request frame carrying a fresh id,
// and blocks until a reply frame with that id arrives.
func (c *Client) call(method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("sdk: marshal %s params: %w", method, err)
	}
	c.next++
	req := types.RPCFrame{ID: c.next, Method: method, Params: raw}
	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("sdk: marshal %s frame: %w", method, err)
	}
	if _, err := c.w.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("sdk: write %s request: %w", method, err)
	}

	for {
		data, err := c.r.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("sdk: read %s reply: %w", method, err)
		}
		var reply types.RPCFrame
		if err := json.Unmarshal(data, &reply); err != nil {
			return nil, fmt.Errorf("sdk: decode %s reply: %w", method, err)
		}
		if reply.ID != req.ID {
			continue
		}
		if reply.Error != "" {
			return nil, fmt.Errorf("%s: %s", method, reply.Error)
		}
		return reply.Result, nil
	}
}

// ArmMove issues an arm motion command and blocks until the gateway
// reports the adapter call's outcome.
func (c *Client) ArmMove(cmd types.ArmCommand) error {
	_, err := c.call(string(types.StepArmMove), cmd)
	return err
}

// ArmStop issues a hold-at-current command.
func (c *Client) ArmStop() error {
	_, err := c.call(string(types.StepArmStop), struct{}{})
	return err
}

// BaseMove issues a base motion command.
func (c *Client) BaseMove(cmd types.BaseCommand) error {
	_, err := c.call(string(types.StepBaseMove), cmd)
	return err
}

// BaseStop issues a zero-velocity base stop.
func (c *Client) BaseStop() error {
	_, err := c.call(string(types.StepBaseStop), struct{}{})
	return err
}

// Gripper issues a gripper command.
func (c *Client) Gripper(cmd types.GripperCommand) error {
	_, err := c.call(string(types.StepGripper), cmd)
	return err
}

// ReadState returns the gateway's most recently published snapshot —
// a read-only getter over the aggregator, never an adapter round
// trip.
func (c *Client) ReadState() (types.Snapshot, error) {
	result, err := c.call(string(types.StepReadState), struct{}{})
	if err != nil {
		return types.Snapshot{}, err
	}
	var snap types.Snapshot
	if err := json.Unmarshal(result, &snap); err != nil {
		return types.Snapshot{}, fmt.Errorf("sdk: decode read_state result: %w", err)
	}
	return snap, nil
}

// Rewind issues a rewind request and returns the engine's result.
func (c *Client) Rewind(params types.RewindParams) (rewind.Result, error) {
	result, err := c.call(string(types.StepRewind), params)
	if err != nil {
		return rewind.Result{}, err
	}
	var out rewind.Result
	if err := json.Unmarshal(result, &out); err != nil {
		return rewind.Result{}, fmt.Errorf("sdk: decode rewind result: %w", err)
	}
	return out, nil
}
