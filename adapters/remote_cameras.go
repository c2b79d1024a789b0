package adapters

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/types"
)

// RemoteCameras is a request/reply adapter to a real camera server
// over an opaque TCP transport. Frame bytes are opaque JPEG/PNG
// payloads relayed as base64 on the wire; this adapter does not
// interpret them.
type RemoteCameras struct {
	transport *transport
}

// NewRemoteCameras returns a cameras adapter dialing addr.
func NewRemoteCameras(addr string, log logger.Logger) *RemoteCameras {
	return &RemoteCameras{transport: newTransport(addr, 2*time.Second, log.WithComponent("adapters.cameras"))}
}

func (c *RemoteCameras) Connect(ctx context.Context) error { return c.transport.connect() }
func (c *RemoteCameras) Close() error                       { return c.transport.close() }
func (c *RemoteCameras) IsConnected() bool                  { return c.transport.connected() }

func (c *RemoteCameras) FrameNames(ctx context.Context) ([]string, error) {
	if !c.IsConnected() {
		return nil, types.ErrBackendUnavailable
	}
	var resp struct {
		Names []string `json:"names"`
	}
	if err := c.transport.roundTrip(struct {
		Op string `json:"op"`
	}{Op: "list"}, &resp); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

func (c *RemoteCameras) LatestFrame(ctx context.Context, name string) ([]byte, time.Time, error) {
	if !c.IsConnected() {
		return nil, time.Time{}, types.ErrBackendUnavailable
	}
	var resp struct {
		Data      string    `json:"data"`
		Timestamp time.Time `json:"timestamp"`
	}
	req := struct {
		Op   string `json:"op"`
		Name string `json:"name"`
	}{Op: "latest_frame", Name: name}
	if err := c.transport.roundTrip(req, &resp); err != nil {
		return nil, time.Time{}, err
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, resp.Timestamp, nil
}
