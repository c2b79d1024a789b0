package adapters

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/arcwell/robogate/logger"
)

// transport is a lazily-connected, auto-reconnecting TCP client
// speaking line-delimited JSON request/reply. The wire schema of
// request/response payloads is opaque to this type; callers supply
// already-marshalable values. Grounded on the lazy-connect,
// per-connection-mutex shape used for peer connections elsewhere in
// this codebase, simplified to a single connection (no fan-out to
// multiple peers).
type transport struct {
	mu      sync.Mutex
	addr    string
	dialer  net.Dialer
	timeout time.Duration
	log     logger.Logger

	conn   net.Conn
	reader *bufio.Reader
}

func newTransport(addr string, timeout time.Duration, log logger.Logger) *transport {
	return &transport{addr: addr, timeout: timeout, log: log}
}

func (t *transport) connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectLocked()
}

func (t *transport) connectLocked() error {
	if t.conn != nil {
		return nil
	}
	conn, err := t.dialer.Dial("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("adapters: dial %s: %w", t.addr, err)
	}
	t.conn = conn
	t.reader = bufio.NewReader(conn)
	return nil
}

func (t *transport) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn, t.reader = nil, nil
	return err
}

func (t *transport) connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// roundTrip sends req as one JSON line and decodes the next JSON line
// into resp. On any I/O error the connection is torn down so the next
// call reconnects.
func (t *transport) roundTrip(req, resp any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.connectLocked(); err != nil {
		return err
	}
	if t.timeout > 0 {
		_ = t.conn.SetDeadline(time.Now().Add(t.timeout))
	}

	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("adapters: encode request: %w", err)
	}
	if _, err := t.conn.Write(append(line, '\n')); err != nil {
		t.resetLocked()
		return fmt.Errorf("adapters: write request: %w", err)
	}

	respLine, err := t.reader.ReadBytes('\n')
	if err != nil {
		t.resetLocked()
		return fmt.Errorf("adapters: read response: %w", err)
	}
	if resp != nil {
		if err := json.Unmarshal(respLine, resp); err != nil {
			return fmt.Errorf("adapters: decode response: %w", err)
		}
	}
	return nil
}

// send writes req as one JSON line without waiting for a reply, used
// by the arm's streaming sender loop.
func (t *transport) send(req any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.connectLocked(); err != nil {
		return err
	}
	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("adapters: encode request: %w", err)
	}
	if _, err := t.conn.Write(append(line, '\n')); err != nil {
		t.resetLocked()
		return fmt.Errorf("adapters: write request: %w", err)
	}
	return nil
}

func (t *transport) resetLocked() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.conn, t.reader = nil, nil
}
