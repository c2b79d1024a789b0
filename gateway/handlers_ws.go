package gateway

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// upgrader accepts any origin: the gateway sits behind the operator's
// own network boundary (spec.md §1 names authn/authz out of scope), so
// there is no browser origin to police here.
var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// handleWSState streams conflated state snapshots at a client-chosen
// rate (?rate_ms=, defaulting to cfg.DefaultWSRate; an interval shorter
// than cfg.MaxWSRate is raised to cfg.MaxWSRate).
func (s *Server) handleWSState(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws/state upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	rate := s.cfg.DefaultWSRate
	if raw := r.URL.Query().Get("rate_ms"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			rate = time.Duration(ms) * time.Millisecond
		}
	}
	if rate < s.cfg.MaxWSRate {
		rate = s.cfg.MaxWSRate
	}

	ch, unsubscribe := s.agg.Subscribe(rate)
	defer unsubscribe()

	ctx := r.Context()
	go drainReads(ctx, conn)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}

// handleWSFeedback streams per-command ack/result events published by
// the shared command handler, for every caller regardless of whether
// the command came from HTTP or a running script.
func (s *Server) handleWSFeedback(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws/feedback upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch, unsubscribe := s.cmds.Feed().Subscribe()
	defer unsubscribe()

	ctx := r.Context()
	go drainReads(ctx, conn)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}

type wsCameraFrame struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
	Data string    `json:"data"` // base64-encoded frame bytes
}

// handleWSCameras polls every connected camera's latest frame and
// streams whichever ones have changed since the last poll. It shares
// the same adapters.Cameras interface the dry-run and remote adapter
// sets both satisfy.
func (s *Server) handleWSCameras(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws/cameras upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	cams := s.cmds.Cameras()
	if cams == nil {
		conn.WriteJSON(map[string]string{"error": "cameras unavailable"})
		return
	}

	ctx := r.Context()
	go drainReads(ctx, conn)

	const pollInterval = 200 * time.Millisecond
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	seen := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			names, err := cams.FrameNames(ctx)
			if err != nil {
				continue
			}
			for _, name := range names {
				data, ts, err := cams.LatestFrame(ctx, name)
				if err != nil {
					continue
				}
				if last, ok := seen[name]; ok && !ts.After(last) {
					continue
				}
				seen[name] = ts
				frame := wsCameraFrame{Name: name, Time: ts, Data: base64.StdEncoding.EncodeToString(data)}
				if err := conn.WriteJSON(frame); err != nil {
					return
				}
			}
		}
	}
}

// drainReads discards inbound messages (these endpoints are
// server-to-client only) until the connection closes or the request
// context ends, so the client's close frame is observed promptly.
func drainReads(ctx context.Context, conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

