package gateway

import (
	"net/http"

	"github.com/arcwell/robogate/types"
)

type acquireRequest struct {
	Holder types.HolderName `json:"holder"`
}

type acquireResponse struct {
	Status   string          `json:"status"`
	LeaseID  types.LeaseID   `json:"lease_id,omitempty"`
	TicketID types.TicketID  `json:"ticket_id,omitempty"`
	Position int             `json:"position,omitempty"`
}

// handleLeaseAcquire grants the lease immediately or enqueues the
// caller, per lease.Coordinator.Acquire.
func (s *Server) handleLeaseAcquire(w http.ResponseWriter, r *http.Request) {
	var req acquireRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if req.Holder == "" {
		writeError(w, s.log, errMissingHolder)
		return
	}
	result, err := s.lease.Acquire(req.Holder)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if result.Granted {
		writeJSON(w, http.StatusOK, acquireResponse{Status: "granted", LeaseID: result.LeaseID})
		return
	}
	writeJSON(w, http.StatusOK, acquireResponse{Status: "queued", TicketID: result.TicketID, Position: result.Position})
}

type leaseTokenRequest struct {
	LeaseID types.LeaseID `json:"lease_id"`
}

type statusOnlyResponse struct {
	Status string `json:"status"`
}

// handleLeaseRelease revokes the lease iff the caller's token matches.
func (s *Server) handleLeaseRelease(w http.ResponseWriter, r *http.Request) {
	var req leaseTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.lease.Release(req.LeaseID); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOnlyResponse{Status: "released"})
}

// handleLeaseExtend resets the idle timer for the caller's lease.
func (s *Server) handleLeaseExtend(w http.ResponseWriter, r *http.Request) {
	var req leaseTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.lease.Extend(req.LeaseID); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOnlyResponse{Status: "extended"})
}

// handleLeaseStatus reports the current holder and queue, never the
// token (types.LeaseStatus already excludes it).
func (s *Server) handleLeaseStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lease.Status())
}
