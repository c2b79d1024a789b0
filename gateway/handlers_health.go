package gateway

import (
	"net/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/arcwell/robogate/types"
)

var backendTitleCase = cases.Title(language.English)

type healthResponse struct {
	Status   string             `json:"status"`
	Backends map[string]bool    `json:"backends"`
	Lease    healthLeaseSummary `json:"lease"`
}

type healthLeaseSummary struct {
	Holder      types.HolderName `json:"holder,omitempty"`
	QueueLength int              `json:"queue_length"`
}

// handleHealth reports backend connectivity and the current lease
// holder without exposing the token.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.cmds.Snapshot()
	status := s.lease.Status()

	resp := healthResponse{
		Status: "ok",
		Backends: map[string]bool{
			backendTitleCase.String(types.BackendArm.String()):     snap.Backends[types.BackendArm].Connected,
			backendTitleCase.String(types.BackendBase.String()):    snap.Backends[types.BackendBase].Connected,
			backendTitleCase.String(types.BackendGripper.String()): snap.Backends[types.BackendGripper].Connected,
			backendTitleCase.String(types.BackendCameras.String()): snap.Backends[types.BackendCameras].Connected,
		},
		Lease: healthLeaseSummary{Holder: status.Holder, QueueLength: status.QueueLength},
	}
	for _, connected := range resp.Backends {
		if !connected {
			resp.Status = "degraded"
			break
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleState returns the aggregator's most recent snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cmds.Snapshot())
}

type trajectoryResponse struct {
	Count     int              `json:"count"`
	Waypoints []types.Waypoint `json:"waypoints"`
}

// handleTrajectory returns the full recorded waypoint history.
func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	wps := s.cmds.Trajectory()
	writeJSON(w, http.StatusOK, trajectoryResponse{Count: len(wps), Waypoints: wps})
}
