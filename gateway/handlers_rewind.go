package gateway

import (
	"net/http"

	"github.com/arcwell/robogate/rewind"
)

type rewindStepsRequest struct {
	Steps  int  `json:"steps"`
	DryRun bool `json:"dry_run,omitempty"`
}

// handleRewindSteps rewinds a fixed count of waypoints.
func (s *Server) handleRewindSteps(w http.ResponseWriter, r *http.Request) {
	var req rewindStepsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	sel := rewind.Selection{Kind: rewind.BySteps, Steps: req.Steps}
	result, err := s.cmds.Rewind(r.Context(), sel, req.DryRun)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type rewindPercentageRequest struct {
	Percentage float64 `json:"percentage"`
	DryRun     bool    `json:"dry_run,omitempty"`
}

// handleRewindPercentage rewinds a fraction of the recorded history.
func (s *Server) handleRewindPercentage(w http.ResponseWriter, r *http.Request) {
	var req rewindPercentageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	sel := rewind.Selection{Kind: rewind.ByPercentage, Percentage: req.Percentage}
	result, err := s.cmds.Rewind(r.Context(), sel, req.DryRun)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type rewindStatusResponse struct {
	IsRewinding  bool                  `json:"is_rewinding"`
	BaseBoundary rewind.BoundaryStatus `json:"base_boundary"`
}

// handleRewindStatus reports whether a replay is currently in
// progress, plus how close the base currently is to its workspace
// boundary. This is a separate, wider margin than the auto-rewind
// monitor's own hard out-of-bounds trigger — it's meant for a caller
// to poll and react before the monitor would ever fire.
func (s *Server) handleRewindStatus(w http.ResponseWriter, r *http.Request) {
	boundary := s.rew.BoundaryStatus(s.agg.Snapshot().Base)
	writeJSON(w, http.StatusOK, rewindStatusResponse{
		IsRewinding:  s.rew.IsActive(),
		BaseBoundary: boundary,
	})
}

// handleRewindConfigGet returns the engine's current chunking and
// tolerance configuration.
func (s *Server) handleRewindConfigGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rew.Config())
}

// handleRewindConfigPut replaces the engine's configuration.
func (s *Server) handleRewindConfigPut(w http.ResponseWriter, r *http.Request) {
	var cfg rewind.Config
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.rew.SetConfig(cfg)
	writeJSON(w, http.StatusOK, cfg)
}
