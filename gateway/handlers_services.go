package gateway

import (
	"net/http"
	"strconv"

	"github.com/arcwell/robogate/types"
)

// handleServicesList returns every supervised service's record.
func (s *Server) handleServicesList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sup.StatusAll())
}

// handleServiceGet returns one service's record.
func (s *Server) handleServiceGet(w http.ResponseWriter, r *http.Request) {
	key := types.ServiceKey(r.PathValue("key"))
	rec, err := s.sup.Status(key)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type serviceLogsResponse struct {
	Lines []string `json:"lines"`
}

// handleServiceLogs returns the last ?lines= log lines for a service.
func (s *Server) handleServiceLogs(w http.ResponseWriter, r *http.Request) {
	key := types.ServiceKey(r.PathValue("key"))
	n := 100
	if raw := r.URL.Query().Get("lines"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}
	lines, err := s.sup.Logs(key, n)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, serviceLogsResponse{Lines: lines})
}

// handleServiceStart starts a supervised service.
func (s *Server) handleServiceStart(w http.ResponseWriter, r *http.Request) {
	key := types.ServiceKey(r.PathValue("key"))
	if err := s.sup.StartService(r.Context(), key); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, respCompleted)
}

// handleServiceStop stops a supervised service and cascades to its
// dependents.
func (s *Server) handleServiceStop(w http.ResponseWriter, r *http.Request) {
	key := types.ServiceKey(r.PathValue("key"))
	if err := s.sup.StopService(r.Context(), key); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, respCompleted)
}

// handleServiceRestart stops then starts a supervised service.
func (s *Server) handleServiceRestart(w http.ResponseWriter, r *http.Request) {
	key := types.ServiceKey(r.PathValue("key"))
	if err := s.sup.RestartService(r.Context(), key); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, respCompleted)
}
