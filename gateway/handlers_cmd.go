package gateway

import (
	"net/http"

	"github.com/arcwell/robogate/types"
)

type completedResponse struct {
	Status string `json:"status"`
}

var respCompleted = completedResponse{Status: "completed"}

// handleArmMove validates and issues an arm motion command.
func (s *Server) handleArmMove(w http.ResponseWriter, r *http.Request) {
	var cmd types.ArmCommand
	if err := decodeJSON(r, &cmd); err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.cmds.ArmMove(r.Context(), cmd, types.SourceCommand); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, respCompleted)
}

// handleArmStop issues a hold-at-current command.
func (s *Server) handleArmStop(w http.ResponseWriter, r *http.Request) {
	if err := s.cmds.ArmStop(r.Context()); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, respCompleted)
}

// handleBaseMove validates and issues a base motion command.
func (s *Server) handleBaseMove(w http.ResponseWriter, r *http.Request) {
	var cmd types.BaseCommand
	if err := decodeJSON(r, &cmd); err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.cmds.BaseMove(r.Context(), cmd, types.SourceCommand); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, respCompleted)
}

// handleBaseStop issues a zero-velocity base stop.
func (s *Server) handleBaseStop(w http.ResponseWriter, r *http.Request) {
	if err := s.cmds.BaseStop(r.Context()); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, respCompleted)
}

// handleGripper validates and issues a gripper command.
func (s *Server) handleGripper(w http.ResponseWriter, r *http.Request) {
	var cmd types.GripperCommand
	if err := decodeJSON(r, &cmd); err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.cmds.Gripper(r.Context(), cmd, types.SourceCommand); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, respCompleted)
}
