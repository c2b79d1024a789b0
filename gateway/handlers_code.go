package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arcwell/robogate/types"
)

type codeExecuteRequest struct {
	Code    json.RawMessage `json:"code"`
	Timeout float64         `json:"timeout,omitempty"`
}

type codeExecuteResponse struct {
	Success     bool              `json:"success"`
	ExecutionID types.ExecutionID `json:"execution_id"`
}

// handleCodeExecute decodes the submitted Program and hands it to the
// executor, returning immediately with an execution id — the run
// proceeds in the background (poll /code/status, /code/result).
func (s *Server) handleCodeExecute(w http.ResponseWriter, r *http.Request) {
	var req codeExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	var program types.Program
	if err := json.Unmarshal(req.Code, &program); err != nil {
		writeError(w, s.log, fmt.Errorf("%w: %v", types.ErrInvalidArgument, err))
		return
	}

	var timeout time.Duration
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout * float64(time.Second))
	}

	id, err := s.exec.Execute(r.Context(), program, timeout)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, codeExecuteResponse{Success: true, ExecutionID: id})
}

type codeStopResponse struct {
	Stopped bool `json:"stopped"`
}

// handleCodeStop cooperatively terminates the live execution, if any.
func (s *Server) handleCodeStop(w http.ResponseWriter, r *http.Request) {
	err := s.exec.Stop()
	if err != nil {
		writeJSON(w, http.StatusOK, codeStopResponse{Stopped: false})
		return
	}
	writeJSON(w, http.StatusOK, codeStopResponse{Stopped: true})
}

type codeStatusResponse struct {
	ExecutionID types.ExecutionID `json:"execution_id,omitempty"`
	Status      string            `json:"status"`
	IsRunning   bool              `json:"is_running"`
}

// handleCodeStatus reports the live (or most recent) execution's
// state.
func (s *Server) handleCodeStatus(w http.ResponseWriter, r *http.Request) {
	record, running := s.exec.Status()
	writeJSON(w, http.StatusOK, codeStatusResponse{
		ExecutionID: record.ExecutionID,
		Status:      record.State.String(),
		IsRunning:   running,
	})
}

type codeResultEnvelope struct {
	Result codeResult `json:"result"`
}

type codeResult struct {
	Status   string  `json:"status"`
	Stdout   string  `json:"stdout"`
	Stderr   string  `json:"stderr"`
	ExitCode *int    `json:"exit_code,omitempty"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error,omitempty"`
}

// handleCodeResult returns the most recently completed execution's
// full record.
func (s *Server) handleCodeResult(w http.ResponseWriter, r *http.Request) {
	record, err := s.exec.Result()
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	duration := record.FinishedAt.Sub(record.StartedAt).Seconds()
	writeJSON(w, http.StatusOK, codeResultEnvelope{Result: codeResult{
		Status:   record.State.String(),
		Stdout:   record.Stdout,
		Stderr:   record.Stderr,
		ExitCode: record.ExitCode,
		Duration: duration,
		Error:    record.Error,
	}})
}
