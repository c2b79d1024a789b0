package types

import "time"

// ExecutionState is the code executor's lifecycle state for one submitted
// program.
type ExecutionState int

const (
	ExecutionPending ExecutionState = iota
	ExecutionRunning
	ExecutionCompleted
	ExecutionFailed
	ExecutionTimeout
	ExecutionStopped
)

// String returns a lowercase, wire-stable name for the state.
func (s ExecutionState) String() string {
	switch s {
	case ExecutionPending:
		return "pending"
	case ExecutionRunning:
		return "running"
	case ExecutionCompleted:
		return "completed"
	case ExecutionFailed:
		return "failed"
	case ExecutionTimeout:
		return "timeout"
	case ExecutionStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText renders the state as its String() form.
func (s ExecutionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether s is a final state for an execution.
func (s ExecutionState) IsTerminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionTimeout, ExecutionStopped:
		return true
	default:
		return false
	}
}

// ExecutionRecord is the full history of one code-executor run.
type ExecutionRecord struct {
	ExecutionID ExecutionID     `json:"execution_id"`
	State       ExecutionState  `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at,omitempty"`
	ExitCode    *int            `json:"exit_code,omitempty"`
	Stdout      string          `json:"stdout"`
	Stderr      string          `json:"stderr"`
	Error       string          `json:"error,omitempty"`
}
