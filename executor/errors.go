package executor

import "errors"

var (
	// ErrAlreadyRunning is returned by Execute when a program is
	// already in flight; matches the original CodeExecutor.execute's
	// "Code is already running. Stop it first."
	ErrAlreadyRunning = errors.New("executor: code already running")

	// ErrNoExecution is returned by Result when no execution has
	// finished yet, and by Stop when no execution is running.
	ErrNoExecution = errors.New("executor: no execution found")
)
