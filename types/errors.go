package types

import "errors"

// Sentinel errors for the gateway's error taxonomy (spec.md §7). Each
// subsystem wraps these with fmt.Errorf("%w: ...") at the point of
// context; gateway.errorToResponse maps them to an HTTP status and a
// JSON {error, reason} body.
var (
	ErrBackendUnavailable  = errors.New("backend_unavailable")
	ErrInvalidArgument     = errors.New("invalid_argument")
	ErrSafetyViolation     = errors.New("safety_violation")
	ErrNotHolder           = errors.New("not_holder")
	ErrLeaseExpired        = errors.New("lease_expired")
	ErrBusy                = errors.New("busy")
	ErrDependencyNotRunning = errors.New("dependency_not_running")
	ErrTimeout             = errors.New("timeout")
	ErrInternal            = errors.New("internal")
)
