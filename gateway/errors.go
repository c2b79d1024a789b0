package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/arcwell/robogate/executor"
	"github.com/arcwell/robogate/lease"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/rewind"
	"github.com/arcwell/robogate/supervisor"
	"github.com/arcwell/robogate/types"
)

// errorResponse is the JSON body written for every non-2xx response,
// spec.md §7's {error, reason} shape. Internal failures omit reason
// and carry a correlation id instead of leaking err.Error().
type errorResponse struct {
	Error         string `json:"error"`
	Reason        string `json:"reason,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// errorToResponse maps err onto an HTTP status and JSON body, the
// gateway-package instance of the teacher's ErrorToProtoError pattern
// (server/errors.go) re-targeted at HTTP instead of a protobuf
// ErrorDetail. Unrecognized errors are treated as internal: logged at
// Error level with a fresh correlation id, never surfaced verbatim.
func errorToResponse(log logger.Logger, err error) (int, errorResponse) {
	switch {
	case errors.Is(err, types.ErrInvalidArgument):
		return http.StatusBadRequest, errorResponse{Error: types.ErrInvalidArgument.Error(), Reason: err.Error()}

	case errors.Is(err, types.ErrSafetyViolation):
		return http.StatusUnprocessableEntity, errorResponse{Error: types.ErrSafetyViolation.Error(), Reason: err.Error()}

	case errors.Is(err, types.ErrNotHolder):
		return http.StatusForbidden, errorResponse{Error: types.ErrNotHolder.Error()}

	case errors.Is(err, types.ErrLeaseExpired):
		return http.StatusForbidden, errorResponse{Error: types.ErrLeaseExpired.Error()}

	case errors.Is(err, types.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Error: types.ErrBackendUnavailable.Error(), Reason: err.Error()}

	case errors.Is(err, types.ErrDependencyNotRunning):
		return http.StatusConflict, errorResponse{Error: types.ErrDependencyNotRunning.Error(), Reason: err.Error()}

	case errors.Is(err, types.ErrBusy), errors.Is(err, executor.ErrAlreadyRunning):
		return http.StatusConflict, errorResponse{Error: types.ErrBusy.Error()}

	case errors.Is(err, types.ErrTimeout):
		return http.StatusGatewayTimeout, errorResponse{Error: types.ErrTimeout.Error()}

	case errors.Is(err, lease.ErrQueueFull):
		return http.StatusServiceUnavailable, errorResponse{Error: "queue_full"}

	case errors.Is(err, rewind.ErrNoWaypoints), errors.Is(err, rewind.ErrInvalidSelection):
		return http.StatusBadRequest, errorResponse{Error: types.ErrInvalidArgument.Error(), Reason: err.Error()}

	case errors.Is(err, supervisor.ErrUnknownService), errors.Is(err, executor.ErrNoExecution):
		return http.StatusNotFound, errorResponse{Error: "not_found", Reason: err.Error()}

	default:
		id := correlationID()
		log.Errorw("internal error", "correlation_id", id, "error", err)
		return http.StatusInternalServerError, errorResponse{Error: types.ErrInternal.Error(), CorrelationID: id}
	}
}

// correlationID returns a short, crypto/rand-backed token to tie a
// logged internal error to the 500 response the caller sees, without
// leaking err.Error() across the process boundary.
func correlationID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "unavailable"
	}
	return hex.EncodeToString(buf)
}

// notHolderError reports a lease-header mismatch with the caller's
// supplied token redacted from the message.
func notHolderError() error {
	return fmt.Errorf("%w: missing or mismatched X-Lease-Id header", types.ErrNotHolder)
}
