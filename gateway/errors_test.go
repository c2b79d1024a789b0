package gateway

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/arcwell/robogate/executor"
	"github.com/arcwell/robogate/lease"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/rewind"
	"github.com/arcwell/robogate/supervisor"
	"github.com/arcwell/robogate/testutil"
	"github.com/arcwell/robogate/types"
)

func TestErrorToResponse_MapsKnownSentinels(t *testing.T) {
	log := logger.NewNoOpLogger()
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", fmt.Errorf("wrap: %w", types.ErrInvalidArgument), http.StatusBadRequest},
		{"safety violation", types.ErrSafetyViolation, http.StatusUnprocessableEntity},
		{"not holder", types.ErrNotHolder, http.StatusForbidden},
		{"lease expired", types.ErrLeaseExpired, http.StatusForbidden},
		{"backend unavailable", types.ErrBackendUnavailable, http.StatusServiceUnavailable},
		{"dependency not running", types.ErrDependencyNotRunning, http.StatusConflict},
		{"busy", types.ErrBusy, http.StatusConflict},
		{"already running", executor.ErrAlreadyRunning, http.StatusConflict},
		{"timeout", types.ErrTimeout, http.StatusGatewayTimeout},
		{"queue full", lease.ErrQueueFull, http.StatusServiceUnavailable},
		{"no waypoints", rewind.ErrNoWaypoints, http.StatusBadRequest},
		{"invalid selection", rewind.ErrInvalidSelection, http.StatusBadRequest},
		{"unknown service", supervisor.ErrUnknownService, http.StatusNotFound},
		{"no execution", executor.ErrNoExecution, http.StatusNotFound},
	}
	for _, c := range cases {
		status, _ := errorToResponse(log, c.err)
		testutil.AssertEqual(t, c.want, status, c.name)
	}
}

func TestErrorToResponse_UnknownErrorIsInternalWithCorrelationID(t *testing.T) {
	log := logger.NewNoOpLogger()
	status, body := errorToResponse(log, fmt.Errorf("something unexpected"))
	testutil.AssertEqual(t, http.StatusInternalServerError, status)
	testutil.AssertEqual(t, types.ErrInternal.Error(), body.Error)
	if body.CorrelationID == "" {
		t.Fatal("expected a correlation id on an internal error")
	}
	if body.Reason != "" {
		t.Fatal("internal errors must not leak the underlying error message as reason")
	}
}

func TestNotHolderError_WrapsErrNotHolder(t *testing.T) {
	testutil.AssertErrorIs(t, notHolderError(), types.ErrNotHolder)
}

func TestCorrelationID_ReturnsNonEmptyHex(t *testing.T) {
	id := correlationID()
	if len(id) != 12 {
		t.Fatalf("expected a 12-char hex correlation id, got %q", id)
	}
}
