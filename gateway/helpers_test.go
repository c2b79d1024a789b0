package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/testutil"
	"github.com/arcwell/robogate/types"
)

func TestLeaseToken_ReadsHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/cmd/arm/move", nil)
	r.Header.Set("X-Lease-Id", "abc123")
	testutil.AssertEqual(t, types.LeaseID("abc123"), leaseToken(r))
}

func TestLeaseToken_EmptyWhenAbsent(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/cmd/arm/move", nil)
	testutil.AssertEqual(t, types.LeaseID(""), leaseToken(r))
}

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusCreated, map[string]string{"ok": "yes"})
	testutil.AssertEqual(t, http.StatusCreated, w.Code)
	testutil.AssertEqual(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	testutil.RequireNoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	testutil.AssertEqual(t, "yes", body["ok"])
}

func TestDecodeJSON_WrapsInvalidArgument(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/cmd/arm/move", strings.NewReader("not json"))
	var v map[string]any
	err := decodeJSON(r, &v)
	testutil.AssertErrorIs(t, err, types.ErrInvalidArgument)
}

func TestDecodeJSON_DecodesValidBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/cmd/arm/move", strings.NewReader(`{"mode":"idle"}`))
	var cmd types.ArmCommand
	testutil.RequireNoError(t, decodeJSON(r, &cmd))
	testutil.AssertEqual(t, types.ArmIdle, cmd.Mode)
}

func TestWriteError_RateLimitedMapsTo429(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, logger.NewNoOpLogger(), errTooManyRequests)
	testutil.AssertEqual(t, http.StatusTooManyRequests, w.Code)
}
