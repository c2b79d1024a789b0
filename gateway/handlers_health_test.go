package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arcwell/robogate/testutil"
)

func TestHandleHealth_OkWhenAllBackendsConnected(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.mux.ServeHTTP(w, r)

	testutil.AssertEqual(t, http.StatusOK, w.Code)
	var resp healthResponse
	testutil.RequireNoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	testutil.AssertEqual(t, "ok", resp.Status)
	testutil.AssertLen(t, resp.Backends, 4)
	for name, connected := range resp.Backends {
		testutil.AssertTrue(t, connected, name)
	}
}

func TestHandleState_ReturnsSnapshot(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/state", nil)
	s.mux.ServeHTTP(w, r)
	testutil.AssertEqual(t, http.StatusOK, w.Code)
}

func TestHandleTrajectory_EmptyInitially(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/trajectory", nil)
	s.mux.ServeHTTP(w, r)

	testutil.AssertEqual(t, http.StatusOK, w.Code)
	var resp trajectoryResponse
	testutil.RequireNoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	testutil.AssertEqual(t, 0, resp.Count)
}
