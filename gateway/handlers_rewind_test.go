package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arcwell/robogate/testutil"
)

func TestHandleRewindSteps_NoWaypointsIs400(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/rewind/steps", strings.NewReader(`{"steps":1}`))
	r.Header.Set("X-Lease-Id", mustLease(t, s))
	s.mux.ServeHTTP(w, r)
	testutil.AssertEqual(t, http.StatusBadRequest, w.Code)
}

func TestHandleRewindStatus_NotActiveInitially(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/rewind/status", nil)
	s.mux.ServeHTTP(w, r)
	testutil.AssertEqual(t, http.StatusOK, w.Code)
	testutil.AssertContains(t, w.Body.String(), `"is_rewinding":false`)
	testutil.AssertContains(t, w.Body.String(), `"base_boundary"`)
	testutil.AssertContains(t, w.Body.String(), `"near_boundary":false`)
}

func TestHandleRewindConfig_RoundTrips(t *testing.T) {
	s := newTestServer(t)
	getW := httptest.NewRecorder()
	getR := httptest.NewRequest(http.MethodGet, "/rewind/config", nil)
	s.mux.ServeHTTP(getW, getR)
	testutil.AssertEqual(t, http.StatusOK, getW.Code)

	putW := httptest.NewRecorder()
	putR := httptest.NewRequest(http.MethodPut, "/rewind/config", strings.NewReader(getW.Body.String()))
	s.mux.ServeHTTP(putW, putR)
	testutil.AssertEqual(t, http.StatusOK, putW.Code)
}

func mustLease(t *testing.T, s *Server) string {
	t.Helper()
	result, err := s.lease.Acquire("agent-1")
	testutil.RequireNoError(t, err)
	return string(result.LeaseID)
}
