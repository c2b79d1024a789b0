package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arcwell/robogate/testutil"
)

func TestWorkerPool_LeaseEndpoint_RecordsSuccesses(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lease/acquire":
			w.Write([]byte(`{"status":"granted","lease_id":"lease-1"}`))
		case "/lease/release":
			w.Write([]byte(`{"status":"released"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	cfg := defaultConfig()
	cfg.TargetAddr = ts.URL
	cfg.Workers = 2
	cfg.Duration = 50 * time.Millisecond
	cfg.Endpoint = "lease"

	pool := newWorkerPool(cfg)
	stats := pool.run(context.Background())

	testutil.AssertTrue(t, stats.SuccessfulCount > 0, "expected at least one successful request")
	testutil.AssertEqual(t, int64(0), stats.FailedCount)
}

func TestWorkerPool_ArmMoveEndpoint_AcquiresLeaseOnce(t *testing.T) {
	var acquireCount int64
	var moveCount int64
	var sawLeaseHeader atomic.Bool

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lease/acquire":
			atomic.AddInt64(&acquireCount, 1)
			w.Write([]byte(`{"status":"granted","lease_id":"lease-1"}`))
		case "/lease/release":
			w.Write([]byte(`{"status":"released"}`))
		case "/cmd/arm/move":
			atomic.AddInt64(&moveCount, 1)
			if r.Header.Get("X-Lease-Id") == "lease-1" {
				sawLeaseHeader.Store(true)
			}
			w.Write([]byte(`{"status":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	cfg := defaultConfig()
	cfg.TargetAddr = ts.URL
	cfg.Workers = 1
	cfg.Duration = 50 * time.Millisecond
	cfg.Endpoint = "arm_move"

	pool := newWorkerPool(cfg)
	stats := pool.run(context.Background())

	testutil.AssertEqual(t, int64(1), acquireCount)
	testutil.AssertTrue(t, moveCount > 0, "expected at least one arm_move request")
	testutil.AssertTrue(t, sawLeaseHeader.Load(), "expected arm_move requests to carry the acquired lease id")
	testutil.AssertEqual(t, int64(0), stats.FailedCount)
}

func TestWorkerPool_NonOKStatusIsRecordedAsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	cfg := defaultConfig()
	cfg.TargetAddr = ts.URL
	cfg.Workers = 1
	cfg.Duration = 30 * time.Millisecond
	cfg.Endpoint = "lease"

	pool := newWorkerPool(cfg)
	stats := pool.run(context.Background())

	testutil.AssertTrue(t, stats.FailedCount > 0, "expected failures when the server rejects every request")
	testutil.AssertEqual(t, int64(0), stats.SuccessfulCount)
}
