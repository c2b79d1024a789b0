package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arcwell/robogate/adapters"
	"github.com/arcwell/robogate/aggregator"
	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/commands"
	"github.com/arcwell/robogate/envelope"
	"github.com/arcwell/robogate/executor"
	"github.com/arcwell/robogate/lease"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/recorder"
	"github.com/arcwell/robogate/rewind"
	"github.com/arcwell/robogate/supervisor"
	"github.com/arcwell/robogate/testutil"
	"github.com/arcwell/robogate/types"
)

func permissiveEnvelopeConfig() envelope.Config {
	wide := envelope.Limit{Min: -1000, Max: 1000}
	cfg := envelope.Config{
		MaxArmJointVelocity:    1000,
		MaxArmLinearVelocity:   1000,
		MaxArmAngularVelocity:  1000,
		MaxBaseLinearVelocity:  1000,
		MaxBaseAngularVelocity: 1000,
		MaxGripperForce:        1000,
	}
	for i := range cfg.JointLimits {
		cfg.JointLimits[i] = wide
	}
	cfg.ArmWorkspace.X, cfg.ArmWorkspace.Y, cfg.ArmWorkspace.Z = wide, wide, wide
	cfg.BaseWorkspace.X, cfg.BaseWorkspace.Y = wide, wide
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	clk := clock.New()
	log := logger.NewNoOpLogger()
	set := adapters.NewDryRunSet(clk, 7)
	ctx := context.Background()
	testutil.RequireNoError(t, set.Arm.Connect(ctx))
	testutil.RequireNoError(t, set.Base.Connect(ctx))
	testutil.RequireNoError(t, set.Gripper.Connect(ctx))
	testutil.RequireNoError(t, set.Cameras.Connect(ctx))

	env := envelope.New(permissiveEnvelopeConfig())
	rec := recorder.New(recorder.DefaultConfig(), clk)
	agg := aggregator.New(aggregator.DefaultConfig(), set, clk, log)
	agg.Start(ctx)
	t.Cleanup(agg.Stop)
	rew := rewind.New(rewind.DefaultConfig(), rec, env, set, clk, log)
	cmds := commands.New(set, env, rec, agg, rew, clk, nil)
	exec := executor.New(executor.DefaultConfig(), cmds, clk, log)
	leaseCoord := lease.New(clk, log)
	leaseCoord.Start(ctx)
	t.Cleanup(leaseCoord.Stop)
	sup, err := supervisor.New(supervisor.DefaultConfig(), nil, clk, log, true, nil)
	testutil.RequireNoError(t, err)

	cfg := DefaultConfig()
	cfg.MutatingRPS = 1000
	cfg.MutatingBurst = 1000
	return New(cfg, Dependencies{
		Commands:   cmds,
		Lease:      leaseCoord,
		Recorder:   rec,
		Aggregator: agg,
		Rewind:     rew,
		Executor:   exec,
		Supervisor: sup,
	}, log)
}

func TestRoutes_HealthIsUngatedAndUnlimited(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.mux.ServeHTTP(w, r)
	testutil.AssertEqual(t, http.StatusOK, w.Code)
}

func TestRoutes_MutatingCommandRejectedWithoutLease(t *testing.T) {
	s := newTestServer(t)
	body := `{"mode":"joint_position","values":[0,0,0,0,0,0,0]}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/cmd/arm/move", strings.NewReader(body))
	s.mux.ServeHTTP(w, r)
	testutil.AssertEqual(t, http.StatusForbidden, w.Code)
}

func TestRoutes_MutatingCommandSucceedsWithLease(t *testing.T) {
	s := newTestServer(t)
	result, err := s.lease.Acquire(types.HolderName("agent-1"))
	testutil.RequireNoError(t, err)

	body := `{"mode":"joint_position","values":[0,0,0,0,0,0,0]}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/cmd/arm/move", strings.NewReader(body))
	r.Header.Set("X-Lease-Id", string(result.LeaseID))
	s.mux.ServeHTTP(w, r)
	testutil.AssertEqual(t, http.StatusOK, w.Code)
}

func TestRateLimited_RejectsWhenBucketExhausted(t *testing.T) {
	s := newTestServer(t)
	s.mutatingLimiter.SetBurst(0)

	called := false
	h := s.rateLimited(func(w http.ResponseWriter, r *http.Request) { called = true })

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/cmd/arm/stop", nil)
	h.ServeHTTP(w, r)

	testutil.AssertEqual(t, http.StatusTooManyRequests, w.Code)
	testutil.AssertFalse(t, called)
}

func TestLeaseGated_RejectsMissingToken(t *testing.T) {
	s := newTestServer(t)
	called := false
	h := s.leaseGated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/cmd/arm/stop", nil)
	h.ServeHTTP(w, r)

	testutil.AssertEqual(t, http.StatusForbidden, w.Code)
	testutil.AssertFalse(t, called)
}

func TestLeaseGated_AllowsCurrentHolder(t *testing.T) {
	s := newTestServer(t)
	result, err := s.lease.Acquire(types.HolderName("agent-1"))
	testutil.RequireNoError(t, err)

	called := false
	h := s.leaseGated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/cmd/arm/stop", nil)
	r.Header.Set("X-Lease-Id", string(result.LeaseID))
	h.ServeHTTP(w, r)

	testutil.AssertTrue(t, called)
}
