// Package gateway is the agent-facing HTTP/WS surface (component I):
// it binds the lease coordinator, the shared command handler, the
// rewind engine, the code executor, and the service supervisor onto
// spec.md §6's endpoint table, translating their typed errors into the
// taxonomy's HTTP statuses at the boundary (errorToResponse) the same
// way the teacher's server package translated internal errors into
// protobuf ErrorDetail values at its gRPC boundary.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"github.com/arcwell/robogate/aggregator"
	"github.com/arcwell/robogate/commands"
	"github.com/arcwell/robogate/executor"
	"github.com/arcwell/robogate/lease"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/recorder"
	"github.com/arcwell/robogate/rewind"
	"github.com/arcwell/robogate/supervisor"
)

// Server bundles every subsystem the HTTP surface drives and owns the
// listener's lifecycle.
type Server struct {
	cfg Config
	log logger.Logger

	cmds  *commands.Handler
	lease *lease.Coordinator
	rec   *recorder.Recorder
	agg   *aggregator.Aggregator
	rew   *rewind.Engine
	exec  *executor.Executor
	sup   *supervisor.Supervisor

	mutatingLimiter *rate.Limiter
	mux             *http.ServeMux
	httpServer      *http.Server
}

// Dependencies bundles the components New wires onto the HTTP surface.
type Dependencies struct {
	Commands   *commands.Handler
	Lease      *lease.Coordinator
	Recorder   *recorder.Recorder
	Aggregator *aggregator.Aggregator
	Rewind     *rewind.Engine
	Executor   *executor.Executor
	Supervisor *supervisor.Supervisor
}

// New returns a Server ready to ListenAndServe.
func New(cfg Config, deps Dependencies, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	s := &Server{
		cfg:             cfg,
		log:             log.WithComponent("gateway"),
		cmds:            deps.Commands,
		lease:           deps.Lease,
		rec:             deps.Recorder,
		agg:             deps.Aggregator,
		rew:             deps.Rewind,
		exec:            deps.Executor,
		sup:             deps.Supervisor,
		mutatingLimiter: rate.NewLimiter(rate.Limit(cfg.MutatingRPS), cfg.MutatingBurst),
	}
	s.mux = http.NewServeMux()
	s.routes()
	s.httpServer = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// ListenAndServe binds the configured host:port (through a
// netutil.LimitListener capping concurrent connections) and serves
// until the context is cancelled or ServeErr occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gateway: listen %s: %w", addr, err)
	}
	if s.cfg.MaxConcurrentConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConcurrentConns)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.Serve(ln) }()

	s.log.Infow("gateway listening", "addr", addr)

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// shutdown drains in-flight requests within the configured grace
// period. http.Server.Shutdown does not close hijacked connections, so
// open /ws/* sessions are not ended by it.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// routes registers spec.md §6's HTTP surface using Go 1.22+
// net/http.ServeMux pattern routing — the stdlib is the correct,
// unenriched choice here (spec.md §1 names routing/JSON binding as out
// of scope, so nothing richer is warranted).
func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /state", s.handleState)
	s.mux.HandleFunc("GET /trajectory", s.handleTrajectory)

	s.mux.HandleFunc("POST /lease/acquire", s.handleLeaseAcquire)
	s.mux.HandleFunc("POST /lease/release", s.handleLeaseRelease)
	s.mux.HandleFunc("POST /lease/extend", s.handleLeaseExtend)
	s.mux.HandleFunc("GET /lease/status", s.handleLeaseStatus)

	s.mux.Handle("POST /cmd/arm/move", s.leaseGated(s.rateLimited(s.handleArmMove)))
	s.mux.Handle("POST /cmd/arm/stop", s.leaseGated(s.rateLimited(s.handleArmStop)))
	s.mux.Handle("POST /cmd/base/move", s.leaseGated(s.rateLimited(s.handleBaseMove)))
	s.mux.Handle("POST /cmd/base/stop", s.leaseGated(s.rateLimited(s.handleBaseStop)))
	s.mux.Handle("POST /cmd/gripper", s.leaseGated(s.rateLimited(s.handleGripper)))

	s.mux.Handle("POST /rewind/steps", s.leaseGated(s.rateLimited(s.handleRewindSteps)))
	s.mux.Handle("POST /rewind/percentage", s.leaseGated(s.rateLimited(s.handleRewindPercentage)))
	s.mux.HandleFunc("GET /rewind/status", s.handleRewindStatus)
	s.mux.HandleFunc("GET /rewind/config", s.handleRewindConfigGet)
	s.mux.HandleFunc("PUT /rewind/config", s.handleRewindConfigPut)

	s.mux.Handle("POST /code/execute", s.leaseGated(s.rateLimited(s.handleCodeExecute)))
	s.mux.Handle("POST /code/stop", s.leaseGated(s.rateLimited(s.handleCodeStop)))
	s.mux.HandleFunc("GET /code/status", s.handleCodeStatus)
	s.mux.HandleFunc("GET /code/result", s.handleCodeResult)

	s.mux.HandleFunc("GET /services", s.handleServicesList)
	s.mux.HandleFunc("GET /services/{key}", s.handleServiceGet)
	s.mux.HandleFunc("GET /services/{key}/logs", s.handleServiceLogs)
	s.mux.Handle("POST /services/{key}/start", s.rateLimited(s.handleServiceStart))
	s.mux.Handle("POST /services/{key}/stop", s.rateLimited(s.handleServiceStop))
	s.mux.Handle("POST /services/{key}/restart", s.rateLimited(s.handleServiceRestart))

	s.mux.HandleFunc("GET /ws/state", s.handleWSState)
	s.mux.HandleFunc("GET /ws/feedback", s.handleWSFeedback)
	s.mux.HandleFunc("GET /ws/cameras", s.handleWSCameras)
}

// rateLimited wraps next with the shared mutating-route token bucket,
// matching the teacher's TokenBucketRateLimiter.Allow check (server's
// interceptor, re-targeted at http.HandlerFunc).
func (s *Server) rateLimited(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.mutatingLimiter.Allow() {
			writeError(w, s.log, fmt.Errorf("%w: rate limited", errTooManyRequests))
			return
		}
		next(w, r)
	})
}

// leaseGated enforces the X-Lease-Id header contract on mutating
// routes: the token must name the current holder or the request is
// rejected before next ever runs.
func (s *Server) leaseGated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := leaseToken(r)
		if token == "" || !s.lease.Authorize(token) {
			writeError(w, s.log, notHolderError())
			return
		}
		next.ServeHTTP(w, r)
	})
}
