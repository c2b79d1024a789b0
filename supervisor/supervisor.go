// Package supervisor owns the lifecycle of the backend processes that
// back the adapters: spawning, health polling, dependency-gated start
// and breadth-first dependent-stop cascades, bounded auto-restart, a
// per-service log ring, and PID-file persistence so a crash of the
// supervisor itself does not orphan its children.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/types"
)

// Event describes a service lifecycle transition, surfaced so the
// gateway can tell agents when a backend went down (spec.md §2: "G...
// tells I when a backend is down").
type Event struct {
	Type    string // "started", "stopped", "crashed", "unhealthy", "recovered"
	Key     types.ServiceKey
	PID     int
	Message string
}

// EventFunc receives supervisor lifecycle events. It must not block.
type EventFunc func(Event)

// Supervisor manages a fixed set of service definitions, validated at
// construction to form a DAG (spec.md §9: "Cycles. None required...
// reject cyclic definitions at startup").
type Supervisor struct {
	cfg    Config
	clock  clock.Clock
	log    logger.Logger
	dryRun bool
	onEvt  EventFunc

	order      []types.ServiceKey            // topological start order
	dependents map[types.ServiceKey][]types.ServiceKey

	mu      sync.Mutex
	records map[types.ServiceKey]*types.ServiceRecord
	procs   map[types.ServiceKey]*os.Process

	logsMu sync.Mutex
	logs   map[types.ServiceKey]*types.LogRing

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New validates defs as a DAG and returns a Supervisor ready to
// Start. dryRun simulates starts/stops without spawning real
// processes, matching spec.md §6's --dry-run.
func New(cfg Config, defs []types.ServiceDefinition, clk clock.Clock, log logger.Logger, dryRun bool, onEvt EventFunc) (*Supervisor, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	byKey := make(map[types.ServiceKey]types.ServiceDefinition, len(defs))
	for _, d := range defs {
		byKey[d.Key] = d
	}
	order, err := topoSort(byKey)
	if err != nil {
		return nil, err
	}

	dependents := make(map[types.ServiceKey][]types.ServiceKey)
	records := make(map[types.ServiceKey]*types.ServiceRecord, len(defs))
	logs := make(map[types.ServiceKey]*types.LogRing, len(defs))
	for _, d := range defs {
		records[d.Key] = &types.ServiceRecord{Key: d.Key, Definition: d, State: types.StateStopped}
		logs[d.Key] = types.NewLogRing(cfg.LogLines)
		for _, dep := range d.DependsOn {
			dependents[dep] = append(dependents[dep], d.Key)
		}
	}

	return &Supervisor{
		cfg:        cfg,
		clock:      clk,
		log:        log.WithComponent("supervisor"),
		dryRun:     dryRun,
		onEvt:      onEvt,
		order:      order,
		dependents: dependents,
		records:    records,
		procs:      make(map[types.ServiceKey]*os.Process),
		logs:       logs,
	}, nil
}

// topoSort returns a start-safe order (dependencies before
// dependents), or an error if the graph has a cycle or a dangling
// dependency.
func topoSort(byKey map[types.ServiceKey]types.ServiceDefinition) ([]types.ServiceKey, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[types.ServiceKey]int, len(byKey))
	var order []types.ServiceKey

	var visit func(key types.ServiceKey) error
	visit = func(key types.ServiceKey) error {
		switch state[key] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("supervisor: cyclic dependency involving %q", key)
		}
		def, ok := byKey[key]
		if !ok {
			return fmt.Errorf("supervisor: %w: %q", ErrUnknownService, key)
		}
		state[key] = visiting
		for _, dep := range def.DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[key] = done
		order = append(order, key)
		return nil
	}

	keys := make([]types.ServiceKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		if err := visit(k); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Start restores or cleans up a previous run's PID file, then begins
// health polling. It does not itself start any service — call
// AutoStartAll for spec.md §6's --auto-start-services.
func (s *Supervisor) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.restoreOrCleanup()
	s.wg.Add(1)
	go s.healthLoop()
}

// Stop halts health polling and stops every running service in
// reverse dependency order (dependents before their dependencies),
// matching spec.md §5's shutdown ordering.
func (s *Supervisor) Stop(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	for i := len(s.order) - 1; i >= 0; i-- {
		_ = s.StopService(ctx, s.order[i])
	}
}

// AutoStartAll starts every service in dependency order, pausing
// AutoStartGap between each so a slow-to-initialize backend is ready
// before its dependents start (mirrors services.py's start()).
func (s *Supervisor) AutoStartAll(ctx context.Context) error {
	for i, key := range s.order {
		if err := s.StartService(ctx, key); err != nil {
			return fmt.Errorf("supervisor: auto-start %q: %w", key, err)
		}
		if i < len(s.order)-1 && s.cfg.AutoStartGap > 0 {
			s.clock.Sleep(s.cfg.AutoStartGap)
		}
	}
	return nil
}

// Keys returns the managed service keys in dependency (start) order.
func (s *Supervisor) Keys() []types.ServiceKey {
	return append([]types.ServiceKey(nil), s.order...)
}

// Status returns a snapshot of one service's record.
func (s *Supervisor) Status(key types.ServiceKey) (types.ServiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return types.ServiceRecord{}, ErrUnknownService
	}
	return *rec, nil
}

// StatusAll returns a snapshot of every managed service, in start
// order.
func (s *Supervisor) StatusAll() []types.ServiceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ServiceRecord, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.records[key])
	}
	return out
}

// Logs returns the last n log lines captured for key.
func (s *Supervisor) Logs(key types.ServiceKey, n int) ([]string, error) {
	s.logsMu.Lock()
	ring, ok := s.logs[key]
	s.logsMu.Unlock()
	if !ok {
		return nil, ErrUnknownService
	}
	return ring.Last(n), nil
}

// StartService starts key if every dependency is running (spec.md
// §4.G: "A service may transition stopped → starting only if every
// dependency is running").
func (s *Supervisor) StartService(ctx context.Context, key types.ServiceKey) error {
	s.mu.Lock()
	rec, ok := s.records[key]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownService
	}
	if rec.State == types.StateRunning || rec.State == types.StateStarting {
		s.mu.Unlock()
		return nil
	}
	if missing := s.missingDependenciesLocked(rec.Definition); len(missing) > 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v missing for %q", types.ErrDependencyNotRunning, missing, key)
	}
	s.transitionLocked(rec, types.StateStarting)
	s.mu.Unlock()

	s.appendLog(key, fmt.Sprintf("[starting %v]", rec.Definition.Command))

	if s.dryRun {
		s.mu.Lock()
		rec.StartedAt = s.clock.Now()
		rec.LastHealth = rec.StartedAt
		s.transitionLocked(rec, types.StateRunning)
		s.mu.Unlock()
		s.appendLog(key, "[dry-run] simulated start")
		s.emit(Event{Type: "started", Key: key, Message: "dry-run"})
		return nil
	}

	proc, err := s.spawn(rec.Definition)
	if err != nil {
		s.mu.Lock()
		s.transitionLocked(rec, types.StateCrashed)
		s.mu.Unlock()
		s.appendLog(key, fmt.Sprintf("[failed to start: %v]", err))
		s.emit(Event{Type: "crashed", Key: key, Message: err.Error()})
		return fmt.Errorf("supervisor: start %q: %w", key, err)
	}

	s.mu.Lock()
	s.procs[key] = proc
	rec.PID = proc.Pid
	rec.StartedAt = s.clock.Now()
	rec.LastHealth = rec.StartedAt
	rec.ConsecFails = 0
	s.transitionLocked(rec, types.StateRunning)
	s.mu.Unlock()

	s.appendLog(key, fmt.Sprintf("[started pid=%d]", proc.Pid))
	s.savePIDsLocked()
	s.emit(Event{Type: "started", Key: key, PID: proc.Pid})
	return nil
}

// StopService stops key (if running) and immediately schedules every
// service that depends on it for a breadth-first, synchronous-per-
// wave stop (spec.md §4.G's cascade rule).
func (s *Supervisor) StopService(ctx context.Context, key types.ServiceKey) error {
	if err := s.stopOne(ctx, key); err != nil {
		return err
	}
	s.cascadeStop(ctx, key)
	return nil
}

func (s *Supervisor) stopOne(ctx context.Context, key types.ServiceKey) error {
	s.mu.Lock()
	rec, ok := s.records[key]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownService
	}
	if rec.State == types.StateStopped || rec.State == types.StateStopping {
		s.mu.Unlock()
		return nil
	}
	s.transitionLocked(rec, types.StateStopping)
	proc := s.procs[key]
	def := rec.Definition
	s.mu.Unlock()

	if s.dryRun {
		s.appendLog(key, "[dry-run] simulated stop")
	} else {
		if proc != nil {
			killProcessGroup(proc.Pid, s.cfg.StopGrace)
		}
		killByPatterns(def.KillPatterns, s.cfg.StopGrace)
		s.appendLog(key, "[stopped]")
	}

	s.mu.Lock()
	delete(s.procs, key)
	rec.PID = 0
	s.transitionLocked(rec, types.StateStopped)
	s.savePIDsLocked()
	s.mu.Unlock()

	s.emit(Event{Type: "stopped", Key: key})
	return nil
}

// cascadeStop stops every (transitive) dependent of key, one
// breadth-first wave at a time, each wave fully settled before the
// next begins.
func (s *Supervisor) cascadeStop(ctx context.Context, key types.ServiceKey) {
	wave := s.dependents[key]
	for len(wave) > 0 {
		var next []types.ServiceKey
		for _, dep := range wave {
			if err := s.stopOne(ctx, dep); err != nil {
				s.log.Warnw("cascade stop failed", "key", dep, "error", err)
				continue
			}
			next = append(next, s.dependents[dep]...)
		}
		wave = next
	}
}

// RestartService stops then starts key, matching services.py's
// restart_service (a brief pause between the two).
func (s *Supervisor) RestartService(ctx context.Context, key types.ServiceKey) error {
	if err := s.StopService(ctx, key); err != nil {
		return err
	}
	s.clock.Sleep(s.cfg.RestartBackoff)
	return s.StartService(ctx, key)
}

func (s *Supervisor) missingDependenciesLocked(def types.ServiceDefinition) []types.ServiceKey {
	var missing []types.ServiceKey
	for _, dep := range def.DependsOn {
		if rec, ok := s.records[dep]; !ok || rec.State != types.StateRunning {
			missing = append(missing, dep)
		}
	}
	return missing
}

func (s *Supervisor) transitionLocked(rec *types.ServiceRecord, target types.ServiceState) {
	if !rec.State.CanTransitionTo(target) && rec.State != target {
		s.log.Warnw("non-standard service transition", "key", rec.Key, "from", rec.State, "to", target)
	}
	rec.State = target
}

// spawn launches def's command (with its optional shell prelude)
// inside its own process group, and starts a background reader
// draining merged stdout/stderr into the service's log ring.
func (s *Supervisor) spawn(def types.ServiceDefinition) (*os.Process, error) {
	if len(def.Command) == 0 {
		return nil, fmt.Errorf("supervisor: %q has an empty command", def.Key)
	}
	script := def.Prelude
	for _, part := range def.Command {
		script += " " + part
	}
	cmd := exec.Command("bash", "-c", script)
	cmd.Dir = def.WorkDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	key := def.Key
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.drainLog(key, stdout)
	}()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		exitErr := cmd.Wait()
		s.onProcessExit(key, exitErr)
	}()

	return cmd.Process, nil
}

func (s *Supervisor) drainLog(key types.ServiceKey, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.appendLog(key, scanner.Text())
	}
}

func (s *Supervisor) appendLog(key types.ServiceKey, line string) {
	s.logsMu.Lock()
	ring := s.logs[key]
	s.logsMu.Unlock()
	if ring != nil {
		ring.Append(line)
	}
}

// onProcessExit fires when a spawned process exits on its own — a
// crash, not a requested stop. A service already transitioning
// through Stopping is left alone; the stop path owns that record.
func (s *Supervisor) onProcessExit(key types.ServiceKey, exitErr error) {
	s.mu.Lock()
	rec, ok := s.records[key]
	if !ok || rec.State == types.StateStopping || rec.State == types.StateStopped {
		s.mu.Unlock()
		return
	}
	delete(s.procs, key)
	rec.PID = 0
	s.transitionLocked(rec, types.StateCrashed)
	autoRestart := rec.Definition.AutoRestart
	s.mu.Unlock()

	msg := "exited"
	if exitErr != nil {
		msg = exitErr.Error()
	}
	s.appendLog(key, fmt.Sprintf("[crashed: %s]", msg))
	s.emit(Event{Type: "crashed", Key: key, Message: msg})

	s.cascadeStop(context.Background(), key)

	if autoRestart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.clock.Sleep(s.cfg.RestartBackoff)
			if err := s.StartService(context.Background(), key); err != nil {
				s.log.Errorw("auto-restart failed", "key", key, "error", err)
			}
		}()
	}
}

func (s *Supervisor) healthLoop() {
	defer s.wg.Done()
	ticker := s.clock.NewTicker(s.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.Chan():
			s.healthCheckOnce()
		}
	}
}

// healthCheckOnce probes every running/unhealthy service, marking
// unhealthy after cfg.HealthFailThreshold consecutive failures and
// recovering to running after one success, then stops anything whose
// dependency has fallen out of the running state.
func (s *Supervisor) healthCheckOnce() {
	if s.dryRun {
		return
	}
	type stopReq struct {
		key    types.ServiceKey
		reason []types.ServiceKey
	}
	var toStop []stopReq

	s.mu.Lock()
	for _, key := range s.order {
		rec := s.records[key]
		if rec.State != types.StateRunning && rec.State != types.StateUnhealthy {
			continue
		}
		proc := s.procs[key]
		if err := probe(proc, rec.Definition.HealthProbe); err != nil {
			rec.ConsecFails++
			if rec.ConsecFails >= s.cfg.HealthFailThreshold && rec.State == types.StateRunning {
				s.transitionLocked(rec, types.StateUnhealthy)
				s.emit(Event{Type: "unhealthy", Key: key, Message: err.Error()})
			}
		} else {
			wasUnhealthy := rec.State == types.StateUnhealthy
			rec.ConsecFails = 0
			rec.LastHealth = s.clock.Now()
			if wasUnhealthy {
				s.transitionLocked(rec, types.StateRunning)
				s.emit(Event{Type: "recovered", Key: key})
			}
		}

		if rec.State == types.StateRunning || rec.State == types.StateUnhealthy {
			if missing := s.missingDependenciesLocked(rec.Definition); len(missing) > 0 {
				toStop = append(toStop, stopReq{key: key, reason: missing})
			}
		}
	}
	s.mu.Unlock()

	for _, req := range toStop {
		s.appendLog(req.key, fmt.Sprintf("[stopping: dependencies down: %v]", req.reason))
		if err := s.StopService(s.ctx, req.key); err != nil {
			s.log.Warnw("dependency-triggered stop failed", "key", req.key, "error", err)
		}
	}
}

// probe reports the service's liveness: the process must still be
// alive, and — when the definition supplies one — its HealthProbe
// must also succeed.
func probe(proc *os.Process, hp types.HealthProbe) error {
	if proc == nil {
		return fmt.Errorf("supervisor: no tracked process")
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return fmt.Errorf("supervisor: process not alive: %w", err)
	}
	if hp != nil {
		return hp()
	}
	return nil
}

func (s *Supervisor) emit(evt Event) {
	if s.onEvt != nil {
		s.onEvt(evt)
	}
}

// savePIDsLocked persists the currently-tracked PIDs. Caller must
// hold s.mu.
func (s *Supervisor) savePIDsLocked() {
	if s.cfg.PIDFile == "" {
		return
	}
	pids := make(map[string]int, len(s.procs))
	for key, proc := range s.procs {
		pids[string(key)] = proc.Pid
	}
	if err := savePIDs(s.cfg.PIDFile, pids); err != nil {
		s.log.Warnw("failed to save PID file", "error", err)
	}
}

// restoreOrCleanup kills any process group left over from a previous
// run's PID file, then sweeps every definition's kill patterns as a
// backstop — the original implementation's crash-recovery behavior
// (services.py: _restore_or_cleanup), carried forward per
// SPEC_FULL.md's supplemented features.
func (s *Supervisor) restoreOrCleanup() {
	if s.cfg.PIDFile == "" || s.dryRun {
		return
	}
	old, err := loadPIDs(s.cfg.PIDFile)
	if err != nil {
		s.log.Warnw("failed to restore PID file", "error", err)
	}
	for key, pid := range old {
		if err := killOrphanedGroup(pid); err != nil {
			s.log.Warnw("failed to kill orphaned process group", "key", key, "pid", pid, "error", err)
		} else {
			s.log.Infow("killed orphaned process group from previous run", "key", key, "pid", pid)
		}
	}
	_ = os.Remove(s.cfg.PIDFile)

	s.mu.Lock()
	defs := make([]types.ServiceDefinition, 0, len(s.records))
	for _, rec := range s.records {
		defs = append(defs, rec.Definition)
	}
	s.mu.Unlock()
	for _, def := range defs {
		killByPatterns(def.KillPatterns, 0)
	}
}

// killProcessGroup sends SIGTERM to pid's process group, waiting up
// to grace before following up with SIGKILL.
func killProcessGroup(pid int, grace time.Duration) {
	_ = unixKillGroup(pid, syscall.SIGTERM)
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	_ = unixKillGroup(pid, syscall.SIGKILL)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
