// Package aggregator continuously polls the backend adapters and
// publishes immutable, composed snapshots to any number of
// independently-rated subscribers, degrading a backend's slot to
// "stale" rather than failing the whole snapshot when that backend is
// unreachable.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/arcwell/robogate/adapters"
	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/types"
)

// Aggregator owns one polling task per backend and a publisher that
// composes the latest per-backend slots into a types.Snapshot.
type Aggregator struct {
	cfg   Config
	set   *adapters.Set
	clock clock.Clock
	log   logger.Logger

	slotMu sync.RWMutex
	arm    slot[types.ArmState]
	base   slot[types.BaseState]
	grip   slot[types.GripperState]
	cams   slot[struct{}]

	latestMu sync.RWMutex
	latest   types.Snapshot

	subMu     sync.Mutex
	subs      map[uint64]*subscription
	nextSubID uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type slot[T any] struct {
	value  T
	status types.BackendStatus
}

type subscription struct {
	ch       chan types.Snapshot
	rate     time.Duration
	lastSent time.Time
}

// New returns an Aggregator that will poll set once Start is called.
func New(cfg Config, set *adapters.Set, clk clock.Clock, log logger.Logger) *Aggregator {
	return &Aggregator{
		cfg:   cfg,
		set:   set,
		clock: clk,
		log:   log.WithComponent("aggregator"),
		subs:  make(map[uint64]*subscription),
		latest: types.Snapshot{
			Timestamp: clk.Now(),
			Backends:  map[types.BackendKind]types.BackendStatus{},
		},
	}
}

// Start launches the per-backend polling tasks and the publisher.
func (a *Aggregator) Start(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.wg.Add(4)
	go a.pollArm()
	go a.pollBase()
	go a.pollGripper()
	go a.publishLoop()
}

// Stop cancels all background tasks and waits for them to exit.
func (a *Aggregator) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}

// Snapshot returns the most recently published composed snapshot. It
// never blocks on adapter I/O.
func (a *Aggregator) Snapshot() types.Snapshot {
	a.latestMu.RLock()
	defer a.latestMu.RUnlock()
	return cloneSnapshot(a.latest)
}

// Subscribe registers a WebSocket-style subscriber that wants a
// conflated snapshot stream throttled to at most one update every
// rate. The returned channel is buffered to exactly one element;
// callers must drain it promptly but missed updates are expected and
// harmless (newer snapshots overwrite older, unsent ones). Call the
// returned cancel function to unsubscribe.
func (a *Aggregator) Subscribe(rate time.Duration) (<-chan types.Snapshot, func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	id := a.nextSubID
	a.nextSubID++
	sub := &subscription{ch: make(chan types.Snapshot, 1), rate: rate}
	a.subs[id] = sub

	return sub.ch, func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		delete(a.subs, id)
		close(sub.ch)
	}
}

func (a *Aggregator) pollArm() {
	defer a.wg.Done()
	a.pollLoop(a.cfg.ArmPollInterval, func(ctx context.Context) error {
		state, err := a.set.Arm.GetState(ctx)
		a.slotMu.Lock()
		a.arm = updateSlot(a.arm, state, err, a.clock.Now())
		a.slotMu.Unlock()
		return err
	})
}

func (a *Aggregator) pollBase() {
	defer a.wg.Done()
	a.pollLoop(a.cfg.BasePollInterval, func(ctx context.Context) error {
		state, err := a.set.Base.GetState(ctx)
		a.slotMu.Lock()
		a.base = updateSlot(a.base, state, err, a.clock.Now())
		a.slotMu.Unlock()
		return err
	})
}

func (a *Aggregator) pollGripper() {
	defer a.wg.Done()
	a.pollLoop(a.cfg.GripperPollInterval, func(ctx context.Context) error {
		state, err := a.set.Gripper.GetState(ctx)
		a.slotMu.Lock()
		a.grip = updateSlot(a.grip, state, err, a.clock.Now())
		a.slotMu.Unlock()
		return err
	})
}

// pollLoop invokes poll at interval until the aggregator is stopped.
func (a *Aggregator) pollLoop(interval time.Duration, poll func(ctx context.Context) error) {
	ticker := a.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.Chan():
			if err := poll(a.ctx); err != nil {
				a.log.Debugw("backend poll failed", "error", err)
			}
		}
	}
}

// updateSlot records a fresh poll result, marking the slot stale
// (but keeping the last known value) when the poll failed.
func updateSlot[T any](s slot[T], value T, err error, now time.Time) slot[T] {
	if err != nil {
		s.status.Connected = false
		s.status.LastError = err.Error()
		s.status.Stale = true
		return s
	}
	s.value = value
	s.status = types.BackendStatus{Connected: true, LastOKAt: now}
	return s
}

func (a *Aggregator) publishLoop() {
	defer a.wg.Done()
	ticker := a.clock.NewTicker(a.cfg.PublishInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.Chan():
			a.publishOnce()
		}
	}
}

func (a *Aggregator) publishOnce() {
	snap := a.compose()

	a.latestMu.Lock()
	a.latest = snap
	a.latestMu.Unlock()

	a.subMu.Lock()
	defer a.subMu.Unlock()
	now := a.clock.Now()
	for _, sub := range a.subs {
		if sub.rate > 0 && now.Sub(sub.lastSent) < sub.rate {
			continue
		}
		sub.lastSent = now
		conflatingSend(sub.ch, snap)
	}
}

func (a *Aggregator) compose() types.Snapshot {
	a.slotMu.RLock()
	defer a.slotMu.RUnlock()

	camStatus := a.cams.status
	if a.set.Cameras != nil {
		camStatus.Connected = a.set.Cameras.IsConnected()
	}

	return types.Snapshot{
		Timestamp: a.clock.Now(),
		Backends: map[types.BackendKind]types.BackendStatus{
			types.BackendArm:     a.arm.status,
			types.BackendBase:    a.base.status,
			types.BackendGripper: a.grip.status,
			types.BackendCameras: camStatus,
		},
		Arm:     cloneArmState(a.arm.value),
		Base:    a.base.value,
		Gripper: a.grip.value,
	}
}

func cloneArmState(s types.ArmState) types.ArmState {
	out := s
	out.Joints = append([]float64(nil), s.Joints...)
	out.Pose = append([]float64(nil), s.Pose...)
	return out
}

func cloneSnapshot(s types.Snapshot) types.Snapshot {
	out := s
	out.Arm = cloneArmState(s.Arm)
	out.Backends = make(map[types.BackendKind]types.BackendStatus, len(s.Backends))
	for k, v := range s.Backends {
		out.Backends[k] = v
	}
	return out
}

// conflatingSend delivers snap to ch, overwriting any already-buffered
// but undelivered snapshot instead of blocking or queueing.
func conflatingSend(ch chan types.Snapshot, snap types.Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
