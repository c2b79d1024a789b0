package rewind

import (
	"context"
	"sync"

	"github.com/arcwell/robogate/envelope"
	"github.com/arcwell/robogate/types"
)

// SnapshotSource is the subset of the aggregator the monitor depends
// on, kept narrow so tests can supply a stub.
type SnapshotSource interface {
	Snapshot() types.Snapshot
}

// Monitor polls a snapshot source at ~5 Hz and triggers an
// auto-rewind through engine when the base's current pose violates
// the envelope, as long as no rewind is already active.
type Monitor struct {
	engine *Engine
	env    *envelope.Envelope
	src    SnapshotSource
	cfg    Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor returns a Monitor that will drive engine from src's
// snapshots once Start is called.
func NewMonitor(cfg Config, engine *Engine, env *envelope.Envelope, src SnapshotSource) *Monitor {
	return &Monitor{engine: engine, env: env, src: src, cfg: cfg}
}

// Start launches the polling loop.
func (m *Monitor) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.run()
}

// Stop cancels the polling loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) run() {
	defer m.wg.Done()
	ticker := m.engine.clock.NewTicker(m.cfg.AutoRewindPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.Chan():
			m.checkOnce()
		}
	}
}

func (m *Monitor) checkOnce() {
	if m.engine.IsActive() {
		return
	}
	snap := m.src.Snapshot()

	cmd := types.BaseCommand{Pose: &types.BasePoseTarget{X: snap.Base.X, Y: snap.Base.Y, Theta: snap.Base.Theta}}
	if m.env.ValidateBaseCommand(&cmd).Outcome != envelope.OutcomeRejected {
		return
	}

	m.engine.log.Warnw("auto-rewind triggered on envelope violation", "x", snap.Base.X, "y", snap.Base.Y)
	go func() {
		if _, err := m.engine.Rewind(m.ctx, Selection{Kind: BySteps, Steps: m.cfg.AutoRewindSteps}, false); err != nil {
			m.engine.log.Warnw("auto-rewind attempt failed", "error", err)
		}
	}()
}
