package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/arcwell/robogate/adapters"
	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/testutil"
	"github.com/arcwell/robogate/types"
)

func newConnectedDryRunSet(t *testing.T, clk clock.Clock) *adapters.Set {
	t.Helper()
	ctx := context.Background()
	set := adapters.NewDryRunSet(clk, 7)
	testutil.AssertNoError(t, set.Arm.Connect(ctx))
	testutil.AssertNoError(t, set.Base.Connect(ctx))
	testutil.AssertNoError(t, set.Gripper.Connect(ctx))
	testutil.AssertNoError(t, set.Cameras.Connect(ctx))
	return set
}

func TestAggregator_ComposesConnectedSnapshot(t *testing.T) {
	clk := clock.New()
	set := newConnectedDryRunSet(t, clk)
	agg := New(DefaultConfig(), set, clk, logger.NewNoOpLogger())
	agg.Start(context.Background())
	defer agg.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap := agg.Snapshot()
		if snap.Backends[types.BackendArm].Connected {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("aggregator never observed a connected arm backend")
}

func TestAggregator_DisconnectedBackendMarksStale(t *testing.T) {
	clk := clock.New()
	set := adapters.NewDryRunSet(clk, 7)
	// Never connect the backends.
	agg := New(Config{
		ArmPollInterval:     time.Millisecond,
		BasePollInterval:    time.Millisecond,
		GripperPollInterval: time.Millisecond,
		PublishInterval:     time.Millisecond,
	}, set, clk, logger.NewNoOpLogger())
	agg.Start(context.Background())
	defer agg.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap := agg.Snapshot()
		if snap.Backends[types.BackendArm].Stale {
			testutil.AssertFalse(t, snap.Backends[types.BackendArm].Connected, "expected disconnected arm")
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("aggregator never marked the disconnected arm stale")
}

func TestAggregator_SubscribeReceivesSnapshots(t *testing.T) {
	clk := clock.New()
	set := newConnectedDryRunSet(t, clk)
	agg := New(DefaultConfig(), set, clk, logger.NewNoOpLogger())
	agg.Start(context.Background())
	defer agg.Stop()

	ch, cancel := agg.Subscribe(0)
	defer cancel()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected at least one snapshot on the subscription channel")
	}
}

func TestAggregator_SubscribeConflatesUndeliveredSnapshots(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	set := newConnectedDryRunSet(t, clk)
	agg := New(Config{
		ArmPollInterval:     time.Millisecond,
		BasePollInterval:    time.Millisecond,
		GripperPollInterval: time.Millisecond,
		PublishInterval:     time.Millisecond,
	}, set, clk, logger.NewNoOpLogger())

	ch, cancel := agg.Subscribe(0)
	defer cancel()

	agg.publishOnce()
	clk.Advance(time.Millisecond)
	agg.publishOnce()

	testutil.AssertLen(t, drain(ch), 1, "expected conflated single-element buffer")
}

func drain(ch <-chan types.Snapshot) []types.Snapshot {
	var out []types.Snapshot
	for {
		select {
		case s := <-ch:
			out = append(out, s)
		default:
			return out
		}
	}
}

func TestAggregator_UnsubscribeClosesChannel(t *testing.T) {
	clk := clock.New()
	set := newConnectedDryRunSet(t, clk)
	agg := New(DefaultConfig(), set, clk, logger.NewNoOpLogger())

	ch, cancel := agg.Subscribe(0)
	cancel()

	_, ok := <-ch
	testutil.AssertFalse(t, ok, "expected channel to be closed after unsubscribe")
}
