package lease

import (
	"context"
	"testing"
	"time"

	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/testutil"
	"github.com/arcwell/robogate/types"
)

func newTestCoordinator(t *testing.T, opts ...Option) (*Coordinator, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New(fake, logger.NewNoOpLogger(), opts...)
	c.Start(context.Background())
	t.Cleanup(c.Stop)
	return c, fake
}

func TestCoordinator_AcquireGrantsWhenFree(t *testing.T) {
	c, _ := newTestCoordinator(t)
	res, err := c.Acquire("a")
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, res.Granted, "expected immediate grant")
	testutil.AssertTrue(t, res.LeaseID != "", "expected a non-empty lease id")
}

func TestCoordinator_AcquireQueuesSecondHolder(t *testing.T) {
	c, _ := newTestCoordinator(t)
	_, err := c.Acquire("a")
	testutil.AssertNoError(t, err)

	res, err := c.Acquire("b")
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, res.Granted, "expected second holder to queue")
	testutil.AssertEqual(t, 1, res.Position, "expected position 1")
}

func TestCoordinator_ReacquireBySameHolderIsIdempotent(t *testing.T) {
	c, _ := newTestCoordinator(t)
	first, err := c.Acquire("a")
	testutil.AssertNoError(t, err)

	second, err := c.Acquire("a")
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, second.Granted, "expected re-acquire to grant")
	testutil.AssertEqual(t, first.LeaseID, second.LeaseID, "expected same lease id")
}

func TestCoordinator_ReleaseRejectsWrongToken(t *testing.T) {
	c, _ := newTestCoordinator(t)
	_, err := c.Acquire("a")
	testutil.AssertNoError(t, err)

	err = c.Release(types.LeaseID("bogus"))
	testutil.AssertErrorIs(t, err, types.ErrNotHolder)
}

func TestCoordinator_ReleasePromotesQueueHead(t *testing.T) {
	c, _ := newTestCoordinator(t)
	granted, err := c.Acquire("a")
	testutil.AssertNoError(t, err)
	_, err = c.Acquire("b")
	testutil.AssertNoError(t, err)

	err = c.Release(granted.LeaseID)
	testutil.AssertNoError(t, err)

	status := c.Status()
	testutil.AssertEqual(t, types.HolderName("b"), status.Holder, "expected b promoted")
	testutil.AssertEqual(t, 0, status.QueueLength, "expected empty queue after promotion")
}

func TestCoordinator_ExtendResetsIdleTimer(t *testing.T) {
	c, fake := newTestCoordinator(t, WithDefaultIdleTimeout(10*time.Second))
	granted, err := c.Acquire("a")
	testutil.AssertNoError(t, err)

	fake.Advance(5 * time.Second)
	testutil.AssertNoError(t, c.Extend(granted.LeaseID))

	fake.Advance(5 * time.Second)
	testutil.AssertTrue(t, c.Authorize(granted.LeaseID), "expected lease to still be held after extend")
}

func TestCoordinator_ExtendRejectsWrongToken(t *testing.T) {
	c, _ := newTestCoordinator(t)
	_, err := c.Acquire("a")
	testutil.AssertNoError(t, err)

	err = c.Extend(types.LeaseID("bogus"))
	testutil.AssertErrorIs(t, err, types.ErrNotHolder)
}

func TestCoordinator_AuthorizeOnlyMatchesCurrentToken(t *testing.T) {
	c, _ := newTestCoordinator(t)
	granted, err := c.Acquire("a")
	testutil.AssertNoError(t, err)

	testutil.AssertTrue(t, c.Authorize(granted.LeaseID), "expected current token to authorize")
	testutil.AssertFalse(t, c.Authorize(types.LeaseID("bogus")), "expected wrong token to fail")
}

func TestCoordinator_StatusNeverExposesToken(t *testing.T) {
	c, _ := newTestCoordinator(t)
	granted, err := c.Acquire("a")
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, granted.LeaseID != "", "sanity: lease id minted")

	status := c.Status()
	testutil.AssertEqual(t, types.HolderName("a"), status.Holder, "expected holder name")
}

func TestCoordinator_IdleRevocationReclaimsLease(t *testing.T) {
	c, fake := newTestCoordinator(t, WithDefaultIdleTimeout(2*time.Second), WithDefaultTTL(time.Hour))
	granted, err := c.Acquire("a")
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, c.Authorize(granted.LeaseID), "expected lease initially held")

	fake.Advance(3 * time.Second)
	deadline := time.Now().Add(2 * time.Second)
	for c.Authorize(granted.LeaseID) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	testutil.AssertFalse(t, c.Authorize(granted.LeaseID), "expected idle lease to be revoked")
}

func TestCoordinator_TTLExpiryReclaimsLeaseEvenIfActive(t *testing.T) {
	c, fake := newTestCoordinator(t, WithDefaultTTL(2*time.Second), WithDefaultIdleTimeout(time.Hour))
	granted, err := c.Acquire("a")
	testutil.AssertNoError(t, err)

	fake.Advance(1 * time.Second)
	testutil.AssertNoError(t, c.Extend(granted.LeaseID))
	fake.Advance(2 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for c.Authorize(granted.LeaseID) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	testutil.AssertFalse(t, c.Authorize(granted.LeaseID), "expected TTL-expired lease to be revoked despite activity")
}

func TestCoordinator_QueueFullRejectsAcquire(t *testing.T) {
	c, _ := newTestCoordinator(t, WithMaxQueueLength(1))
	_, err := c.Acquire("a")
	testutil.AssertNoError(t, err)
	_, err = c.Acquire("b")
	testutil.AssertNoError(t, err)

	_, err = c.Acquire("c")
	testutil.AssertErrorIs(t, err, ErrQueueFull)
}
