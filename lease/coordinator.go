// Package lease implements the gateway's single-holder exclusion
// lock: at most one lease is held at a time, waiters queue FIFO, and
// an idle-or-expired lease is reclaimed by a background revoker so a
// crashed or disconnected client can never wedge the robot for other
// operators.
package lease

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/types"
)

// AcquireResult reports the outcome of an Acquire call: either the
// lease was granted immediately, or the caller was enqueued behind
// the current holder.
type AcquireResult struct {
	Granted  bool
	LeaseID  types.LeaseID
	TicketID types.TicketID
	Position int
}

type heldLease struct {
	id           types.LeaseID
	holder       types.HolderName
	grantedAt    time.Time
	lastActivity time.Time
	ttl          time.Duration
	idleTimeout  time.Duration
}

func (h *heldLease) deadline() time.Time {
	ttlDeadline := h.grantedAt.Add(h.ttl)
	idleDeadline := h.lastActivity.Add(h.idleTimeout)
	if idleDeadline.Before(ttlDeadline) {
		return idleDeadline
	}
	return ttlDeadline
}

type queueEntry struct {
	ticket     types.TicketID
	holder     types.HolderName
	enqueuedAt time.Time
}

// Coordinator is the exclusive-access lease coordinator. All exported
// methods are safe for concurrent use.
type Coordinator struct {
	mu    sync.Mutex
	clock clock.Clock
	log   logger.Logger
	cfg   Config

	held  *heldLease
	queue []*queueEntry

	ticketSeq atomic.Uint64

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Coordinator governed by cfg. Call Start to begin the
// background revoker before accepting traffic.
func New(clk clock.Clock, log logger.Logger, opts ...Option) *Coordinator {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Coordinator{
		clock: clk,
		log:   log.WithComponent("lease"),
		cfg:   cfg,
		wake:  make(chan struct{}, 1),
	}
}

// Start launches the background revoker, which wakes at the earliest
// of the held lease's TTL or idle deadline and reclaims it when that
// instant arrives unchanged.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.runRevoker()
}

// Stop cancels the background revoker and waits for it to exit.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
}

// Acquire grants the lease immediately if none is held, returns the
// same lease token if holder is already the current holder
// (idempotent recovery, and resets the idle timer), or enqueues the
// caller behind the current holder.
func (c *Coordinator) Acquire(holder types.HolderName) (AcquireResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()

	if c.held == nil {
		return c.grantLocked(holder, now), nil
	}
	if c.held.holder == holder {
		c.held.lastActivity = now
		c.wakeRevoker()
		return AcquireResult{Granted: true, LeaseID: c.held.id}, nil
	}
	if c.cfg.MaxQueueLength > 0 && len(c.queue) >= c.cfg.MaxQueueLength {
		return AcquireResult{}, ErrQueueFull
	}

	entry := &queueEntry{
		ticket:     c.nextTicket(),
		holder:     holder,
		enqueuedAt: now,
	}
	c.queue = append(c.queue, entry)
	return AcquireResult{TicketID: entry.ticket, Position: len(c.queue)}, nil
}

// Release revokes the held lease iff token matches the current
// holder's, then promotes the queue head (if any).
func (c *Coordinator) Release(token types.LeaseID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held == nil || !tokensEqual(c.held.id, token) {
		return types.ErrNotHolder
	}
	c.held = nil
	c.promoteLocked(c.clock.Now())
	c.wakeRevoker()
	return nil
}

// Extend validates token against the current holder and resets
// last_activity to now.
func (c *Coordinator) Extend(token types.LeaseID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held == nil || !tokensEqual(c.held.id, token) {
		return types.ErrNotHolder
	}
	c.held.lastActivity = c.clock.Now()
	c.wakeRevoker()
	return nil
}

// Authorize reports whether token is the current holder's token,
// using a constant-time comparison to avoid leaking the real token
// through response-time side channels. It never blocks on adapter
// I/O; it only touches in-memory state.
func (c *Coordinator) Authorize(token types.LeaseID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held != nil && tokensEqual(c.held.id, token)
}

// Status reports the current holder's name (never the token),
// remaining idle time, and the FIFO queue with 1-based positions.
func (c *Coordinator) Status() types.LeaseStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := types.LeaseStatus{QueueLength: len(c.queue)}
	if c.held != nil {
		status.Holder = c.held.holder
		remaining := c.held.idleTimeout - c.clock.Now().Sub(c.held.lastActivity)
		if remaining < 0 {
			remaining = 0
		}
		status.RemainingIdle = remaining.Seconds()
	}
	status.Queue = make([]types.QueuePosition, len(c.queue))
	for i, entry := range c.queue {
		status.Queue[i] = types.QueuePosition{Position: i + 1, Holder: entry.holder}
	}
	return status
}

func (c *Coordinator) nextTicket() types.TicketID {
	n := c.ticketSeq.Add(1)
	return types.TicketID(fmt.Sprintf("ticket-%d", n))
}

func (c *Coordinator) grantLocked(holder types.HolderName, now time.Time) AcquireResult {
	token := mintToken()
	c.held = &heldLease{
		id:           token,
		holder:       holder,
		grantedAt:    now,
		lastActivity: now,
		ttl:          c.cfg.DefaultTTL,
		idleTimeout:  c.cfg.DefaultIdleTimeout,
	}
	c.wakeRevoker()
	return AcquireResult{Granted: true, LeaseID: token}
}

// promoteLocked grants the lease to the queue head, if any. Callers
// must hold c.mu and must have already cleared c.held.
func (c *Coordinator) promoteLocked(now time.Time) {
	if len(c.queue) == 0 {
		return
	}
	next := c.queue[0]
	c.queue = c.queue[1:]
	c.grantLocked(next.holder, now)
}

func (c *Coordinator) wakeRevoker() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// nextDeadline returns the instant the background revoker should next
// fire, and whether there is a held lease to watch at all.
func (c *Coordinator) nextDeadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held == nil {
		return time.Time{}, false
	}
	return c.held.deadline(), true
}

func (c *Coordinator) runRevoker() {
	defer c.wg.Done()
	for !c.waitNext() {
	}
}

// waitNext blocks until either the context is cancelled (returning
// true), a state change wakes it early, or a held lease's deadline
// elapses (in which case it revokes and returns false to re-evaluate).
func (c *Coordinator) waitNext() bool {
	deadline, ok := c.nextDeadline()

	var timerChan <-chan time.Time
	if ok {
		d := deadline.Sub(c.clock.Now())
		if d < 0 {
			d = 0
		}
		timer := c.clock.NewTimer(d)
		defer timer.Stop()
		timerChan = timer.Chan()
	}

	select {
	case <-c.ctx.Done():
		return true
	case <-c.wake:
		return false
	case <-timerChan:
		c.revokeIfDue()
		return false
	}
}

// revokeIfDue reclaims the held lease if its deadline has actually
// elapsed (it may have been extended since the timer was armed).
func (c *Coordinator) revokeIfDue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held == nil {
		return
	}
	now := c.clock.Now()
	if now.Before(c.held.deadline()) {
		return
	}
	c.log.Infow("lease revoked", "holder", c.held.holder)
	c.held = nil
	c.promoteLocked(now)
}

// mintToken returns a fresh, unforgeable random lease token.
func mintToken() types.LeaseID {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("lease: failed to read random bytes: %v", err))
	}
	return types.LeaseID(hex.EncodeToString(buf))
}

func tokensEqual(a, b types.LeaseID) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
