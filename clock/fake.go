package clock

import (
	"sync"
	"time"
)

// Fake is a manually-advanced Clock for deterministic tests: time only
// moves when Advance is called, firing any timers/tickers whose deadline
// has passed.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

// NewFake returns a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Since(t time.Time) time.Duration {
	return f.Now().Sub(t)
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	return f.NewTimer(d).Chan()
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{
		c:        make(chan time.Time, 1),
		interval: d,
		deadline: f.now.Add(d),
		active:   true,
	}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *Fake) NewTimer(d time.Duration) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{
		c:        make(chan time.Time, 1),
		deadline: f.now.Add(d),
		active:   true,
	}
	if t.maybeFire(f.now) {
		return t
	}
	f.timers = append(f.timers, t)
	return t
}

func (f *Fake) Sleep(d time.Duration) {
	f.Advance(d)
}

// Advance moves the fake clock forward by d, firing any timer or ticker
// whose deadline has passed.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)

	live := f.timers[:0]
	for _, t := range f.timers {
		if t.maybeFire(f.now) {
			continue // one-shot timer consumed
		}
		live = append(live, t)
	}
	f.timers = live

	for _, t := range f.tickers {
		t.maybeFire(f.now)
	}
}

type fakeTimer struct {
	mu       sync.Mutex
	c        chan time.Time
	deadline time.Time
	active   bool
}

func (t *fakeTimer) Chan() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.active
	t.active = true
	select {
	case <-t.c:
	default:
	}
	t.deadline = t.deadline.Add(d)
	return was
}

// maybeFire fires (and deactivates) the timer once now has reached its
// deadline, reporting whether it fired.
func (t *fakeTimer) maybeFire(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || now.Before(t.deadline) {
		return false
	}
	t.active = false
	select {
	case t.c <- t.deadline:
	default:
	}
	return true
}

type fakeTicker struct {
	mu       sync.Mutex
	c        chan time.Time
	interval time.Duration
	deadline time.Time
	active   bool
}

func (t *fakeTicker) Chan() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
}

func (t *fakeTicker) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = d
	t.active = true
}

func (t *fakeTicker) maybeFire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || t.interval <= 0 {
		return
	}
	for !now.Before(t.deadline) {
		select {
		case t.c <- t.deadline:
		default:
		}
		t.deadline = t.deadline.Add(t.interval)
	}
}
