// Package debounce holds a cancellable settle timer.
package debounce

import (
	"sync"
	"time"
)

// SearchSettle is the settle window applied to free-text search input.
const SearchSettle = 300 * time.Millisecond

// Timer runs fn once the timer has not been reset for the configured delay.
// Every Reset cancels the pending run and starts a new window.
type Timer struct {
	mu      sync.Mutex
	clock   Clock
	delay   time.Duration
	fn      func()
	pending Stopper
	gen     uint64
}

type Option func(*Timer)

func WithClock(c Clock) Option {
	return func(t *Timer) {
		t.clock = c
	}
}

func NewTimer(delay time.Duration, fn func(), opts ...Option) *Timer {
	t := &Timer{
		clock: RealClock,
		delay: delay,
		fn:    fn,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start is an alias of Reset for readability at call sites that arm a fresh
// timer.
func (t *Timer) Start() {
	t.Reset()
}

func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending != nil {
		t.pending.Stop()
	}

	t.gen++
	gen := t.gen
	t.pending = t.clock.AfterFunc(t.delay, func() { t.fire(gen) })
}

// Cancel drops the pending run, if any, and reports whether one was pending.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		return false
	}

	t.pending.Stop()
	t.pending = nil
	t.gen++
	return true
}

func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	// a Reset or Cancel raced with an already expiring timer
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.mu.Unlock()

	t.fn()
}
