package testutil

import (
	"sync"
	"time"
)

// Clock provides a thread-safe controllable wall clock for tests.
//
// Production code takes a `now func() time.Time`; tests pass Clock.Now and
// advance time explicitly, so cooldown windows and timestamps are exact
// instead of sleep-based.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at the given instant.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current instant without advancing.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to an absolute instant. Used when a test needs to
// jump rather than step.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
