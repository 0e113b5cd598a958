package trigger

import (
	"sync"
	"time"
)

// Cooldown rate-limits automatic regeneration per artifact. A noisy
// upstream source that flaps a token every few seconds would otherwise
// churn out a version per flap.
//
// Only AUTO regenerations consult the cooldown; manual regenerate and
// rollback calls bypass it.
//
// Thread-safety: all methods are safe for concurrent use.
type Cooldown struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// NewCooldown creates a cooldown with the given window. The now func is
// injectable so tests control time.
func NewCooldown(window time.Duration, now func() time.Time) *Cooldown {
	if now == nil {
		now = time.Now
	}
	return &Cooldown{
		window: window,
		now:    now,
		last:   make(map[string]time.Time),
	}
}

// Allow reports whether the artifact is outside its cooldown window.
// A zero window always allows.
func (c *Cooldown) Allow(artifactID string) bool {
	if c.window <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.last[artifactID]
	if !ok {
		return true
	}
	return c.now().Sub(last) >= c.window
}

// Record marks a completed regeneration, starting the artifact's window.
func (c *Cooldown) Record(artifactID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[artifactID] = c.now()
}
