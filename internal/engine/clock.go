package engine

import "time"

// ElapsedClock accumulates active (non-paused) session time. It is wall-clock
// based: elapsed time is recomputed from time.Since on every read instead of
// being incremented by a fixed tick step, so interval jitter never drifts the
// total. Not safe for concurrent use; the owning engine serializes access.
type ElapsedClock struct {
	accumulated time.Duration
	runSince    *time.Time // nil while paused or not started
}

// Start begins (or resumes) accumulation from now. No-op if already running.
func (c *ElapsedClock) Start(now time.Time) {
	if c.runSince != nil {
		return
	}
	t := now
	c.runSince = &t
}

// Fold stops accumulation, adding the running delta to the accumulated total.
// No-op if not running.
func (c *ElapsedClock) Fold(now time.Time) {
	if c.runSince == nil {
		return
	}
	c.accumulated += now.Sub(*c.runSince)
	c.runSince = nil
}

// Running reports whether the clock is currently accumulating.
func (c *ElapsedClock) Running() bool {
	return c.runSince != nil
}

// Elapsed returns the total active time as of now. Paused time is excluded
// because Fold clears runSince before any pause interval begins.
func (c *ElapsedClock) Elapsed(now time.Time) time.Duration {
	total := c.accumulated
	if c.runSince != nil {
		total += now.Sub(*c.runSince)
	}
	return total
}

// RestCountdown is the ephemeral between-set rest timer. It runs independently
// of the session phase: pausing the session does not stop it. Starting a new
// countdown replaces any running one.
type RestCountdown struct {
	remaining int
	active    bool
}

// Start begins a countdown at the given duration, replacing any running one.
// A non-positive duration leaves the countdown inactive.
func (r *RestCountdown) Start(seconds int) {
	if seconds <= 0 {
		r.remaining = 0
		r.active = false
		return
	}
	r.remaining = seconds
	r.active = true
}

// Tick decrements the countdown by one second. Reaching zero deactivates it.
// Returns true when this tick finished the countdown.
func (r *RestCountdown) Tick() bool {
	if !r.active {
		return false
	}
	r.remaining--
	if r.remaining <= 0 {
		r.remaining = 0
		r.active = false
		return true
	}
	return false
}

// Skip stops the countdown immediately regardless of remaining time.
func (r *RestCountdown) Skip() {
	r.remaining = 0
	r.active = false
}

// Active reports whether a countdown is running.
func (r *RestCountdown) Active() bool {
	return r.active
}

// Remaining returns the seconds left on the countdown.
func (r *RestCountdown) Remaining() int {
	return r.remaining
}
