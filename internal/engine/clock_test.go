package engine

import (
	"testing"
	"time"
)

// TestElapsedClockExcludesPausedTime verifies that time between Fold and the
// next Start never enters the total.
func TestElapsedClockExcludesPausedTime(t *testing.T) {
	var c ElapsedClock
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c.Start(t0)
	c.Fold(t0.Add(10 * time.Second))

	// 50 seconds paused
	c.Start(t0.Add(60 * time.Second))

	got := c.Elapsed(t0.Add(65 * time.Second))
	if got != 15*time.Second {
		t.Errorf("elapsed = %v, want 15s", got)
	}
}

// TestElapsedClockRecomputesFromWallClock verifies elapsed is derived from the
// read time, not from tick counting.
func TestElapsedClockRecomputesFromWallClock(t *testing.T) {
	var c ElapsedClock
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.Start(t0)

	if got := c.Elapsed(t0.Add(3 * time.Second)); got != 3*time.Second {
		t.Errorf("elapsed = %v, want 3s", got)
	}
	// A much later read with no intermediate ticks still reports full time.
	if got := c.Elapsed(t0.Add(2 * time.Hour)); got != 2*time.Hour {
		t.Errorf("elapsed = %v, want 2h", got)
	}
}

func TestElapsedClockStartWhileRunningIsNoop(t *testing.T) {
	var c ElapsedClock
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.Start(t0)
	c.Start(t0.Add(30 * time.Second)) // must not reset the running anchor

	if got := c.Elapsed(t0.Add(60 * time.Second)); got != 60*time.Second {
		t.Errorf("elapsed = %v, want 60s", got)
	}
}

func TestElapsedClockFoldWhileStoppedIsNoop(t *testing.T) {
	var c ElapsedClock
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.Fold(t0)
	if got := c.Elapsed(t0); got != 0 {
		t.Errorf("elapsed = %v, want 0", got)
	}
	if c.Running() {
		t.Error("clock should not be running")
	}
}

func TestRestCountdownTicksToZero(t *testing.T) {
	var r RestCountdown
	r.Start(3)

	for i := 0; i < 2; i++ {
		if finished := r.Tick(); finished {
			t.Fatalf("finished early at tick %d", i+1)
		}
	}
	if !r.Tick() {
		t.Error("third tick should finish the countdown")
	}
	if r.Active() || r.Remaining() != 0 {
		t.Errorf("after finish: active=%v remaining=%d, want false/0", r.Active(), r.Remaining())
	}
	if r.Tick() {
		t.Error("tick on inactive countdown must not report finished")
	}
}

// TestRestCountdownSkip checks the skip property for a range of remaining
// values: skip always yields remaining == 0 and active == false.
func TestRestCountdownSkip(t *testing.T) {
	for _, start := range []int{0, 1, 5, 30, 300} {
		var r RestCountdown
		r.Start(start)
		r.Skip()
		if r.Active() {
			t.Errorf("start=%d: still active after skip", start)
		}
		if r.Remaining() != 0 {
			t.Errorf("start=%d: remaining = %d after skip, want 0", start, r.Remaining())
		}
	}
}

// TestRestCountdownRestartReplaces verifies no stacking: a new Start replaces
// a running countdown.
func TestRestCountdownRestartReplaces(t *testing.T) {
	var r RestCountdown
	r.Start(60)
	r.Tick()
	r.Start(10)
	if r.Remaining() != 10 {
		t.Errorf("remaining = %d, want 10", r.Remaining())
	}
}

func TestRestCountdownNonPositiveStart(t *testing.T) {
	var r RestCountdown
	r.Start(0)
	if r.Active() {
		t.Error("zero-duration countdown must not activate")
	}
	r.Start(-5)
	if r.Active() {
		t.Error("negative-duration countdown must not activate")
	}
}
