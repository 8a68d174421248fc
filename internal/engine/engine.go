package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repflow/internal/models"
)

// Phase is the session lifecycle state: NotStarted → Active ⇄ Paused →
// Completed (terminal). Completed is reachable only from Active or Paused.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseActive     Phase = "active"
	PhasePaused     Phase = "paused"
	PhaseCompleted  Phase = "completed"
)

// Direction moves the cursor backward or forward through sets.
type Direction int

const (
	DirPrev Direction = iota
	DirNext
)

// ParseDirection maps the wire values "prev"/"next".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "prev":
		return DirPrev, nil
	case "next":
		return DirNext, nil
	}
	return 0, fmt.Errorf("invalid direction %q (want prev or next)", s)
}

// SetField names an editable planned value on the current set.
type SetField string

const (
	FieldReps   SetField = "reps"
	FieldWeight SetField = "weight"
)

// Cursor identifies the currently active set as (exercise index, set index).
// Both indices are always in bounds while the session has exercises.
type Cursor struct {
	Exercise int `json:"exercise"`
	Set      int `json:"set"`
}

// Snapshot is a read-only copy of engine state handed to consumers (HTTP
// handlers, SSE subscribers, MCP tools). The engine keeps the only mutable
// session value; snapshots are deep copies.
type Snapshot struct {
	Session        *models.Session `json:"session"`
	Phase          Phase           `json:"phase"`
	Cursor         Cursor          `json:"cursor"`
	ElapsedSeconds int             `json:"elapsedSeconds"`
	RestActive     bool            `json:"restActive"`
	RestRemaining  int             `json:"restRemainingSeconds"`
	RestStarts     int             `json:"restStarts"`
}

// Submitter sends a completed session to the persistence API.
type Submitter interface {
	SubmitSession(ctx context.Context, id uuid.UUID, payload *models.CompletedSessionPayload) error
}

var (
	// ErrSessionIncomplete is returned by CompleteSession while any set is
	// still uncompleted. Completion fails closed at the engine level.
	ErrSessionIncomplete = errors.New("session has uncompleted sets")

	// ErrSessionNotRunning is returned by CompleteSession from NotStarted
	// or Completed.
	ErrSessionNotRunning = errors.New("session is not running")

	// ErrCompletionInProgress is returned by CompleteSession while another
	// call is already mid-submission.
	ErrCompletionInProgress = errors.New("session completion already in progress")
)

// Engine owns an in-progress workout session: phase, cursor, elapsed clock
// and rest countdown. All mutations are synchronous state updates serialized
// by a single mutex; one background ticker goroutine drives the 1 Hz rest
// decrement and snapshot broadcasts, and is guaranteed to stop on Close.
type Engine struct {
	mu         sync.Mutex
	session    *models.Session
	phase      Phase
	cursor     Cursor
	clock      ElapsedClock
	rest       RestCountdown
	restStarts int

	now       func() time.Time
	log       *slog.Logger
	submitter Submitter

	ctx           context.Context
	cancel        context.CancelFunc
	tickerRunning bool
	completing    bool

	subsMu sync.Mutex
	subs   map[chan Snapshot]struct{}
}

// New creates an engine owning the given session. The submitter may be nil,
// in which case CompleteSession finishes locally without a remote submission.
func New(session *models.Session, submitter Submitter, log *slog.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	phase := PhaseNotStarted
	if session.CompletedAt != nil {
		phase = PhaseCompleted
	}
	return &Engine{
		session:   session,
		phase:     phase,
		now:       time.Now,
		log:       log,
		submitter: submitter,
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[chan Snapshot]struct{}),
	}
}

// Close tears the engine down, stopping the ticker goroutine. The session is
// left as-is; Close does not complete or submit anything.
func (e *Engine) Close() {
	e.cancel()
}

// Start begins the session. Valid only from NotStarted; otherwise a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.phase != PhaseNotStarted {
		e.mu.Unlock()
		return
	}
	now := e.now()
	e.phase = PhaseActive
	e.clock.Start(now)
	if e.session.StartedAt == nil {
		t := now
		e.session.StartedAt = &t
	}
	e.ensureTickerLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.broadcast(snap)
}

// Pause folds the running clock delta and suspends the session. Valid only
// from Active. The rest countdown, if running, is unaffected.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.phase != PhaseActive {
		e.mu.Unlock()
		return
	}
	e.clock.Fold(e.now())
	e.phase = PhasePaused
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.broadcast(snap)
}

// Resume restarts the clock from now. Valid only from Paused.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.phase != PhasePaused {
		e.mu.Unlock()
		return
	}
	e.clock.Start(e.now())
	e.phase = PhaseActive
	e.ensureTickerLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.broadcast(snap)
}

// Navigate moves the cursor one set backward or forward, crossing exercise
// boundaries into the previous exercise's last set or the next exercise's
// first set. Clamped at both ends: moving past an edge is a no-op.
func (e *Engine) Navigate(dir Direction) {
	e.mu.Lock()
	if e.phase == PhaseCompleted || len(e.session.Exercises) == 0 {
		e.mu.Unlock()
		return
	}
	switch dir {
	case DirPrev:
		if e.cursor.Set > 0 {
			e.cursor.Set--
		} else if e.cursor.Exercise > 0 {
			e.cursor.Exercise--
			e.cursor.Set = len(e.session.Exercises[e.cursor.Exercise].Sets) - 1
		}
	case DirNext:
		e.advanceLocked()
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.broadcast(snap)
}

// advanceLocked moves the cursor forward one set if not already at the last
// set of the last exercise.
func (e *Engine) advanceLocked() {
	ex := e.session.Exercises
	if e.cursor.Set < len(ex[e.cursor.Exercise].Sets)-1 {
		e.cursor.Set++
	} else if e.cursor.Exercise < len(ex)-1 {
		e.cursor.Exercise++
		e.cursor.Set = 0
	}
}

// CompleteCurrentSet marks the set at the cursor completed. Idempotent: a set
// that is already completed is left untouched and no second rest countdown
// starts. On a fresh completion with restSeconds > 0 the rest countdown starts
// (replacing any running one), then the cursor advances unless already on the
// last set of the last exercise.
func (e *Engine) CompleteCurrentSet() {
	e.mu.Lock()
	if e.phase == PhaseCompleted || len(e.session.Exercises) == 0 {
		e.mu.Unlock()
		return
	}
	set := &e.session.Exercises[e.cursor.Exercise].Sets[e.cursor.Set]
	if set.Completed {
		e.mu.Unlock()
		return
	}
	set.Completed = true
	if set.RestSeconds != nil && *set.RestSeconds > 0 {
		e.rest.Start(*set.RestSeconds)
		e.restStarts++
		e.ensureTickerLocked()
	}
	e.advanceLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.broadcast(snap)
}

// UpdateSetValue edits the planned reps or weight of the set at the cursor.
// Permitted in any phase except Completed. Returns false when rejected.
func (e *Engine) UpdateSetValue(field SetField, value float64) bool {
	e.mu.Lock()
	if e.phase == PhaseCompleted || len(e.session.Exercises) == 0 {
		e.mu.Unlock()
		return false
	}
	set := &e.session.Exercises[e.cursor.Exercise].Sets[e.cursor.Set]
	switch field {
	case FieldReps:
		reps := int(value)
		set.Reps = &reps
	case FieldWeight:
		w := value
		set.Weight = &w
	default:
		e.mu.Unlock()
		return false
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.broadcast(snap)
	return true
}

// SkipRest stops the rest countdown immediately.
func (e *Engine) SkipRest() {
	e.mu.Lock()
	e.rest.Skip()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.broadcast(snap)
}

// SetNotes replaces the session-level notes. Rejected after completion.
func (e *Engine) SetNotes(notes string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseCompleted {
		return false
	}
	e.session.Notes = notes
	return true
}

// SetRating records a 1–5 rating. Rejected after completion or out of range.
func (e *Engine) SetRating(rating int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseCompleted || rating < 1 || rating > 5 {
		return false
	}
	e.session.Rating = &rating
	return true
}

// AttachDetails attaches an enrichment annotation to every exercise sharing
// the given id. Details never affect set data or phase.
func (e *Engine) AttachDetails(exerciseID string, details *models.ExerciseDetails) {
	e.mu.Lock()
	for i := range e.session.Exercises {
		if e.session.Exercises[i].ExerciseID == exerciseID {
			e.session.Exercises[i].Details = details
		}
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.broadcast(snap)
}

// IsComplete reports whether every set in every exercise is completed.
func (e *Engine) IsComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isCompleteLocked()
}

func (e *Engine) isCompleteLocked() bool {
	for _, ex := range e.session.Exercises {
		for _, set := range ex.Sets {
			if !set.Completed {
				return false
			}
		}
	}
	return true
}

// CompleteSession freezes the clock, stamps completedAt and durationMinutes,
// submits the payload, and transitions to Completed. It fails closed: every
// set must be completed first. On a submission error the in-memory session,
// phase, clock and cursor are left untouched so the caller can retry without
// losing data. The lock is released during the submission; the completing
// flag keeps a concurrent call from submitting the same session twice.
func (e *Engine) CompleteSession(ctx context.Context) error {
	e.mu.Lock()
	if e.completing {
		e.mu.Unlock()
		return ErrCompletionInProgress
	}
	if e.phase != PhaseActive && e.phase != PhasePaused {
		e.mu.Unlock()
		return ErrSessionNotRunning
	}
	if !e.isCompleteLocked() {
		e.mu.Unlock()
		return ErrSessionIncomplete
	}
	e.completing = true

	now := e.now()
	elapsed := e.clock.Elapsed(now)
	minutes := int(elapsed / time.Minute)

	// Build the payload from a candidate copy; nothing is committed until
	// the submission succeeds.
	candidate := e.session.Clone()
	completedAt := now
	candidate.CompletedAt = &completedAt
	candidate.DurationMinutes = &minutes
	payload := BuildCompletionPayload(candidate)
	id := e.session.ID
	e.mu.Unlock()

	if e.submitter != nil {
		if err := e.submitter.SubmitSession(ctx, id, payload); err != nil {
			e.mu.Lock()
			e.completing = false
			e.mu.Unlock()
			e.log.Warn("session submission failed, state preserved for retry",
				"session_id", id, "error", err)
			return fmt.Errorf("submitting session: %w", err)
		}
	}

	e.mu.Lock()
	e.completing = false
	e.clock.Fold(now)
	e.rest.Skip()
	e.session.CompletedAt = &completedAt
	e.session.DurationMinutes = &minutes
	e.phase = PhaseCompleted
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.broadcast(snap)

	e.log.Info("session completed", "session_id", id, "duration_min", minutes)
	return nil
}

// Snapshot returns a read-only deep copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Session:        e.session.Clone(),
		Phase:          e.phase,
		Cursor:         e.cursor,
		ElapsedSeconds: int(e.clock.Elapsed(e.now()) / time.Second),
		RestActive:     e.rest.Active(),
		RestRemaining:  e.rest.Remaining(),
		RestStarts:     e.restStarts,
	}
}

// ensureTickerLocked starts the 1 Hz ticker goroutine if something needs it
// (running clock or active rest countdown) and it isn't already running.
// Caller must hold e.mu.
func (e *Engine) ensureTickerLocked() {
	if e.tickerRunning {
		return
	}
	e.tickerRunning = true
	go e.runTicker()
}

func (e *Engine) runTicker() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			e.mu.Lock()
			e.tickerRunning = false
			e.mu.Unlock()
			return
		case <-ticker.C:
			if !e.tick() {
				return
			}
		}
	}
}

// tick advances the rest countdown one second and broadcasts a snapshot.
// Returns false when neither the clock nor the countdown needs further ticks,
// clearing tickerRunning under the same lock so a later trigger restarts it.
func (e *Engine) tick() bool {
	e.mu.Lock()
	e.rest.Tick()
	keep := e.phase == PhaseActive || e.rest.Active()
	if !keep {
		e.tickerRunning = false
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.broadcast(snap)
	return keep
}

// Subscribe registers a snapshot channel. Slow subscribers are skipped, never
// blocked on.
func (e *Engine) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 32)
	e.subsMu.Lock()
	e.subs[ch] = struct{}{}
	e.subsMu.Unlock()
	return ch
}

// Unsubscribe removes a channel registered with Subscribe.
func (e *Engine) Unsubscribe(ch chan Snapshot) {
	e.subsMu.Lock()
	delete(e.subs, ch)
	e.subsMu.Unlock()
}

func (e *Engine) broadcast(snap Snapshot) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- snap:
		default:
			// slow subscriber, skip
		}
	}
}
