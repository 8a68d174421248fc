package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one workout instance being executed by the engine. It is created
// elsewhere (plan conversion or an empty quick session) and handed to the
// engine, which is its only mutator until CompletedAt is set.
type Session struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	PlanID          *string           `json:"planId,omitempty"`
	Exercises       []SessionExercise `json:"exercises"`
	StartedAt       *time.Time        `json:"startedAt,omitempty"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
	DurationMinutes *int              `json:"durationMinutes,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Rating          *int              `json:"rating,omitempty"` // 1–5
}

// SessionExercise is one exercise slot within a session. Order is assigned at
// creation and preserved through the completion transform. Details is a
// read-only annotation attached by enrichment; nil until (and unless) the
// fetch completes.
type SessionExercise struct {
	ExerciseID string           `json:"exerciseId"`
	Name       string           `json:"name"`
	Sets       []ExerciseSet    `json:"sets"`
	Notes      string           `json:"notes,omitempty"`
	Order      int              `json:"order"`
	Details    *ExerciseDetails `json:"details,omitempty"`
}

// ExerciseSet is a single planned set. Completed starts false and only ever
// transitions to true; the engine never resets it.
type ExerciseSet struct {
	SetNumber       int      `json:"setNumber"` // 1-based, fixed at creation
	Reps            *int     `json:"reps,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	DurationSeconds *int     `json:"durationSeconds,omitempty"`
	RestSeconds     *int     `json:"restSeconds,omitempty"`
	Completed       bool     `json:"completed"`
	Notes           string   `json:"notes,omitempty"`
}

// ExerciseDetails is descriptive metadata fetched per exercise. It is never
// required for state-machine correctness; a missing or fallback value must
// degrade gracefully.
type ExerciseDetails struct {
	Name         string   `json:"name"`
	Category     string   `json:"category,omitempty"`
	MuscleGroups []string `json:"muscleGroups"`
	Equipment    []string `json:"equipment"`
	Instructions []string `json:"instructions"`
	Tips         []string `json:"tips"`
	MediaURLs    []string `json:"mediaUrls"`

	// Fallback is true when the fetch failed and this value carries only the
	// name known from the session data.
	Fallback bool `json:"fallback,omitempty"`
}

// NewQuickSession creates an empty ad-hoc session with no originating plan.
func NewQuickSession(name string) *Session {
	if name == "" {
		name = "Quick Workout"
	}
	return &Session{
		ID:        uuid.New(),
		Name:      name,
		Exercises: []SessionExercise{},
	}
}

// Clone returns a deep copy of the session. Consumers (UI handlers, SSE
// subscribers, MCP tools) only ever see clones; the engine keeps the single
// mutable value.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.PlanID = clonePtr(s.PlanID)
	out.StartedAt = clonePtr(s.StartedAt)
	out.CompletedAt = clonePtr(s.CompletedAt)
	out.DurationMinutes = clonePtr(s.DurationMinutes)
	out.Rating = clonePtr(s.Rating)
	out.Exercises = make([]SessionExercise, len(s.Exercises))
	for i, ex := range s.Exercises {
		out.Exercises[i] = ex.clone()
	}
	return &out
}

func (e SessionExercise) clone() SessionExercise {
	out := e
	out.Sets = make([]ExerciseSet, len(e.Sets))
	for i, set := range e.Sets {
		out.Sets[i] = set.clone()
	}
	if e.Details != nil {
		d := e.Details.clone()
		out.Details = &d
	}
	return out
}

func (s ExerciseSet) clone() ExerciseSet {
	out := s
	out.Reps = clonePtr(s.Reps)
	out.Weight = clonePtr(s.Weight)
	out.DurationSeconds = clonePtr(s.DurationSeconds)
	out.RestSeconds = clonePtr(s.RestSeconds)
	return out
}

func (d ExerciseDetails) clone() ExerciseDetails {
	out := d
	out.MuscleGroups = append([]string(nil), d.MuscleGroups...)
	out.Equipment = append([]string(nil), d.Equipment...)
	out.Instructions = append([]string(nil), d.Instructions...)
	out.Tips = append([]string(nil), d.Tips...)
	out.MediaURLs = append([]string(nil), d.MediaURLs...)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// FallbackDetails builds the minimal annotation used when an enrichment fetch
// fails: the name known from session data and empty collections.
func FallbackDetails(name string) *ExerciseDetails {
	return &ExerciseDetails{
		Name:         name,
		MuscleGroups: []string{},
		Equipment:    []string{},
		Instructions: []string{},
		Tips:         []string{},
		MediaURLs:    []string{},
		Fallback:     true,
	}
}
