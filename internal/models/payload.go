package models

import "time"

// CompletedSessionPayload is the wire shape the persistence API expects for a
// finished session. Optional fields are pointers without omitempty so absent
// values marshal as explicit nulls rather than disappearing from the payload.
type CompletedSessionPayload struct {
	Name            string            `json:"name"`
	PlanID          *string           `json:"planId"`
	StartedAt       *time.Time        `json:"startedAt"`
	CompletedAt     *time.Time        `json:"completedAt"`
	Completed       bool              `json:"completed"`
	DurationMinutes int               `json:"durationMinutes"`
	Notes           *string           `json:"notes"`
	Rating          *int              `json:"rating"`
	Exercises       []PayloadExercise `json:"exercises"`
}

// PayloadExercise mirrors SessionExercise on the wire. Order is the 0-based
// position in the session's exercise array, independent of the Order value
// assigned at creation.
type PayloadExercise struct {
	ExerciseID string       `json:"exerciseId"`
	Name       string       `json:"name"`
	Notes      *string      `json:"notes"`
	Order      int          `json:"order"`
	Sets       []PayloadSet `json:"sets"`
}

// PayloadSet mirrors ExerciseSet on the wire with explicit nulls.
type PayloadSet struct {
	SetNumber       int      `json:"setNumber"`
	Reps            *int     `json:"reps"`
	Weight          *float64 `json:"weight"`
	DurationSeconds *int     `json:"durationSeconds"`
	RestSeconds     *int     `json:"restSeconds"`
	Completed       bool     `json:"completed"`
	Notes           *string  `json:"notes"`
}
