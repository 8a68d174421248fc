package engine

import "github.com/meltforce/repflow/internal/models"

// BuildCompletionPayload maps a finished session into the persistence wire
// shape. Pure: the input is not modified. Exercise and set ordering follows
// the input arrays exactly; each exercise's payload order is its 0-based array
// position, independent of the Order value assigned at creation. Absent
// optional fields become explicit JSON nulls via nil pointers (no omitempty on
// the payload types), and nothing is dropped.
func BuildCompletionPayload(s *models.Session) *models.CompletedSessionPayload {
	p := &models.CompletedSessionPayload{
		Name:        s.Name,
		PlanID:      s.PlanID,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		Completed:   true,
		Notes:       optionalString(s.Notes),
		Rating:      s.Rating,
		Exercises:   make([]models.PayloadExercise, len(s.Exercises)),
	}
	if s.DurationMinutes != nil {
		p.DurationMinutes = *s.DurationMinutes
	}

	for i, ex := range s.Exercises {
		pe := models.PayloadExercise{
			ExerciseID: ex.ExerciseID,
			Name:       ex.Name,
			Notes:      optionalString(ex.Notes),
			Order:      i,
			Sets:       make([]models.PayloadSet, len(ex.Sets)),
		}
		for j, set := range ex.Sets {
			pe.Sets[j] = models.PayloadSet{
				SetNumber:       set.SetNumber,
				Reps:            set.Reps,
				Weight:          set.Weight,
				DurationSeconds: set.DurationSeconds,
				RestSeconds:     set.RestSeconds,
				Completed:       set.Completed,
				Notes:           optionalString(set.Notes),
			}
		}
		p.Exercises[i] = pe
	}
	return p
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
