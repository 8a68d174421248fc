package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/meltforce/repflow/internal/models"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeFetcher serves canned documents per exercise id and records fetch counts.
type fakeFetcher struct {
	mu      sync.Mutex
	docs    map[string]string
	fail    map[string]bool
	fetches map[string]int
}

func (f *fakeFetcher) FetchExercise(_ context.Context, id string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetches == nil {
		f.fetches = make(map[string]int)
	}
	f.fetches[id]++
	if f.fail[id] {
		return nil, errors.New("catalog unavailable")
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("unknown exercise %s", id)
	}
	return json.RawMessage(doc), nil
}

// memStore is an in-memory Store for cache behavior tests.
type memStore struct {
	mu   sync.Mutex
	data map[string]*models.ExerciseDetails
}

func (m *memStore) Get(_ context.Context, id string) (*models.ExerciseDetails, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[id]
	return d, ok, nil
}

func (m *memStore) Put(_ context.Context, id string, d *models.ExerciseDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]*models.ExerciseDetails)
	}
	m.data[id] = d
	return nil
}

func sessionWith(ids ...string) *models.Session {
	s := &models.Session{ID: uuid.New(), Name: "Leg Day"}
	for i, id := range ids {
		s.Exercises = append(s.Exercises, models.SessionExercise{
			ExerciseID: id,
			Name:       "Exercise " + id,
			Order:      i,
			Sets:       []models.ExerciseSet{{SetNumber: 1}},
		})
	}
	return s
}

// TestEnrichPerItemIsolation: one of two fetches fails; the failed exercise
// gets a fallback carrying its session name, the other gets real details.
func TestEnrichPerItemIsolation(t *testing.T) {
	f := &fakeFetcher{
		docs: map[string]string{"squat": `{"name":"Back Squat","category":"legs"}`},
		fail: map[string]bool{"curl": true},
	}
	e := New(f, nil, testLog)

	got := e.EnrichSession(context.Background(), sessionWith("squat", "curl"))

	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got["squat"].Name != "Back Squat" || got["squat"].Fallback {
		t.Errorf("squat details = %+v, want real details", got["squat"])
	}
	fb := got["curl"]
	if !fb.Fallback {
		t.Fatal("curl should carry fallback details")
	}
	if fb.Name != "Exercise curl" {
		t.Errorf("fallback name = %q, want name from session data", fb.Name)
	}
	if fb.MuscleGroups == nil || len(fb.MuscleGroups) != 0 {
		t.Errorf("fallback muscle groups = %v, want empty non-nil", fb.MuscleGroups)
	}
}

// TestEnrichDistinctIDsFetchedOnce verifies the fan-out is over distinct ids:
// a session referencing the same exercise twice issues one fetch.
func TestEnrichDistinctIDsFetchedOnce(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"press": `{"name":"Overhead Press"}`,
		"row":   `{"name":"Barbell Row"}`,
	}}
	e := New(f, nil, testLog)

	s := sessionWith("press", "row", "press")
	got := e.EnrichSession(context.Background(), s)

	if len(got) != 2 {
		t.Fatalf("got %d results, want 2 distinct", len(got))
	}
	if f.fetches["press"] != 1 {
		t.Errorf("press fetched %d times, want 1", f.fetches["press"])
	}
}

func TestEnrichUsesCache(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{"squat": `{"name":"Back Squat"}`}}
	store := &memStore{}
	e := New(f, store, testLog)

	e.EnrichSession(context.Background(), sessionWith("squat"))
	e.EnrichSession(context.Background(), sessionWith("squat"))

	if f.fetches["squat"] != 1 {
		t.Errorf("squat fetched %d times with warm cache, want 1", f.fetches["squat"])
	}
}

// TestEnrichDoesNotCacheFallbacks: a failed fetch must be retried on the next
// load, so fallbacks never enter the cache.
func TestEnrichDoesNotCacheFallbacks(t *testing.T) {
	f := &fakeFetcher{
		docs: map[string]string{"curl": `{"name":"Bicep Curl"}`},
		fail: map[string]bool{"curl": true},
	}
	store := &memStore{}
	e := New(f, store, testLog)

	got := e.EnrichSession(context.Background(), sessionWith("curl"))
	if !got["curl"].Fallback {
		t.Fatal("expected fallback on first load")
	}

	f.mu.Lock()
	f.fail["curl"] = false
	f.mu.Unlock()

	got = e.EnrichSession(context.Background(), sessionWith("curl"))
	if got["curl"].Fallback {
		t.Error("fallback was cached; second load should have fetched real details")
	}
}

func TestEnrichEmptySession(t *testing.T) {
	e := New(&fakeFetcher{}, nil, testLog)
	got := e.EnrichSession(context.Background(), &models.Session{ID: uuid.New()})
	if len(got) != 0 {
		t.Errorf("got %d results for empty session, want 0", len(got))
	}
}
