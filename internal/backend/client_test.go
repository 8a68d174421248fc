package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/meltforce/repflow/internal/models"
)

// newTestServer routes requests to handler functions keyed by path.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

const sessionBody = `{
	"id": "11111111-1111-1111-1111-111111111111",
	"name": "Push Day",
	"exercises": [
		{"exerciseId": "bench", "name": "Bench Press", "order": 0,
		 "sets": [{"setNumber": 1, "reps": 8, "weight": 80, "restSeconds": 90, "completed": false}]}
	]
}`

// TestGetSessionBareBody verifies decoding a session returned without an
// envelope.
func TestGetSessionBareBody(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String(): func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-API-Key"); got != "k1" {
				t.Errorf("X-API-Key = %q, want k1", got)
			}
			w.Write([]byte(sessionBody))
		},
	})
	defer ts.Close()

	s, err := New(ts.URL, "k1").GetSession(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Push Day" {
		t.Errorf("name = %q", s.Name)
	}
	if len(s.Exercises) != 1 || len(s.Exercises[0].Sets) != 1 {
		t.Fatalf("exercises = %+v", s.Exercises)
	}
	set := s.Exercises[0].Sets[0]
	if set.Reps == nil || *set.Reps != 8 || set.RestSeconds == nil || *set.RestSeconds != 90 {
		t.Errorf("set = %+v", set)
	}
}

// TestGetSessionEnvelope verifies one level of {"data": ...} unwrapping.
func TestGetSessionEnvelope(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String(): func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": ` + sessionBody + `}`))
		},
	})
	defer ts.Close()

	s, err := New(ts.URL, "").GetSession(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Push Day" {
		t.Errorf("name = %q, envelope not unwrapped", s.Name)
	}
}

func TestGetSessionErrorStatus(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String(): func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		},
	})
	defer ts.Close()

	if _, err := New(ts.URL, "").GetSession(context.Background(), id); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestFetchExerciseReturnsRawDocument(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises/bench": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": {"exercise_name": "Bench Press", "muscle_groups": "[\"chest\"]"}}`))
		},
	})
	defer ts.Close()

	raw, err := New(ts.URL, "").FetchExercise(context.Background(), "bench")
	if err != nil {
		t.Fatal(err)
	}

	// Raw document is unwrapped but otherwise untouched.
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["exercise_name"] != "Bench Press" {
		t.Errorf("doc = %v", doc)
	}
}

func TestSubmitSession(t *testing.T) {
	id := uuid.New()
	var received models.CompletedSessionPayload
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String() + "/complete": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Fatal(err)
			}
			w.WriteHeader(http.StatusCreated)
		},
	})
	defer ts.Close()

	payload := &models.CompletedSessionPayload{Name: "Push Day", Completed: true, DurationMinutes: 42}
	if err := New(ts.URL, "").SubmitSession(context.Background(), id, payload); err != nil {
		t.Fatal(err)
	}
	if received.Name != "Push Day" || received.DurationMinutes != 42 {
		t.Errorf("received = %+v", received)
	}
}

func TestSubmitSessionErrorCarriesBody(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String() + "/complete": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"validation failed"}`, http.StatusUnprocessableEntity)
		},
	})
	defer ts.Close()

	err := New(ts.URL, "").SubmitSession(context.Background(), id, &models.CompletedSessionPayload{})
	if err == nil {
		t.Fatal("expected error on 422")
	}
}
