package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meltforce/repflow/internal/engine"
	"github.com/meltforce/repflow/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sessionID parses the {id} route param, writing a 400 on failure.
func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ListSessions())
}

// handleLoadSession fetches a session from the backend and brings up an
// engine for it. Loading an already-live session returns its current
// snapshot instead of replacing the engine.
func (s *Server) handleLoadSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	if e, live := s.engineFor(id); live {
		writeJSON(w, http.StatusOK, e.Snapshot())
		return
	}

	sess, err := s.backend.GetSession(r.Context(), id)
	if err != nil {
		s.log.Error("session load failed", "session_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "loading session: "+err.Error())
		return
	}

	e := s.register(id, engine.New(sess, s.backend, s.log))
	go s.enrichSession(e, sess.Clone())

	s.log.Info("session loaded", "session_id", id, "exercises", len(sess.Exercises))
	writeJSON(w, http.StatusCreated, e.Snapshot())
}

// handleQuickSession creates an empty ad-hoc session with no originating plan.
func (s *Server) handleQuickSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if r.Body != nil {
		// Body is optional; a missing name gets a default.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	sess := models.NewQuickSession(req.Name)
	e := s.register(sess.ID, engine.New(sess, s.backend, s.log))

	s.log.Info("quick session created", "session_id", sess.ID)
	writeJSON(w, http.StatusCreated, e.Snapshot())
}

// handleGetExerciseDetails resolves catalog details for one exercise id,
// serving the local cache first. An unknown id still answers 200 with the
// fallback annotation rather than failing the lookup.
func (s *Server) handleGetExerciseDetails(w http.ResponseWriter, r *http.Request) {
	exerciseID := chi.URLParam(r, "exerciseID")
	name := r.URL.Query().Get("name")
	writeJSON(w, http.StatusOK, s.enricher.Resolve(r.Context(), exerciseID, name))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	snap, ok := s.GetSnapshot(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not loaded")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUnloadSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if !s.unregister(id) {
		writeError(w, http.StatusNotFound, "session not loaded")
		return
	}
	s.log.Info("session unloaded", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// action wraps a phase/cursor operation: invalid calls are engine-level
// no-ops, so the handler always answers with the resulting snapshot.
func (s *Server) action(op func(*engine.Engine)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		e, ok := s.engineFor(id)
		if !ok {
			writeError(w, http.StatusNotFound, "session not loaded")
			return
		}
		op(e)
		writeJSON(w, http.StatusOK, e.Snapshot())
	}
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	e, ok := s.engineFor(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not loaded")
		return
	}

	var req struct {
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	dir, err := engine.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	e.Navigate(dir)
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	e, ok := s.engineFor(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not loaded")
		return
	}

	var req struct {
		Field string  `json:"field"`
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	field := engine.SetField(req.Field)
	if field != engine.FieldReps && field != engine.FieldWeight {
		writeError(w, http.StatusBadRequest, "field must be reps or weight")
		return
	}

	if !e.UpdateSetValue(field, req.Value) {
		writeError(w, http.StatusConflict, "session is completed")
		return
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	e, ok := s.engineFor(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not loaded")
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if !e.SetNotes(req.Notes) {
		writeError(w, http.StatusConflict, "session is completed")
		return
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	e, ok := s.engineFor(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not loaded")
		return
	}

	var req struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if !e.SetRating(req.Rating) {
		writeError(w, http.StatusBadRequest, "rating must be 1-5 on an open session")
		return
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}

// handleCompleteSession submits the finished session to the backend. A
// submission failure preserves the in-memory session for retry.
func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	e, ok := s.engineFor(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not loaded")
		return
	}

	err := e.CompleteSession(r.Context())
	switch {
	case errors.Is(err, engine.ErrSessionIncomplete), errors.Is(err, engine.ErrSessionNotRunning),
		errors.Is(err, engine.ErrCompletionInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}
