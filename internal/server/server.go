// Package server hosts live workout-session engines behind an HTTP API:
// clients load a session, drive it (start/pause/navigate/complete-set), watch
// snapshots over SSE, and complete it back to the coaching backend.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meltforce/repflow/internal/backend"
	"github.com/meltforce/repflow/internal/engine"
	"github.com/meltforce/repflow/internal/enrich"
	"github.com/meltforce/repflow/internal/models"
)

// Backend is the subset of the coaching API the runner needs: session fetch,
// exercise catalog fetch, and completed-session submission.
type Backend interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	SubmitSession(ctx context.Context, id uuid.UUID, payload *models.CompletedSessionPayload) error
	enrich.Fetcher
}

// Compile-time check: the HTTP client satisfies Backend.
var _ Backend = (*backend.Client)(nil)

const enrichTimeout = 60 * time.Second

// Server holds dependencies for HTTP handlers and the registry of live
// engines, one per in-progress session.
type Server struct {
	backend  Backend
	enricher *enrich.Enricher
	log      *slog.Logger
	apiKey   string
	router   chi.Router

	mu      sync.Mutex
	engines map[uuid.UUID]*engine.Engine
}

// New creates a Server with all routes configured.
func New(b Backend, enricher *enrich.Enricher, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		backend:  b,
		enricher: enricher,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
		engines:  make(map[uuid.UUID]*engine.Engine),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}

		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions/quick", s.handleQuickSession)
		r.Get("/exercises/{exerciseID}", s.handleGetExerciseDetails)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Post("/load", s.handleLoadSession)
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleUnloadSession)
			r.Get("/events", s.handleSessionEvents)

			r.Post("/start", s.action(func(e *engine.Engine) { e.Start() }))
			r.Post("/pause", s.action(func(e *engine.Engine) { e.Pause() }))
			r.Post("/resume", s.action(func(e *engine.Engine) { e.Resume() }))
			r.Post("/complete-set", s.action(func(e *engine.Engine) { e.CompleteCurrentSet() }))
			r.Post("/skip-rest", s.action(func(e *engine.Engine) { e.SkipRest() }))
			r.Post("/navigate", s.handleNavigate)
			r.Post("/set-value", s.handleSetValue)
			r.Post("/notes", s.handleNotes)
			r.Post("/rating", s.handleRating)
			r.Post("/complete", s.handleCompleteSession)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// engineFor returns the live engine for a session id.
func (s *Server) engineFor(id uuid.UUID) (*engine.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engines[id]
	return e, ok
}

// register stores a new engine unless one is already live for the id, in
// which case the existing engine wins and the new one is discarded.
func (s *Server) register(id uuid.UUID, e *engine.Engine) *engine.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.engines[id]; ok {
		e.Close()
		return existing
	}
	s.engines[id] = e
	return e
}

// unregister removes and tears down the engine for a session id.
func (s *Server) unregister(id uuid.UUID) bool {
	s.mu.Lock()
	e, ok := s.engines[id]
	delete(s.engines, id)
	s.mu.Unlock()
	if ok {
		e.Close()
	}
	return ok
}

// Shutdown tears down every live engine, canceling their timers.
func (s *Server) Shutdown() {
	s.mu.Lock()
	engines := make([]*engine.Engine, 0, len(s.engines))
	for _, e := range s.engines {
		engines = append(engines, e)
	}
	s.engines = make(map[uuid.UUID]*engine.Engine)
	s.mu.Unlock()

	for _, e := range engines {
		e.Close()
	}
}

// SessionSummary is the list-view projection of a live session.
type SessionSummary struct {
	ID    uuid.UUID    `json:"id"`
	Name  string       `json:"name"`
	Phase engine.Phase `json:"phase"`
}

// ListSessions returns summaries of live sessions, ordered by id for stable
// output. Also serves the MCP list_sessions tool.
func (s *Server) ListSessions() []SessionSummary {
	s.mu.Lock()
	engines := make(map[uuid.UUID]*engine.Engine, len(s.engines))
	for id, e := range s.engines {
		engines[id] = e
	}
	s.mu.Unlock()

	out := make([]SessionSummary, 0, len(engines))
	for id, e := range engines {
		snap := e.Snapshot()
		out = append(out, SessionSummary{ID: id, Name: snap.Session.Name, Phase: snap.Phase})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// GetSnapshot returns the snapshot of one live session. Also serves the MCP
// get_session tool.
func (s *Server) GetSnapshot(id uuid.UUID) (engine.Snapshot, bool) {
	e, ok := s.engineFor(id)
	if !ok {
		return engine.Snapshot{}, false
	}
	return e.Snapshot(), true
}

// enrichSession runs detail enrichment in the background and attaches results
// to the live engine. Runs concurrently with user interaction; the engine
// works fine before (or without) any of it finishing.
func (s *Server) enrichSession(e *engine.Engine, sess *models.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), enrichTimeout)
	defer cancel()

	for exerciseID, details := range s.enricher.EnrichSession(ctx, sess) {
		e.AttachDetails(exerciseID, details)
	}
}
