package mcp

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meltforce/repflow/internal/engine"
	"github.com/meltforce/repflow/internal/enrich"
	"github.com/meltforce/repflow/internal/models"
	"github.com/meltforce/repflow/internal/server"
)

// DataSource abstracts the session runner for MCP tools. LocalSource (in
// process) and HTTPClient (remote via REST API) both satisfy this interface.
type DataSource interface {
	ListSessions(ctx context.Context) ([]server.SessionSummary, error)
	GetSession(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error)
	GetExerciseDetails(ctx context.Context, exerciseID, name string) (*models.ExerciseDetails, error)
}

// LocalSource serves MCP tools directly from an in-process runner.
type LocalSource struct {
	Runner   *server.Server
	Enricher *enrich.Enricher
}

// Compile-time check: LocalSource satisfies DataSource.
var _ DataSource = (*LocalSource)(nil)

func (l *LocalSource) ListSessions(_ context.Context) ([]server.SessionSummary, error) {
	return l.Runner.ListSessions(), nil
}

func (l *LocalSource) GetSession(_ context.Context, id uuid.UUID) (*engine.Snapshot, error) {
	snap, ok := l.Runner.GetSnapshot(id)
	if !ok {
		return nil, fmt.Errorf("session %s is not loaded", id)
	}
	return &snap, nil
}

func (l *LocalSource) GetExerciseDetails(ctx context.Context, exerciseID, name string) (*models.ExerciseDetails, error) {
	return l.Enricher.Resolve(ctx, exerciseID, name), nil
}
