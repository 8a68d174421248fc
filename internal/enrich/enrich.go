package enrich

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/meltforce/repflow/internal/models"
)

// Fetcher retrieves one raw exercise document from the catalog API.
type Fetcher interface {
	FetchExercise(ctx context.Context, exerciseID string) (json.RawMessage, error)
}

// Store is an optional local cache of normalized details.
type Store interface {
	Get(ctx context.Context, exerciseID string) (*models.ExerciseDetails, bool, error)
	Put(ctx context.Context, exerciseID string, details *models.ExerciseDetails) error
}

const defaultConcurrency = 4

// Enricher fetches descriptive metadata for the distinct exercises of a
// session: one fetch per distinct id, all concurrent up to a bound, each
// isolated so a single failure degrades to a fallback annotation instead of
// aborting the rest.
type Enricher struct {
	fetcher     Fetcher
	cache       Store // may be nil
	concurrency int
	log         *slog.Logger
}

// New creates an Enricher. cache may be nil to disable caching.
func New(fetcher Fetcher, cache Store, log *slog.Logger) *Enricher {
	return &Enricher{
		fetcher:     fetcher,
		cache:       cache,
		concurrency: defaultConcurrency,
		log:         log,
	}
}

// EnrichSession resolves details for every distinct exercise id referenced by
// the session. The returned map has an entry for each distinct id: real
// details on success, the minimal fallback on failure. The session itself is
// never touched; the caller attaches results to its own session copy.
func (e *Enricher) EnrichSession(ctx context.Context, s *models.Session) map[string]*models.ExerciseDetails {
	// Distinct ids, keeping the first seen display name for fallbacks.
	names := make(map[string]string)
	var ids []string
	for _, ex := range s.Exercises {
		if _, seen := names[ex.ExerciseID]; seen {
			continue
		}
		names[ex.ExerciseID] = ex.Name
		ids = append(ids, ex.ExerciseID)
	}

	results := make(map[string]*models.ExerciseDetails, len(ids))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.concurrency)

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			d := e.resolve(ctx, id, names[id])
			mu.Lock()
			results[id] = d
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return results
}

// Resolve fetches details for a single exercise id. name seeds the fallback
// when the catalog fetch fails.
func (e *Enricher) Resolve(ctx context.Context, exerciseID, name string) *models.ExerciseDetails {
	return e.resolve(ctx, exerciseID, name)
}

// resolve fetches one exercise's details: cache, then the catalog API, then
// the fallback. Fallbacks are never cached so a later load retries the fetch.
func (e *Enricher) resolve(ctx context.Context, id, name string) *models.ExerciseDetails {
	if e.cache != nil {
		if d, ok, err := e.cache.Get(ctx, id); err != nil {
			e.log.Warn("details cache read failed", "exercise_id", id, "error", err)
		} else if ok {
			return d
		}
	}

	raw, err := e.fetcher.FetchExercise(ctx, id)
	if err != nil {
		e.log.Warn("exercise fetch failed, using fallback details",
			"exercise_id", id, "error", err)
		return models.FallbackDetails(name)
	}

	d := NormalizeDetails(raw, name)
	if e.cache != nil {
		if err := e.cache.Put(ctx, id, d); err != nil {
			e.log.Warn("details cache write failed", "exercise_id", id, "error", err)
		}
	}
	return d
}
