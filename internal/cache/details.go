// Package cache keeps a small client-side SQLite store of normalized exercise
// details so reloading a session does not re-fetch an unchanged catalog.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meltforce/repflow/internal/models"
)

// DefaultTTL is how long a cached details row stays fresh.
const DefaultTTL = 24 * time.Hour

// DetailsCache stores normalized ExerciseDetails keyed by exercise id.
type DetailsCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens (or creates) the cache database at dir/details.db.
func Open(dir string) (*DetailsCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "details.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS exercise_details (
		exercise_id TEXT PRIMARY KEY,
		details     TEXT NOT NULL,
		fetched_at  INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache table: %w", err)
	}

	return &DetailsCache{db: db, ttl: DefaultTTL, now: time.Now}, nil
}

// Close closes the underlying database.
func (c *DetailsCache) Close() error {
	return c.db.Close()
}

// Get returns the cached details for an exercise id. The second return value
// is false on a miss or when the row has expired.
func (c *DetailsCache) Get(ctx context.Context, exerciseID string) (*models.ExerciseDetails, bool, error) {
	var payload string
	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT details, fetched_at FROM exercise_details WHERE exercise_id = ?`,
		exerciseID,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached details: %w", err)
	}

	if c.now().Sub(time.Unix(fetchedAt, 0)) > c.ttl {
		return nil, false, nil
	}

	var d models.ExerciseDetails
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return nil, false, fmt.Errorf("decoding cached details: %w", err)
	}
	return &d, true, nil
}

// Put stores (or replaces) the details for an exercise id.
func (c *DetailsCache) Put(ctx context.Context, exerciseID string, details *models.ExerciseDetails) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encoding details: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO exercise_details (exercise_id, details, fetched_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(exercise_id) DO UPDATE SET details = excluded.details, fetched_at = excluded.fetched_at`,
		exerciseID, string(payload), c.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing cached details: %w", err)
	}
	return nil
}

// Purge removes expired rows. Safe to run at startup.
func (c *DetailsCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM exercise_details WHERE fetched_at < ?`, c.now().Add(-c.ttl).Unix())
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	return res.RowsAffected()
}
