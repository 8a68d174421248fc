package cache

import (
	"context"
	"testing"
	"time"

	"github.com/meltforce/repflow/internal/models"
)

func openTest(t *testing.T) *DetailsCache {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetMiss(t *testing.T) {
	c := openTest(t)
	_, ok, err := c.Get(context.Background(), "squat")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected miss on empty cache")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()

	want := &models.ExerciseDetails{
		Name:         "Back Squat",
		Category:     "legs",
		MuscleGroups: []string{"quads", "glutes"},
		Equipment:    []string{"barbell"},
	}
	if err := c.Put(ctx, "squat", want); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Get(ctx, "squat")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Name != want.Name || got.Category != want.Category {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if len(got.MuscleGroups) != 2 {
		t.Errorf("muscleGroups = %v", got.MuscleGroups)
	}
}

func TestPutReplaces(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()

	if err := c.Put(ctx, "squat", &models.ExerciseDetails{Name: "Old"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, "squat", &models.ExerciseDetails{Name: "New"}); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Get(ctx, "squat")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got.Name != "New" {
		t.Errorf("name = %q, want New", got.Name)
	}
}

func TestExpiredRowIsAMiss(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()

	if err := c.Put(ctx, "squat", &models.ExerciseDetails{Name: "Back Squat"}); err != nil {
		t.Fatal(err)
	}

	// Shift the cache's clock past the TTL.
	c.now = func() time.Time { return time.Now().Add(DefaultTTL + time.Hour) }

	_, ok, err := c.Get(ctx, "squat")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expired row should be a miss")
	}
}

func TestPurge(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()

	if err := c.Put(ctx, "squat", &models.ExerciseDetails{Name: "Back Squat"}); err != nil {
		t.Fatal(err)
	}

	c.now = func() time.Time { return time.Now().Add(DefaultTTL + time.Hour) }
	n, err := c.Purge(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("purged %d rows, want 1", n)
	}
}
