package testsupport

import (
	"context"
	"testing"
	"time"

	"liftdb/internal/config"
	"liftdb/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewLifter creates a lifter for tests using the provided store.
func NewLifter(t testing.TB, st *store.Store, name, stableID string) *store.Lifter {
	t.Helper()

	lifter, err := st.CreateLifter(context.Background(), &store.Lifter{
		NormalizedName: name,
		StableID:       stableID,
	})
	if err != nil {
		t.Fatalf("store.CreateLifter: %v", err)
	}
	return lifter
}

// NewResult creates a result row for tests using the provided store.
func NewResult(t testing.TB, st *store.Store, lifterID int64, meetID string, date time.Time, bodyweightKg float64) *store.Result {
	t.Helper()

	result, err := st.CreateResult(context.Background(), &store.Result{
		LifterID:     lifterID,
		MeetID:       meetID,
		Date:         date,
		BodyweightKg: bodyweightKg,
	})
	if err != nil {
		t.Fatalf("store.CreateResult: %v", err)
	}
	return result
}
