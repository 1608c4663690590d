package ingest

import (
	"context"

	"liftdb/internal/resolver"
	"liftdb/internal/store"
)

// readOnlyRepo wraps a repository for dry runs: reads pass through, writes
// succeed without touching the store. Created lifters come back with ID 0 so
// reports can show what a real run would have done.
type readOnlyRepo struct {
	inner resolver.Repository
}

// NewReadOnlyRepository returns a write-discarding view of repo for dry-run
// resolution.
func NewReadOnlyRepository(repo resolver.Repository) resolver.Repository {
	return &readOnlyRepo{inner: repo}
}

func (r *readOnlyRepo) CreateLifter(ctx context.Context, lifter *store.Lifter) (*store.Lifter, error) {
	created := *lifter
	created.ID = 0
	return &created, nil
}

func (r *readOnlyRepo) GetLifterByID(ctx context.Context, id int64) (*store.Lifter, error) {
	return r.inner.GetLifterByID(ctx, id)
}

func (r *readOnlyRepo) GetByStableID(ctx context.Context, stableID string) ([]store.Lifter, error) {
	return r.inner.GetByStableID(ctx, stableID)
}

func (r *readOnlyRepo) GetByName(ctx context.Context, normalizedName string) ([]store.Lifter, error) {
	return r.inner.GetByName(ctx, normalizedName)
}

func (r *readOnlyRepo) UpdateLifterFields(ctx context.Context, id int64, fields map[string]any) error {
	return nil
}

func (r *readOnlyRepo) AssignStableID(ctx context.Context, id int64, stableID string) error {
	return nil
}

func (r *readOnlyRepo) ResultsForLifter(ctx context.Context, lifterID int64) ([]store.Result, error) {
	return r.inner.ResultsForLifter(ctx, lifterID)
}

func (r *readOnlyRepo) ResultsForMeetAndName(ctx context.Context, meetID, normalizedName string) ([]store.Result, error) {
	return r.inner.ResultsForMeetAndName(ctx, meetID, normalizedName)
}

func (r *readOnlyRepo) UpdateResultFields(ctx context.Context, id int64, fields map[string]any) error {
	return nil
}
