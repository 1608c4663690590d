package resolver_test

import (
	"context"
	"strings"
	"testing"

	"liftdb/internal/resolver"
	"liftdb/internal/store"
)

// memoryRepo stands in for a database imported from the previous system,
// which could hold the duplicate stable ids the live schema now rejects.
type memoryRepo struct {
	lifters []store.Lifter
	nextID  int64
}

func (m *memoryRepo) CreateLifter(ctx context.Context, lifter *store.Lifter) (*store.Lifter, error) {
	if lifter.StableID != "" {
		for _, existing := range m.lifters {
			if existing.StableID == lifter.StableID {
				return nil, store.ErrStableIDConflict
			}
		}
	}
	m.nextID++
	created := *lifter
	created.ID = m.nextID
	m.lifters = append(m.lifters, created)
	return &created, nil
}

func (m *memoryRepo) GetLifterByID(ctx context.Context, id int64) (*store.Lifter, error) {
	for i := range m.lifters {
		if m.lifters[i].ID == id {
			lifter := m.lifters[i]
			return &lifter, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryRepo) GetByStableID(ctx context.Context, stableID string) ([]store.Lifter, error) {
	var matches []store.Lifter
	for _, lifter := range m.lifters {
		if lifter.StableID == stableID {
			matches = append(matches, lifter)
		}
	}
	return matches, nil
}

func (m *memoryRepo) GetByName(ctx context.Context, normalizedName string) ([]store.Lifter, error) {
	var matches []store.Lifter
	for _, lifter := range m.lifters {
		if strings.EqualFold(lifter.NormalizedName, normalizedName) {
			matches = append(matches, lifter)
		}
	}
	return matches, nil
}

func (m *memoryRepo) UpdateLifterFields(ctx context.Context, id int64, fields map[string]any) error {
	return nil
}

func (m *memoryRepo) AssignStableID(ctx context.Context, id int64, stableID string) error {
	for i := range m.lifters {
		if m.lifters[i].ID == id {
			if m.lifters[i].StableID != "" && m.lifters[i].StableID != stableID {
				return store.ErrStableIDConflict
			}
			m.lifters[i].StableID = stableID
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memoryRepo) ResultsForLifter(ctx context.Context, lifterID int64) ([]store.Result, error) {
	return nil, nil
}

func (m *memoryRepo) ResultsForMeetAndName(ctx context.Context, meetID, normalizedName string) ([]store.Result, error) {
	return nil, nil
}

func (m *memoryRepo) UpdateResultFields(ctx context.Context, id int64, fields map[string]any) error {
	return nil
}

func TestResolveDuplicateStableIDResolvesToNameMatch(t *testing.T) {
	repo := &memoryRepo{
		lifters: []store.Lifter{
			{ID: 1, NormalizedName: "Lee Park", StableID: "900"},
			{ID: 2, NormalizedName: "Other Person", StableID: "900"},
		},
		nextID: 2,
	}
	first := repo.lifters[0]

	r := resolver.New(repo)
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:     "Lee Park",
		StableID: "900",
		MeetID:   "m1",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !res.Conflict {
		t.Fatal("duplicate stable id must be flagged as a conflict")
	}
	if res.Lifter.ID != first.ID {
		t.Fatalf("expected the sole name match %d, got %d", first.ID, res.Lifter.ID)
	}
	if res.Outcome != resolver.OutcomeStableID {
		t.Fatalf("expected %s, got %s", resolver.OutcomeStableID, res.Outcome)
	}
}

func TestResolveDuplicateStableIDWithoutNameMatchFallsThrough(t *testing.T) {
	repo := &memoryRepo{
		lifters: []store.Lifter{
			{ID: 1, NormalizedName: "Someone Else", StableID: "900"},
			{ID: 2, NormalizedName: "Another Person", StableID: "900"},
		},
		nextID: 2,
	}

	r := resolver.New(repo)
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:     "Lee Park",
		StableID: "900",
		MeetID:   "m1",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !res.Conflict {
		t.Fatal("duplicate stable id must be flagged as a conflict")
	}
	if !res.Created {
		t.Fatal("expected a new lifter when no duplicate owner matches by name")
	}
	if res.Lifter.StableID != "" {
		t.Fatalf("duplicated stable id must not spread further, got %q", res.Lifter.StableID)
	}
}
