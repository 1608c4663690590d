package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"liftdb/internal/store"
	"liftdb/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	lifter, err := st.CreateLifter(ctx, &store.Lifter{NormalizedName: "Jane Smith", StableID: "1234"})
	if err != nil {
		t.Fatalf("CreateLifter failed: %v", err)
	}
	if lifter.ID == 0 {
		t.Fatal("expected lifter ID to be assigned")
	}

	fetched, err := st.GetLifterByID(ctx, lifter.ID)
	if err != nil {
		t.Fatalf("GetLifterByID failed: %v", err)
	}
	if fetched.NormalizedName != "Jane Smith" || fetched.StableID != "1234" {
		t.Fatalf("unexpected lifter: %#v", fetched)
	}
}

func TestCreateLifterRejectsDuplicateStableID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewLifter(t, st, "Jane Smith", "555")

	_, err := st.CreateLifter(ctx, &store.Lifter{NormalizedName: "Jane Smyth", StableID: "555"})
	if !errors.Is(err, store.ErrStableIDConflict) {
		t.Fatalf("expected ErrStableIDConflict, got %v", err)
	}
}

func TestGetByNameIsCaseInsensitive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewLifter(t, st, "Jane Smith", "")
	testsupport.NewLifter(t, st, "Jane Smith", "777")

	matches, err := st.GetByName(ctx, "jane smith")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID >= matches[1].ID {
		t.Fatal("expected creation order")
	}
}

func TestAssignStableIDCompareAndSet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewLifter(t, st, "Jane Smith", "")
	b := testsupport.NewLifter(t, st, "Jane Smith", "")

	if err := st.AssignStableID(ctx, a.ID, "999"); err != nil {
		t.Fatalf("AssignStableID failed: %v", err)
	}

	// Second assignment of the same id to another lifter must conflict.
	err := st.AssignStableID(ctx, b.ID, "999")
	if !errors.Is(err, store.ErrStableIDConflict) {
		t.Fatalf("expected ErrStableIDConflict, got %v", err)
	}

	// Re-assigning the id the lifter already owns is a no-op, not a conflict.
	if err := st.AssignStableID(ctx, a.ID, "999"); err != nil {
		t.Fatalf("idempotent assign failed: %v", err)
	}

	// A lifter with a populated stable id never has it overwritten.
	err = st.AssignStableID(ctx, a.ID, "1000")
	if !errors.Is(err, store.ErrStableIDConflict) {
		t.Fatalf("expected conflict on overwrite attempt, got %v", err)
	}
	refreshed, err := st.GetLifterByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetLifterByID failed: %v", err)
	}
	if refreshed.StableID != "999" {
		t.Fatalf("stable id mutated to %q", refreshed.StableID)
	}
}

func TestUpdateLifterFieldsIsNullOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	lifter := testsupport.NewLifter(t, st, "Jane Smith", "")

	fields := map[string]any{
		"country_code": "USA",
		"birth_year":   1990,
	}
	if err := st.UpdateLifterFields(ctx, lifter.ID, fields); err != nil {
		t.Fatalf("UpdateLifterFields failed: %v", err)
	}

	// A second application with different values must not overwrite.
	if err := st.UpdateLifterFields(ctx, lifter.ID, map[string]any{
		"country_code": "CAN",
		"birth_year":   1985,
		"gender":       "F",
	}); err != nil {
		t.Fatalf("second UpdateLifterFields failed: %v", err)
	}

	updated, err := st.GetLifterByID(ctx, lifter.ID)
	if err != nil {
		t.Fatalf("GetLifterByID failed: %v", err)
	}
	if updated.CountryCode != "USA" {
		t.Fatalf("country overwritten: %q", updated.CountryCode)
	}
	if updated.BirthYear != 1990 {
		t.Fatalf("birth year overwritten: %d", updated.BirthYear)
	}
	if updated.Gender != "F" {
		t.Fatalf("null gender should have been filled, got %q", updated.Gender)
	}
}

func TestUpdateLifterFieldsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	lifter := testsupport.NewLifter(t, st, "Jane Smith", "")
	fields := map[string]any{"country_code": "USA", "gender": "F", "birth_year": 1990}

	if err := st.UpdateLifterFields(ctx, lifter.ID, fields); err != nil {
		t.Fatalf("first application failed: %v", err)
	}
	once, err := st.GetLifterByID(ctx, lifter.ID)
	if err != nil {
		t.Fatalf("GetLifterByID failed: %v", err)
	}

	if err := st.UpdateLifterFields(ctx, lifter.ID, fields); err != nil {
		t.Fatalf("second application failed: %v", err)
	}
	twice, err := st.GetLifterByID(ctx, lifter.ID)
	if err != nil {
		t.Fatalf("GetLifterByID failed: %v", err)
	}

	if once.CountryCode != twice.CountryCode || once.Gender != twice.Gender || once.BirthYear != twice.BirthYear {
		t.Fatalf("enrichment not idempotent: %#v vs %#v", once, twice)
	}
}

func TestUpdateLifterFieldsRejectsUnknownColumn(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	lifter := testsupport.NewLifter(t, st, "Jane Smith", "")
	err := st.UpdateLifterFields(context.Background(), lifter.ID, map[string]any{"normalized_name": "Other"})
	if err == nil {
		t.Fatal("expected error for non-enrichable column")
	}
}

func TestResultLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	lifter := testsupport.NewLifter(t, st, "Jane Smith", "1234")
	date := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	result, err := st.CreateResult(ctx, &store.Result{
		LifterID:     lifter.ID,
		MeetID:       "meet-1",
		MeetName:     "Spring Open",
		Date:         date,
		AgeCategory:  "Open Women's",
		WeightClass:  "64kg",
		BodyweightKg: 63.2,
		TotalKg:      180,
		OutcomeCode:  "resolved-by-stable-id",
	})
	if err != nil {
		t.Fatalf("CreateResult failed: %v", err)
	}
	if !result.Date.Equal(date) {
		t.Fatalf("date round trip failed: %v", result.Date)
	}

	results, err := st.ResultsForLifter(ctx, lifter.ID)
	if err != nil {
		t.Fatalf("ResultsForLifter failed: %v", err)
	}
	if len(results) != 1 || results[0].MeetID != "meet-1" {
		t.Fatalf("unexpected results: %#v", results)
	}

	byMeet, err := st.ResultsForMeetAndName(ctx, "meet-1", "jane smith")
	if err != nil {
		t.Fatalf("ResultsForMeetAndName failed: %v", err)
	}
	if len(byMeet) != 1 {
		t.Fatalf("expected 1 result for meet+name, got %d", len(byMeet))
	}
}

func TestUpdateResultFieldsIsNullOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	lifter := testsupport.NewLifter(t, st, "Jane Smith", "")
	result := testsupport.NewResult(t, st, lifter.ID, "meet-1", time.Now(), 63.0)

	if err := st.UpdateResultFields(ctx, result.ID, map[string]any{"club": "Iron Works", "placing": 3}); err != nil {
		t.Fatalf("UpdateResultFields failed: %v", err)
	}
	if err := st.UpdateResultFields(ctx, result.ID, map[string]any{"club": "Other Club", "competition_age": 24}); err != nil {
		t.Fatalf("second UpdateResultFields failed: %v", err)
	}

	updated, err := st.GetResultByID(ctx, result.ID)
	if err != nil {
		t.Fatalf("GetResultByID failed: %v", err)
	}
	if updated.Club != "Iron Works" {
		t.Fatalf("club overwritten: %q", updated.Club)
	}
	if updated.Placing != 3 || updated.CompetitionAge != 24 {
		t.Fatalf("unexpected enrichment state: %#v", updated)
	}
}

func TestReprocessQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	row := &store.ReprocessRow{
		ID:           "row-1",
		BatchID:      "batch-1",
		RowJSON:      `{"name":"Jane Smith"}`,
		ErrorMessage: "disk full",
	}
	if err := st.EnqueueReprocess(ctx, row); err != nil {
		t.Fatalf("EnqueueReprocess failed: %v", err)
	}

	pending, err := st.ListReprocess(ctx, false)
	if err != nil {
		t.Fatalf("ListReprocess failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "row-1" {
		t.Fatalf("unexpected pending rows: %#v", pending)
	}

	if err := st.MarkReprocessRetried(ctx, "row-1"); err != nil {
		t.Fatalf("MarkReprocessRetried failed: %v", err)
	}
	pending, err = st.ListReprocess(ctx, false)
	if err != nil {
		t.Fatalf("ListReprocess failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows, got %#v", pending)
	}

	all, err := st.ListReprocess(ctx, true)
	if err != nil {
		t.Fatalf("ListReprocess(all) failed: %v", err)
	}
	if len(all) != 1 || all[0].RetriedAt == nil {
		t.Fatalf("expected retried row retained, got %#v", all)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewLifter(t, st, "Jane Smith", "1")
	testsupport.NewLifter(t, st, "John Doe", "")
	testsupport.NewResult(t, st, a.ID, "meet-1", time.Now(), 63)

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Lifters != 2 || stats.LiftersWithID != 1 || stats.Results != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := st.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %#v", health)
	}
	if len(health.MissingTables) != 0 {
		t.Fatalf("missing tables: %v", health.MissingTables)
	}
}
