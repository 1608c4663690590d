package resolver_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"liftdb/internal/logging"
	"liftdb/internal/resolver"
	"liftdb/internal/sources/members"
	"liftdb/internal/sources/rankings"
	"liftdb/internal/store"
	"liftdb/internal/testsupport"
)

type stubRankings struct {
	mu    sync.Mutex
	fn    func(code string, from, to time.Time) ([]rankings.AthleteSummary, error)
	calls int
}

func (s *stubRankings) Query(ctx context.Context, code string, from, to time.Time) ([]rankings.AthleteSummary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fn == nil {
		return nil, nil
	}
	return s.fn(code, from, to)
}

type stubMembers struct {
	histories   map[string][]members.HistoryEntry
	searches    map[string]string
	historyErr  error
	searchErr   error
	searchCalls int
}

func (s *stubMembers) GetHistory(ctx context.Context, stableID string) ([]members.HistoryEntry, error) {
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return s.histories[stableID], nil
}

func (s *stubMembers) SearchByName(ctx context.Context, name string) (string, error) {
	s.searchCalls++
	if s.searchErr != nil {
		return "", s.searchErr
	}
	return s.searches[name], nil
}

func newResolver(t *testing.T, st *store.Store, rank rankings.Source, mem members.Source) *resolver.Resolver {
	t.Helper()
	logger := logging.NewNop()
	return resolver.New(st,
		resolver.WithLogger(logger),
		resolver.WithVerifiers(
			resolver.NewDivisionVerifier(rank, st, logger, 5, 1),
			resolver.NewHistoryVerifier(mem, st, logger, 5, 2, 5),
		),
		resolver.WithGuard(resolver.NewExtremeGuard(st, logger, 40, 50)),
		resolver.WithRetry(1, time.Millisecond),
		resolver.WithTierTimeout(time.Second),
	)
}

func date(s string) time.Time {
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestResolveByStableID(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	existing := testsupport.NewLifter(t, st, "Jane Smith", "1234")

	r := newResolver(t, st, &stubRankings{}, &stubMembers{})
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:     "Jane Smith",
		StableID: "1234",
		MeetID:   "m1",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Lifter.ID != existing.ID {
		t.Fatalf("expected lifter %d, got %d", existing.ID, res.Lifter.ID)
	}
	if res.Outcome != resolver.OutcomeStableID {
		t.Fatalf("expected %s, got %s", resolver.OutcomeStableID, res.Outcome)
	}
	if res.Created {
		t.Fatal("expected no new lifter")
	}
}

func TestResolveZeroCandidatesHarvestsStableID(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	rank := &stubRankings{fn: func(code string, from, to time.Time) ([]rankings.AthleteSummary, error) {
		return []rankings.AthleteSummary{
			{Name: "Jane Smith", StableID: "1234", Club: "Iron Works", Age: 24, Rank: 3, Gender: "women"},
			{Name: "Dana Reyes", StableID: "2200", Club: "Northside", Age: 27, Rank: 4, Gender: "women"},
		}, nil
	}}

	r := newResolver(t, st, rank, &stubMembers{})
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:        "Jane Smith",
		MeetID:      "m1",
		MeetName:    "Spring Open",
		Date:        date("2024-03-02"),
		AgeCategory: "Senior",
		WeightClass: "64kg",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !res.Created || res.Outcome != resolver.OutcomeCreated {
		t.Fatalf("expected created-new, got created=%v outcome=%s", res.Created, res.Outcome)
	}
	if res.Lifter.StableID != "1234" {
		t.Fatalf("expected harvested stable id 1234, got %q", res.Lifter.StableID)
	}
	if res.Lifter.Gender != "women" {
		t.Fatalf("expected harvested gender, got %q", res.Lifter.Gender)
	}
	if res.ResultFields["club"] != "Iron Works" || res.ResultFields["placing"] != 3 || res.ResultFields["competition_age"] != 24 {
		t.Fatalf("unexpected harvested result fields: %#v", res.ResultFields)
	}
}

func TestResolveTwoCandidatesHistoryDisambiguates(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	first := testsupport.NewLifter(t, st, "Anna Kim", "555")
	testsupport.NewLifter(t, st, "Anna Kim", "777")

	mem := &stubMembers{histories: map[string][]members.HistoryEntry{
		"555": {{MeetName: "City Cup", Date: date("2024-05-10"), BodyweightKg: 63.0, TotalKg: 180}},
		"777": {{MeetName: "Winter Classic", Date: date("2023-12-02"), BodyweightKg: 70.1, TotalKg: 210}},
	}}

	r := newResolver(t, st, &stubRankings{}, mem)
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:         "Anna Kim",
		MeetID:       "m2",
		MeetName:     "City Cup",
		Date:         date("2024-05-10"),
		AgeCategory:  "Senior",
		WeightClass:  "64kg",
		BodyweightKg: 63.5,
		TotalKg:      182,
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Lifter.ID != first.ID {
		t.Fatalf("expected lifter %d, got %d", first.ID, res.Lifter.ID)
	}
	if res.Outcome != resolver.OutcomeTier2 {
		t.Fatalf("expected %s, got %s", resolver.OutcomeTier2, res.Outcome)
	}
	if res.Created {
		t.Fatal("expected no new lifter")
	}
}

func TestResolvePerformanceMismatchCreatesNewLifter(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	candidate := testsupport.NewLifter(t, st, "Mia Cole", "888")

	mem := &stubMembers{histories: map[string][]members.HistoryEntry{
		"888": {{MeetName: "City Cup", Date: date("2024-05-10"), BodyweightKg: 63.0, TotalKg: 120}},
	}}

	r := newResolver(t, st, &stubRankings{}, mem)
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:         "Mia Cole",
		MeetID:       "m3",
		MeetName:     "City Cup",
		Date:         date("2024-05-10"),
		BodyweightKg: 63.0,
		TotalKg:      200,
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !res.Created || res.Outcome != resolver.OutcomeCreated {
		t.Fatalf("expected created-new, got created=%v outcome=%s", res.Created, res.Outcome)
	}
	if res.Lifter.ID == candidate.ID {
		t.Fatal("mismatched candidate must not absorb the row")
	}
	if !strings.Contains(res.Reason, "ruled out") {
		t.Fatalf("unexpected reason %q", res.Reason)
	}
}

func TestResolveSurvivesAllSourcesFailing(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	candidate := testsupport.NewLifter(t, st, "Lee Park", "444")

	rank := &stubRankings{fn: func(code string, from, to time.Time) ([]rankings.AthleteSummary, error) {
		return nil, errors.New("connection refused")
	}}
	mem := &stubMembers{historyErr: errors.New("connection refused"), searchErr: errors.New("connection refused")}

	r := newResolver(t, st, rank, mem)
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:        "Lee Park",
		MeetID:      "m4",
		MeetName:    "Autumn Open",
		Date:        date("2024-09-14"),
		AgeCategory: "Senior",
		WeightClass: "81kg",
	})
	if err != nil {
		t.Fatalf("resolution must survive source outages, got %v", err)
	}
	if res.Lifter.ID != candidate.ID {
		t.Fatalf("expected fallback to sole name match %d, got %d", candidate.ID, res.Lifter.ID)
	}
	if res.Outcome != resolver.OutcomeName {
		t.Fatalf("expected %s, got %s", resolver.OutcomeName, res.Outcome)
	}
}

func TestResolveManyAssignsStableIDToSoleUnassigned(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.NewLifter(t, st, "Ben Ito", "111")
	open := testsupport.NewLifter(t, st, "Ben Ito", "")

	r := newResolver(t, st, &stubRankings{}, &stubMembers{})
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:     "Ben Ito",
		StableID: "222",
		MeetID:   "m5",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Lifter.ID != open.ID {
		t.Fatalf("expected lifter %d, got %d", open.ID, res.Lifter.ID)
	}
	if res.Lifter.StableID != "222" {
		t.Fatalf("expected assigned stable id, got %q", res.Lifter.StableID)
	}
	if res.Outcome != resolver.OutcomeStableID {
		t.Fatalf("expected %s, got %s", resolver.OutcomeStableID, res.Outcome)
	}
}

func TestResolveSkipsDivisionTierForSameMeetDuplicateName(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	candidate := testsupport.NewLifter(t, st, "Ed Fox", "")
	if _, err := st.CreateResult(context.Background(), &store.Result{
		LifterID:    candidate.ID,
		MeetID:      "m9",
		MeetName:    "Regional Final",
		Date:        date("2024-06-08"),
		AgeCategory: "Senior",
		WeightClass: "81kg",
	}); err != nil {
		t.Fatalf("CreateResult: %v", err)
	}

	rank := &stubRankings{fn: func(code string, from, to time.Time) ([]rankings.AthleteSummary, error) {
		return []rankings.AthleteSummary{{Name: "Ed Fox", StableID: "999"}}, nil
	}}

	r := newResolver(t, st, rank, &stubMembers{})
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:        "Ed Fox",
		MeetID:      "m9",
		MeetName:    "Regional Final",
		Date:        date("2024-06-08"),
		AgeCategory: "Senior",
		WeightClass: "81kg",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if rank.calls != 0 {
		t.Fatalf("division tier must not run for a same-meet duplicate name, got %d queries", rank.calls)
	}
	if !res.Created {
		t.Fatal("expected an unverified duplicate name to create a new lifter")
	}
}

func TestResolveExtremeDifferenceSplits(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	candidate := testsupport.NewLifter(t, st, "Sam Roe", "")
	if _, err := st.CreateResult(context.Background(), &store.Result{
		LifterID:     candidate.ID,
		MeetID:       "old-meet",
		Date:         date("2023-04-01"),
		AgeCategory:  "Senior",
		WeightClass:  "109+kg",
		BodyweightKg: 115,
		TotalKg:      250,
	}); err != nil {
		t.Fatalf("CreateResult: %v", err)
	}

	// Totals are nearly identical; only the bodyweights give the two
	// people away.
	r := newResolver(t, st, &stubRankings{}, &stubMembers{})
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:         "Sam Roe",
		MeetID:       "m6",
		MeetName:     "Summer Open",
		Date:         date("2024-07-20"),
		AgeCategory:  "Senior",
		WeightClass:  "61kg",
		BodyweightKg: 60,
		TotalKg:      250,
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !res.Created || res.Outcome != resolver.OutcomeExtremeSplit {
		t.Fatalf("expected extreme split, got created=%v outcome=%s", res.Created, res.Outcome)
	}
	if res.Lifter.ID == candidate.ID {
		t.Fatal("split must create a separate lifter")
	}
}

func TestResolveModerateDifferenceSplitsOnlyAcrossAgeBoundary(t *testing.T) {
	setup := func(t *testing.T) (*resolver.Resolver, *store.Lifter) {
		st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
		candidate := testsupport.NewLifter(t, st, "Tess Vann", "")
		if _, err := st.CreateResult(context.Background(), &store.Result{
			LifterID:     candidate.ID,
			MeetID:       "old-meet",
			Date:         date("2023-04-01"),
			AgeCategory:  "Senior",
			WeightClass:  "109+kg",
			BodyweightKg: 105,
			TotalKg:      245,
		}); err != nil {
			t.Fatalf("CreateResult: %v", err)
		}
		return newResolver(t, st, &stubRankings{}, &stubMembers{}), candidate
	}

	t.Run("across boundary", func(t *testing.T) {
		r, _ := setup(t)
		res, err := r.Resolve(context.Background(), resolver.Request{
			Name:         "Tess Vann",
			MeetID:       "m7",
			Date:         date("2024-03-09"),
			AgeCategory:  "Youth",
			WeightClass:  "59kg",
			BodyweightKg: 60,
			TotalKg:      200,
		})
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if res.Outcome != resolver.OutcomeExtremeSplit {
			t.Fatalf("expected a 45kg delta across the youth boundary to split, got %s", res.Outcome)
		}
	})

	t.Run("inside band", func(t *testing.T) {
		r, candidate := setup(t)
		res, err := r.Resolve(context.Background(), resolver.Request{
			Name:         "Tess Vann",
			MeetID:       "m8",
			Date:         date("2024-04-13"),
			AgeCategory:  "Senior",
			WeightClass:  "64kg",
			BodyweightKg: 60,
			TotalKg:      200,
		})
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if res.Created {
			t.Fatalf("a 45kg delta inside one age band must not split, got %s", res.Outcome)
		}
		if res.Lifter.ID != candidate.ID {
			t.Fatalf("expected the name match to hold, got lifter %d", res.Lifter.ID)
		}
	})
}

func TestResolveManyExtremeDifferenceSplits(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	first := testsupport.NewLifter(t, st, "Ria Wolf", "610")
	second := testsupport.NewLifter(t, st, "Ria Wolf", "611")
	for i, lifter := range []*store.Lifter{first, second} {
		if _, err := st.CreateResult(context.Background(), &store.Result{
			LifterID:     lifter.ID,
			MeetID:       "old-meet",
			Date:         date("2023-04-01"),
			AgeCategory:  "Senior",
			WeightClass:  "102kg",
			BodyweightKg: 100 + float64(i),
			TotalKg:      240,
		}); err != nil {
			t.Fatalf("CreateResult: %v", err)
		}
	}

	r := newResolver(t, st, &stubRankings{}, &stubMembers{})
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:         "Ria Wolf",
		MeetID:       "m13",
		MeetName:     "Spring Open",
		Date:         date("2024-03-02"),
		AgeCategory:  "Senior",
		WeightClass:  "45kg",
		BodyweightKg: 44.8,
		TotalKg:      120,
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !res.Created || res.Outcome != resolver.OutcomeExtremeSplit {
		t.Fatalf("expected extreme split on the ambiguous path, got created=%v outcome=%s", res.Created, res.Outcome)
	}
	if res.Lifter.ID == first.ID || res.Lifter.ID == second.ID {
		t.Fatal("split must create a separate lifter")
	}
}

func TestResolveStableIDDisagreementCreatesNewLifter(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	candidate := testsupport.NewLifter(t, st, "Kay Lim", "300")

	r := newResolver(t, st, &stubRankings{}, &stubMembers{})
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:     "Kay Lim",
		StableID: "301",
		MeetID:   "m10",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !res.Created {
		t.Fatal("a disagreeing stable id must start a new lifter")
	}
	if res.Lifter.ID == candidate.ID {
		t.Fatal("row must not land on the differently numbered lifter")
	}
	if res.Lifter.StableID != "301" {
		t.Fatalf("expected new lifter to carry the row's stable id, got %q", res.Lifter.StableID)
	}
}

func TestResolveStableIDOwnedByOtherNameFallsThrough(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	owner := testsupport.NewLifter(t, st, "Old Name", "400")

	r := newResolver(t, st, &stubRankings{}, &stubMembers{})
	res, err := r.Resolve(context.Background(), resolver.Request{
		Name:     "New Name",
		StableID: "400",
		MeetID:   "m11",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !res.Conflict {
		t.Fatal("expected the mismatch to be flagged as a conflict")
	}
	if res.Lifter.ID == owner.ID {
		t.Fatal("row must not merge into the differently named owner")
	}
	if !res.Created {
		t.Fatal("expected a new lifter")
	}
	if res.Lifter.StableID != "" {
		t.Fatalf("owned stable id must not be duplicated, got %q", res.Lifter.StableID)
	}
}
