package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"liftdb/internal/logging"
	"liftdb/internal/names"
	"liftdb/internal/store"
)

// ExtremeGuard is the last check before a row lands on a name-matched
// candidate that no tier could verify. A bodyweight wildly out of line with
// the candidate's recorded results is treated as evidence of two different
// people sharing a name, and forces a split instead of a silent merge.
type ExtremeGuard struct {
	repo        Repository
	logger      *slog.Logger
	deltaKg     float64
	hardDeltaKg float64
}

// NewExtremeGuard constructs the guard. deltaKg triggers a split only when
// the age categories also cross a youth/adult boundary; hardDeltaKg triggers
// one outright.
func NewExtremeGuard(repo Repository, logger *slog.Logger, deltaKg, hardDeltaKg float64) *ExtremeGuard {
	if logger == nil {
		logger = logging.NewNop()
	}
	if deltaKg <= 0 {
		deltaKg = 40
	}
	if hardDeltaKg <= 0 {
		hardDeltaKg = 50
	}
	return &ExtremeGuard{
		repo:        repo,
		logger:      logger.With(logging.String(logging.FieldComponent, "guard")),
		deltaKg:     deltaKg,
		hardDeltaKg: hardDeltaKg,
	}
}

// ShouldSplit compares the row's bodyweight against the candidate's recorded
// results and reports whether the difference demands a separate identity.
// The closest recorded bodyweight is the comparison point; a candidate with
// no recorded bodyweights never splits.
func (g *ExtremeGuard) ShouldSplit(ctx context.Context, req Request, candidate store.Lifter) (bool, string) {
	if req.BodyweightKg <= 0 {
		return false, ""
	}
	results, err := g.repo.ResultsForLifter(ctx, candidate.ID)
	if err != nil {
		g.logger.Warn("guard could not load candidate results",
			logging.Int64(logging.FieldLifterID, candidate.ID),
			logging.Error(err))
		return false, ""
	}

	var closest *store.Result
	var closestDelta float64
	for i := range results {
		if results[i].BodyweightKg <= 0 {
			continue
		}
		delta := math.Abs(results[i].BodyweightKg - req.BodyweightKg)
		if closest == nil || delta < closestDelta {
			closest = &results[i]
			closestDelta = delta
		}
	}
	if closest == nil {
		return false, ""
	}

	if closestDelta >= g.hardDeltaKg {
		return true, fmt.Sprintf("bodyweight differs by %.1fkg from closest recorded result", closestDelta)
	}
	if closestDelta >= g.deltaKg && crossesAgeBoundary(req.AgeCategory, closest.AgeCategory) {
		return true, fmt.Sprintf("bodyweight differs by %.1fkg across age boundary %s/%s", closestDelta, req.AgeCategory, closest.AgeCategory)
	}
	return false, ""
}

// ageBand buckets an age category as youth, adult, or masters so the guard
// can tell a generational boundary from a lateral category change.
func ageBand(category string) string {
	category = strings.ToLower(names.Collapse(category))
	switch {
	case category == "":
		return ""
	case strings.HasPrefix(category, "youth"),
		strings.HasPrefix(category, "junior"),
		strings.HasPrefix(category, "u1"),
		strings.HasPrefix(category, "u2"):
		return "youth"
	case strings.HasPrefix(category, "master"):
		return "masters"
	default:
		return "adult"
	}
}

// crossesAgeBoundary reports whether two categories sit on opposite sides of
// the youth/adult divide. A band change involving masters alone is a normal
// career progression and does not count.
func crossesAgeBoundary(a, b string) bool {
	bandA, bandB := ageBand(a), ageBand(b)
	if bandA == "" || bandB == "" || bandA == bandB {
		return false
	}
	return bandA == "youth" || bandB == "youth"
}
