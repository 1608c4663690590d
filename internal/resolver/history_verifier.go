package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"liftdb/internal/logging"
	"liftdb/internal/sources/members"
	"liftdb/internal/store"
)

// TierHistory names the member-history verification tier.
const TierHistory = "history"

// HistoryVerifier cross-checks a result row against each candidate's member
// participation history (Tier 2). A candidate verifies when its history
// contains this meet, matched by exact name and a date within the window,
// with bodyweight and total inside the configured tolerances.
type HistoryVerifier struct {
	source       members.Source
	repo         Repository
	logger       *slog.Logger
	windowDays   int
	bodyweightKg float64
	totalKg      float64
}

// NewHistoryVerifier constructs the Tier 2 verifier.
func NewHistoryVerifier(source members.Source, repo Repository, logger *slog.Logger, windowDays int, bodyweightToleranceKg, totalToleranceKg float64) *HistoryVerifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	if windowDays <= 0 {
		windowDays = 5
	}
	if bodyweightToleranceKg <= 0 {
		bodyweightToleranceKg = 2
	}
	if totalToleranceKg <= 0 {
		totalToleranceKg = 5
	}
	return &HistoryVerifier{
		source:       source,
		repo:         repo,
		logger:       logger.With(logging.String(logging.FieldComponent, "tier2")),
		windowDays:   windowDays,
		bodyweightKg: bodyweightToleranceKg,
		totalKg:      totalToleranceKg,
	}
}

// Tier implements Verifier.
func (v *HistoryVerifier) Tier() string { return TierHistory }

// Verify walks the candidates in order and confirms the first whose history
// contains this meet. Candidates without a stable id get one discovered via
// name search first; a discovered id is persisted even when the history check
// then fails, so the next batch skips the search.
func (v *HistoryVerifier) Verify(ctx context.Context, req Request, candidates []store.Lifter) (Verification, error) {
	out := Verification{Tier: TierHistory}
	if len(candidates) == 0 {
		return out, fmt.Errorf("%w: history verification needs at least one candidate", ErrValidation)
	}
	if req.MeetName == "" || req.Date.IsZero() {
		return out, fmt.Errorf("%w: history verification needs meet name and date", ErrValidation)
	}

	// The name search depends only on the request, so discover at most once
	// and reuse the answer for every candidate missing a stable id.
	searched := false
	discovered := ""

	for _, cand := range candidates {
		stableID := cand.StableID
		if stableID == "" {
			if !searched {
				var err error
				discovered, err = v.source.SearchByName(ctx, req.Name)
				if err != nil {
					return out, fmt.Errorf("%w: member search: %v", ErrTransient, err)
				}
				searched = true
			}
			if discovered == "" {
				continue
			}
			if err := v.repo.AssignStableID(ctx, cand.ID, discovered); err != nil {
				if errors.Is(err, store.ErrStableIDConflict) {
					v.logger.Warn("discovered stable id already owned",
						logging.Int64(logging.FieldLifterID, cand.ID),
						logging.String("stable_id", discovered))
					continue
				}
				return out, fmt.Errorf("persist discovered stable id: %w", err)
			}
			stableID = discovered
		}

		history, err := v.source.GetHistory(ctx, stableID)
		if err != nil {
			return out, fmt.Errorf("%w: member history: %v", ErrTransient, err)
		}
		entry := v.findEntry(history, req)
		if entry == nil {
			continue
		}
		if reason, ok := v.withinTolerance(*entry, req); !ok {
			v.logger.Warn("history entry failed performance tolerances",
				logging.Int64(logging.FieldLifterID, cand.ID),
				logging.String(logging.FieldName, req.Name),
				logging.String("meet_name", req.MeetName),
				logging.String("detail", reason),
				logging.Error(ErrPerformanceMismatch))
			out.Reason = reason
			out.MismatchedIDs = append(out.MismatchedIDs, cand.ID)
			continue
		}

		out.Verified = true
		out.MatchedID = cand.ID
		out.StableID = stableID
		out.Reason = fmt.Sprintf("history entry %q", entry.MeetName)
		return out, nil
	}

	if out.Reason == "" {
		out.Reason = "no candidate history contained this meet"
	}
	return out, nil
}

// findEntry locates the history entry for this meet. Both conditions must
// hold on the same entry: exact meet-name match and a date inside the window.
// Annual meets reuse their name every edition, so only the date pins an entry
// to this occurrence. Among several qualifying entries the nearest date wins.
func (v *HistoryVerifier) findEntry(history []members.HistoryEntry, req Request) *members.HistoryEntry {
	var nearest *members.HistoryEntry
	var nearestGap time.Duration
	window := time.Duration(v.windowDays) * 24 * time.Hour

	for i := range history {
		entry := &history[i]
		if !strings.EqualFold(strings.TrimSpace(entry.MeetName), strings.TrimSpace(req.MeetName)) {
			continue
		}
		if entry.Date.IsZero() {
			continue
		}
		gap := entry.Date.Sub(req.Date)
		if gap < 0 {
			gap = -gap
		}
		if gap > window {
			continue
		}
		if nearest == nil || gap < nearestGap {
			nearest = entry
			nearestGap = gap
		}
	}
	return nearest
}

// withinTolerance compares the entry's performance to the row's. Each value
// is checked only when both sides report it; every available pair must pass.
func (v *HistoryVerifier) withinTolerance(entry members.HistoryEntry, req Request) (string, bool) {
	if req.BodyweightKg > 0 && entry.BodyweightKg > 0 {
		if delta := math.Abs(entry.BodyweightKg - req.BodyweightKg); delta > v.bodyweightKg {
			return fmt.Sprintf("bodyweight differs by %.1fkg", delta), false
		}
	}
	if req.TotalKg > 0 && entry.TotalKg > 0 {
		if delta := math.Abs(entry.TotalKg - req.TotalKg); delta > v.totalKg {
			return fmt.Sprintf("total differs by %.1fkg", delta), false
		}
	}
	return "", true
}
