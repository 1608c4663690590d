package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"liftdb/internal/divisions"
	"liftdb/internal/logging"
	"liftdb/internal/names"
	"liftdb/internal/sources/rankings"
	"liftdb/internal/store"
)

// TierDivision names the division-ranking verification tier.
const TierDivision = "division"

// DivisionVerifier cross-checks a result row against the external division
// ranking listings (Tier 1). It queries the division variant implied by the
// meet date first, then the other side of the changeover, narrowing the date
// window by bisection when the source degrades the listing.
type DivisionVerifier struct {
	source     rankings.Source
	repo       Repository
	logger     *slog.Logger
	windowDays int
	minWindow  int
}

// NewDivisionVerifier constructs the Tier 1 verifier. windowDays is the half
// width of the initial query window around the meet date; minWindowDays is
// the bisection floor.
func NewDivisionVerifier(source rankings.Source, repo Repository, logger *slog.Logger, windowDays, minWindowDays int) *DivisionVerifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	if windowDays <= 0 {
		windowDays = 5
	}
	if minWindowDays <= 0 {
		minWindowDays = 1
	}
	return &DivisionVerifier{
		source:     source,
		repo:       repo,
		logger:     logger.With(logging.String(logging.FieldComponent, "tier1")),
		windowDays: windowDays,
		minWindow:  minWindowDays,
	}
}

// Tier implements Verifier.
func (v *DivisionVerifier) Tier() string { return TierDivision }

// Verify looks the athlete up in the ranking listings for the row's division.
// With candidates, a harvested stable id that matches exactly one candidate
// verifies it; without candidates, any listing hit verifies the row and its
// harvested attributes seed the new lifter.
func (v *DivisionVerifier) Verify(ctx context.Context, req Request, candidates []store.Lifter) (Verification, error) {
	out := Verification{Tier: TierDivision}
	if req.Date.IsZero() || req.AgeCategory == "" || req.WeightClass == "" {
		return out, fmt.Errorf("%w: division verification needs meet date, age category, and weight class", ErrValidation)
	}
	codes, err := divisions.For(req.AgeCategory, req.WeightClass, req.Date)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	from := dayFloor(req.Date.AddDate(0, 0, -v.windowDays))
	to := dayFloor(req.Date.AddDate(0, 0, v.windowDays))

	for _, code := range codes {
		match, others, err := v.search(ctx, string(code), from, to, req.Name)
		if err != nil {
			return out, err
		}
		if match == nil {
			continue
		}

		out.StableID = match.StableID
		out.Attributes = harvestAttributes(*match)
		out.ResultFields = harvestResultFields(*match)
		out.Reason = fmt.Sprintf("ranking listing %q", code)

		switch {
		case len(candidates) == 0:
			out.Verified = true
		case match.StableID != "":
			for _, cand := range candidates {
				if cand.StableID == match.StableID {
					out.Verified = true
					out.MatchedID = cand.ID
					break
				}
			}
			if !out.Verified {
				if id, ok := soleUnassigned(candidates); ok {
					out.Verified = true
					out.MatchedID = id
				}
			}
		}

		v.enrichOthers(ctx, others, from, to)
		return out, nil
	}

	out.Reason = "no ranking listing matched"
	return out, nil
}

// search queries one division code over [from, to]. A degraded listing splits
// the window in half, earlier half first, down to the minimum width.
func (v *DivisionVerifier) search(ctx context.Context, code string, from, to time.Time, target string) (*rankings.AthleteSummary, []rankings.AthleteSummary, error) {
	rows, err := v.source.Query(ctx, code, from, to)
	if err != nil && !errors.Is(err, rankings.ErrResultSetDegraded) {
		return nil, nil, fmt.Errorf("%w: rankings query %q: %v", ErrTransient, code, err)
	}
	if errors.Is(err, rankings.ErrResultSetDegraded) {
		width := int(to.Sub(from).Hours() / 24)
		if width <= v.minWindow {
			v.logger.Warn("ranking window degraded at minimum width",
				logging.String("division", code),
				logging.String("from", from.Format("2006-01-02")),
				logging.String("to", to.Format("2006-01-02")))
			return nil, nil, nil
		}
		mid := dayFloor(from.AddDate(0, 0, width/2))
		match, others, err := v.search(ctx, code, from, mid, target)
		if err != nil || match != nil {
			return match, others, err
		}
		laterMatch, laterOthers, err := v.search(ctx, code, mid.AddDate(0, 0, 1), to, target)
		return laterMatch, append(others, laterOthers...), err
	}

	for i, row := range rows {
		if names.Equal(names.Normalize(row.Name), target) {
			others := make([]rankings.AthleteSummary, 0, len(rows)-1)
			others = append(others, rows[:i]...)
			others = append(others, rows[i+1:]...)
			return &rows[i], others, nil
		}
	}
	return nil, rows, nil
}

// enrichOthers opportunistically fills club, placing, and competition age on
// stored results for the other athletes in a fetched listing. Best effort:
// failures are logged and ignored, and only athletes carrying a stable id
// that maps to exactly one stored lifter are touched.
func (v *DivisionVerifier) enrichOthers(ctx context.Context, others []rankings.AthleteSummary, from, to time.Time) {
	if v.repo == nil {
		return
	}
	for _, athlete := range others {
		if athlete.StableID == "" {
			continue
		}
		owners, err := v.repo.GetByStableID(ctx, athlete.StableID)
		if err != nil || len(owners) != 1 {
			continue
		}
		results, err := v.repo.ResultsForLifter(ctx, owners[0].ID)
		if err != nil {
			continue
		}
		fields := harvestResultFields(athlete)
		if len(fields) == 0 {
			continue
		}
		for _, result := range results {
			if result.Date.Before(from) || result.Date.After(to) {
				continue
			}
			if err := v.repo.UpdateResultFields(ctx, result.ID, fields); err != nil {
				v.logger.Debug("opportunistic enrichment skipped",
					logging.Int64("result_id", result.ID),
					logging.Error(err))
			}
		}
	}
}

func harvestAttributes(athlete rankings.AthleteSummary) map[string]any {
	fields := map[string]any{}
	if athlete.Gender != "" {
		fields["gender"] = athlete.Gender
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func harvestResultFields(athlete rankings.AthleteSummary) map[string]any {
	fields := map[string]any{}
	if athlete.Club != "" {
		fields["club"] = athlete.Club
	}
	if athlete.Rank > 0 {
		fields["placing"] = athlete.Rank
	}
	if athlete.Age > 0 {
		fields["competition_age"] = athlete.Age
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func soleUnassigned(candidates []store.Lifter) (int64, bool) {
	var id int64
	count := 0
	for _, cand := range candidates {
		if cand.StableID == "" {
			id = cand.ID
			count++
		}
	}
	return id, count == 1
}

func dayFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
