package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"liftdb/internal/config"
	"liftdb/internal/logging"
	"liftdb/internal/names"
	"liftdb/internal/sources/members"
	"liftdb/internal/sources/rankings"
	"liftdb/internal/store"
)

// Resolver maps result rows to lifter identities.
type Resolver struct {
	repo          Repository
	verifiers     []Verifier
	guard         *ExtremeGuard
	logger        *slog.Logger
	retryAttempts int
	retryBackoff  time.Duration
	tierTimeout   time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithVerifiers replaces the verification tier list. Order is significance:
// earlier tiers are consulted first.
func WithVerifiers(verifiers ...Verifier) Option {
	return func(r *Resolver) {
		r.verifiers = verifiers
	}
}

// WithGuard sets the extreme-difference guard.
func WithGuard(guard *ExtremeGuard) Option {
	return func(r *Resolver) {
		r.guard = guard
	}
}

// WithRetry configures transient-failure retries at the tier boundary.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(r *Resolver) {
		if attempts > 0 {
			r.retryAttempts = attempts
		}
		if backoff > 0 {
			r.retryBackoff = backoff
		}
	}
}

// WithTierTimeout bounds each tier invocation.
func WithTierTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.tierTimeout = timeout
		}
	}
}

// New creates a resolver over the given repository. Without options it has
// no verification tiers and resolves on stable ids and names alone.
func New(repo Repository, opts ...Option) *Resolver {
	r := &Resolver{
		repo:          repo,
		logger:        logging.NewNop(),
		retryAttempts: 3,
		retryBackoff:  2 * time.Second,
		tierTimeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.guard == nil {
		r.guard = NewExtremeGuard(repo, r.logger, 0, 0)
	}
	return r
}

// NewFromConfig wires the full tier hierarchy from application config.
func NewFromConfig(cfg *config.Config, repo Repository, rankingSource rankings.Source, memberSource members.Source, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	rc := cfg.Resolver
	return New(repo,
		WithLogger(logger.With(logging.String(logging.FieldComponent, "resolver"))),
		WithVerifiers(
			NewDivisionVerifier(rankingSource, repo, logger, rc.DateWindowDays, rc.MinWindowDays),
			NewHistoryVerifier(memberSource, repo, logger, rc.DateWindowDays, rc.BodyweightToleranceKg, rc.TotalToleranceKg),
		),
		WithGuard(NewExtremeGuard(repo, logger, rc.ExtremeBodyweightDeltaKg, rc.ExtremeBodyweightDeltaHardKg)),
		WithRetry(rc.RetryAttempts, time.Duration(rc.RetryBackoffSeconds)*time.Second),
		WithTierTimeout(time.Duration(rc.TierTimeoutSeconds)*time.Second),
	)
}

// Resolve decides which lifter owns the row described by req, creating one
// when no existing lifter can be confirmed. The returned Resolution always
// carries a lifter; errors are reserved for store failures that leave the
// row undecidable.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	req.Name = names.Normalize(req.Name)
	req.StableID = strings.TrimSpace(req.StableID)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: athlete name required", ErrValidation)
	}

	res := &Resolution{ResultFields: map[string]any{}}

	if req.StableID != "" {
		resolved, err := r.resolveByStableID(ctx, req, res)
		if err != nil {
			return nil, err
		}
		if resolved {
			return res, nil
		}
	}

	candidates, err := r.repo.GetByName(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("name lookup: %w", err)
	}

	switch len(candidates) {
	case 0:
		err = r.resolveZero(ctx, req, res)
	case 1:
		err = r.resolveOne(ctx, req, candidates[0], res)
	default:
		err = r.resolveMany(ctx, req, candidates, res)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("row resolved",
		logging.String(logging.FieldName, req.Name),
		logging.String(logging.FieldMeetID, req.MeetID),
		logging.Int64(logging.FieldLifterID, res.Lifter.ID),
		logging.String(logging.FieldOutcome, string(res.Outcome)),
		logging.Bool("created", res.Created))
	return res, nil
}

// resolveByStableID handles the strongest signal first. It reports true when
// the row is fully resolved; false falls through to the name lookup.
func (r *Resolver) resolveByStableID(ctx context.Context, req Request, res *Resolution) (bool, error) {
	owners, err := r.repo.GetByStableID(ctx, req.StableID)
	if err != nil {
		return false, fmt.Errorf("stable id lookup: %w", err)
	}

	switch len(owners) {
	case 0:
		return false, nil
	case 1:
		owner := owners[0]
		if !names.Equal(owner.NormalizedName, req.Name) {
			res.Conflict = true
			r.logger.Warn("stable id owned by a differently named lifter",
				logging.String("stable_id", req.StableID),
				logging.String(logging.FieldName, req.Name),
				logging.Int64(logging.FieldLifterID, owner.ID),
				logging.Error(ErrIntegrityConflict))
			return false, nil
		}
		r.enrichLifter(ctx, owner.ID, lifterFieldsFromRequest(req))
		res.Lifter = &owner
		res.Outcome = OutcomeStableID
		res.Reason = "stable id matched existing lifter"
		return true, nil
	default:
		res.Conflict = true
		r.logger.Warn("duplicate stable id in roster",
			logging.String("stable_id", req.StableID),
			logging.Int("owners", len(owners)),
			logging.Error(ErrIntegrityConflict))
		var named []store.Lifter
		for _, owner := range owners {
			if names.Equal(owner.NormalizedName, req.Name) {
				named = append(named, owner)
			}
		}
		if len(named) == 1 {
			r.enrichLifter(ctx, named[0].ID, lifterFieldsFromRequest(req))
			res.Lifter = &named[0]
			res.Outcome = OutcomeStableID
			res.Reason = "stable id duplicated; resolved to sole name match"
			return true, nil
		}
		return false, nil
	}
}

// resolveZero handles an unseen name: speculatively harvest a stable id and
// attributes from the ranking listings, then create the lifter.
func (r *Resolver) resolveZero(ctx context.Context, req Request, res *Resolution) error {
	stableID := req.StableID
	var attrs map[string]any

	if v := r.runTier(ctx, r.tierByName(TierDivision), req, nil); v.Verified {
		attrs = v.Attributes
		mergeFields(res.ResultFields, v.ResultFields)
		if stableID == "" && v.StableID != "" {
			// A harvested id may already belong to a stored lifter under a
			// name variant; resolve to the owner instead of creating a twin.
			owners, err := r.repo.GetByStableID(ctx, v.StableID)
			if err != nil {
				return fmt.Errorf("harvested stable id lookup: %w", err)
			}
			if len(owners) == 1 {
				res.Lifter = &owners[0]
				res.Outcome = OutcomeStableID
				res.Reason = "harvested stable id matched existing lifter"
				r.enrichLifter(ctx, owners[0].ID, lifterFieldsFromRequest(req))
				return nil
			}
			if len(owners) == 0 {
				stableID = v.StableID
			}
		}
	}

	created, err := r.createLifter(ctx, req, stableID, attrs, res)
	if err != nil {
		return err
	}
	res.Lifter = created
	res.Created = true
	res.Outcome = OutcomeCreated
	if created.StableID != "" && req.StableID == "" {
		res.Reason = "new lifter with harvested stable id"
	} else {
		res.Reason = "no existing lifter with this name"
	}
	return nil
}

// resolveOne handles exactly one same-name candidate.
func (r *Resolver) resolveOne(ctx context.Context, req Request, candidate store.Lifter, res *Resolution) error {
	if req.StableID != "" && candidate.StableID != "" && candidate.StableID != req.StableID {
		// Same name, different issued ids: two people. The stable id lookup
		// already failed to find an owner, so this row starts a new lifter.
		r.logger.Warn("row stable id disagrees with same-name lifter",
			logging.String(logging.FieldName, req.Name),
			logging.String("stable_id", req.StableID),
			logging.Int64(logging.FieldLifterID, candidate.ID),
			logging.Error(ErrIntegrityConflict))
		created, err := r.createLifter(ctx, req, req.StableID, nil, res)
		if err != nil {
			return err
		}
		res.Lifter = created
		res.Created = true
		res.Outcome = OutcomeCreated
		res.Reason = "stable id disagrees with existing same-name lifter"
		return nil
	}

	risk, err := r.sameDivisionRisk(ctx, req)
	if err != nil {
		return err
	}

	ruledOut := false
	for _, verifier := range r.verifiers {
		if risk && verifier.Tier() == TierDivision {
			// Another row of this meet already landed on this name in the
			// same division; a listing hit could belong to either person.
			r.logger.Info("division tier skipped for same-meet duplicate name",
				logging.String(logging.FieldName, req.Name),
				logging.String(logging.FieldMeetID, req.MeetID))
			continue
		}
		v := r.runTier(ctx, verifier, req, []store.Lifter{candidate})
		mergeFields(res.ResultFields, v.ResultFields)
		for _, id := range v.MismatchedIDs {
			if id == candidate.ID {
				ruledOut = true
			}
		}
		if !v.Verified || v.MatchedID != candidate.ID {
			continue
		}
		r.adoptStableID(ctx, &candidate, v.StableID, res)
		r.enrichLifter(ctx, candidate.ID, mergedLifterFields(req, v.Attributes))
		res.Lifter = &candidate
		res.Outcome = tierOutcome(v.Tier)
		res.Reason = v.Reason
		return nil
	}

	if risk || ruledOut {
		created, err := r.createLifter(ctx, req, req.StableID, nil, res)
		if err != nil {
			return err
		}
		res.Lifter = created
		res.Created = true
		res.Outcome = OutcomeCreated
		if ruledOut {
			res.Reason = "history performance ruled out the name match"
		} else {
			res.Reason = "unverified duplicate name within one meet"
		}
		return nil
	}

	if split, detail := r.guard.ShouldSplit(ctx, req, candidate); split {
		created, err := r.createLifter(ctx, req, req.StableID, nil, res)
		if err != nil {
			return err
		}
		res.Lifter = created
		res.Created = true
		res.Outcome = OutcomeExtremeSplit
		res.Reason = detail
		return nil
	}

	r.adoptStableID(ctx, &candidate, req.StableID, res)
	r.enrichLifter(ctx, candidate.ID, lifterFieldsFromRequest(req))
	res.Lifter = &candidate
	res.Outcome = OutcomeName
	res.Reason = "single candidate with matching name"
	return nil
}

// resolveMany disambiguates several same-name candidates.
func (r *Resolver) resolveMany(ctx context.Context, req Request, candidates []store.Lifter, res *Resolution) error {
	if req.StableID != "" {
		for i := range candidates {
			if candidates[i].StableID == req.StableID {
				r.enrichLifter(ctx, candidates[i].ID, lifterFieldsFromRequest(req))
				res.Lifter = &candidates[i]
				res.Outcome = OutcomeStableID
				res.Reason = "stable id matched one of several candidates"
				return nil
			}
		}
		if id, ok := soleUnassigned(candidates); ok {
			if err := r.repo.AssignStableID(ctx, id, req.StableID); err == nil {
				lifter, err := r.repo.GetLifterByID(ctx, id)
				if err != nil {
					return fmt.Errorf("reload lifter: %w", err)
				}
				r.enrichLifter(ctx, id, lifterFieldsFromRequest(req))
				res.Lifter = lifter
				res.Outcome = OutcomeStableID
				res.Reason = "stable id assigned to the only unassigned candidate"
				return nil
			} else if errors.Is(err, store.ErrStableIDConflict) {
				res.Conflict = true
				r.logger.Warn("stable id assignment lost to a concurrent owner",
					logging.Int64(logging.FieldLifterID, id),
					logging.String("stable_id", req.StableID),
					logging.Error(ErrIntegrityConflict))
			} else {
				return fmt.Errorf("assign stable id: %w", err)
			}
		}
	}

	risk, err := r.sameDivisionRisk(ctx, req)
	if err != nil {
		return err
	}

	var harvestedID string
	var harvestedAttrs map[string]any
	for _, verifier := range r.verifiers {
		if risk && verifier.Tier() == TierDivision {
			continue
		}
		v := r.runTier(ctx, verifier, req, candidates)
		mergeFields(res.ResultFields, v.ResultFields)
		if v.StableID != "" && harvestedID == "" {
			harvestedID = v.StableID
			harvestedAttrs = v.Attributes
		}
		if !v.Verified || v.MatchedID == 0 {
			continue
		}
		matched, err := r.repo.GetLifterByID(ctx, v.MatchedID)
		if err != nil {
			return fmt.Errorf("reload verified lifter: %w", err)
		}
		r.adoptStableID(ctx, matched, v.StableID, res)
		r.enrichLifter(ctx, matched.ID, mergedLifterFields(req, v.Attributes))
		res.Lifter = matched
		res.Outcome = tierOutcome(v.Tier)
		res.Reason = v.Reason
		return nil
	}

	if harvestedID != "" {
		owners, err := r.repo.GetByStableID(ctx, harvestedID)
		if err != nil {
			return fmt.Errorf("harvested stable id lookup: %w", err)
		}
		if len(owners) == 1 {
			res.Lifter = &owners[0]
			res.Outcome = OutcomeStableID
			res.Reason = "harvested stable id matched existing lifter"
			r.enrichLifter(ctx, owners[0].ID, lifterFieldsFromRequest(req))
			return nil
		}
		if len(owners) > 0 {
			harvestedID = ""
		}
	}

	for i := range candidates {
		if split, detail := r.guard.ShouldSplit(ctx, req, candidates[i]); split {
			created, err := r.createLifter(ctx, req, harvestedID, harvestedAttrs, res)
			if err != nil {
				return err
			}
			res.Lifter = created
			res.Created = true
			res.Outcome = OutcomeExtremeSplit
			res.Reason = detail
			return nil
		}
	}

	created, err := r.createLifter(ctx, req, harvestedID, harvestedAttrs, res)
	if err != nil {
		return err
	}
	res.Lifter = created
	res.Created = true
	res.Outcome = OutcomeCreated
	res.Reason = "ambiguous name, no tier confirmed a candidate"
	return nil
}

// runTier invokes the named verifier with a bounded timeout, retrying
// transient failures with linear backoff. Validation errors skip the tier;
// exhausted retries leave it inconclusive. Either way resolution continues.
func (r *Resolver) runTier(ctx context.Context, verifier Verifier, req Request, candidates []store.Lifter) Verification {
	if verifier == nil {
		return Verification{}
	}
	last := Verification{Tier: verifier.Tier()}

	for attempt := 1; attempt <= r.retryAttempts; attempt++ {
		tierCtx := ctx
		cancel := context.CancelFunc(func() {})
		if r.tierTimeout > 0 {
			tierCtx, cancel = context.WithTimeout(ctx, r.tierTimeout)
		}
		v, err := verifier.Verify(tierCtx, req, candidates)
		cancel()
		if err == nil {
			return v
		}
		last.Reason = err.Error()
		if errors.Is(err, ErrValidation) {
			r.logger.Debug("tier skipped",
				logging.String(logging.FieldTier, verifier.Tier()),
				logging.Error(err))
			return last
		}
		r.logger.Warn("tier attempt failed",
			logging.String(logging.FieldTier, verifier.Tier()),
			logging.Int("attempt", attempt),
			logging.Error(err))
		if attempt == r.retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return last
		case <-time.After(r.retryBackoff * time.Duration(attempt)):
		}
	}
	return last
}

func (r *Resolver) tierByName(name string) Verifier {
	for _, v := range r.verifiers {
		if v.Tier() == name {
			return v
		}
	}
	return nil
}

// sameDivisionRisk reports whether this meet already produced a row under
// this name in the same division, which makes a ranking listing hit
// ambiguous between the two rows.
func (r *Resolver) sameDivisionRisk(ctx context.Context, req Request) (bool, error) {
	if req.MeetID == "" {
		return false, nil
	}
	rows, err := r.repo.ResultsForMeetAndName(ctx, req.MeetID, req.Name)
	if err != nil {
		return false, fmt.Errorf("same-meet lookup: %w", err)
	}
	for _, row := range rows {
		if sameDivision(row.AgeCategory, req.AgeCategory) && sameDivision(row.WeightClass, req.WeightClass) {
			return true, nil
		}
	}
	return false, nil
}

// createLifter inserts a new lifter for the row. A stable id already claimed
// by a concurrent writer is dropped with a logged conflict rather than
// failing the row.
func (r *Resolver) createLifter(ctx context.Context, req Request, stableID string, attrs map[string]any, res *Resolution) (*store.Lifter, error) {
	lifter := &store.Lifter{
		NormalizedName:   req.Name,
		StableID:         stableID,
		MembershipNumber: req.MembershipNumber,
		Gender:           req.Gender,
	}
	if lifter.Gender == "" {
		if gender, ok := attrs["gender"].(string); ok {
			lifter.Gender = gender
		}
	}

	created, err := r.repo.CreateLifter(ctx, lifter)
	if errors.Is(err, store.ErrStableIDConflict) {
		res.Conflict = true
		r.logger.Warn("stable id claimed during create, inserting without it",
			logging.String(logging.FieldName, req.Name),
			logging.String("stable_id", stableID),
			logging.Error(ErrIntegrityConflict))
		lifter.StableID = ""
		created, err = r.repo.CreateLifter(ctx, lifter)
	}
	if err != nil {
		return nil, fmt.Errorf("create lifter: %w", err)
	}
	return created, nil
}

// adoptStableID compare-and-sets a stable id onto a candidate that lacks
// one. Losing the race is logged as a conflict, never retried blindly.
func (r *Resolver) adoptStableID(ctx context.Context, lifter *store.Lifter, stableID string, res *Resolution) {
	if stableID == "" || lifter.StableID != "" {
		return
	}
	if err := r.repo.AssignStableID(ctx, lifter.ID, stableID); err != nil {
		if errors.Is(err, store.ErrStableIDConflict) {
			res.Conflict = true
			r.logger.Warn("stable id adoption conflicted",
				logging.Int64(logging.FieldLifterID, lifter.ID),
				logging.String("stable_id", stableID),
				logging.Error(ErrIntegrityConflict))
			return
		}
		r.logger.Warn("stable id adoption failed",
			logging.Int64(logging.FieldLifterID, lifter.ID),
			logging.Error(err))
		return
	}
	lifter.StableID = stableID
}

// enrichLifter fills null-only lifter columns, best effort.
func (r *Resolver) enrichLifter(ctx context.Context, id int64, fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	if err := r.repo.UpdateLifterFields(ctx, id, fields); err != nil {
		r.logger.Warn("lifter enrichment failed",
			logging.Int64(logging.FieldLifterID, id),
			logging.Error(err))
	}
}

func lifterFieldsFromRequest(req Request) map[string]any {
	fields := map[string]any{}
	if req.MembershipNumber != "" {
		fields["membership_number"] = req.MembershipNumber
	}
	if req.Gender != "" {
		fields["gender"] = req.Gender
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// mergedLifterFields combines row-provided fields with harvested attributes.
// Row fields win; the store's null-only update keeps both from clobbering
// existing data.
func mergedLifterFields(req Request, attrs map[string]any) map[string]any {
	fields := lifterFieldsFromRequest(req)
	if fields == nil {
		fields = map[string]any{}
	}
	for key, value := range attrs {
		if _, ok := fields[key]; !ok {
			fields[key] = value
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func mergeFields(dst, src map[string]any) {
	for key, value := range src {
		if _, ok := dst[key]; !ok {
			dst[key] = value
		}
	}
}

func sameDivision(a, b string) bool {
	return strings.EqualFold(names.Collapse(a), names.Collapse(b))
}

func tierOutcome(tier string) Outcome {
	switch tier {
	case TierDivision:
		return OutcomeTier1
	case TierHistory:
		return OutcomeTier2
	default:
		return OutcomeName
	}
}
