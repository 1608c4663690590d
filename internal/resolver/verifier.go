package resolver

import (
	"context"
	"time"

	"liftdb/internal/store"
)

// Request carries one scraped result row through resolution. Name holds the
// normalized display name; the remaining fields are whatever context the
// scrape produced and may be empty.
type Request struct {
	Name             string
	MeetID           string
	MeetName         string
	Date             time.Time
	Gender           string
	AgeCategory      string
	WeightClass      string
	BodyweightKg     float64
	TotalKg          float64
	StableID         string
	MembershipNumber string
}

// Verification is the outcome of one tier's check. Verified with a non-zero
// MatchedID points at an existing candidate; Verified with MatchedID zero
// means the tier confirmed the row against the external source without an
// existing lifter to attach it to (the zero-candidate harvest path).
// Attributes and ResultFields carry harvested enrichment regardless of
// whether verification succeeded.
type Verification struct {
	Tier         string
	Verified     bool
	MatchedID    int64
	StableID     string
	Attributes   map[string]any
	ResultFields map[string]any
	Reason       string

	// MismatchedIDs lists candidates the tier affirmatively ruled out, as
	// opposed to ones it could not check. A ruled-out candidate is no longer
	// eligible for name-only acceptance.
	MismatchedIDs []int64
}

// Verifier is one tier of the verification hierarchy. Implementations return
// ErrValidation when the request lacks the context the tier needs, and wrap
// network failures in ErrTransient so the resolver can retry.
type Verifier interface {
	Tier() string
	Verify(ctx context.Context, req Request, candidates []store.Lifter) (Verification, error)
}

// Repository is the persistence surface the resolver needs. *store.Store
// satisfies it.
type Repository interface {
	CreateLifter(ctx context.Context, lifter *store.Lifter) (*store.Lifter, error)
	GetLifterByID(ctx context.Context, id int64) (*store.Lifter, error)
	GetByStableID(ctx context.Context, stableID string) ([]store.Lifter, error)
	GetByName(ctx context.Context, normalizedName string) ([]store.Lifter, error)
	UpdateLifterFields(ctx context.Context, id int64, fields map[string]any) error
	AssignStableID(ctx context.Context, id int64, stableID string) error
	ResultsForLifter(ctx context.Context, lifterID int64) ([]store.Result, error)
	ResultsForMeetAndName(ctx context.Context, meetID, normalizedName string) ([]store.Result, error)
	UpdateResultFields(ctx context.Context, id int64, fields map[string]any) error
}

var _ Repository = (*store.Store)(nil)
