package resolver

import "liftdb/internal/store"

// Outcome is the audit code recorded with every resolved result row. The
// codes answer "why did this row land on this lifter" months later, without
// replaying the batch.
type Outcome string

const (
	// OutcomeStableID means the row's stable id matched an existing lifter.
	OutcomeStableID Outcome = "resolved-by-stable-id"

	// OutcomeTier1 means division-ranking verification confirmed a candidate.
	OutcomeTier1 Outcome = "resolved-by-tier1"

	// OutcomeTier2 means member-history verification confirmed a candidate.
	OutcomeTier2 Outcome = "resolved-by-tier2"

	// OutcomeName means a name match alone was accepted: a single candidate
	// with no contradicting signal, or the unique id-less candidate among
	// several.
	OutcomeName Outcome = "resolved-by-name"

	// OutcomeCreated means no existing lifter could be confirmed and a new
	// identity was created.
	OutcomeCreated Outcome = "created-new"

	// OutcomeExtremeSplit means the extreme-difference guard forced a new
	// identity despite a same-name candidate.
	OutcomeExtremeSplit Outcome = "created-new-extreme-split"
)

// Resolution is the final decision for one request.
type Resolution struct {
	Lifter       *store.Lifter
	Outcome      Outcome
	Reason       string
	Created      bool
	Conflict     bool
	ResultFields map[string]any
}
