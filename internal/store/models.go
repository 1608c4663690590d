package store

import (
	"time"
)

// Lifter is a persisted athlete identity. NormalizedName is not unique: many
// lifters may share a name. StableID, when non-empty, is unique across the
// roster.
type Lifter struct {
	ID               int64
	NormalizedName   string
	StableID         string
	MembershipNumber string
	CountryCode      string
	CountryName      string
	BirthYear        int
	Gender           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasStableID reports whether the lifter carries an externally issued id.
func (l *Lifter) HasStableID() bool {
	return l != nil && l.StableID != ""
}

// Result is one competition performance, always attached to a lifter.
// Club, Placing, and CompetitionAge are enrichment fields: set at most once,
// never overwritten.
type Result struct {
	ID              int64
	LifterID        int64
	MeetID          string
	MeetName        string
	Date            time.Time
	AgeCategory     string
	WeightClass     string
	BodyweightKg    float64
	BestSnatchKg    float64
	BestCleanJerkKg float64
	TotalKg         float64
	Club            string
	Placing         int
	CompetitionAge  int
	OutcomeCode     string
	OutcomeReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReprocessRow is a result row whose store write failed during a batch. It is
// preserved verbatim so an operator can retry it later.
type ReprocessRow struct {
	ID           string
	BatchID      string
	RowJSON      string
	ErrorMessage string
	CreatedAt    time.Time
	RetriedAt    *time.Time
}

// Stats aggregates roster counts for diagnostic output.
type Stats struct {
	Lifters          int
	LiftersWithID    int
	Results          int
	ReprocessPending int
}

// DatabaseHealth captures diagnostic information about the database file.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	Error            string
}
