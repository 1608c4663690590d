package ingest

import (
	"time"

	"liftdb/internal/resolver"
)

// RowStatus classifies how a row left the batch.
type RowStatus string

const (
	// StatusResolved means the row landed on an existing lifter.
	StatusResolved RowStatus = "resolved"
	// StatusCreated means the row created a new lifter.
	StatusCreated RowStatus = "created"
	// StatusQueued means the row's write failed and it sits in the
	// reprocess queue.
	StatusQueued RowStatus = "queued"
)

// RowOutcome is the per-row line of a batch report.
type RowOutcome struct {
	Row        Row
	Status     RowStatus
	LifterID   int64
	LifterName string
	Outcome    resolver.Outcome
	Reason     string
	Conflict   bool
	Error      string
}

// Report summarizes one batch run.
type Report struct {
	BatchID    string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       []RowOutcome
	Resolved   int
	Created    int
	Queued     int
	Conflicts  int
}

// Duration is the wall-clock batch time.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) add(outcome RowOutcome) {
	r.Rows = append(r.Rows, outcome)
	switch outcome.Status {
	case StatusResolved:
		r.Resolved++
	case StatusCreated:
		r.Created++
	case StatusQueued:
		r.Queued++
	}
	if outcome.Conflict {
		r.Conflicts++
	}
}
