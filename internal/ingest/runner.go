package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"liftdb/internal/logging"
	"liftdb/internal/names"
	"liftdb/internal/notifications"
	"liftdb/internal/resolver"
	"liftdb/internal/store"
)

// BatchStore is the persistence surface the runner writes through.
// *store.Store satisfies it.
type BatchStore interface {
	CreateResult(ctx context.Context, result *store.Result) (*store.Result, error)
	EnqueueReprocess(ctx context.Context, row *store.ReprocessRow) error
	GetReprocess(ctx context.Context, id string) (*store.ReprocessRow, error)
	MarkReprocessRetried(ctx context.Context, id string) error
}

var _ BatchStore = (*store.Store)(nil)

// Runner executes result-feed batches.
type Runner struct {
	store    BatchStore
	resolver *resolver.Resolver
	notifier notifications.Service
	logger   *slog.Logger
	dryRun   bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger.With(logging.String(logging.FieldComponent, "ingest"))
		}
	}
}

// WithNotifier sets the batch notification service.
func WithNotifier(notifier notifications.Service) RunnerOption {
	return func(r *Runner) {
		if notifier != nil {
			r.notifier = notifier
		}
	}
}

// WithDryRun previews resolution without writing results or queue entries.
// The resolver passed to NewRunner must already wrap its repository with
// NewReadOnlyRepository for the preview to leave lifters untouched too.
func WithDryRun(dryRun bool) RunnerOption {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// NewRunner builds a batch runner.
func NewRunner(batchStore BatchStore, res *resolver.Resolver, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:    batchStore,
		resolver: res,
		notifier: notifications.Noop(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run resolves and stores every row of a feed. Rows are ordered by
// (normalized name, date) so repeated appearances of one athlete are handled
// oldest-first, letting earlier resolutions seed later ones. Rows whose store
// write fails are queued for reprocessing and never dropped.
func (r *Runner) Run(ctx context.Context, rows []Row) (*Report, error) {
	batchID := uuid.NewString()
	ctx = logging.WithBatchID(ctx, batchID)
	logger := logging.WithContext(ctx, r.logger)

	ordered := make([]Row, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		ni, nj := names.Normalize(ordered[i].Name), names.Normalize(ordered[j].Name)
		if ni != nj {
			return ni < nj
		}
		return ordered[i].Date < ordered[j].Date
	})

	report := &Report{BatchID: batchID, DryRun: r.dryRun, StartedAt: time.Now()}
	logger.Info("batch started",
		logging.Int("rows", len(ordered)),
		logging.Bool("dry_run", r.dryRun))
	if err := r.notifier.NotifyBatchStarted(ctx, batchID, len(ordered)); err != nil {
		logger.Warn("batch start notification failed", logging.Error(err))
	}

	for _, row := range ordered {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now()
			return report, fmt.Errorf("batch interrupted: %w", err)
		}
		report.add(r.processRow(ctx, batchID, row))
	}

	report.FinishedAt = time.Now()
	logger.Info("batch completed",
		logging.Int("resolved", report.Resolved),
		logging.Int("created", report.Created),
		logging.Int("queued", report.Queued),
		logging.Int("conflicts", report.Conflicts),
		logging.Duration("duration", report.Duration()))
	if err := r.notifier.NotifyBatchCompleted(ctx, batchID, report.Resolved, report.Created, report.Queued, report.Duration()); err != nil {
		logger.Warn("batch completion notification failed", logging.Error(err))
	}
	return report, nil
}

// Retry reruns a single queued row. The row stays in the queue until the
// retry fully succeeds.
func (r *Runner) Retry(ctx context.Context, id string) (*RowOutcome, error) {
	queued, err := r.store.GetReprocess(ctx, id)
	if err != nil {
		return nil, err
	}
	if queued.RetriedAt != nil {
		return nil, fmt.Errorf("reprocess row %s was already retried", id)
	}

	var row Row
	if err := json.Unmarshal([]byte(queued.RowJSON), &row); err != nil {
		return nil, fmt.Errorf("decode queued row %s: %w", id, err)
	}

	outcome := r.processRow(ctx, queued.BatchID, row)
	if outcome.Status == StatusQueued {
		return &outcome, fmt.Errorf("retry of row %s failed again: %s", id, outcome.Error)
	}
	if err := r.store.MarkReprocessRetried(ctx, id); err != nil {
		return &outcome, fmt.Errorf("mark reprocess retried: %w", err)
	}
	return &outcome, nil
}

func (r *Runner) processRow(ctx context.Context, batchID string, row Row) RowOutcome {
	logger := logging.WithContext(ctx, r.logger)

	resolution, err := r.resolver.Resolve(ctx, rowRequest(row))
	if err != nil {
		return r.queueRow(ctx, batchID, row, err)
	}

	outcome := RowOutcome{
		Row:        row,
		LifterID:   resolution.Lifter.ID,
		LifterName: resolution.Lifter.NormalizedName,
		Outcome:    resolution.Outcome,
		Reason:     resolution.Reason,
		Conflict:   resolution.Conflict,
		Status:     StatusResolved,
	}
	if resolution.Created {
		outcome.Status = StatusCreated
	}
	if resolution.Conflict {
		if err := r.notifier.NotifyIntegrityConflict(ctx, resolution.Lifter.NormalizedName, resolution.Reason); err != nil {
			logger.Warn("conflict notification failed", logging.Error(err))
		}
	}

	if !r.dryRun {
		if _, err := r.store.CreateResult(ctx, buildResult(row, resolution)); err != nil {
			return r.queueRow(ctx, batchID, row, err)
		}
	}
	return outcome
}

// queueRow preserves a failed row in the reprocess queue. A failure to
// enqueue is the one place data could be lost, so it is escalated through
// the error notifier as well as the log.
func (r *Runner) queueRow(ctx context.Context, batchID string, row Row, cause error) RowOutcome {
	logger := logging.WithContext(ctx, r.logger)
	outcome := RowOutcome{Row: row, Status: StatusQueued, Error: cause.Error()}

	if r.dryRun {
		return outcome
	}

	encoded, err := json.Marshal(row)
	if err != nil {
		logger.Error("row could not be encoded for reprocessing", logging.Error(err))
		return outcome
	}
	entry := &store.ReprocessRow{
		ID:           uuid.NewString(),
		BatchID:      batchID,
		RowJSON:      string(encoded),
		ErrorMessage: cause.Error(),
	}
	if err := r.store.EnqueueReprocess(ctx, entry); err != nil {
		logger.Error("row could not be queued for reprocessing",
			logging.String(logging.FieldName, row.Name),
			logging.Error(err))
		if notifyErr := r.notifier.NotifyError(ctx, err, "reprocess enqueue"); notifyErr != nil {
			logger.Warn("error notification failed", logging.Error(notifyErr))
		}
		return outcome
	}

	logger.Warn("row queued for reprocessing",
		logging.String(logging.FieldName, row.Name),
		logging.String("reprocess_id", entry.ID),
		logging.Error(cause))
	return outcome
}

func rowRequest(row Row) resolver.Request {
	return resolver.Request{
		Name:             row.Name,
		MeetID:           row.MeetID,
		MeetName:         row.MeetName,
		Date:             row.ParsedDate(),
		Gender:           row.Gender,
		AgeCategory:      row.AgeCategory,
		WeightClass:      row.WeightClass,
		BodyweightKg:     row.BodyweightKg,
		TotalKg:          row.TotalKg,
		StableID:         row.StableID,
		MembershipNumber: row.MembershipNumber,
	}
}

func buildResult(row Row, resolution *resolver.Resolution) *store.Result {
	result := &store.Result{
		LifterID:        resolution.Lifter.ID,
		MeetID:          row.MeetID,
		MeetName:        row.MeetName,
		Date:            row.ParsedDate(),
		AgeCategory:     row.AgeCategory,
		WeightClass:     row.WeightClass,
		BodyweightKg:    row.BodyweightKg,
		BestSnatchKg:    row.BestSnatchKg,
		BestCleanJerkKg: row.BestCleanJerkKg,
		TotalKg:         row.TotalKg,
		OutcomeCode:     string(resolution.Outcome),
		OutcomeReason:   resolution.Reason,
	}
	if resolution.Conflict {
		result.OutcomeReason = "integrity-conflict: " + resolution.Reason
	}
	if club, ok := resolution.ResultFields["club"].(string); ok {
		result.Club = club
	}
	if placing, ok := resolution.ResultFields["placing"].(int); ok {
		result.Placing = placing
	}
	if age, ok := resolution.ResultFields["competition_age"].(int); ok {
		result.CompetitionAge = age
	}
	return result
}
