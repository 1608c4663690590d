package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

const resultColumns = "id, lifter_id, meet_id, meet_name, date, age_category, weight_class, bodyweight_kg, best_snatch_kg, best_clean_jerk_kg, total_kg, club, placing, competition_age, outcome_code, outcome_reason, created_at, updated_at"

var resultEnrichmentColumns = map[string]struct{}{
	"club":            {},
	"placing":         {},
	"competition_age": {},
}

// CreateResult inserts a competition performance for an already-resolved
// lifter.
func (s *Store) CreateResult(ctx context.Context, result *Result) (*Result, error) {
	if result == nil {
		return nil, errors.New("result is nil")
	}
	if result.LifterID == 0 {
		return nil, errors.New("lifter id required")
	}
	if result.MeetID == "" {
		return nil, errors.New("meet id required")
	}
	now := timestamp(time.Now())

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO results (
            lifter_id, meet_id, meet_name, date, age_category, weight_class,
            bodyweight_kg, best_snatch_kg, best_clean_jerk_kg, total_kg,
            club, placing, competition_age, outcome_code, outcome_reason,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.LifterID,
		result.MeetID,
		nullableString(result.MeetName),
		dateOnly(result.Date),
		nullableString(result.AgeCategory),
		nullableString(result.WeightClass),
		nullableFloat(result.BodyweightKg),
		nullableFloat(result.BestSnatchKg),
		nullableFloat(result.BestCleanJerkKg),
		nullableFloat(result.TotalKg),
		nullableString(result.Club),
		nullableInt(result.Placing),
		nullableInt(result.CompetitionAge),
		nullableString(result.OutcomeCode),
		nullableString(result.OutcomeReason),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetResultByID(ctx, id)
}

// GetResultByID fetches a result by identifier.
func (s *Store) GetResultByID(ctx context.Context, id int64) (*Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE id = ?`, id)
	result, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

// ResultsForLifter returns a lifter's results ordered by date.
func (s *Store) ResultsForLifter(ctx context.Context, lifterID int64) ([]Result, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+resultColumns+` FROM results WHERE lifter_id = ? ORDER BY date, id`,
		lifterID,
	)
	if err != nil {
		return nil, fmt.Errorf("query results for lifter: %w", err)
	}
	defer rows.Close()
	return collectResults(rows)
}

// ResultsForMeetAndName returns results in a meet whose lifter carries the
// given normalized name. The resolver uses this to detect same-meet
// same-name rows that require disambiguation.
func (s *Store) ResultsForMeetAndName(ctx context.Context, meetID, normalizedName string) ([]Result, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT r.id, r.lifter_id, r.meet_id, r.meet_name, r.date, r.age_category, r.weight_class,
                r.bodyweight_kg, r.best_snatch_kg, r.best_clean_jerk_kg, r.total_kg,
                r.club, r.placing, r.competition_age, r.outcome_code, r.outcome_reason,
                r.created_at, r.updated_at
         FROM results r
         JOIN lifters l ON l.id = r.lifter_id
         WHERE r.meet_id = ? AND l.normalized_name = ? COLLATE NOCASE
         ORDER BY r.id`,
		meetID,
		normalizedName,
	)
	if err != nil {
		return nil, fmt.Errorf("query results for meet and name: %w", err)
	}
	defer rows.Close()
	return collectResults(rows)
}

// UpdateResultFields fills only currently-NULL enrichment columns on a
// result. Idempotent: re-applying the same map is a no-op.
func (s *Store) UpdateResultFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	columns := make([]string, 0, len(fields))
	for column := range fields {
		if _, ok := resultEnrichmentColumns[column]; !ok {
			return fmt.Errorf("column %q is not enrichable", column)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	query := `UPDATE results SET `
	args := make([]any, 0, len(columns)+2)
	for i, column := range columns {
		if i > 0 {
			query += ", "
		}
		query += column + ` = COALESCE(` + column + `, ?)`
		args = append(args, normalizeFieldValue(fields[column]))
	}
	query += `, updated_at = ? WHERE id = ?`
	args = append(args, timestamp(time.Now()), id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update result fields: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func collectResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, rows.Err()
}

func scanResult(scanner interface{ Scan(dest ...any) error }) (*Result, error) {
	var (
		id             int64
		lifterID       int64
		meetID         string
		meetName       sql.NullString
		dateRaw        string
		ageCategory    sql.NullString
		weightClass    sql.NullString
		bodyweight     sql.NullFloat64
		bestSnatch     sql.NullFloat64
		bestCleanJerk  sql.NullFloat64
		total          sql.NullFloat64
		club           sql.NullString
		placing        sql.NullInt64
		competitionAge sql.NullInt64
		outcomeCode    sql.NullString
		outcomeReason  sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)
	if err := scanner.Scan(
		&id, &lifterID, &meetID, &meetName, &dateRaw, &ageCategory, &weightClass,
		&bodyweight, &bestSnatch, &bestCleanJerk, &total,
		&club, &placing, &competitionAge, &outcomeCode, &outcomeReason,
		&createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	result := &Result{
		ID:              id,
		LifterID:        lifterID,
		MeetID:          meetID,
		MeetName:        meetName.String,
		AgeCategory:     ageCategory.String,
		WeightClass:     weightClass.String,
		BodyweightKg:    bodyweight.Float64,
		BestSnatchKg:    bestSnatch.Float64,
		BestCleanJerkKg: bestCleanJerk.Float64,
		TotalKg:         total.Float64,
		Club:            club.String,
		Placing:         int(placing.Int64),
		CompetitionAge:  int(competitionAge.Int64),
		OutcomeCode:     outcomeCode.String,
		OutcomeReason:   outcomeReason.String,
	}
	if date, err := parseTimeString(dateRaw); err == nil {
		result.Date = date
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		result.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		result.UpdatedAt = updated
	}
	return result, nil
}
