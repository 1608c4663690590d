package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

const lifterColumns = "id, normalized_name, stable_id, membership_number, country_code, country_name, birth_year, gender, created_at, updated_at"

// lifterEnrichmentColumns are the columns UpdateLifterFields may fill. Each
// update uses COALESCE so a populated column is never overwritten.
var lifterEnrichmentColumns = map[string]struct{}{
	"membership_number": {},
	"country_code":      {},
	"country_name":      {},
	"birth_year":        {},
	"gender":            {},
}

// CreateLifter inserts a new lifter. A non-empty StableID that is already
// owned by another lifter yields ErrStableIDConflict.
func (s *Store) CreateLifter(ctx context.Context, lifter *Lifter) (*Lifter, error) {
	if lifter == nil {
		return nil, errors.New("lifter is nil")
	}
	if lifter.NormalizedName == "" {
		return nil, errors.New("normalized name required")
	}
	now := timestamp(time.Now())

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO lifters (
            normalized_name, stable_id, membership_number, country_code,
            country_name, birth_year, gender, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lifter.NormalizedName,
		nullableString(lifter.StableID),
		nullableString(lifter.MembershipNumber),
		nullableString(lifter.CountryCode),
		nullableString(lifter.CountryName),
		nullableInt(lifter.BirthYear),
		nullableString(lifter.Gender),
		now,
		now,
	)
	if err != nil {
		if isStableIDViolation(err) {
			return nil, fmt.Errorf("create lifter %q: %w", lifter.NormalizedName, ErrStableIDConflict)
		}
		return nil, fmt.Errorf("insert lifter: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetLifterByID(ctx, id)
}

// GetLifterByID fetches a lifter by identifier.
func (s *Store) GetLifterByID(ctx context.Context, id int64) (*Lifter, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+lifterColumns+` FROM lifters WHERE id = ?`, id)
	lifter, err := scanLifter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lifter: %w", err)
	}
	return lifter, nil
}

// GetByStableID returns every lifter holding the given stable id. With the
// uniqueness index in place this is zero or one row, but databases imported
// from the previous system can carry historical duplicates, so callers
// receive a slice and must handle the conflict case themselves.
func (s *Store) GetByStableID(ctx context.Context, stableID string) ([]Lifter, error) {
	if stableID == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+lifterColumns+` FROM lifters WHERE stable_id = ? ORDER BY id`, stableID)
	if err != nil {
		return nil, fmt.Errorf("query by stable id: %w", err)
	}
	defer rows.Close()
	return collectLifters(rows)
}

// GetByName returns lifters whose normalized name matches case-insensitively,
// in creation order.
func (s *Store) GetByName(ctx context.Context, normalizedName string) ([]Lifter, error) {
	if normalizedName == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+lifterColumns+` FROM lifters WHERE normalized_name = ? COLLATE NOCASE ORDER BY id`,
		normalizedName,
	)
	if err != nil {
		return nil, fmt.Errorf("query by name: %w", err)
	}
	defer rows.Close()
	return collectLifters(rows)
}

// ListLifters returns the roster ordered by name then id. A limit of zero or
// less returns everything.
func (s *Store) ListLifters(ctx context.Context, limit int) ([]Lifter, error) {
	query := `SELECT ` + lifterColumns + ` FROM lifters ORDER BY normalized_name COLLATE NOCASE, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lifters: %w", err)
	}
	defer rows.Close()
	return collectLifters(rows)
}

// UpdateLifterFields fills only currently-NULL columns on a lifter from the
// provided map. Keys outside the enrichment column set are rejected. Applying
// the same map twice yields the same state as applying it once.
func (s *Store) UpdateLifterFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	columns := make([]string, 0, len(fields))
	for column := range fields {
		if _, ok := lifterEnrichmentColumns[column]; !ok {
			return fmt.Errorf("column %q is not enrichable", column)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	query := `UPDATE lifters SET `
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
		return fmt.Errorf("update lifter fields: %w", err)
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

// AssignStableID sets a lifter's stable id if and only if it is currently
// unset (compare-and-set). When the id is already owned, by this lifter or
// another, the call reports ErrStableIDConflict with no write.
func (s *Store) AssignStableID(ctx context.Context, id int64, stableID string) error {
	if stableID == "" {
		return errors.New("stable id required")
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE lifters SET stable_id = ?, updated_at = ? WHERE id = ? AND stable_id IS NULL`,
		stableID,
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		if isStableIDViolation(err) {
			return ErrStableIDConflict
		}
		return fmt.Errorf("assign stable id: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	current, err := s.GetLifterByID(ctx, id)
	if err != nil {
		return err
	}
	if current.StableID == stableID {
		return nil
	}
	return ErrStableIDConflict
}

func normalizeFieldValue(value any) any {
	switch v := value.(type) {
	case string:
		return nullableString(v)
	case int:
		return nullableInt(v)
	case int64:
		return nullableInt(int(v))
	case float64:
		return nullableFloat(v)
	default:
		return value
	}
}

func collectLifters(rows *sql.Rows) ([]Lifter, error) {
	var lifters []Lifter
	for rows.Next() {
		lifter, err := scanLifter(rows)
		if err != nil {
			return nil, err
		}
		lifters = append(lifters, *lifter)
	}
	return lifters, rows.Err()
}

func scanLifter(scanner interface{ Scan(dest ...any) error }) (*Lifter, error) {
	var (
		id         int64
		name       string
		stableID   sql.NullString
		membership sql.NullString
		ccode      sql.NullString
		cname      sql.NullString
		birthYear  sql.NullInt64
		gender     sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &stableID, &membership, &ccode, &cname, &birthYear, &gender, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	lifter := &Lifter{
		ID:               id,
		NormalizedName:   name,
		StableID:         stableID.String,
		MembershipNumber: membership.String,
		CountryCode:      ccode.String,
		CountryName:      cname.String,
		BirthYear:        int(birthYear.Int64),
		Gender:           gender.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		lifter.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		lifter.UpdatedAt = updated
	}
	return lifter, nil
}
