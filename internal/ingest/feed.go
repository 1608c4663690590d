package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Row is one parsed feed record.
type Row struct {
	Name             string  `json:"name"`
	MeetID           string  `json:"meet_id"`
	MeetName         string  `json:"meet_name"`
	Date             string  `json:"date"`
	Gender           string  `json:"gender"`
	AgeCategory      string  `json:"age_category"`
	WeightClass      string  `json:"weight_class"`
	BodyweightKg     float64 `json:"bodyweight_kg"`
	BestSnatchKg     float64 `json:"best_snatch_kg"`
	BestCleanJerkKg  float64 `json:"best_clean_jerk_kg"`
	TotalKg          float64 `json:"total_kg"`
	StableID         string  `json:"stable_id"`
	MembershipNumber string  `json:"membership_number"`
	Line             int     `json:"line"`
}

// ParsedDate returns the row's meet date, zero when absent or malformed.
func (r Row) ParsedDate() time.Time {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
	if err != nil {
		return time.Time{}
	}
	return parsed
}

var feedColumns = map[string]func(*Row, string){
	"name":               func(r *Row, v string) { r.Name = v },
	"meet_id":            func(r *Row, v string) { r.MeetID = v },
	"meet_name":          func(r *Row, v string) { r.MeetName = v },
	"date":               func(r *Row, v string) { r.Date = v },
	"gender":             func(r *Row, v string) { r.Gender = v },
	"age_category":       func(r *Row, v string) { r.AgeCategory = v },
	"weight_class":       func(r *Row, v string) { r.WeightClass = v },
	"bodyweight_kg":      func(r *Row, v string) { r.BodyweightKg = parseKg(v) },
	"best_snatch_kg":     func(r *Row, v string) { r.BestSnatchKg = parseKg(v) },
	"best_clean_jerk_kg": func(r *Row, v string) { r.BestCleanJerkKg = parseKg(v) },
	"total_kg":           func(r *Row, v string) { r.TotalKg = parseKg(v) },
	"stable_id":          func(r *Row, v string) { r.StableID = v },
	"membership_number":  func(r *Row, v string) { r.MembershipNumber = v },
}

// ReadFeed parses a CSV result feed. The first record is a header; columns
// are matched by name so feeds may carry extra columns or reorder them. The
// name and date columns are required.
func ReadFeed(reader io.Reader) ([]Row, error) {
	cr := csv.NewReader(reader)
	cr.TrimLeadingSpace = true
	// Feeds often pad or truncate trailing columns; width is per record.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("feed is empty")
		}
		return nil, fmt.Errorf("read feed header: %w", err)
	}

	setters := make([]func(*Row, string), len(header))
	seen := map[string]bool{}
	for i, column := range header {
		key := strings.ToLower(strings.TrimSpace(column))
		if setter, ok := feedColumns[key]; ok {
			setters[i] = setter
			seen[key] = true
		}
	}
	for _, required := range []string{"name", "date"} {
		if !seen[required] {
			return nil, fmt.Errorf("feed header missing %q column", required)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read feed line %d: %w", line, err)
		}
		row := Row{Line: line}
		for i, value := range record {
			if i < len(setters) && setters[i] != nil {
				setters[i](&row, strings.TrimSpace(value))
			}
		}
		if row.Name == "" {
			return nil, fmt.Errorf("feed line %d: name is empty", line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseKg(value string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return parsed
}
