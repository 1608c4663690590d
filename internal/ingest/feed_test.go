package ingest_test

import (
	"strings"
	"testing"

	"liftdb/internal/ingest"
)

func TestReadFeedMapsColumnsByHeader(t *testing.T) {
	feed := strings.Join([]string{
		"meet_id,name,date,weight_class,age_category,bodyweight_kg,total_kg,stable_id,notes",
		"m1,Jane Smith,2024-03-02,64kg,Senior,63.4,182,1234,ignored",
		"m1,Lee Park,2024-03-02,81kg,Senior,80.1,,",
	}, "\n")

	rows, err := ingest.ReadFeed(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("ReadFeed returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Name != "Jane Smith" || first.MeetID != "m1" || first.StableID != "1234" {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.BodyweightKg != 63.4 || first.TotalKg != 182 {
		t.Fatalf("unexpected weights: %+v", first)
	}
	if first.ParsedDate().Format("2006-01-02") != "2024-03-02" {
		t.Fatalf("unexpected date: %v", first.ParsedDate())
	}
	if first.Line != 2 || rows[1].Line != 3 {
		t.Fatalf("unexpected line numbers: %d, %d", first.Line, rows[1].Line)
	}
	if rows[1].TotalKg != 0 {
		t.Fatalf("empty total must parse to zero, got %v", rows[1].TotalKg)
	}
}

func TestReadFeedRequiresNameAndDate(t *testing.T) {
	_, err := ingest.ReadFeed(strings.NewReader("meet_id,name\nm1,Jane Smith"))
	if err == nil || !strings.Contains(err.Error(), `"date"`) {
		t.Fatalf("expected missing date column error, got %v", err)
	}
}

func TestReadFeedRejectsEmptyName(t *testing.T) {
	_, err := ingest.ReadFeed(strings.NewReader("name,date\n,2024-03-02"))
	if err == nil || !strings.Contains(err.Error(), "name is empty") {
		t.Fatalf("expected empty name error, got %v", err)
	}
}

func TestReadFeedEmptyInput(t *testing.T) {
	if _, err := ingest.ReadFeed(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty feed")
	}
}
