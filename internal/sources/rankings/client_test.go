package rankings_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"liftdb/internal/sources/rankings"
)

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := rankings.New("", "agent", time.Second); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestQuerySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("division"); got != "Open Women's 64kg" {
			t.Fatalf("unexpected division parameter %q", got)
		}
		if got := r.URL.Query().Get("date_from"); got != "2024-02-25" {
			t.Fatalf("unexpected date_from %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"athletes":[{"name":"Jane Smith","member_id":"1234","club":"Iron Works","age":24,"rank":1}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := rankings.New(server.URL, "liftdb-test", time.Second)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	from := time.Date(2024, time.February, 25, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC)
	athletes, err := client.Query(context.Background(), "Open Women's 64kg", from, to)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(athletes) != 1 || athletes[0].StableID != "1234" {
		t.Fatalf("unexpected athletes: %#v", athletes)
	}
}

func TestQueryDegradedResultSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"athletes":[],"truncated":true}`))
	}))
	t.Cleanup(server.Close)

	client, err := rankings.New(server.URL, "", time.Second)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Query(context.Background(), "Open Men's 81kg", time.Now().Add(-24*time.Hour), time.Now())
	if !errors.Is(err, rankings.ErrResultSetDegraded) {
		t.Fatalf("expected ErrResultSetDegraded, got %v", err)
	}
}

func TestQueryOversizedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	t.Cleanup(server.Close)

	client, err := rankings.New(server.URL, "", time.Second)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.Query(context.Background(), "Open Men's 81kg", time.Now().Add(-24*time.Hour), time.Now())
	if !errors.Is(err, rankings.ErrResultSetDegraded) {
		t.Fatalf("expected ErrResultSetDegraded, got %v", err)
	}
}

func TestQueryRejectsInvalidRange(t *testing.T) {
	client, err := rankings.New("https://rankings.test", "", time.Second)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.Query(context.Background(), "Open Men's 81kg", time.Now(), time.Now().Add(-24*time.Hour))
	if err == nil {
		t.Fatal("expected error for inverted date range")
	}
}
