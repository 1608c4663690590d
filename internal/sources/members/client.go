package members

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HistoryEntry is one meet participation record from an athlete's history.
type HistoryEntry struct {
	MeetName     string
	Date         time.Time
	BodyweightKg float64
	TotalKg      float64
}

type historyPage struct {
	Entries []struct {
		MeetName     string  `json:"meet_name"`
		Date         string  `json:"date"`
		BodyweightKg float64 `json:"bodyweight_kg"`
		TotalKg      float64 `json:"total_kg"`
	} `json:"entries"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

type searchResponse struct {
	Members []struct {
		Name     string `json:"name"`
		MemberID string `json:"member_id"`
	} `json:"members"`
}

// Source defines the member history operations used by the resolver.
type Source interface {
	GetHistory(ctx context.Context, stableID string) ([]HistoryEntry, error)
	SearchByName(ctx context.Context, name string) (string, error)
}

// Client provides access to the member history API.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
}

var _ Source = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a member history client.
func New(baseURL string, pageSize int, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("members base url required")
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// GetHistory fetches an athlete's complete participation history, following
// pagination until the final page.
func (c *Client) GetHistory(ctx context.Context, stableID string) ([]HistoryEntry, error) {
	stableID = strings.TrimSpace(stableID)
	if stableID == "" {
		return nil, errors.New("stable id required")
	}

	var history []HistoryEntry
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("page_size", strconv.Itoa(c.pageSize))
		endpoint := c.baseURL + "/" + url.PathEscape(stableID) + "/history?" + params.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build history request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("history request page %d: %w", page, err)
		}

		var payload historyPage
		decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("history request page %d: unexpected status %d", page, resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("decode history page %d: %w", page, decodeErr)
		}

		for _, entry := range payload.Entries {
			parsed := HistoryEntry{
				MeetName:     entry.MeetName,
				BodyweightKg: entry.BodyweightKg,
				TotalKg:      entry.TotalKg,
			}
			if date, err := time.Parse("2006-01-02", entry.Date); err == nil {
				parsed.Date = date
			}
			history = append(history, parsed)
		}

		if payload.TotalPages == 0 || page >= payload.TotalPages || len(payload.Entries) == 0 {
			return history, nil
		}
	}
}

// SearchByName looks up a stable id for an exact athlete name. An empty
// string means no unambiguous match: zero hits and multiple hits are both
// treated as not found, because a guessed id could attach one athlete's
// history to another.
func (c *Client) SearchByName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("name required")
	}

	params := url.Values{}
	params.Set("name", name)
	endpoint := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("member search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("member search: unexpected status %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	var matched string
	for _, member := range payload.Members {
		if !strings.EqualFold(strings.TrimSpace(member.Name), name) {
			continue
		}
		if matched != "" && matched != member.MemberID {
			return "", nil
		}
		matched = member.MemberID
	}
	return matched, nil
}
