package rankings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrResultSetDegraded indicates the source truncated or refused the listing
// for the requested window. The window must be narrowed and retried; the
// athletes returned alongside it (if any) are incomplete.
var ErrResultSetDegraded = errors.New("result set degraded")

// AthleteSummary is one row of a division ranking listing.
type AthleteSummary struct {
	Name     string `json:"name"`
	StableID string `json:"member_id"`
	Club     string `json:"club"`
	Age      int    `json:"age"`
	Rank     int    `json:"rank"`
	Gender   string `json:"gender"`
}

type queryResponse struct {
	Athletes  []AthleteSummary `json:"athletes"`
	Truncated bool             `json:"truncated"`
}

// Source defines the ranking query operation used by the resolver.
type Source interface {
	Query(ctx context.Context, divisionCode string, from, to time.Time) ([]AthleteSummary, error)
}

// Client provides access to the division ranking API.
type Client struct {
	baseURL    string
	userAgent  string
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

// New creates a ranking source client.
func New(baseURL, userAgent string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("rankings base url required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  strings.TrimSpace(userAgent),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Query fetches the ranking listing for a division code over a date range.
// A truncated or oversized listing returns ErrResultSetDegraded.
func (c *Client) Query(ctx context.Context, divisionCode string, from, to time.Time) ([]AthleteSummary, error) {
	divisionCode = strings.TrimSpace(divisionCode)
	if divisionCode == "" {
		return nil, errors.New("division code required")
	}
	if from.After(to) {
		return nil, fmt.Errorf("invalid date range %s..%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	params := url.Values{}
	params.Set("division", divisionCode)
	params.Set("date_from", from.Format("2006-01-02"))
	params.Set("date_to", to.Format("2006-01-02"))

	endpoint := c.baseURL + "/rankings?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build rankings request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rankings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return nil, ErrResultSetDegraded
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rankings request: unexpected status %d", resp.StatusCode)
	}

	var payload queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rankings response: %w", err)
	}
	if payload.Truncated {
		return payload.Athletes, ErrResultSetDegraded
	}
	return payload.Athletes, nil
}
