package prayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ezan-player-backend/config"
)

// Fetch failure kinds. Callers classify with errors.Is; on any of them the
// previous day's schedule must be kept.
var (
	ErrBadResponse   = errors.New("unexpected response from prayer times API")
	ErrMissingEvent  = errors.New("prayer time missing from API response")
	ErrMalformedTime = errors.New("malformed prayer time")
)

// Times maps each of the five events to its time of day for one calendar day.
type Times map[Event]Clock

// Client fetches daily prayer times from the configured API.
type Client struct {
	cfg    *config.SourceConfig
	client *http.Client
	loc    *time.Location
}

// NewClient creates a prayer times client for the configured location.
func NewClient(cfg *config.SourceConfig) (*Client, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		loc:    loc,
	}, nil
}

// Location returns the local calendar the client fetches times for.
func (c *Client) Location() *time.Location {
	return c.loc
}

// FetchToday fetches today's prayer times. The result is all-or-nothing: a
// missing or malformed time for any event invalidates the entire fetch.
func (c *Client) FetchToday(ctx context.Context) (Times, error) {
	reqURL, err := c.buildURL(time.Now().In(c.loc))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrBadResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if apiResp.Code != http.StatusOK {
		return nil, fmt.Errorf("%w: application code %d", ErrBadResponse, apiResp.Code)
	}

	return parseTimings(apiResp.Data.Timings)
}

// parseTimings validates the raw timings object into a complete Times map.
func parseTimings(timings map[string]string) (Times, error) {
	times := make(Times, len(timingKeys))
	for _, event := range Events() {
		raw, ok := timings[timingKeys[event]]
		if !ok || raw == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingEvent, event)
		}
		clock, err := ParseClock(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", event, err)
		}
		times[event] = clock
	}
	return times, nil
}

func (c *Client) buildURL(today time.Time) (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid source url %q: %w", c.cfg.URL, err)
	}
	q := u.Query()
	q.Set("city", c.cfg.City)
	q.Set("country", c.cfg.Country)
	q.Set("method", c.cfg.Method)
	q.Set("date", today.Format("02-01-2006"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
