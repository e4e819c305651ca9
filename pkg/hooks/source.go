package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CountsAPISource feeds watchers from the notify API's counts endpoint,
// GET /api/v1/counts/{feature}. This is the source a polling client runs
// when the selected delivery strategy falls back to polling.
type CountsAPISource struct {
	baseURL string
	token   func() string
	client  *http.Client
}

// NewCountsAPISource builds a source against the given API base URL. The
// token func is called per request so callers can rotate credentials.
func NewCountsAPISource(baseURL string, token func() string, client *http.Client) (*CountsAPISource, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if token == nil {
		return nil, fmt.Errorf("token func is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CountsAPISource{baseURL: trimmed, token: token, client: client}, nil
}

type countsEnvelope struct {
	Data struct {
		Count int `json:"count"`
	} `json:"data"`
}

// Count fetches the caller's unread count for one feature.
func (s *CountsAPISource) Count(ctx context.Context, feature Feature) (int, error) {
	endpoint := fmt.Sprintf("%s/api/v1/counts/%s", s.baseURL, string(feature))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("building counts request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token())

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching %s count: %w", feature, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("counts endpoint returned %d for %s", resp.StatusCode, feature)
	}

	var envelope countsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return 0, fmt.Errorf("decoding counts response: %w", err)
	}
	return envelope.Data.Count, nil
}
