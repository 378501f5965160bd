package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

// HTTPConfig configures the HTTP analytics client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HTTPClient reads call analytics from a remote REST service.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient builds a client for the call analytics API.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("analytics: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

var _ Client = (*HTTPClient)(nil)

// FetchCallVolume calls the weekly volume endpoint.
func (c *HTTPClient) FetchCallVolume(ctx context.Context, query dashboard.CallVolumeQuery) ([]dashboard.CallVolumeDay, error) {
	var resp volumeResponse
	if err := c.do(ctx, http.MethodPost, "/calls/volume", query, &resp); err != nil {
		return nil, err
	}
	return resp.Days, nil
}

// FetchFriction calls the friction endpoint.
func (c *HTTPClient) FetchFriction(ctx context.Context, query dashboard.FrictionQuery) ([]dashboard.FrictionPoint, error) {
	var resp frictionResponse
	if err := c.do(ctx, http.MethodPost, "/calls/friction", query, &resp); err != nil {
		return nil, err
	}
	return resp.Points, nil
}

// FetchSentiment calls the sentiment endpoint and maps it to donut segments.
func (c *HTTPClient) FetchSentiment(ctx context.Context, query dashboard.SentimentQuery) ([]dashboard.SegmentInput, error) {
	var resp sentimentResponse
	if err := c.do(ctx, http.MethodPost, "/calls/sentiment", query, &resp); err != nil {
		return nil, err
	}
	return resp.segments(), nil
}

// FetchCallTrend calls the trend endpoint.
func (c *HTTPClient) FetchCallTrend(ctx context.Context, query dashboard.CallTrendQuery) ([]dashboard.TrendPoint, error) {
	var resp trendResponse
	if err := c.do(ctx, http.MethodPost, "/calls/trend", query, &resp); err != nil {
		return nil, err
	}
	return resp.toPoints()
}

// FetchLeaderboard calls the agent leaderboard endpoint.
func (c *HTTPClient) FetchLeaderboard(ctx context.Context, query dashboard.LeaderboardQuery) ([]dashboard.LeaderboardEntry, error) {
	var resp leaderboardResponse
	if err := c.do(ctx, http.MethodPost, "/agents/leaderboard", query, &resp); err != nil {
		return nil, err
	}
	if query.Limit > 0 && len(resp.Entries) > query.Limit {
		resp.Entries = resp.Entries[:query.Limit]
	}
	return resp.Entries, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("analytics: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("analytics: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("analytics: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("analytics: remote error %d: %s", resp.StatusCode, buf.String())
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("analytics: decode response: %w", err)
	}
	return nil
}

type volumeResponse struct {
	Days []dashboard.CallVolumeDay `json:"days"`
}

type frictionResponse struct {
	Points []dashboard.FrictionPoint `json:"points"`
}

type sentimentResponse struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

func (r sentimentResponse) segments() []dashboard.SegmentInput {
	return []dashboard.SegmentInput{
		{Label: "Positive", Value: r.Positive, Color: "#10B981"},
		{Label: "Neutral", Value: r.Neutral, Color: "#737373"},
		{Label: "Negative", Value: r.Negative, Color: "#EF4444"},
	}
}

type trendPoint struct {
	Day   string  `json:"day"`
	Value float64 `json:"value"`
}

type trendResponse struct {
	Metric string       `json:"metric"`
	Points []trendPoint `json:"points"`
}

func (r trendResponse) toPoints() ([]dashboard.TrendPoint, error) {
	out := make([]dashboard.TrendPoint, len(r.Points))
	for i, p := range r.Points {
		day, err := time.Parse(time.DateOnly, p.Day)
		if err != nil {
			return nil, fmt.Errorf("analytics: parse trend day %q: %w", p.Day, err)
		}
		out[i] = dashboard.TrendPoint{Timestamp: day, Value: p.Value}
	}
	return out, nil
}

type leaderboardResponse struct {
	Entries []dashboard.LeaderboardEntry `json:"entries"`
}
