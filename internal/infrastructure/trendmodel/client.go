package trendmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ddwtrends/internal/domain"
	"ddwtrends/internal/ports"
)

// Client talks to the pre-trained trend-encoding service. Abstracts are
// sent in batches; the service returns one category-score map per input.
type Client struct {
	endpoint  string
	apiKey    string
	batchSize int
	http      *http.Client
}

var _ ports.TrendEncoder = (*Client)(nil)

// NewClient creates a reusable HTTP client. batchSize defaults to 32.
func NewClient(endpoint, apiKey string, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Client{
		endpoint:  endpoint,
		apiKey:    apiKey,
		batchSize: batchSize,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

type encodeRequest struct {
	Abstracts []string `json:"abstracts"`
}

type encodeResponse struct {
	Results []domain.TrendScores `json:"results"`
}

// EncodeBatch scores all cleaned abstracts, preserving input order. The
// service is called once per internal batch.
func (c *Client) EncodeBatch(ctx context.Context, cleaned []string) ([]domain.TrendScores, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("trend model client misconfigured: empty endpoint")
	}

	results := make([]domain.TrendScores, 0, len(cleaned))
	for start := 0; start < len(cleaned); start += c.batchSize {
		end := min(start+c.batchSize, len(cleaned))

		batch, err := c.encode(ctx, cleaned[start:end])
		if err != nil {
			return nil, fmt.Errorf("encode batch starting at %d: %w", start, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("encode batch starting at %d: expected %d results, got %d", start, end-start, len(batch))
		}
		results = append(results, batch...)
	}

	return results, nil
}

func (c *Client) encode(ctx context.Context, batch []string) ([]domain.TrendScores, error) {
	body, err := json.Marshal(encodeRequest{Abstracts: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/encode", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var decoded encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return decoded.Results, nil
}
