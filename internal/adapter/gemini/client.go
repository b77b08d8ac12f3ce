// Package gemini implements domain.Embedder using the Gemini embedding API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/geofinch/disaster-monitor/internal/observability"
)

// Client calls the Gemini embedContent endpoint. The model is deterministic
// for a given input, which keeps re-ingestion idempotent.
type Client struct {
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Gemini embedding client.
func NewClient(apiKey, model string, dimensions int, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		logger:  logger,
		metrics: metrics,
	}
}

// Dimensions returns the configured output vector length.
func (c *Client) Dimensions() int { return c.dimensions }

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{
		Content:              content{Parts: []part{{Text: text}}},
		OutputDimensionality: c.dimensions,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode embed request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:embedContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.EmbedRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.EmbedRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gemini API error: status %d: %s", resp.StatusCode, body)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		c.metrics.EmbedRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vec := embedResp.Embedding.Values
	if len(vec) != c.dimensions {
		c.metrics.EmbedRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("gemini returned %d dimensions, want %d", len(vec), c.dimensions)
	}

	c.metrics.EmbedRequests.WithLabelValues("success").Inc()
	return vec, nil
}

// Gemini API request/response types.

type embedRequest struct {
	Content              content `json:"content"`
	OutputDimensionality int     `json:"outputDimensionality,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding embedding `json:"embedding"`
}

type embedding struct {
	Values []float32 `json:"values"`
}
