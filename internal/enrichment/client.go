// Package enrichment builds constrained requests to the external generative
// model and parses its structured responses into checklist items.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"visadesk/internal/checklist"
	"visadesk/internal/platform/config"
)

// maxResponseSize limits the model response body to prevent memory
// exhaustion.
const maxResponseSize = 4 * 1024 * 1024

// Client is the enrichment contract the coordinator depends on.
type Client interface {
	Enrich(ctx context.Context, req Request) ([]checklist.Item, []string, error)
}

// HTTPClient calls the external model endpoint over HTTP with a bounded
// timeout and a strict structured-output contract.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client (tests use httptest's).
func WithHTTPClient(c *http.Client) Option {
	return func(client *HTTPClient) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *HTTPClient) {
		client.logger = logger
	}
}

// NewHTTPClient builds a client from config. The configured timeout is the
// only place the enrichment call can block; there is no internal retry here —
// retry policy belongs to the coordinator.
func NewHTTPClient(cfg config.EnrichmentConfig, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: slog.Default(),
		tracer: otel.Tracer("visadesk/enrichment"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wireResponse is the strict structured output contract.
type wireResponse struct {
	Items    []checklist.Item `json:"items"`
	Warnings []string         `json:"warnings"`
}

// Enrich performs one model call. Every failure mode — transport, status,
// malformed or incomplete output — comes back as a typed enrichment error.
func (c *HTTPClient) Enrich(ctx context.Context, req Request) ([]checklist.Item, []string, error) {
	ctx, span := c.tracer.Start(ctx, "enrichment.Enrich")
	defer span.End()

	body, err := buildPayload(req, c.model, c.maxTokens)
	if err != nil {
		return nil, nil, NewFatalError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, NewFatalError(fmt.Errorf("create enrichment request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, NewTransientError(fmt.Errorf("enrichment call timed out: %w", err))
		}
		return nil, nil, NewTransientError(fmt.Errorf("enrichment transport error: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, NewTransientError(fmt.Errorf("read enrichment response: %w", err))
	}

	c.logger.DebugContext(ctx, "enrichment call completed",
		"application_id", req.ApplicationID,
		"status", httpResp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if httpResp.StatusCode != http.StatusOK {
		return nil, nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	items, warnings, err := parseResponse(respBody)
	if err != nil {
		return nil, nil, err
	}
	return items, warnings, nil
}

// parseResponse decodes the structured output, running markdown/comment
// repair when a direct decode fails.
func parseResponse(body []byte) ([]checklist.Item, []string, error) {
	var resp wireResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		repaired := ExtractJSON(string(body))
		if repaired == "" {
			return nil, nil, NewFatalError(fmt.Errorf("no JSON object in enrichment response"))
		}
		if err := json.Unmarshal([]byte(repaired), &resp); err != nil {
			return nil, nil, NewFatalError(fmt.Errorf("malformed enrichment response: %w", err))
		}
	}

	if len(resp.Items) == 0 {
		return nil, nil, NewFatalError(fmt.Errorf("enrichment response contains no items"))
	}
	return resp.Items, resp.Warnings, nil
}

// classifyHTTPError determines if an HTTP error is transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("enrichment API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden:
		return NewFatalError(err)
	default:
		return NewFatalError(err)
	}
}
