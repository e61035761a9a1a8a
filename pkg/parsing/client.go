package parsing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mealmind/go-mealmind/internal/httpc"
)

const providerClient = "client"

// Client is the HTTP gateway to the AI parsing service.
type Client struct {
	config *Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a new parsing gateway.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: cfg,
		http:   httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "parsing.client"),
	}, nil
}

// parseResponse is the wire shape of the service response. Two schemas
// share the envelope, discriminated by Type.
type parseResponse struct {
	Type string `json:"type"` // "measurement" or "intent"

	// measurement-parse schema
	Value      *float64 `json:"value,omitempty"`
	Unit       string   `json:"unit,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`

	// intent/entity-parse schema
	Intent   string            `json:"intent,omitempty"`
	Entities []Entity          `json:"entities,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}

// Parse sends the transcript and context tag to the parsing service.
//
// Transport-level failures (network errors, non-2xx statuses) return a
// typed error. A 2xx response whose body fails the structural contract
// is a soft failure: the result carries the original transcript with
// Fallback set and no error is returned.
func (c *Client) Parse(ctx context.Context, transcript string, tag ContextTag) (*Result, error) {
	payload, err := json.Marshal(map[string]string{
		"text":    transcript,
		"context": string(tag),
	})
	if err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("marshal payload: %w", err))
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/parse"

	resp, err := c.doWithRetry(ctx, url, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("read response: %w", err))
	}

	return c.interpret(transcript, body), nil
}

// Health checks service connectivity.
func (c *Client) Health(ctx context.Context) error {
	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return WrapError(providerClient, err)
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return WrapError(providerClient, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// interpret validates the response body against the two fixed schemas.
// Anything that does not match becomes a fallback result.
func (c *Client) interpret(transcript string, body []byte) *Result {
	var pr parseResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		c.logger.Warn("malformed parse response, falling back",
			"error", err,
		)
		return fallbackResult(transcript)
	}

	switch pr.Type {
	case "measurement":
		// Value, unit, and confidence are all required to trust a
		// measurement result.
		if pr.Value == nil || pr.Unit == "" || pr.Confidence == nil {
			c.logger.Warn("incomplete measurement response, falling back")
			return fallbackResult(transcript)
		}
		if *pr.Confidence < 0 || *pr.Confidence > 1 {
			c.logger.Warn("confidence out of range, falling back",
				"confidence", *pr.Confidence,
			)
			return fallbackResult(transcript)
		}
		return &Result{
			Transcript:  transcript,
			Measurement: &Measurement{Value: *pr.Value, Unit: pr.Unit},
			Confidence:  *pr.Confidence,
		}

	case "intent":
		if pr.Intent == "" && len(pr.Entities) == 0 {
			c.logger.Warn("empty intent response, falling back")
			return fallbackResult(transcript)
		}
		for _, e := range pr.Entities {
			if e.Value == "" {
				c.logger.Warn("entity missing value, falling back")
				return fallbackResult(transcript)
			}
		}
		return &Result{
			Transcript: transcript,
			Intent:     pr.Intent,
			Entities:   pr.Entities,
			Details:    pr.Details,
		}

	default:
		c.logger.Warn("unknown response type, falling back",
			"type", pr.Type,
		)
		return fallbackResult(transcript)
	}
}

// doWithRetry performs the request with retry on 429/5xx.
func (c *Client) doWithRetry(ctx context.Context, url string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(providerClient, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = WrapError(providerClient, err)
			c.logger.Warn("request failed, retrying",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			lastErr = c.parseError(resp)
			resp.Body.Close()
			c.logger.Warn("retrying parse request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads and parses an error response.
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerClient,
	}
}

// Verify Client implements Gateway at compile time.
var _ Gateway = (*Client)(nil)
