package tts

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

const providerHTTP = "http"

// HTTP is the batch synthesis provider. It posts text to a
// speech endpoint and returns the complete audio buffer.
// Works with any OpenAI-compatible speech API.
type HTTP struct {
	config *Config
	http   *http.Client
	logger *slog.Logger
}

// NewHTTP creates a new synthesis provider.
func NewHTTP(opts ...Option) (*HTTP, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &HTTP{
		config: cfg,
		http:   httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "tts.http"),
	}, nil
}

// Synthesize converts text to audio.
func (h *HTTP) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerHTTP, ErrEmptyText)
	}

	start := time.Now()

	payload := map[string]any{
		"model": h.config.Model,
		"voice": h.config.Voice,
		"input": text,
	}
	if h.config.Speed > 0 && h.config.Speed != 1.0 {
		payload["speed"] = h.config.Speed
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerHTTP, fmt.Errorf("marshal payload: %w", err))
	}

	url := strings.TrimSuffix(h.config.BaseURL, "/") + "/audio/speech"

	resp, err := h.doWithRetry(ctx, url, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, h.parseError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerHTTP, fmt.Errorf("read audio: %w", err))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return &AudioResult{
		Audio:       audio,
		ContentType: contentType,
		CharCount:   len(text),
		LatencyMs:   time.Since(start).Milliseconds(),
	}, nil
}

// Health checks API connectivity.
func (h *HTTP) Health(ctx context.Context) error {
	url := strings.TrimSuffix(h.config.BaseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return WrapError(providerHTTP, err)
	}
	req.Header.Set("Authorization", "Bearer "+h.config.APIKey)

	resp, err := h.http.Do(req)
	if err != nil {
		return WrapError(providerHTTP, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return h.parseError(resp)
	}
	return nil
}

// Close releases resources.
func (h *HTTP) Close() error {
	h.http.CloseIdleConnections()
	return nil
}

// doWithRetry performs the request with retry on 429/5xx.
func (h *HTTP) doWithRetry(ctx context.Context, url string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(h.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(providerHTTP, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+h.config.APIKey)

		resp, err := h.http.Do(req)
		if err != nil {
			lastErr = WrapError(providerHTTP, err)
			h.logger.Warn("request failed, retrying",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			lastErr = h.parseError(resp)
			resp.Body.Close()
			h.logger.Warn("retrying synthesis",
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
func (h *HTTP) parseError(resp *http.Response) error {
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
		Provider:   providerHTTP,
	}
}

// Verify HTTP implements Provider at compile time.
var _ Provider = (*HTTP)(nil)
