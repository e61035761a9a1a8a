package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/mealmind/go-mealmind/internal/httpc"
)

const providerHTTP = "http"

// extensionByContentType maps whitelisted content types to the file
// extension the upload endpoint expects.
var extensionByContentType = map[string]string{
	"audio/wav":  "wav",
	"audio/wave": "wav",
	"audio/webm": "webm",
	"audio/ogg":  "ogg",
	"audio/mpeg": "mp3",
	"audio/mp4":  "m4a",
}

// HTTP is the batch transcription provider. It uploads a complete audio
// payload as multipart form data and returns the finalized transcript.
// Works with any whisper-compatible API.
type HTTP struct {
	config *Config
	http   *http.Client
	logger *slog.Logger
}

// NewHTTP creates a new batch transcription provider.
func NewHTTP(opts ...Option) (*HTTP, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &HTTP{
		config: cfg,
		http:   httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "stt.http"),
	}, nil
}

// Transcribe uploads the audio payload and returns the transcript.
// Non-2xx responses and malformed bodies map to typed failures.
func (h *HTTP) Transcribe(ctx context.Context, audio []byte, contentType string) (*Result, error) {
	if len(audio) == 0 {
		return nil, WrapError(providerHTTP, ErrEmptyAudio)
	}
	ext, ok := extensionByContentType[contentType]
	if !ok {
		return nil, WrapError(providerHTTP, fmt.Errorf("%w: %s", ErrUnsupportedAudio, contentType))
	}

	start := time.Now()

	body, formType, err := h.buildForm(audio, ext)
	if err != nil {
		return nil, WrapError(providerHTTP, fmt.Errorf("build form: %w", err))
	}

	url := strings.TrimSuffix(h.config.BaseURL, "/") + "/audio/transcriptions"

	resp, err := h.doWithRetry(ctx, url, formType, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, h.parseError(resp)
	}

	var result struct {
		Text     string  `json:"text"`
		Duration float64 `json:"duration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerHTTP, fmt.Errorf("decode response: %w", err))
	}

	return &Result{
		Transcript: strings.TrimSpace(result.Text),
		Duration:   time.Duration(result.Duration * float64(time.Second)),
		LatencyMs:  time.Since(start).Milliseconds(),
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

// buildForm assembles the multipart upload body.
func (h *HTTP) buildForm(audio []byte, ext string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "recording."+ext)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}

	if err := w.WriteField("model", h.config.Model); err != nil {
		return nil, "", err
	}
	if h.config.Language != "" {
		if err := w.WriteField("language", h.config.Language); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// doWithRetry performs the upload with retry on 429/5xx.
func (h *HTTP) doWithRetry(ctx context.Context, url, formType string, body []byte) (*http.Response, error) {
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
		req.Header.Set("Content-Type", formType)
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
			h.logger.Warn("retrying upload",
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
