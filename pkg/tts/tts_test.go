package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mealmind/go-mealmind/pkg/tts"
)

func TestHTTPSynthesize(t *testing.T) {
	t.Run("returns audio", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode payload: %v", err)
			}
			if payload["input"] != "What is your height?" {
				t.Errorf("input = %v", payload["input"])
			}
			w.Header().Set("Content-Type", "audio/mpeg")
			io.WriteString(w, "fake-mp3-bytes")
		}))
		defer srv.Close()

		p, err := tts.NewHTTP(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer p.Close()

		result, err := p.Synthesize(context.Background(), "What is your height?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio bytes")
		}
		if result.ContentType != "audio/mpeg" {
			t.Errorf("content type = %q", result.ContentType)
		}
		if result.CharCount != 20 {
			t.Errorf("char count = %d, want 20", result.CharCount)
		}
	})

	t.Run("requires API key", func(t *testing.T) {
		if _, err := tts.NewHTTP(); !errors.Is(err, tts.ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("rejects empty text", func(t *testing.T) {
		p, _ := tts.NewHTTP(tts.WithAPIKey("k"))
		if _, err := p.Synthesize(context.Background(), "   "); !errors.Is(err, tts.ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	})

	t.Run("maps error status to APIError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "bad voice"}})
		}))
		defer srv.Close()

		p, _ := tts.NewHTTP(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL))
		_, err := p.Synthesize(context.Background(), "hello")

		var apiErr *tts.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d", apiErr.StatusCode)
		}
	})
}

func TestMock(t *testing.T) {
	t.Run("tracks calls", func(t *testing.T) {
		m := tts.NewMock()
		_, _ = m.Synthesize(context.Background(), "hi")
		_ = m.Health(context.Background())

		if m.CallCount("Synthesize") != 1 {
			t.Errorf("Synthesize count = %d", m.CallCount("Synthesize"))
		}
		if last := m.LastCall(); last == nil || last.Method != "Health" {
			t.Errorf("unexpected last call: %+v", last)
		}

		m.Reset()
		if len(m.Calls()) != 0 {
			t.Error("expected calls cleared")
		}
	})

	t.Run("error mock", func(t *testing.T) {
		testErr := errors.New("synthesis down")
		m := tts.WithError(testErr)
		if _, err := m.Synthesize(context.Background(), "hi"); !errors.Is(err, testErr) {
			t.Errorf("expected wrapped error, got %v", err)
		}
	})
}
