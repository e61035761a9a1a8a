package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

const providerStream = "stream"

// Stream is a live transcription session over WebSocket. Audio chunks
// are sent as they are captured and transcript events arrive as the
// service recognizes speech, with a final event after Finalize.
type Stream struct {
	config *Config
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool

	onTranscript func(text string, isFinal bool)
	onError      func(err error)
}

// streamEvent is the wire format of transcript events.
type streamEvent struct {
	Type string `json:"type"` // "partial" or "final"
	Text string `json:"text"`
}

// NewStream creates a streaming transcription session.
// Call OnTranscript before Connect.
func NewStream(opts ...Option) (*Stream, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Stream{
		config: cfg,
		logger: cfg.Logger.With("component", "stt.stream"),
	}, nil
}

// OnTranscript sets the callback for transcript events.
// isFinal marks the finalized transcript for the session.
func (s *Stream) OnTranscript(fn func(text string, isFinal bool)) {
	s.onTranscript = fn
}

// OnError sets the callback for asynchronous errors.
func (s *Stream) OnError(fn func(err error)) {
	s.onError = fn
}

// Connect dials the recognition endpoint and starts the read loop.
func (s *Stream) Connect(ctx context.Context) error {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+s.config.APIKey)

	dialer := websocket.Dialer{
		HandshakeTimeout: s.config.Timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, s.config.BaseURL, headers)
	if err != nil {
		if resp != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: err.Error(), Provider: providerStream}
		}
		return WrapError(providerStream, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.readLoop()
	return nil
}

// SendAudio streams an audio chunk to the recognition service.
func (s *Stream) SendAudio(chunk []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil || s.closed.Load() {
		return WrapError(providerStream, ErrStreamClosed)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.BinaryMessage, chunk)
}

// Finalize tells the service no more audio is coming; the final
// transcript event follows on the transcript callback.
func (s *Stream) Finalize() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil || s.closed.Load() {
		return WrapError(providerStream, ErrStreamClosed)
	}

	data, _ := json.Marshal(map[string]string{"type": "finalize"})

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Close shuts down the session.
func (s *Stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	s.writeMu.Lock()
	_ = conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	s.writeMu.Unlock()

	return conn.Close()
}

// readLoop dispatches transcript events until the connection closes.
func (s *Stream) readLoop() {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.emitError(WrapError(providerStream, err))
			return
		}

		var event streamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			s.emitError(WrapError(providerStream, fmt.Errorf("malformed event: %w", err)))
			continue
		}

		switch event.Type {
		case "partial":
			if s.onTranscript != nil {
				s.onTranscript(event.Text, false)
			}
		case "final":
			if s.onTranscript != nil {
				s.onTranscript(event.Text, true)
			}
		default:
			s.logger.Debug("unknown event type", "type", event.Type)
		}
	}
}

func (s *Stream) emitError(err error) {
	if s.onError != nil {
		s.onError(err)
	} else {
		s.logger.Error("stream error", "error", err)
	}
}
