package voicectl

import (
	"context"
	"sync"
)

// MockCapturer implements Capturer for testing.
// All methods can be customized via function fields.
type MockCapturer struct {
	// StartFunc is called when Start is invoked.
	// If nil, returns a MockCapture that yields Audio/ContentType.
	StartFunc func(ctx context.Context) (Capture, error)

	// Audio and ContentType are returned by the default capture.
	Audio       []byte
	ContentType string

	// Tracking
	mu     sync.Mutex
	starts int
}

// NewMockCapturer creates a capturer whose captures yield the given audio.
func NewMockCapturer(audio []byte, contentType string) *MockCapturer {
	return &MockCapturer{Audio: audio, ContentType: contentType}
}

// CaptureDenied returns a capturer that refuses with ErrPermissionDenied.
func CaptureDenied() *MockCapturer {
	return &MockCapturer{
		StartFunc: func(ctx context.Context) (Capture, error) {
			return nil, ErrPermissionDenied
		},
	}
}

// Start calls StartFunc and records the call.
func (m *MockCapturer) Start(ctx context.Context) (Capture, error) {
	m.mu.Lock()
	m.starts++
	m.mu.Unlock()

	if m.StartFunc != nil {
		return m.StartFunc(ctx)
	}
	return &MockCapture{Audio: m.Audio, ContentType: m.ContentType}, nil
}

// Starts returns the number of Start calls.
func (m *MockCapturer) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// MockCapture implements Capture for testing.
type MockCapture struct {
	// Audio and ContentType are returned by Stop.
	Audio       []byte
	ContentType string

	// StopErr, if set, is returned by Stop.
	StopErr error

	mu      sync.Mutex
	stopped bool
	closed  bool
}

// Stop returns the configured audio.
func (m *MockCapture) Stop() ([]byte, string, error) {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	if m.StopErr != nil {
		return nil, "", m.StopErr
	}
	return m.Audio, m.ContentType, nil
}

// Close marks the capture released.
func (m *MockCapture) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *MockCapture) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify mocks implement their interfaces at compile time.
var (
	_ Capturer = (*MockCapturer)(nil)
	_ Capture  = (*MockCapture)(nil)
)
