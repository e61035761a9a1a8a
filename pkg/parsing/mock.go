package parsing

import (
	"context"
	"sync"
)

// Mock implements Gateway for testing.
// All methods can be customized via function fields.
type Mock struct {
	// ParseFunc is called when Parse is invoked.
	// If nil, returns a fallback result for the transcript.
	ParseFunc func(ctx context.Context, transcript string, tag ContextTag) (*Result, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Parse invocation for verification.
type MockCall struct {
	Transcript string
	Tag        ContextTag
}

// NewMock creates a mock gateway that falls back on every transcript.
func NewMock() *Mock {
	return &Mock{}
}

// WithEntities returns a mock that extracts the given entities from
// every transcript.
func WithEntities(intent string, entities ...Entity) *Mock {
	return &Mock{
		ParseFunc: func(ctx context.Context, transcript string, tag ContextTag) (*Result, error) {
			return &Result{
				Transcript: transcript,
				Intent:     intent,
				Entities:   entities,
			}, nil
		},
	}
}

// WithMeasurement returns a mock that parses every transcript to the
// given measurement and confidence.
func WithMeasurement(value float64, unit string, confidence float64) *Mock {
	return &Mock{
		ParseFunc: func(ctx context.Context, transcript string, tag ContextTag) (*Result, error) {
			return &Result{
				Transcript:  transcript,
				Measurement: &Measurement{Value: value, Unit: unit},
				Confidence:  confidence,
			}, nil
		},
	}
}

// WithError returns a mock that always returns the given error.
func WithError(err error) *Mock {
	return &Mock{
		ParseFunc: func(ctx context.Context, transcript string, tag ContextTag) (*Result, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Parse calls ParseFunc and records the call.
func (m *Mock) Parse(ctx context.Context, transcript string, tag ContextTag) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Transcript: transcript, Tag: tag})
	m.mu.Unlock()

	if m.ParseFunc != nil {
		return m.ParseFunc(ctx, transcript, tag)
	}
	return fallbackResult(transcript), nil
}

// Health calls HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}

// Calls returns all recorded Parse calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// Verify Mock implements Gateway at compile time.
var _ Gateway = (*Mock)(nil)
