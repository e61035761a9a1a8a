package voicectl

import "context"

// Capturer acquires the microphone. Implementations wrap the platform's
// capture primitive (browser-supplied in production, mock in tests).
type Capturer interface {
	// Start acquires the microphone and begins capturing.
	// Returns ErrPermissionDenied or ErrUnsupported on failure.
	Start(ctx context.Context) (Capture, error)
}

// Capture is a live audio-stream handle. It exists only while the
// controller is recording.
type Capture interface {
	// Stop finalizes the capture and returns the recorded audio payload
	// with its content type.
	Stop() (audio []byte, contentType string, err error)

	// Close releases the stream without reading it (used on teardown).
	Close() error
}
