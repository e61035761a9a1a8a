// Package voicectl wraps microphone capture, transcription, and speech
// synthesis behind a small recording state machine.
//
// The controller moves idle → recording → processing → idle. Capture,
// recognition, and synthesis are injected interfaces that may be absent;
// when they are, every voice entry point reports Unsupported and the
// caller degrades to manual entry. Errors from the capture or
// transcription layer are delivered to the error callback as typed
// failures; they never panic out of the state machine.
package voicectl

import (
	"errors"
	"fmt"
)

// State is the recording state of the controller.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// Typed failures surfaced through the error callback.
var (
	// ErrPermissionDenied means microphone access was refused.
	ErrPermissionDenied = errors.New("voicectl: microphone permission denied")

	// ErrUnsupported means the environment has no capture capability.
	ErrUnsupported = errors.New("voicectl: voice capture unsupported")

	// ErrTranscriptionFailed means the transcription layer failed.
	ErrTranscriptionFailed = errors.New("voicectl: transcription failed")

	// ErrAlreadyRecording is returned by Start while not idle.
	ErrAlreadyRecording = errors.New("voicectl: already recording")

	// ErrNotRecording is returned by Stop while not recording.
	ErrNotRecording = errors.New("voicectl: not recording")
)

// FailureKind maps a typed failure to its wire/event name.
// Unknown errors map to "internal".
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrTranscriptionFailed):
		return "transcription_failed"
	default:
		return "internal"
	}
}

// wrapTranscription tags a transcription-layer error with the typed failure.
func wrapTranscription(err error) error {
	return fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
}
