// Package stt provides a unified interface for speech-to-text providers.
//
// The package supports batch transcription over HTTP (whisper-style
// multipart upload) and streaming transcription over WebSocket. All
// providers implement the Provider interface, enabling seamless
// switching without changing caller code.
//
// Example usage:
//
//	provider, _ := stt.NewHTTP(
//	    stt.WithAPIKey(os.Getenv("TRANSCRIPTION_API_KEY")),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Transcribe(ctx, audio, "audio/wav")
//	// result.Transcript contains the recognized text
package stt

import (
	"context"
	"time"
)

// Provider defines the speech-to-text provider interface.
type Provider interface {
	// Transcribe converts an audio payload to text.
	// contentType must be one of the supported audio content types.
	Transcribe(ctx context.Context, audio []byte, contentType string) (*Result, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Result is a completed transcription.
type Result struct {
	// Transcript is the finalized recognized text. May be empty when the
	// recording contained no speech; that is not an error.
	Transcript string

	// Duration is the audio duration, if the service reports it.
	Duration time.Duration

	// LatencyMs is the request round-trip time in milliseconds.
	LatencyMs int64
}

// Supported audio content types for transcription uploads.
var supportedContentTypes = map[string]bool{
	"audio/wav":  true,
	"audio/wave": true,
	"audio/webm": true,
	"audio/ogg":  true,
	"audio/mpeg": true,
	"audio/mp4":  true,
}

// SupportedContentType reports whether the given content type is on the
// transcription upload whitelist.
func SupportedContentType(ct string) bool {
	return supportedContentTypes[ct]
}
