// Package tts provides a unified interface for text-to-speech providers.
//
// Synthesis is used to voice question prompts and retry messages during
// onboarding. All providers implement the Provider interface, enabling
// seamless switching without changing caller code.
//
// Example usage:
//
//	provider, _ := tts.NewHTTP(
//	    tts.WithAPIKey(os.Getenv("SYNTHESIS_API_KEY")),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "What is your height?")
//	// result.Audio contains the synthesized audio bytes
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	// Cancelling the context aborts an in-flight synthesis.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data.
	Audio []byte

	// ContentType describes the audio encoding (e.g. audio/mpeg).
	ContentType string

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request round-trip time in milliseconds.
	LatencyMs int64

	// Duration is the estimated playback duration.
	Duration time.Duration
}
