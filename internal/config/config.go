// Package config provides configuration helpers for go-mealmind commands.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Defaults for the onboarding service.
const (
	DefaultPort         = "8282"
	DefaultDataDirName  = ".mealmind"
	DefaultAutoSaveSecs = 30
)

// Env returns the value of the environment variable or the fallback.
func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Port returns the HTTP port from PORT env var or the default.
func Port() string {
	return Env("PORT", DefaultPort)
}

// DataDir returns the directory for durable onboarding state.
// Defaults to ~/.mealmind, falling back to /tmp if no home dir.
func DataDir() string {
	if dir := os.Getenv("MEALMIND_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/tmp"
	}
	return filepath.Join(home, DefaultDataDirName)
}

// TranscriptionKey returns the transcription service API key.
func TranscriptionKey() string {
	return os.Getenv("TRANSCRIPTION_API_KEY")
}

// ParsingKey returns the AI parsing service API key.
func ParsingKey() string {
	return os.Getenv("PARSING_API_KEY")
}

// SynthesisKey returns the speech synthesis API key.
func SynthesisKey() string {
	return os.Getenv("SYNTHESIS_API_KEY")
}

// AutoSaveInterval returns the autosave safety-net interval.
// Controlled by MEALMIND_AUTOSAVE_SECS.
func AutoSaveInterval() time.Duration {
	if v := os.Getenv("MEALMIND_AUTOSAVE_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return DefaultAutoSaveSecs * time.Second
}

// ParsingBaseURL returns the AI parsing service endpoint. The parsing
// gateway is disabled when unset.
func ParsingBaseURL() string {
	return os.Getenv("PARSING_BASE_URL")
}

// StoreBackend selects the progress store backend: "json" (default) or
// "sqlite".
func StoreBackend() string {
	return Env("MEALMIND_STORE", "json")
}

// LogLevel returns the configured log level.
func LogLevel() string {
	return Env("LOG_LEVEL", "info")
}
