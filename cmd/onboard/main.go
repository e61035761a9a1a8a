// MealMind onboarding service - conversational questionnaire with
// voice, form, and multi-select input channels.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mealmind/go-mealmind/internal/config"
	"github.com/mealmind/go-mealmind/internal/log"
	"github.com/mealmind/go-mealmind/pkg/onboarding"
	"github.com/mealmind/go-mealmind/pkg/parsing"
	"github.com/mealmind/go-mealmind/pkg/stt"
	"github.com/mealmind/go-mealmind/pkg/tts"
	"github.com/mealmind/go-mealmind/pkg/voicectl"
	"github.com/mealmind/go-mealmind/pkg/web"
)

func main() {
	// Local .env is optional; real deployments use the environment.
	_ = godotenv.Load()

	port := flag.String("port", config.Port(), "HTTP port")
	dataDir := flag.String("data-dir", config.DataDir(), "directory for durable onboarding state")
	backend := flag.String("store", config.StoreBackend(), "progress store backend: json or sqlite")
	flag.Parse()

	log.Init(config.LogLevel())
	logger := log.With("component", "onboard")

	store, err := newStore(*backend, *dataDir)
	if err != nil {
		logger.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var orchOpts []onboarding.OrchestratorOption

	gateway := newGateway(logger)
	if gateway != nil {
		defer gateway.Close()
		orchOpts = append(orchOpts, onboarding.WithParsingGateway(gateway))
	}

	transcriber := newTranscriber(logger)
	if transcriber != nil {
		defer transcriber.Close()
	}

	// Synthesized prompt audio flows to websocket subscribers; the
	// server doesn't exist yet, so the sink binds late.
	sink := &audioSink{}
	voice := newVoice(transcriber, sink, logger)
	if voice != nil {
		defer voice.Close()
		orchOpts = append(orchOpts, onboarding.WithVoice(voice))
	}

	analytics := onboarding.NewMemoryCollector()
	orchOpts = append(orchOpts,
		onboarding.WithCollector(analytics),
		onboarding.OnComplete(func(rm onboarding.ResponseModel) {
			logger.Info("onboarding finished", "sections", len(rm))
		}),
	)

	orch, err := onboarding.NewOrchestrator(onboarding.DefaultSections(), store, orchOpts...)
	if err != nil {
		logger.Error("orchestrator init failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	saver := onboarding.NewAutoSaver(store, config.AutoSaveInterval(), orch.Snapshot)
	saver.Start(ctx)
	defer saver.Stop()

	srvOpts := []web.ServerOption{web.WithAnalytics(analytics)}
	if transcriber != nil {
		srvOpts = append(srvOpts, web.WithTranscriber(transcriber))
	}
	srv := web.NewServer(*port, orch, srvOpts...)
	sink.attach(srv.PublishAudio)

	srv.StartAsync()
	logger.Info("onboarding service up", "port", *port, "store", *backend)

	<-ctx.Done()
	logger.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
}

// audioSink forwards synthesized audio to a destination bound after
// construction.
type audioSink struct {
	mu sync.Mutex
	fn func([]byte)
}

func (s *audioSink) attach(fn func([]byte)) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
}

func (s *audioSink) publish(audio *tts.AudioResult) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(audio.Audio)
	}
}

// newStore builds the configured progress store backend.
func newStore(backend, dataDir string) (onboarding.ProgressStore, error) {
	if backend == "sqlite" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, err
		}
		return onboarding.NewSQLiteStore(filepath.Join(dataDir, "progress.db"))
	}
	return onboarding.NewJSONStore(dataDir)
}

// newGateway builds the AI parsing gateway when configured. Without one
// the section machines fall back to local matching.
func newGateway(logger *slog.Logger) parsing.Gateway {
	baseURL := config.ParsingBaseURL()
	if baseURL == "" {
		logger.Info("parsing gateway disabled (PARSING_BASE_URL unset)")
		return nil
	}
	gateway, err := parsing.NewClient(
		parsing.WithBaseURL(baseURL),
		parsing.WithAPIKey(config.ParsingKey()),
	)
	if err != nil {
		logger.Warn("parsing gateway disabled", "error", err)
		return nil
	}
	return gateway
}

// newTranscriber builds the transcription provider when configured.
// Without one the voice upload endpoint reports unavailable and clients
// stay on manual entry.
func newTranscriber(logger *slog.Logger) stt.Provider {
	key := config.TranscriptionKey()
	if key == "" {
		logger.Info("transcription disabled (TRANSCRIPTION_API_KEY unset)")
		return nil
	}
	provider, err := stt.NewHTTP(stt.WithAPIKey(key))
	if err != nil {
		logger.Warn("transcription disabled", "error", err)
		return nil
	}
	return provider
}

// newVoice builds the voice controller used for spoken prompts. Capture
// happens client-side, so no server capturer is wired; the controller
// still owns synthesis and recording-session bookkeeping.
func newVoice(transcriber stt.Provider, sink *audioSink, logger *slog.Logger) *voicectl.Controller {
	key := config.SynthesisKey()
	if key == "" {
		logger.Info("speech synthesis disabled (SYNTHESIS_API_KEY unset)")
		return nil
	}
	synth, err := tts.NewHTTP(tts.WithAPIKey(key))
	if err != nil {
		logger.Warn("speech synthesis disabled", "error", err)
		return nil
	}
	return voicectl.NewController(nil, transcriber,
		voicectl.WithSynthesizer(synth),
		voicectl.OnAudio(sink.publish),
	)
}
