// Package web exposes the onboarding flow over HTTP: form and
// multi-select answers come in through the JSON API, voice comes in as
// audio uploads routed through transcription, and progress snapshots
// stream out over a websocket.
package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/mealmind/go-mealmind/internal/log"
	"github.com/mealmind/go-mealmind/pkg/hub"
	"github.com/mealmind/go-mealmind/pkg/onboarding"
	"github.com/mealmind/go-mealmind/pkg/stt"
)

// Server is the onboarding API server.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	orch        *onboarding.Orchestrator
	transcriber stt.Provider
	analytics   *onboarding.MemoryCollector

	// Progress snapshots broadcast to websocket subscribers
	progressHub *hub.Hub
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithTranscriber enables the audio-upload voice path.
func WithTranscriber(p stt.Provider) ServerOption {
	return func(s *Server) { s.transcriber = p }
}

// WithAnalytics exposes the collector's events on the summary endpoint.
func WithAnalytics(c *onboarding.MemoryCollector) ServerOption {
	return func(s *Server) { s.analytics = c }
}

// NewServer creates the onboarding API server.
func NewServer(port string, orch *onboarding.Orchestrator, opts ...ServerOption) *Server {
	s := &Server{
		port:        port,
		logger:      log.With("component", "web.server"),
		orch:        orch,
		progressHub: hub.New("progress"),
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "MealMind Onboarding",
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024, // room for audio uploads
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/responses", s.handleResponses)
	api.Get("/summary", s.handleSummary)
	api.Post("/answer", s.handleAnswer)
	api.Post("/toggle", s.handleToggle)
	api.Post("/detail", s.handleDetail)
	api.Post("/transcript", s.handleTranscript)
	api.Post("/voice", s.handleVoice)
	api.Post("/next", s.handleNext)
	api.Post("/previous", s.handlePrevious)
	api.Post("/key", s.handleKey)
	api.Post("/reset", s.handleReset)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/progress", websocket.New(s.handleProgressWS))

	s.app = app
	return s
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the server and the broadcast hub. Blocks.
func (s *Server) Start() error {
	go s.progressHub.Run()
	s.logger.Info("onboarding server listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server and disconnects subscribers.
func (s *Server) Shutdown() error {
	s.progressHub.Stop()
	return s.app.Shutdown()
}

// PublishAudio pushes synthesized prompt audio to all subscribers.
// Wire this as the voice controller's audio callback.
func (s *Server) PublishAudio(audio []byte) {
	s.progressHub.BroadcastBinary(audio)
}

// publishProgress pushes the current snapshot to all subscribers.
// Called after every mutating request.
func (s *Server) publishProgress() {
	if err := s.progressHub.BroadcastJSON(s.orch.Snapshot()); err != nil {
		s.logger.Warn("progress broadcast failed", "error", err)
	}
}

// handleProgressWS streams progress snapshots to one subscriber.
func (s *Server) handleProgressWS(c *websocket.Conn) {
	client := hub.NewClient(s.progressHub, c)

	// Current position first, so late joiners render immediately.
	if err := c.WriteJSON(s.orch.Snapshot()); err != nil {
		s.logger.Debug("initial snapshot write failed", "error", err)
	}

	client.Run()
}
