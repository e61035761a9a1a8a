package voicectl

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mealmind/go-mealmind/internal/log"
	"github.com/mealmind/go-mealmind/pkg/stt"
	"github.com/mealmind/go-mealmind/pkg/tts"
)

// Controller is the voice interaction state machine. A single controller
// serves the whole onboarding session; recordings are sequential, never
// concurrent.
//
// Transcription completion is delivered asynchronously through the
// OnTranscript callback. Each recording carries a generation number; any
// completion that arrives after Cancel (or after a newer recording
// started) is dropped, so a stale transcript can never reach the caller.
type Controller struct {
	capturer    Capturer
	transcriber stt.Provider
	synth       tts.Provider
	logger      *slog.Logger

	onTranscript func(session Session, transcript string)
	onError      func(session Session, err error)
	onAudio      func(audio *tts.AudioResult)

	mu         sync.Mutex
	state      State
	capture    Capture
	session    Session
	generation uint64

	speakMu     sync.Mutex
	speakCancel context.CancelFunc

	wg sync.WaitGroup
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithSynthesizer attaches a speech synthesis provider. Without one,
// Speak is a silent no-op.
func WithSynthesizer(p tts.Provider) ControllerOption {
	return func(c *Controller) {
		c.synth = p
	}
}

// OnTranscript sets the callback invoked when a recording finishes
// transcribing. The transcript may be empty when no speech was detected.
func OnTranscript(fn func(session Session, transcript string)) ControllerOption {
	return func(c *Controller) {
		c.onTranscript = fn
	}
}

// OnError sets the callback invoked when capture or transcription fails.
// The error is one of the typed failures (see FailureKind).
func OnError(fn func(session Session, err error)) ControllerOption {
	return func(c *Controller) {
		c.onError = fn
	}
}

// OnAudio sets the callback that receives synthesized speech for playback.
func OnAudio(fn func(audio *tts.AudioResult)) ControllerOption {
	return func(c *Controller) {
		c.onAudio = fn
	}
}

// NewController creates a voice controller. capturer and transcriber may
// be nil; the controller then reports Available() == false and every
// Start returns ErrUnsupported.
func NewController(capturer Capturer, transcriber stt.Provider, opts ...ControllerOption) *Controller {
	c := &Controller{
		capturer:    capturer,
		transcriber: transcriber,
		logger:      log.With("component", "voicectl.controller"),
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether voice capture can be offered at all.
func (c *Controller) Available() bool {
	return c.capturer != nil && c.transcriber != nil
}

// State returns the current recording state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a snapshot of the current voice session. The zero
// Session is returned while idle with no prior recording.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Start begins a new recording. Only valid while idle. Starting a
// recording cancels any in-flight speech synthesis.
func (c *Controller) Start(ctx context.Context) error {
	if !c.Available() {
		err := ErrUnsupported
		c.reportError(Session{}, err)
		return err
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyRecording
	}
	// Reserve the slot before the capturer runs so a concurrent Start
	// cannot double-acquire the microphone.
	c.state = StateRecording
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.cancelSpeech()

	capture, err := c.capturer.Start(ctx)
	if err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.state = StateIdle
		}
		session := c.session
		c.mu.Unlock()
		c.logger.Warn("capture start failed", "error", err)
		c.reportError(session, err)
		return err
	}

	session := NewSession()
	c.mu.Lock()
	if c.generation != gen {
		// Cancelled while the capturer was acquiring the microphone.
		c.mu.Unlock()
		capture.Close()
		return nil
	}
	c.capture = capture
	c.session = session
	c.mu.Unlock()

	c.logger.Debug("recording started", "session", session.ID)
	return nil
}

// Stop finalizes the current recording and hands the audio to the
// transcriber. The controller enters processing until the transcription
// completes; the result is delivered via OnTranscript.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return ErrNotRecording
	}
	capture := c.capture
	session := c.session
	gen := c.generation
	c.state = StateProcessing
	c.capture = nil
	c.mu.Unlock()

	audio, contentType, err := capture.Stop()
	if err != nil {
		c.finish(gen)
		c.logger.Warn("capture stop failed", "session", session.ID, "error", err)
		c.reportError(session, wrapTranscription(err))
		return nil
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.transcribe(ctx, gen, session, audio, contentType)
	}()
	return nil
}

// Cancel aborts the current recording or in-flight transcription without
// delivering a transcript. Safe to call in any state.
func (c *Controller) Cancel() {
	c.mu.Lock()
	capture := c.capture
	c.capture = nil
	c.state = StateIdle
	c.generation++
	session := c.session
	c.mu.Unlock()

	if capture != nil {
		capture.Close()
		c.logger.Debug("recording cancelled", "session", session.ID)
	}
}

// Speak synthesizes the given text and delivers the audio to the OnAudio
// callback. A new Speak cancels any synthesis still in flight, so prompts
// never overlap when the user navigates quickly.
func (c *Controller) Speak(ctx context.Context, text string) {
	if c.synth == nil || text == "" {
		return
	}

	speakCtx, cancel := context.WithCancel(ctx)
	c.speakMu.Lock()
	if c.speakCancel != nil {
		c.speakCancel()
	}
	c.speakCancel = cancel
	c.speakMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		result, err := c.synth.Synthesize(speakCtx, text)
		if err != nil {
			if speakCtx.Err() == nil {
				c.logger.Warn("synthesis failed", "error", err)
			}
			return
		}
		if speakCtx.Err() != nil {
			return
		}
		if c.onAudio != nil {
			c.onAudio(result)
		}
	}()
}

// Close cancels any active recording and speech and waits for background
// work to drain.
func (c *Controller) Close() error {
	c.Cancel()
	c.cancelSpeech()
	c.wg.Wait()
	return nil
}

// transcribe runs the audio through the transcriber and delivers the
// result, unless the generation moved on while it was in flight.
func (c *Controller) transcribe(ctx context.Context, gen uint64, session Session, audio []byte, contentType string) {
	result, err := c.transcriber.Transcribe(ctx, audio, contentType)

	if !c.finish(gen) {
		c.logger.Debug("dropping stale transcription", "session", session.ID)
		return
	}

	if err != nil {
		c.logger.Warn("transcription failed", "session", session.ID, "error", err)
		c.reportError(session, wrapTranscription(err))
		return
	}

	c.logger.Debug("transcription complete",
		"session", session.ID,
		"chars", len(result.Transcript),
		"latency_ms", result.LatencyMs)

	if c.onTranscript != nil {
		c.onTranscript(session, result.Transcript)
	}
}

// finish returns the controller to idle if the given generation is still
// current. Reports whether the caller's result should be delivered.
func (c *Controller) finish(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.state = StateIdle
	return true
}

func (c *Controller) cancelSpeech() {
	c.speakMu.Lock()
	if c.speakCancel != nil {
		c.speakCancel()
		c.speakCancel = nil
	}
	c.speakMu.Unlock()
}

func (c *Controller) reportError(session Session, err error) {
	if c.onError != nil {
		c.onError(session, err)
	}
}
