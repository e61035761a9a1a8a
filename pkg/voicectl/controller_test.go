package voicectl_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mealmind/go-mealmind/pkg/stt"
	"github.com/mealmind/go-mealmind/pkg/tts"
	"github.com/mealmind/go-mealmind/pkg/voicectl"
)

// transcriptSink collects OnTranscript/OnError deliveries.
type transcriptSink struct {
	mu          sync.Mutex
	transcripts []string
	errs        []error
	delivered   chan struct{}
}

func newSink() *transcriptSink {
	return &transcriptSink{delivered: make(chan struct{}, 16)}
}

func (s *transcriptSink) onTranscript(_ voicectl.Session, transcript string) {
	s.mu.Lock()
	s.transcripts = append(s.transcripts, transcript)
	s.mu.Unlock()
	s.delivered <- struct{}{}
}

func (s *transcriptSink) onError(_ voicectl.Session, err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
	s.delivered <- struct{}{}
}

func (s *transcriptSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func (s *transcriptSink) snapshot() ([]string, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.transcripts...), append([]error(nil), s.errs...)
}

func TestRecordTranscribeCycle(t *testing.T) {
	sink := newSink()
	c := voicectl.NewController(
		voicectl.NewMockCapturer([]byte("audio"), "audio/webm"),
		stt.WithTranscript("five feet ten"),
		voicectl.OnTranscript(sink.onTranscript),
		voicectl.OnError(sink.onError),
	)
	defer c.Close()

	if got := c.State(); got != voicectl.StateIdle {
		t.Fatalf("initial state = %v", got)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := c.State(); got != voicectl.StateRecording {
		t.Fatalf("state after start = %v", got)
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	sink.wait(t)
	transcripts, errs := sink.snapshot()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(transcripts) != 1 || transcripts[0] != "five feet ten" {
		t.Fatalf("transcripts = %v", transcripts)
	}
	if got := c.State(); got != voicectl.StateIdle {
		t.Errorf("state after completion = %v", got)
	}
}

func TestStartWhileRecording(t *testing.T) {
	c := voicectl.NewController(
		voicectl.NewMockCapturer(nil, "audio/webm"),
		stt.NewMock(),
	)
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, voicectl.ErrAlreadyRecording) {
		t.Errorf("second start = %v, want ErrAlreadyRecording", err)
	}
}

func TestStopWhileIdle(t *testing.T) {
	c := voicectl.NewController(
		voicectl.NewMockCapturer(nil, "audio/webm"),
		stt.NewMock(),
	)
	defer c.Close()

	if err := c.Stop(context.Background()); !errors.Is(err, voicectl.ErrNotRecording) {
		t.Errorf("stop while idle = %v, want ErrNotRecording", err)
	}
}

func TestUnavailableController(t *testing.T) {
	sink := newSink()
	c := voicectl.NewController(nil, nil, voicectl.OnError(sink.onError))
	defer c.Close()

	if c.Available() {
		t.Error("controller without capturer should not be available")
	}
	if err := c.Start(context.Background()); !errors.Is(err, voicectl.ErrUnsupported) {
		t.Errorf("start = %v, want ErrUnsupported", err)
	}
	sink.wait(t)
	_, errs := sink.snapshot()
	if len(errs) != 1 || !errors.Is(errs[0], voicectl.ErrUnsupported) {
		t.Errorf("errors = %v", errs)
	}
}

func TestPermissionDenied(t *testing.T) {
	sink := newSink()
	c := voicectl.NewController(
		voicectl.CaptureDenied(),
		stt.NewMock(),
		voicectl.OnError(sink.onError),
	)
	defer c.Close()

	err := c.Start(context.Background())
	if !errors.Is(err, voicectl.ErrPermissionDenied) {
		t.Fatalf("start = %v, want ErrPermissionDenied", err)
	}
	if got := c.State(); got != voicectl.StateIdle {
		t.Errorf("state after denial = %v, want idle", got)
	}
	sink.wait(t)
	_, errs := sink.snapshot()
	if voicectl.FailureKind(errs[0]) != "permission_denied" {
		t.Errorf("failure kind = %q", voicectl.FailureKind(errs[0]))
	}
}

func TestTranscriptionFailureDeliversTypedError(t *testing.T) {
	sink := newSink()
	c := voicectl.NewController(
		voicectl.NewMockCapturer([]byte("audio"), "audio/webm"),
		stt.WithError(errors.New("upstream down")),
		voicectl.OnTranscript(sink.onTranscript),
		voicectl.OnError(sink.onError),
	)
	defer c.Close()

	c.Start(context.Background())
	c.Stop(context.Background())

	sink.wait(t)
	transcripts, errs := sink.snapshot()
	if len(transcripts) != 0 {
		t.Errorf("no transcript expected, got %v", transcripts)
	}
	if len(errs) != 1 || !errors.Is(errs[0], voicectl.ErrTranscriptionFailed) {
		t.Fatalf("errors = %v, want ErrTranscriptionFailed", errs)
	}
	if got := c.State(); got != voicectl.StateIdle {
		t.Errorf("state after failure = %v, want idle", got)
	}
}

func TestCancelDropsInFlightTranscription(t *testing.T) {
	release := make(chan struct{})
	transcriber := &stt.Mock{
		TranscribeFunc: func(ctx context.Context, audio []byte, contentType string) (*stt.Result, error) {
			<-release
			return &stt.Result{Transcript: "stale words"}, nil
		},
	}

	sink := newSink()
	c := voicectl.NewController(
		voicectl.NewMockCapturer([]byte("audio"), "audio/webm"),
		transcriber,
		voicectl.OnTranscript(sink.onTranscript),
		voicectl.OnError(sink.onError),
	)

	c.Start(context.Background())
	c.Stop(context.Background())

	// Cancel while the transcriber is still working, then let it finish.
	c.Cancel()
	close(release)
	c.Close()

	transcripts, errs := sink.snapshot()
	if len(transcripts) != 0 || len(errs) != 0 {
		t.Errorf("stale result delivered: transcripts=%v errs=%v", transcripts, errs)
	}
	if got := c.State(); got != voicectl.StateIdle {
		t.Errorf("state after cancel = %v", got)
	}
}

func TestCancelReleasesLiveCapture(t *testing.T) {
	capture := &voicectl.MockCapture{Audio: []byte("audio"), ContentType: "audio/webm"}
	capturer := &voicectl.MockCapturer{
		StartFunc: func(ctx context.Context) (voicectl.Capture, error) {
			return capture, nil
		},
	}
	c := voicectl.NewController(capturer, stt.NewMock())
	defer c.Close()

	c.Start(context.Background())
	c.Cancel()

	if !capture.Closed() {
		t.Error("cancel must release the capture handle")
	}
}

func TestEmptyTranscriptIsDelivered(t *testing.T) {
	sink := newSink()
	c := voicectl.NewController(
		voicectl.NewMockCapturer([]byte("audio"), "audio/webm"),
		stt.WithTranscript(""),
		voicectl.OnTranscript(sink.onTranscript),
		voicectl.OnError(sink.onError),
	)
	defer c.Close()

	c.Start(context.Background())
	c.Stop(context.Background())

	sink.wait(t)
	transcripts, errs := sink.snapshot()
	if len(errs) != 0 {
		t.Fatalf("silence is not an error, got %v", errs)
	}
	if len(transcripts) != 1 || transcripts[0] != "" {
		t.Fatalf("transcripts = %q, want one empty transcript", transcripts)
	}
}

func TestSpeakCancelsPrevious(t *testing.T) {
	started := make(chan string, 2)
	cancelled := make(chan struct{}, 2)
	synth := &tts.Mock{
		SynthesizeFunc: func(ctx context.Context, text string) (*tts.AudioResult, error) {
			started <- text
			select {
			case <-ctx.Done():
				cancelled <- struct{}{}
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
				return &tts.AudioResult{Audio: []byte("pcm"), ContentType: "audio/pcm"}, nil
			}
		},
	}

	var mu sync.Mutex
	var played []string
	c := voicectl.NewController(
		voicectl.NewMockCapturer(nil, "audio/webm"),
		stt.NewMock(),
		voicectl.WithSynthesizer(synth),
		voicectl.OnAudio(func(audio *tts.AudioResult) {
			mu.Lock()
			played = append(played, audio.ContentType)
			mu.Unlock()
		}),
	)

	c.Speak(context.Background(), "What is your height?")
	<-started
	c.Speak(context.Background(), "What is your weight?")
	<-started

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("first synthesis was not cancelled")
	}

	c.Close()
	mu.Lock()
	defer mu.Unlock()
	if len(played) != 0 {
		t.Errorf("cancelled audio must not be played, got %v", played)
	}
}

func TestSpeakWithoutSynthesizerIsNoop(t *testing.T) {
	c := voicectl.NewController(voicectl.NewMockCapturer(nil, "audio/webm"), stt.NewMock())
	defer c.Close()
	c.Speak(context.Background(), "hello") // must not panic
}

func TestFailureKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{voicectl.ErrPermissionDenied, "permission_denied"},
		{voicectl.ErrUnsupported, "unsupported"},
		{voicectl.ErrTranscriptionFailed, "transcription_failed"},
		{errors.New("other"), "internal"},
	}
	for _, tc := range cases {
		if got := voicectl.FailureKind(tc.err); got != tc.want {
			t.Errorf("FailureKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
