package hub_test

import (
	"testing"
	"time"

	"github.com/mealmind/go-mealmind/pkg/hub"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRunStopLifecycle(t *testing.T) {
	h := hub.New("test")
	if h.IsRunning() {
		t.Fatal("fresh hub must not report running")
	}

	go h.Run()
	waitFor(t, h.IsRunning, "hub never reported running")

	if got := h.ClientCount(); got != 0 {
		t.Errorf("client count = %d, want 0", got)
	}

	h.Stop()
	waitFor(t, func() bool { return !h.IsRunning() }, "hub never stopped")
}

func TestStopIsIdempotent(t *testing.T) {
	h := hub.New("test")
	go h.Run()
	waitFor(t, h.IsRunning, "hub never reported running")

	h.Stop()
	h.Stop()
	waitFor(t, func() bool { return !h.IsRunning() }, "hub never stopped")
}

func TestBroadcastJSONRejectsUnencodable(t *testing.T) {
	h := hub.New("test")
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("expected an encoding error")
	}
}
