package onboarding

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mealmind/go-mealmind/internal/log"
)

// Analytics event names emitted by the orchestrator.
const (
	EventSectionStarted   = "section_started"
	EventSectionCompleted = "section_completed"
	EventQuestionAnswered = "question_answered"
	EventVoiceFallback    = "voice_fallback"
)

// Event is one analytics datapoint.
type Event struct {
	ID         string
	Name       string
	SectionID  string
	QuestionID string
	At         time.Time
}

// Collector receives onboarding analytics. It is injected into the
// orchestrator at construction with an explicit Start/End lifecycle per
// section; there is no process-wide accumulator.
type Collector interface {
	// Start marks the section as entered.
	Start(sectionID string)

	// End marks the section as left.
	End(sectionID string)

	// Record captures one event.
	Record(e Event)
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(name, sectionID, questionID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		SectionID:  sectionID,
		QuestionID: questionID,
		At:         time.Now(),
	}
}

// MemoryCollector accumulates events and per-section dwell times in
// memory, for tests and for the session-summary endpoint.
type MemoryCollector struct {
	mu       sync.Mutex
	events   []Event
	started  map[string]time.Time
	duration map[string]time.Duration
}

// NewMemoryCollector creates an empty in-memory collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		started:  make(map[string]time.Time),
		duration: make(map[string]time.Duration),
	}
}

// Start implements Collector.
func (c *MemoryCollector) Start(sectionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started[sectionID] = time.Now()
}

// End implements Collector.
func (c *MemoryCollector) End(sectionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if begun, ok := c.started[sectionID]; ok {
		c.duration[sectionID] += time.Since(begun)
		delete(c.started, sectionID)
	}
}

// Record implements Collector.
func (c *MemoryCollector) Record(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of all recorded events.
func (c *MemoryCollector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Duration returns the accumulated dwell time for a section.
func (c *MemoryCollector) Duration(sectionID string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration[sectionID]
}

var _ Collector = (*MemoryCollector)(nil)

// LogCollector writes events to the structured log. Useful as a default
// when no analytics backend is configured.
type LogCollector struct{}

// Start implements Collector.
func (LogCollector) Start(sectionID string) {
	log.Debug("section started", "section", sectionID)
}

// End implements Collector.
func (LogCollector) End(sectionID string) {
	log.Debug("section ended", "section", sectionID)
}

// Record implements Collector.
func (LogCollector) Record(e Event) {
	log.Debug("onboarding event",
		"event", e.Name,
		"section", e.SectionID,
		"question", e.QuestionID,
		"id", e.ID)
}

var _ Collector = LogCollector{}
