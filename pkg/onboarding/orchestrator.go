package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mealmind/go-mealmind/internal/log"
	"github.com/mealmind/go-mealmind/pkg/parsing"
	"github.com/mealmind/go-mealmind/pkg/voicectl"
)

// Orchestrator errors.
var (
	// ErrFlowComplete is returned by mutating calls after the flow
	// reached its terminal state.
	ErrFlowComplete = errors.New("onboarding: flow already complete")

	// ErrSectionIncomplete is returned by Next when the active section
	// still has unanswered required questions.
	ErrSectionIncomplete = errors.New("onboarding: section has unanswered required questions")

	// ErrCannotGoBack is returned by Previous at the start of the flow
	// or across a non-skippable boundary.
	ErrCannotGoBack = errors.New("onboarding: cannot navigate back from here")
)

// Keyboard shortcut keys understood by HandleKey.
const (
	KeyEnter     = "enter"
	KeyBackspace = "backspace"
	KeyEscape    = "escape"
)

// Orchestrator sequences the fixed ordered list of sections into one
// linear flow with back/forward navigation and a terminal complete
// state. All events — manual answers, voice transcripts, key presses,
// timer ticks — are serialized through its mutex, so the section
// machines underneath never see concurrent access.
type Orchestrator struct {
	sections  []Section
	store     ProgressStore
	gateway   parsing.Gateway
	voice     *voicectl.Controller
	collector Collector
	logger    *slog.Logger

	onComplete func(ResponseModel)

	mu       sync.Mutex
	record   *ProgressRecord
	machine  *SectionMachine
	complete bool
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithParsingGateway routes voice answers through the given gateway.
func WithParsingGateway(g parsing.Gateway) OrchestratorOption {
	return func(o *Orchestrator) { o.gateway = g }
}

// WithVoice attaches the voice controller used for prompts and
// recording cancellation.
func WithVoice(v *voicectl.Controller) OrchestratorOption {
	return func(o *Orchestrator) { o.voice = v }
}

// WithCollector injects the analytics collector.
func WithCollector(c Collector) OrchestratorOption {
	return func(o *Orchestrator) { o.collector = c }
}

// OnComplete registers the downstream handoff invoked once with the
// final aggregated response model.
func OnComplete(fn func(ResponseModel)) OrchestratorOption {
	return func(o *Orchestrator) { o.onComplete = fn }
}

// NewOrchestrator loads prior progress from the store and resumes at
// the saved position, or starts fresh.
func NewOrchestrator(sections []Section, store ProgressStore, opts ...OrchestratorOption) (*Orchestrator, error) {
	if len(sections) == 0 {
		return nil, errors.New("onboarding: at least one section required")
	}

	o := &Orchestrator{
		sections:  sections,
		store:     store,
		collector: LogCollector{},
		logger:    log.With("component", "onboarding.orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}

	record, err := store.Load()
	if err != nil {
		return nil, err
	}
	o.record = record

	if record.CurrentSectionIndex >= len(sections) {
		o.complete = true
		return o, nil
	}
	o.activate(record.CurrentSectionIndex, record.CurrentQuestionIndex)
	return o, nil
}

// Finished reports whether the flow reached its terminal state.
func (o *Orchestrator) Finished() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.complete
}

// SectionIndex returns the active section position.
func (o *Orchestrator) SectionIndex() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.record.CurrentSectionIndex
}

// Snapshot returns a deep copy of the current progress record, suitable
// for autosave and for pushing to progress subscribers.
func (o *Orchestrator) Snapshot() *ProgressRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.syncLocked()
	return o.record.Clone()
}

// ActiveSection returns the active section configuration and question
// index. The boolean is false once the flow is complete.
func (o *Orchestrator) ActiveSection() (Section, int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.complete || o.machine == nil {
		return Section{}, 0, false
	}
	return o.machine.Section(), o.machine.Index(), true
}

// AwaitingDetail reports whether the active section is waiting on a
// follow-up detail, and for which question.
func (o *Orchestrator) AwaitingDetail() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.machine == nil {
		return "", false
	}
	return o.machine.AwaitingDetail()
}

// Errors returns the active section's field-level validation errors.
func (o *Orchestrator) Errors() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.machine == nil {
		return nil
	}
	return o.machine.Errors()
}

// Answer commits a manual answer for the given question in the active
// section and persists the result.
func (o *Orchestrator) Answer(questionID string, a Answer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.complete {
		return ErrFlowComplete
	}

	if err := o.machine.HandleManualAnswer(questionID, a); err != nil {
		return err
	}
	o.collector.Record(NewEvent(EventQuestionAnswered, o.machine.Section().ID, questionID))
	o.persistLocked()
	return nil
}

// Toggle flips a multi-select choice in the active section.
func (o *Orchestrator) Toggle(questionID, value string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.complete {
		return ErrFlowComplete
	}

	if err := o.machine.ToggleChoice(questionID, value); err != nil {
		return err
	}
	o.persistLocked()
	return nil
}

// Detail supplies the follow-up detail the active section is waiting on.
func (o *Orchestrator) Detail(detail string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.complete {
		return ErrFlowComplete
	}

	if err := o.machine.ProvideDetail(detail); err != nil {
		return err
	}
	o.persistLocked()
	return nil
}

// HandleTranscript routes a finalized voice transcript into the active
// section. A no-match outcome speaks the retry prompt and leaves all
// state untouched. Wire this as the voice controller's transcript
// callback.
func (o *Orchestrator) HandleTranscript(ctx context.Context, transcript string) (VoiceOutcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.complete {
		return VoiceOutcome{}, ErrFlowComplete
	}

	section := o.machine.Section()
	question := o.machine.Current()

	outcome, err := o.machine.HandleVoiceAnswer(ctx, transcript)
	if err != nil {
		return outcome, err
	}

	if outcome.Committed {
		o.collector.Record(NewEvent(EventQuestionAnswered, section.ID, question.ID))
		o.persistLocked()
	} else {
		o.collector.Record(NewEvent(EventVoiceFallback, section.ID, question.ID))
		o.speak(outcome.RetryPrompt)
	}
	return outcome, nil
}

// Next advances within the active section, or — once the section
// reports completion — hands its responses to the aggregate and
// activates the following section. At the last section the flow
// transitions to complete, performs the single final durable write, and
// signals the downstream handoff. Indices never move while required
// answers are missing.
func (o *Orchestrator) Next() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.complete {
		return ErrFlowComplete
	}

	if o.machine.Advance() {
		o.persistLocked()
		return nil
	}

	// At the last question: the section signals completion upward and
	// the orchestrator decides what happens next.
	if !o.machine.IsComplete() {
		return ErrSectionIncomplete
	}

	section := o.machine.Section()
	o.record.Responses[section.ID] = o.machine.Answers()
	o.record.MarkCompleted(section.ID)
	o.collector.Record(NewEvent(EventSectionCompleted, section.ID, ""))
	o.collector.End(section.ID)

	// Navigation supersedes any in-flight recording for the old section.
	o.cancelVoice()

	nextIndex := o.record.CurrentSectionIndex + 1
	if nextIndex >= len(o.sections) {
		o.finishLocked()
		return nil
	}
	o.activate(nextIndex, 0)
	o.persistLocked()
	return nil
}

// Previous steps back one question, or one section when at the first
// question. Backing into a non-skippable section (legal consent) is
// disallowed.
func (o *Orchestrator) Previous() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.complete {
		return ErrFlowComplete
	}

	if o.machine.Retreat() {
		o.persistLocked()
		return nil
	}

	idx := o.record.CurrentSectionIndex
	if idx == 0 {
		return ErrCannotGoBack
	}
	target := o.sections[idx-1]
	if target.NonSkippable {
		return ErrCannotGoBack
	}

	o.collector.End(o.machine.Section().ID)
	o.cancelVoice()
	o.activate(idx-1, len(target.Questions)-1)
	o.persistLocked()
	return nil
}

// HandleKey maps keyboard shortcuts onto navigation: enter advances,
// backspace goes back, escape cancels the current voice session. All
// shortcuts are suppressed while focus is inside a text input so normal
// typing is never hijacked.
func (o *Orchestrator) HandleKey(key string, inTextInput bool) error {
	if inTextInput {
		return nil
	}
	switch key {
	case KeyEnter:
		return o.Next()
	case KeyBackspace:
		return o.Previous()
	case KeyEscape:
		o.mu.Lock()
		o.cancelVoice()
		o.mu.Unlock()
		return nil
	default:
		return nil
	}
}

// Reset clears in-memory and durable state, returning to the first
// section.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.Reset(); err != nil {
		return err
	}
	o.record = DefaultRecord()
	o.complete = false
	o.cancelVoice()
	o.activate(0, 0)
	return nil
}

// Aggregate returns the aggregated response model accumulated so far.
// After completion this is the final handoff payload.
func (o *Orchestrator) Aggregate() ResponseModel {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.syncLocked()
	return o.record.Responses.Clone()
}

// activate spins up the section machine at the given position, seeding
// it with any previously saved answers.
func (o *Orchestrator) activate(sectionIndex, questionIndex int) {
	section := o.sections[sectionIndex]
	o.machine = NewSectionMachine(section, o.record.Responses[section.ID], o.gateway)
	o.machine.Seek(questionIndex)
	o.record.CurrentSectionIndex = sectionIndex
	o.record.CurrentQuestionIndex = o.machine.Index()

	o.collector.Start(section.ID)
	o.collector.Record(NewEvent(EventSectionStarted, section.ID, ""))
	o.speak(section.VoiceIntro)
	o.logger.Info("section activated", "section", section.ID, "index", sectionIndex)
}

// finishLocked performs the terminal transition: one durable write of
// the full aggregate, then the downstream signal.
func (o *Orchestrator) finishLocked() {
	o.complete = true
	o.machine = nil
	o.record.CurrentSectionIndex = len(o.sections)
	o.record.CurrentQuestionIndex = 0
	o.record.LastUpdated = time.Now()

	if err := o.store.Save(o.record.Clone()); err != nil {
		o.logger.Error("final progress write failed", "error", err)
	}
	o.logger.Info("onboarding complete", "sections", len(o.record.CompletedSections))

	if o.onComplete != nil {
		o.onComplete(o.record.Responses.Clone())
	}
}

// syncLocked refreshes the record from the live machine.
func (o *Orchestrator) syncLocked() {
	if o.machine == nil {
		return
	}
	section := o.machine.Section()
	o.record.CurrentSectionIndex = sectionPosition(o.sections, section.ID)
	o.record.CurrentQuestionIndex = o.machine.Index()
	o.record.Responses[section.ID] = o.machine.Answers()
	o.record.LastUpdated = time.Now()
}

// persistLocked saves on a mutating event. Persistence is best-effort:
// a failed save is logged and the autosaver retries on its next tick.
func (o *Orchestrator) persistLocked() {
	o.syncLocked()
	if err := o.store.Save(o.record.Clone()); err != nil {
		o.logger.Warn("progress save failed", "error", err)
	}
}

func (o *Orchestrator) cancelVoice() {
	if o.voice != nil {
		o.voice.Cancel()
	}
}

func (o *Orchestrator) speak(text string) {
	if o.voice != nil && text != "" {
		o.voice.Speak(context.Background(), text)
	}
}

func sectionPosition(sections []Section, id string) int {
	for i, s := range sections {
		if s.ID == id {
			return i
		}
	}
	panic(fmt.Sprintf("onboarding: unknown section %s", id))
}
