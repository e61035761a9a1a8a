package onboarding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mealmind/go-mealmind/internal/log"
	"github.com/mealmind/go-mealmind/pkg/measure"
	"github.com/mealmind/go-mealmind/pkg/parsing"
)

// SectionMachine drives one section end-to-end: it owns the section's
// response buffer while the section is active, validates and commits
// answers from both input channels, and signals completion upward. It
// never advances past its final question; the orchestrator decides the
// next section.
//
// The machine is not safe for concurrent use; the orchestrator
// serializes all events onto it.
type SectionMachine struct {
	section Section
	gateway parsing.Gateway
	logger  *slog.Logger

	index    int
	buffer   map[string]Answer
	errs     map[string]string
	awaiting string // question id awaiting follow-up detail
}

// VoiceOutcome describes what a voice answer did to the machine.
type VoiceOutcome struct {
	// Committed is true when the transcript produced a committed answer.
	Committed bool

	// Matched lists the option values the transcript matched, for
	// select questions.
	Matched []string

	// RetryPrompt, when non-empty, should be spoken back to the user;
	// the response buffer was not mutated.
	RetryPrompt string
}

// NewSectionMachine activates a section. Previously saved answers, if
// resuming, seed the local response buffer.
func NewSectionMachine(section Section, saved map[string]Answer, gateway parsing.Gateway) *SectionMachine {
	buffer := make(map[string]Answer, len(section.Questions))
	for id, a := range saved {
		buffer[id] = a.clone()
	}
	return &SectionMachine{
		section: section,
		gateway: gateway,
		logger:  log.With("component", "onboarding.section", "section", section.ID),
		buffer:  buffer,
		errs:    make(map[string]string),
	}
}

// Section returns the immutable section configuration.
func (m *SectionMachine) Section() Section {
	return m.section
}

// Index returns the current question index.
func (m *SectionMachine) Index() int {
	return m.index
}

// Seek moves the question index, clamped to the valid range.
func (m *SectionMachine) Seek(i int) {
	if i < 0 {
		i = 0
	}
	if max := len(m.section.Questions) - 1; i > max {
		i = max
	}
	m.index = i
}

// Current returns the active question.
func (m *SectionMachine) Current() Question {
	return m.section.Questions[m.index]
}

// Answers returns a copy of the section's response buffer.
func (m *SectionMachine) Answers() map[string]Answer {
	out := make(map[string]Answer, len(m.buffer))
	for id, a := range m.buffer {
		out[id] = a.clone()
	}
	return out
}

// Errors returns the current field-level validation errors by question id.
func (m *SectionMachine) Errors() map[string]string {
	out := make(map[string]string, len(m.errs))
	for id, msg := range m.errs {
		out[id] = msg
	}
	return out
}

// AwaitingDetail reports whether the machine is in the awaiting-detail
// sub-state, and for which question.
func (m *SectionMachine) AwaitingDetail() (string, bool) {
	return m.awaiting, m.awaiting != ""
}

// Advance moves to the next question. Reports false at the last
// question; the machine never advances past it.
func (m *SectionMachine) Advance() bool {
	if m.index >= len(m.section.Questions)-1 {
		return false
	}
	m.index++
	return true
}

// Retreat moves to the previous question. Reports false at the first.
func (m *SectionMachine) Retreat() bool {
	if m.index == 0 {
		return false
	}
	m.index--
	return true
}

// HandleManualAnswer validates and commits a typed or selected answer.
// On validation failure the field-level error is recorded (replacing any
// previous one, never accumulating duplicates) and the machine does not
// advance. On success the error clears, the value commits last-write-wins,
// and the machine either enters the awaiting-detail sub-state or advances.
func (m *SectionMachine) HandleManualAnswer(questionID string, a Answer) error {
	q, ok := m.section.Question(questionID)
	if !ok {
		return fmt.Errorf("onboarding: section %s has no question %s", m.section.ID, questionID)
	}
	if err := m.commit(q, a); err != nil {
		return err
	}
	if m.awaiting == q.ID {
		return nil
	}
	if q.ID == m.Current().ID {
		m.Advance()
	}
	return nil
}

// ProvideDetail supplies the follow-up detail for the question awaiting
// one, leaving the sub-state and advancing.
func (m *SectionMachine) ProvideDetail(detail string) error {
	if m.awaiting == "" {
		return fmt.Errorf("onboarding: section %s is not awaiting detail", m.section.ID)
	}
	a := m.buffer[m.awaiting]
	a.Detail = detail
	m.buffer[m.awaiting] = a
	if m.awaiting == m.Current().ID {
		m.Advance()
	}
	m.awaiting = ""
	return nil
}

// ToggleChoice flips one value's membership in a multi-select question's
// selection set. The set never holds duplicates. Toggling does not
// advance; the user moves on explicitly.
func (m *SectionMachine) ToggleChoice(questionID, value string) error {
	q, ok := m.section.Question(questionID)
	if !ok {
		return fmt.Errorf("onboarding: section %s has no question %s", m.section.ID, questionID)
	}
	if q.Kind != KindMultiSelect {
		return fmt.Errorf("onboarding: question %s is not multi-select", questionID)
	}

	current := m.buffer[questionID].Choices
	next := make([]string, 0, len(current)+1)
	removed := false
	for _, v := range current {
		if v == value {
			removed = true
			continue
		}
		next = append(next, v)
	}
	if !removed {
		next = append(next, value)
	}

	a := m.buffer[questionID]
	a.Kind = AnswerChoices
	a.Choices = normalizeSet(next)
	return m.commit(q, a)
}

// HandleVoiceAnswer routes a finalized transcript into the current
// question. Measurement questions try the local parser first and fall
// back to the parsing gateway; select questions match extracted entities
// (or the raw transcript when the gateway degrades) against the option
// set by case-insensitive containment. On no match the response buffer
// is left untouched and the outcome carries a retry prompt.
func (m *SectionMachine) HandleVoiceAnswer(ctx context.Context, transcript string) (VoiceOutcome, error) {
	q := m.Current()
	text := strings.TrimSpace(transcript)
	if text == "" {
		return m.retry(q), nil
	}

	switch q.Kind {
	case KindMeasurement:
		return m.voiceMeasurement(ctx, q, text)
	case KindSingleSelect, KindMultiSelect:
		return m.voiceSelect(ctx, q, text)
	case KindField:
		return m.voiceField(ctx, q, text)
	default:
		return m.retry(q), nil
	}
}

// IsComplete reports whether every required question holds a committed
// answer and no follow-up detail is outstanding.
func (m *SectionMachine) IsComplete() bool {
	if m.awaiting != "" {
		return false
	}
	for _, q := range m.section.Questions {
		if !q.Required {
			continue
		}
		a, ok := m.buffer[q.ID]
		if !ok || a.Empty() {
			return false
		}
	}
	return true
}

// commit runs shared validation and writes the answer into the buffer.
// Voice-derived answers pass through here exactly like manual ones.
func (m *SectionMachine) commit(q Question, a Answer) error {
	if !a.matchesKind(q.Kind) {
		err := fmt.Errorf("onboarding: %s answer does not fit %s question %s", a.Kind, q.Kind, q.ID)
		m.errs[q.ID] = err.Error()
		return err
	}
	if q.Validate != nil {
		if err := q.Validate(a); err != nil {
			m.errs[q.ID] = err.Error()
			return err
		}
	}
	delete(m.errs, q.ID)
	m.buffer[q.ID] = a.clone()

	// The detail follow-up triggers on commit, whichever channel the
	// answer arrived through. Emptying the selection withdraws it.
	if q.RequiresDetail {
		if a.Detail == "" && !a.Empty() {
			m.awaiting = q.ID
		} else if m.awaiting == q.ID {
			m.awaiting = ""
		}
	}
	return nil
}

func (m *SectionMachine) voiceMeasurement(ctx context.Context, q Question, text string) (VoiceOutcome, error) {
	var (
		parsed measure.Measurement
		ok     bool
	)
	switch q.Measure {
	case MeasureWeight:
		parsed, ok = measure.ParseWeight(text)
	default:
		parsed, ok = measure.ParseHeight(text)
	}

	if !ok && m.gateway != nil {
		result, err := m.gateway.Parse(ctx, text, q.Context)
		if err != nil {
			m.logger.Warn("measurement parse failed", "question", q.ID, "error", err)
			return m.retry(q), nil
		}
		if result.Reliable() {
			if u, known := normalizeUnit(result.Measurement.Unit); known {
				parsed = measure.Measurement{Value: result.Measurement.Value, Unit: u}
				ok = true
			}
		}
	}
	if !ok {
		return m.retry(q), nil
	}

	if err := m.commit(q, MeasurementAnswer(parsed)); err != nil {
		return VoiceOutcome{RetryPrompt: err.Error()}, nil
	}
	if m.awaiting != q.ID && q.ID == m.Current().ID {
		m.Advance()
	}
	return VoiceOutcome{Committed: true}, nil
}

func (m *SectionMachine) voiceSelect(ctx context.Context, q Question, text string) (VoiceOutcome, error) {
	add, remove := m.voiceCandidates(ctx, q, text)

	matched := matchOptions(q.Options, add)
	unmatched := matchOptions(q.Options, remove)
	if len(matched) == 0 && len(unmatched) == 0 {
		return m.retry(q), nil
	}

	var a Answer
	switch q.Kind {
	case KindSingleSelect:
		if len(matched) == 0 {
			return m.retry(q), nil
		}
		a = ChoiceAnswer(matched[0])
	case KindMultiSelect:
		// Matched entries merge into the prior selection set; negated
		// entries drop out. Prior selections are never cleared wholesale.
		set := append([]string(nil), m.buffer[q.ID].Choices...)
		set = append(set, matched...)
		set = normalizeSet(set)
		for _, v := range unmatched {
			set = removeValue(set, v)
		}
		a = Answer{Kind: AnswerChoices, Choices: set}
	}

	if err := m.commit(q, a); err != nil {
		return VoiceOutcome{RetryPrompt: err.Error()}, nil
	}
	if q.Kind == KindSingleSelect && m.awaiting != q.ID && q.ID == m.Current().ID {
		m.Advance()
	}
	return VoiceOutcome{Committed: true, Matched: matched}, nil
}

func (m *SectionMachine) voiceField(ctx context.Context, q Question, text string) (VoiceOutcome, error) {
	value := text
	if m.gateway != nil {
		result, err := m.gateway.Parse(ctx, text, q.Context)
		if err != nil {
			m.logger.Warn("field parse failed", "question", q.ID, "error", err)
		} else if !result.Fallback {
			// Prefer a cleaned-up field value when the service extracted one.
			if v, ok := result.Details[q.ID]; ok && v != "" {
				value = v
			}
		}
	}

	if err := m.commit(q, TextAnswer(q.ID, value)); err != nil {
		return VoiceOutcome{RetryPrompt: err.Error()}, nil
	}
	if m.awaiting != q.ID && q.ID == m.Current().ID {
		m.Advance()
	}
	return VoiceOutcome{Committed: true}, nil
}

// voiceCandidates extracts the strings to match against the option set:
// entity values from the gateway when it produced a structured result,
// otherwise the raw transcript.
func (m *SectionMachine) voiceCandidates(ctx context.Context, q Question, text string) (add, remove []string) {
	if m.gateway == nil {
		return []string{text}, nil
	}
	result, err := m.gateway.Parse(ctx, text, q.Context)
	if err != nil {
		m.logger.Warn("entity parse failed", "question", q.ID, "error", err)
		return []string{text}, nil
	}
	if result.Fallback || len(result.Entities) == 0 {
		return []string{text}, nil
	}
	for _, e := range result.Entities {
		if e.Type == "negation" {
			remove = append(remove, e.Value)
			continue
		}
		add = append(add, e.Value)
	}
	return add, remove
}

func (m *SectionMachine) retry(q Question) VoiceOutcome {
	prompt := q.VoicePrompt
	if prompt == "" {
		prompt = q.Prompt
	}
	return VoiceOutcome{RetryPrompt: "Sorry, I didn't catch that. " + prompt}
}

// matchOptions matches candidates against options by case-insensitive
// label/value containment, preserving option order.
func matchOptions(options []Option, candidates []string) []string {
	if len(candidates) == 0 {
		return nil
	}
	lowered := make([]string, len(candidates))
	for i, c := range candidates {
		lowered[i] = strings.ToLower(c)
	}
	var matched []string
	for _, opt := range options {
		value := strings.ToLower(opt.Value)
		label := strings.ToLower(opt.Label)
		for _, c := range lowered {
			if strings.Contains(c, value) || strings.Contains(c, label) {
				matched = append(matched, opt.Value)
				break
			}
		}
	}
	return matched
}

func removeValue(set []string, value string) []string {
	out := set[:0]
	for _, v := range set {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

// normalizeUnit maps service-reported unit strings onto the canonical
// measurement units.
func normalizeUnit(unit string) (measure.Unit, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "in", "inch", "inches":
		return measure.UnitInches, true
	case "cm", "centimeter", "centimeters":
		return measure.UnitCentimeters, true
	case "lb", "lbs", "pound", "pounds":
		return measure.UnitPounds, true
	case "kg", "kgs", "kilogram", "kilograms":
		return measure.UnitKilograms, true
	default:
		return "", false
	}
}
