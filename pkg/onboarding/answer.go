package onboarding

import (
	"sort"

	"github.com/mealmind/go-mealmind/pkg/measure"
)

// AnswerKind is the tagged variant over answer values, mirroring the
// question kinds.
type AnswerKind string

const (
	AnswerChoice      AnswerKind = "choice"
	AnswerChoices     AnswerKind = "choices"
	AnswerText        AnswerKind = "text"
	AnswerMeasurement AnswerKind = "measurement"
)

// Answer is one committed answer value. Exactly one payload field is
// populated, selected by Kind.
type Answer struct {
	Kind AnswerKind `json:"kind"`

	// Choice holds the selected value for single-select questions.
	Choice string `json:"choice,omitempty"`

	// Choices holds the selection set for multi-select questions.
	// Always sorted, never contains duplicates.
	Choices []string `json:"choices,omitempty"`

	// Fields holds free-form field values keyed by field id. Questions
	// with a single unnamed field use the question id as the key.
	Fields map[string]string `json:"fields,omitempty"`

	// Measurement holds a numeric quantity with its unit.
	Measurement *measure.Measurement `json:"measurement,omitempty"`

	// Detail is the follow-up free-text detail for questions that
	// require one.
	Detail string `json:"detail,omitempty"`
}

// ChoiceAnswer builds a single-select answer.
func ChoiceAnswer(value string) Answer {
	return Answer{Kind: AnswerChoice, Choice: value}
}

// ChoicesAnswer builds a multi-select answer. Duplicates are dropped and
// the set is sorted.
func ChoicesAnswer(values ...string) Answer {
	return Answer{Kind: AnswerChoices, Choices: normalizeSet(values)}
}

// TextAnswer builds a single-field free-form answer keyed by the
// question id.
func TextAnswer(questionID, text string) Answer {
	return Answer{Kind: AnswerText, Fields: map[string]string{questionID: text}}
}

// FieldsAnswer builds a multi-field free-form answer.
func FieldsAnswer(fields map[string]string) Answer {
	return Answer{Kind: AnswerText, Fields: fields}
}

// MeasurementAnswer builds a measurement answer.
func MeasurementAnswer(m measure.Measurement) Answer {
	return Answer{Kind: AnswerMeasurement, Measurement: &m}
}

// Empty reports whether the answer carries no content.
func (a Answer) Empty() bool {
	switch a.Kind {
	case AnswerChoice:
		return a.Choice == ""
	case AnswerChoices:
		return len(a.Choices) == 0
	case AnswerText:
		for _, v := range a.Fields {
			if v != "" {
				return false
			}
		}
		return true
	case AnswerMeasurement:
		return a.Measurement == nil
	default:
		return true
	}
}

// selectedValues returns the selected option values regardless of
// single/multi kind.
func (a Answer) selectedValues() []string {
	switch a.Kind {
	case AnswerChoice:
		if a.Choice == "" {
			return nil
		}
		return []string{a.Choice}
	case AnswerChoices:
		return a.Choices
	default:
		return nil
	}
}

// matchesKind reports whether the answer variant fits the question kind.
func (a Answer) matchesKind(k QuestionKind) bool {
	switch k {
	case KindSingleSelect:
		return a.Kind == AnswerChoice
	case KindMultiSelect:
		return a.Kind == AnswerChoices
	case KindField:
		return a.Kind == AnswerText
	case KindMeasurement:
		return a.Kind == AnswerMeasurement
	default:
		return false
	}
}

// normalizeSet sorts values and removes duplicates.
func normalizeSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ResponseModel maps section id → question id → committed answer. It is
// mutated incrementally while a section is active and merged into the
// orchestrator's aggregate on section completion.
type ResponseModel map[string]map[string]Answer

// Section returns the answer map for a section, creating it on demand.
func (r ResponseModel) Section(sectionID string) map[string]Answer {
	if r[sectionID] == nil {
		r[sectionID] = make(map[string]Answer)
	}
	return r[sectionID]
}

// Clone deep-copies the model so snapshots are safe to hand out.
func (r ResponseModel) Clone() ResponseModel {
	out := make(ResponseModel, len(r))
	for sectionID, answers := range r {
		section := make(map[string]Answer, len(answers))
		for questionID, a := range answers {
			section[questionID] = a.clone()
		}
		out[sectionID] = section
	}
	return out
}

func (a Answer) clone() Answer {
	out := a
	if a.Choices != nil {
		out.Choices = append([]string(nil), a.Choices...)
	}
	if a.Fields != nil {
		out.Fields = make(map[string]string, len(a.Fields))
		for k, v := range a.Fields {
			out.Fields[k] = v
		}
	}
	if a.Measurement != nil {
		m := *a.Measurement
		out.Measurement = &m
	}
	return out
}
