// Package onboarding implements the conversational onboarding flow: a
// fixed sequence of question sections driven by one data-parameterized
// section engine, with voice and manual input feeding a single response
// model and versioned progress persistence.
package onboarding

import (
	"errors"
	"fmt"

	"github.com/mealmind/go-mealmind/pkg/measure"
	"github.com/mealmind/go-mealmind/pkg/parsing"
)

// QuestionKind is the tagged variant over question shapes. Every switch
// over it handles all four cases.
type QuestionKind int

const (
	// KindSingleSelect picks exactly one option.
	KindSingleSelect QuestionKind = iota

	// KindMultiSelect maintains a selection set over the options.
	KindMultiSelect

	// KindField collects one or more free-form text fields.
	KindField

	// KindMeasurement collects a numeric quantity with a unit
	// (height or weight).
	KindMeasurement
)

func (k QuestionKind) String() string {
	switch k {
	case KindSingleSelect:
		return "single_select"
	case KindMultiSelect:
		return "multi_select"
	case KindField:
		return "field"
	case KindMeasurement:
		return "measurement"
	default:
		return "unknown"
	}
}

// MeasureKind distinguishes the two measurement question flavors.
type MeasureKind string

const (
	MeasureHeight MeasureKind = "height"
	MeasureWeight MeasureKind = "weight"
)

// Option is one selectable choice.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field is one named free-form input within a KindField question.
type Field struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Validator checks a candidate answer. Voice-derived answers pass
// through the same validator as manual ones.
type Validator func(a Answer) error

// Question is immutable configuration data for one question.
type Question struct {
	ID          string
	Prompt      string
	VoicePrompt string
	Kind        QuestionKind
	Options     []Option
	Measure     MeasureKind
	Fields      []Field
	Required    bool

	// RequiresDetail puts the section machine in an awaiting-detail
	// sub-state after the answer commits, until a free-text detail is
	// provided.
	RequiresDetail bool
	DetailPrompt   string

	// Context tags transcripts sent to the parsing gateway.
	Context parsing.ContextTag

	// Validate, if set, runs before any answer commits.
	Validate Validator
}

// Section is one thematic group of questions. Immutable once defined.
type Section struct {
	ID          string
	Title       string
	VoiceIntro  string
	Questions   []Question
	NonSkippable bool
}

// Question returns the question with the given id, if present.
func (s Section) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Common validators.

// NonEmpty rejects answers with no content.
func NonEmpty() Validator {
	return func(a Answer) error {
		if a.Empty() {
			return errors.New("an answer is required")
		}
		return nil
	}
}

// ChoiceIn rejects selections outside the given option set.
func ChoiceIn(options []Option) Validator {
	valid := make(map[string]bool, len(options))
	for _, opt := range options {
		valid[opt.Value] = true
	}
	return func(a Answer) error {
		for _, v := range a.selectedValues() {
			if !valid[v] {
				return fmt.Errorf("%q is not one of the available choices", v)
			}
		}
		return nil
	}
}

// MeasurementRange rejects measurement values outside [min, max] in the
// given unit. Answers in the sibling unit are converted before the check.
func MeasurementRange(min, max float64, unit measure.Unit) Validator {
	return func(a Answer) error {
		if a.Measurement == nil {
			return errors.New("a measurement is required")
		}
		v := a.Measurement.Value
		if a.Measurement.Unit != unit {
			switch unit {
			case measure.UnitInches, measure.UnitCentimeters:
				v = measure.ConvertHeight(v, a.Measurement.Unit, unit)
			case measure.UnitPounds, measure.UnitKilograms:
				v = measure.ConvertWeight(v, a.Measurement.Unit, unit)
			}
		}
		if v < min || v > max {
			return fmt.Errorf("value %.1f is outside the expected range %.0f-%.0f %s", v, min, max, unit)
		}
		return nil
	}
}
