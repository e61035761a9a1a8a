package onboarding_test

import (
	"context"
	"testing"

	"github.com/mealmind/go-mealmind/pkg/measure"
	"github.com/mealmind/go-mealmind/pkg/onboarding"
	"github.com/mealmind/go-mealmind/pkg/parsing"
)

func cuisineSection() onboarding.Section {
	return onboarding.Section{
		ID: "diet",
		Questions: []onboarding.Question{
			{
				ID:       "favorite_cuisine",
				Prompt:   "What cuisine do you enjoy most?",
				Kind:     onboarding.KindSingleSelect,
				Required: true,
				Options: []onboarding.Option{
					{Value: "italian", Label: "Italian"},
					{Value: "mexican", Label: "Mexican"},
					{Value: "japanese", Label: "Japanese"},
				},
				Validate: onboarding.NonEmpty(),
			},
			{
				ID:   "snacks",
				Kind: onboarding.KindMultiSelect,
				Options: []onboarding.Option{
					{Value: "fruit", Label: "Fruit"},
					{Value: "nuts", Label: "Nuts"},
					{Value: "chips", Label: "Chips"},
				},
			},
		},
	}
}

func TestVoiceSingleSelectCommitsMatchedOption(t *testing.T) {
	m := onboarding.NewSectionMachine(cuisineSection(), nil, nil)

	outcome, err := m.HandleVoiceAnswer(context.Background(), "I like Italian food")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Committed {
		t.Fatalf("expected commit, got %+v", outcome)
	}

	answers := m.Answers()
	if got := answers["favorite_cuisine"].Choice; got != "italian" {
		t.Errorf("committed choice = %q, want italian", got)
	}
	if _, ok := answers["snacks"]; ok {
		t.Error("other questions' answers must not be touched")
	}
}

func TestVoiceNoMatchLeavesBufferUnchanged(t *testing.T) {
	m := onboarding.NewSectionMachine(cuisineSection(), nil, nil)

	for _, transcript := range []string{"", "   ", "I enjoy long walks"} {
		outcome, err := m.HandleVoiceAnswer(context.Background(), transcript)
		if err != nil {
			t.Fatalf("transcript %q: unexpected error: %v", transcript, err)
		}
		if outcome.Committed {
			t.Errorf("transcript %q: must not commit", transcript)
		}
		if outcome.RetryPrompt == "" {
			t.Errorf("transcript %q: expected a retry prompt", transcript)
		}
		if len(m.Answers()) != 0 {
			t.Errorf("transcript %q: buffer mutated: %v", transcript, m.Answers())
		}
	}
}

func TestManualAnswerLastWriteWins(t *testing.T) {
	m := onboarding.NewSectionMachine(cuisineSection(), nil, nil)

	if err := m.HandleManualAnswer("favorite_cuisine", onboarding.ChoiceAnswer("mexican")); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if err := m.HandleManualAnswer("favorite_cuisine", onboarding.ChoiceAnswer("japanese")); err != nil {
		t.Fatalf("second answer: %v", err)
	}

	if got := m.Answers()["favorite_cuisine"].Choice; got != "japanese" {
		t.Errorf("committed = %q, want the later value", got)
	}
	if len(m.Errors()) != 0 {
		t.Errorf("errors = %v, want none", m.Errors())
	}
}

func TestValidationFailureRecordsSingleError(t *testing.T) {
	m := onboarding.NewSectionMachine(cuisineSection(), nil, nil)

	for i := 0; i < 2; i++ {
		if err := m.HandleManualAnswer("favorite_cuisine", onboarding.ChoiceAnswer("")); err == nil {
			t.Fatal("empty required answer must fail validation")
		}
	}

	if len(m.Errors()) != 1 {
		t.Errorf("errors = %v, duplicate entries must not accumulate", m.Errors())
	}
	if m.Index() != 0 {
		t.Errorf("index = %d, validation failure must not advance", m.Index())
	}

	// A valid answer clears the error.
	if err := m.HandleManualAnswer("favorite_cuisine", onboarding.ChoiceAnswer("italian")); err != nil {
		t.Fatalf("valid answer: %v", err)
	}
	if len(m.Errors()) != 0 {
		t.Errorf("errors = %v, want cleared", m.Errors())
	}
}

func TestIsCompleteRequiresAllRequiredAnswers(t *testing.T) {
	m := onboarding.NewSectionMachine(cuisineSection(), nil, nil)

	if m.IsComplete() {
		t.Fatal("fresh section must not be complete")
	}
	if err := m.HandleManualAnswer("snacks", onboarding.ChoicesAnswer("fruit")); err != nil {
		t.Fatalf("optional answer: %v", err)
	}
	if m.IsComplete() {
		t.Fatal("required question unanswered, must not be complete")
	}
	if err := m.HandleManualAnswer("favorite_cuisine", onboarding.ChoiceAnswer("italian")); err != nil {
		t.Fatalf("required answer: %v", err)
	}
	if !m.IsComplete() {
		t.Fatal("all required questions answered, must be complete")
	}
}

func TestMultiSelectSetSemantics(t *testing.T) {
	m := onboarding.NewSectionMachine(cuisineSection(), nil, nil)

	m.ToggleChoice("snacks", "fruit")
	m.ToggleChoice("snacks", "nuts")
	m.ToggleChoice("snacks", "fruit") // toggle off

	got := m.Answers()["snacks"].Choices
	if len(got) != 1 || got[0] != "nuts" {
		t.Fatalf("choices = %v, want [nuts]", got)
	}

	// Voice input merges into the prior selection without clearing it.
	m.Seek(1)
	outcome, err := m.HandleVoiceAnswer(context.Background(), "add some chips please")
	if err != nil || !outcome.Committed {
		t.Fatalf("voice toggle: outcome=%+v err=%v", outcome, err)
	}
	got = m.Answers()["snacks"].Choices
	if len(got) != 2 || got[0] != "chips" || got[1] != "nuts" {
		t.Fatalf("choices = %v, want [chips nuts]", got)
	}
}

func TestVoiceMultiSelectNegationRemoves(t *testing.T) {
	gateway := &parsing.Mock{
		ParseFunc: func(ctx context.Context, transcript string, tag parsing.ContextTag) (*parsing.Result, error) {
			return &parsing.Result{
				Transcript: transcript,
				Intent:     "update_selection",
				Entities: []parsing.Entity{
					{Type: "negation", Value: "nuts"},
					{Type: "snack", Value: "chips"},
				},
			}, nil
		},
	}
	m := onboarding.NewSectionMachine(cuisineSection(), map[string]onboarding.Answer{
		"snacks": onboarding.ChoicesAnswer("fruit", "nuts"),
	}, gateway)
	m.Seek(1)

	outcome, err := m.HandleVoiceAnswer(context.Background(), "chips instead of nuts")
	if err != nil || !outcome.Committed {
		t.Fatalf("outcome=%+v err=%v", outcome, err)
	}
	got := m.Answers()["snacks"].Choices
	if len(got) != 2 || got[0] != "chips" || got[1] != "fruit" {
		t.Fatalf("choices = %v, want [chips fruit]", got)
	}
}

func TestAwaitingDetailSubState(t *testing.T) {
	section := onboarding.Section{
		ID: "health",
		Questions: []onboarding.Question{
			{
				ID:   "conditions",
				Kind: onboarding.KindMultiSelect,
				Options: []onboarding.Option{
					{Value: "diabetes", Label: "Diabetes"},
				},
				RequiresDetail: true,
			},
			{ID: "notes", Kind: onboarding.KindField},
		},
	}
	m := onboarding.NewSectionMachine(section, nil, nil)

	if err := m.HandleManualAnswer("conditions", onboarding.ChoicesAnswer("diabetes")); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if qid, waiting := m.AwaitingDetail(); !waiting || qid != "conditions" {
		t.Fatalf("awaiting = %q/%v, want conditions", qid, waiting)
	}
	if m.IsComplete() {
		t.Fatal("must not be complete while awaiting detail")
	}
	if m.Index() != 0 {
		t.Fatalf("index = %d, must not advance while awaiting detail", m.Index())
	}

	if err := m.ProvideDetail("diagnosed in 2019"); err != nil {
		t.Fatalf("detail: %v", err)
	}
	if _, waiting := m.AwaitingDetail(); waiting {
		t.Fatal("detail provided, sub-state must clear")
	}
	if got := m.Answers()["conditions"].Detail; got != "diagnosed in 2019" {
		t.Errorf("detail = %q", got)
	}
	if m.Index() != 1 {
		t.Errorf("index = %d, want advanced to 1", m.Index())
	}
}

func TestDetailFollowUpAppliesToEveryChannel(t *testing.T) {
	section := onboarding.Section{
		ID: "health",
		Questions: []onboarding.Question{
			{
				ID:   "conditions",
				Kind: onboarding.KindMultiSelect,
				Options: []onboarding.Option{
					{Value: "diabetes", Label: "Diabetes"},
					{Value: "hypertension", Label: "Hypertension"},
				},
				RequiresDetail: true,
			},
			{ID: "notes", Kind: onboarding.KindField},
		},
	}

	t.Run("toggle enters the sub-state", func(t *testing.T) {
		m := onboarding.NewSectionMachine(section, nil, nil)

		if err := m.ToggleChoice("conditions", "diabetes"); err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if qid, waiting := m.AwaitingDetail(); !waiting || qid != "conditions" {
			t.Fatalf("awaiting = %q/%v, want conditions", qid, waiting)
		}

		// Emptying the selection withdraws the follow-up prompt.
		if err := m.ToggleChoice("conditions", "diabetes"); err != nil {
			t.Fatalf("toggle off: %v", err)
		}
		if _, waiting := m.AwaitingDetail(); waiting {
			t.Fatal("empty selection must clear the sub-state")
		}
	})

	t.Run("voice enters the sub-state", func(t *testing.T) {
		m := onboarding.NewSectionMachine(section, nil, nil)

		outcome, err := m.HandleVoiceAnswer(context.Background(), "I have diabetes")
		if err != nil || !outcome.Committed {
			t.Fatalf("outcome=%+v err=%v", outcome, err)
		}
		if qid, waiting := m.AwaitingDetail(); !waiting || qid != "conditions" {
			t.Fatalf("awaiting = %q/%v, want conditions", qid, waiting)
		}
		if m.Index() != 0 {
			t.Fatalf("index = %d, must not advance while awaiting detail", m.Index())
		}

		if err := m.ProvideDetail("type 2, managed by diet"); err != nil {
			t.Fatalf("detail: %v", err)
		}
		if got := m.Answers()["conditions"].Detail; got != "type 2, managed by diet" {
			t.Errorf("detail = %q", got)
		}
		if m.Index() != 1 {
			t.Errorf("index = %d, want advanced to 1", m.Index())
		}
	})
}

func TestVoiceMeasurementLocalParser(t *testing.T) {
	section := onboarding.Section{
		ID: "basics",
		Questions: []onboarding.Question{
			{
				ID:       "height",
				Kind:     onboarding.KindMeasurement,
				Measure:  onboarding.MeasureHeight,
				Required: true,
				Validate: onboarding.MeasurementRange(36, 96, measure.UnitInches),
			},
		},
	}
	m := onboarding.NewSectionMachine(section, nil, nil)

	outcome, err := m.HandleVoiceAnswer(context.Background(), "I'm about 5 feet 10 inches")
	if err != nil || !outcome.Committed {
		t.Fatalf("outcome=%+v err=%v", outcome, err)
	}
	got := m.Answers()["height"].Measurement
	if got == nil || got.Value != 70 || got.Unit != measure.UnitInches {
		t.Fatalf("measurement = %+v, want 70 in", got)
	}
}

func TestVoiceMeasurementGatewayFallback(t *testing.T) {
	section := onboarding.Section{
		ID: "basics",
		Questions: []onboarding.Question{
			{
				ID:      "weight",
				Kind:    onboarding.KindMeasurement,
				Measure: onboarding.MeasureWeight,
				Context: parsing.ContextMeasurementWeight,
			},
		},
	}

	t.Run("reliable result commits", func(t *testing.T) {
		m := onboarding.NewSectionMachine(section, nil, parsing.WithMeasurement(82, "kg", 0.95))
		outcome, err := m.HandleVoiceAnswer(context.Background(), "eighty two kilos give or take")
		if err != nil || !outcome.Committed {
			t.Fatalf("outcome=%+v err=%v", outcome, err)
		}
		got := m.Answers()["weight"].Measurement
		if got == nil || got.Value != 82 || got.Unit != measure.UnitKilograms {
			t.Fatalf("measurement = %+v, want 82 kg", got)
		}
	})

	t.Run("below threshold prompts retry", func(t *testing.T) {
		m := onboarding.NewSectionMachine(section, nil, parsing.WithMeasurement(82, "kg", 0.4))
		outcome, err := m.HandleVoiceAnswer(context.Background(), "eighty two ish")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome.Committed || outcome.RetryPrompt == "" {
			t.Fatalf("unreliable parse must prompt retry, got %+v", outcome)
		}
		if len(m.Answers()) != 0 {
			t.Errorf("buffer mutated: %v", m.Answers())
		}
	})
}

func TestVoiceValidatorAppliesToVoiceAnswers(t *testing.T) {
	section := onboarding.Section{
		ID: "basics",
		Questions: []onboarding.Question{
			{
				ID:       "height",
				Kind:     onboarding.KindMeasurement,
				Measure:  onboarding.MeasureHeight,
				Validate: onboarding.MeasurementRange(36, 96, measure.UnitInches),
			},
		},
	}
	m := onboarding.NewSectionMachine(section, nil, nil)

	outcome, err := m.HandleVoiceAnswer(context.Background(), "300 inches")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Committed {
		t.Fatal("out-of-range voice answer must not commit")
	}
	if len(m.Answers()) != 0 {
		t.Errorf("buffer mutated: %v", m.Answers())
	}
}

func TestResumeSeedsBuffer(t *testing.T) {
	saved := map[string]onboarding.Answer{
		"favorite_cuisine": onboarding.ChoiceAnswer("japanese"),
	}
	m := onboarding.NewSectionMachine(cuisineSection(), saved, nil)

	if got := m.Answers()["favorite_cuisine"].Choice; got != "japanese" {
		t.Errorf("resumed answer = %q", got)
	}
	if !m.IsComplete() {
		t.Error("section with all required answers resumed must be complete")
	}
}
