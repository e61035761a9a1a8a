package onboarding

import (
	"github.com/mealmind/go-mealmind/pkg/measure"
	"github.com/mealmind/go-mealmind/pkg/parsing"
)

// DefaultSections is the shipped nutrition onboarding flow. Sections are
// pure configuration; the section engine interprets them.
func DefaultSections() []Section {
	return []Section{
		{
			ID:           "consent",
			Title:        "Terms & Privacy",
			VoiceIntro:   "Before we start, please review and accept the terms.",
			NonSkippable: true,
			Questions: []Question{
				{
					ID:       "accept_terms",
					Prompt:   "Do you accept the terms of service and privacy policy?",
					Kind:     KindSingleSelect,
					Required: true,
					Options: []Option{
						{Value: "accepted", Label: "I accept"},
					},
					Context:  parsing.ContextFreeText,
					Validate: NonEmpty(),
				},
			},
		},
		{
			ID:         "basics",
			Title:      "About you",
			VoiceIntro: "Let's get your baseline metrics. You can speak or type your answers.",
			Questions: []Question{
				{
					ID:          "height",
					Prompt:      "What is your height?",
					VoicePrompt: "How tall are you?",
					Kind:        KindMeasurement,
					Measure:     MeasureHeight,
					Required:    true,
					Context:     parsing.ContextMeasurementHeight,
					Validate:    MeasurementRange(36, 96, measure.UnitInches),
				},
				{
					ID:          "weight",
					Prompt:      "What is your current weight?",
					VoicePrompt: "What do you weigh at the moment?",
					Kind:        KindMeasurement,
					Measure:     MeasureWeight,
					Required:    true,
					Context:     parsing.ContextMeasurementWeight,
					Validate:    MeasurementRange(60, 700, measure.UnitPounds),
				},
				{
					ID:     "birth_year",
					Prompt: "What year were you born?",
					Kind:   KindField,
					Fields: []Field{
						{ID: "birth_year", Label: "Birth year"},
					},
					Required: true,
					Context:  parsing.ContextFreeText,
					Validate: NonEmpty(),
				},
			},
		},
		{
			ID:         "health",
			Title:      "Health history",
			VoiceIntro: "A few questions about your health so meal plans stay safe for you.",
			Questions: []Question{
				{
					ID:          "conditions",
					Prompt:      "Do you have any of these health conditions?",
					VoicePrompt: "Tell me about any health conditions you have.",
					Kind:        KindMultiSelect,
					Context:     parsing.ContextHealthConditions,
					Options: []Option{
						{Value: "diabetes", Label: "Diabetes"},
						{Value: "hypertension", Label: "High blood pressure"},
						{Value: "heart_disease", Label: "Heart disease"},
						{Value: "celiac", Label: "Celiac disease"},
						{Value: "ibs", Label: "IBS"},
						{Value: "none", Label: "None of these"},
					},
					RequiresDetail: true,
					DetailPrompt:   "Anything else we should know about these conditions?",
				},
				{
					ID:          "allergies",
					Prompt:      "Any food allergies or intolerances?",
					VoicePrompt: "Are you allergic or intolerant to any foods?",
					Kind:        KindMultiSelect,
					Context:     parsing.ContextAllergies,
					Options: []Option{
						{Value: "peanuts", Label: "Peanuts"},
						{Value: "tree_nuts", Label: "Tree nuts"},
						{Value: "dairy", Label: "Dairy"},
						{Value: "gluten", Label: "Gluten"},
						{Value: "shellfish", Label: "Shellfish"},
						{Value: "eggs", Label: "Eggs"},
						{Value: "soy", Label: "Soy"},
					},
				},
			},
		},
		{
			ID:         "diet",
			Title:      "How you eat",
			VoiceIntro: "Now tell me about how you like to eat.",
			Questions: []Question{
				{
					ID:          "dietary_style",
					Prompt:      "Which best describes your dietary style?",
					VoicePrompt: "Do you follow a particular dietary style?",
					Kind:        KindSingleSelect,
					Required:    true,
					Context:     parsing.ContextDietaryStyle,
					Options: []Option{
						{Value: "omnivore", Label: "Omnivore"},
						{Value: "vegetarian", Label: "Vegetarian"},
						{Value: "vegan", Label: "Vegan"},
						{Value: "pescatarian", Label: "Pescatarian"},
						{Value: "keto", Label: "Keto"},
						{Value: "paleo", Label: "Paleo"},
					},
					Validate: NonEmpty(),
				},
				{
					ID:          "favorite_cuisine",
					Prompt:      "What cuisine do you enjoy most?",
					VoicePrompt: "What kind of food do you enjoy most?",
					Kind:        KindSingleSelect,
					Context:     parsing.ContextFreeText,
					Options: []Option{
						{Value: "italian", Label: "Italian"},
						{Value: "mexican", Label: "Mexican"},
						{Value: "japanese", Label: "Japanese"},
						{Value: "indian", Label: "Indian"},
						{Value: "mediterranean", Label: "Mediterranean"},
						{Value: "american", Label: "American"},
					},
				},
			},
		},
		{
			ID:         "goals",
			Title:      "Your goals",
			VoiceIntro: "Last section. What are you working toward?",
			Questions: []Question{
				{
					ID:          "primary_goal",
					Prompt:      "What is your primary goal?",
					VoicePrompt: "What's the main thing you want to achieve?",
					Kind:        KindSingleSelect,
					Required:    true,
					Context:     parsing.ContextGoals,
					Options: []Option{
						{Value: "lose_weight", Label: "Lose weight"},
						{Value: "gain_muscle", Label: "Gain muscle"},
						{Value: "maintain", Label: "Maintain my weight"},
						{Value: "eat_healthier", Label: "Eat healthier"},
					},
					Validate: NonEmpty(),
				},
				{
					ID:          "target_weight",
					Prompt:      "Do you have a target weight?",
					VoicePrompt: "What weight are you aiming for?",
					Kind:        KindMeasurement,
					Measure:     MeasureWeight,
					Context:     parsing.ContextMeasurementWeight,
					Validate:    MeasurementRange(60, 700, measure.UnitPounds),
				},
			},
		},
	}
}
