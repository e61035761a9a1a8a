// Package parsing sends transcripts to the AI parsing service and
// returns structured entities (conditions, measurements, free-text
// fields).
//
// The service is untrusted: responses must match one of two fixed
// schemas (measurement-parse or intent/entity-parse) before being
// believed. Output failing the structural contract is a soft failure —
// the original transcript comes back unchanged with Fallback set, so
// the caller can degrade to manual entry instead of aborting.
package parsing

// ContextTag identifies which question family is active, so the service
// knows what to extract.
type ContextTag string

const (
	ContextMeasurementHeight ContextTag = "measurement_height"
	ContextMeasurementWeight ContextTag = "measurement_weight"
	ContextHealthConditions  ContextTag = "health_conditions"
	ContextDietaryStyle      ContextTag = "dietary_style"
	ContextAllergies         ContextTag = "allergies"
	ContextGoals             ContextTag = "goals"
	ContextFreeText          ContextTag = "free_text"
)

// ConfidenceThreshold is the minimum service-reported reliability score
// required to auto-accept a parsed measurement without confirmation.
const ConfidenceThreshold = 0.8

// Entity is a structured piece of information extracted from free text.
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Measurement is a parsed numeric quantity with its unit.
type Measurement struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Result is the outcome of parsing one transcript.
type Result struct {
	// Transcript is the input text, always present.
	Transcript string

	// Intent is the recognized intent, when the service returned the
	// intent/entity schema.
	Intent string

	// Entities are the extracted entities, when present.
	Entities []Entity

	// Details holds free-text fields keyed by name.
	Details map[string]string

	// Measurement is set when the service returned the measurement schema.
	Measurement *Measurement

	// Confidence is the service-reported reliability in [0,1].
	// Only meaningful for measurement results.
	Confidence float64

	// Fallback is true when the service output failed its structural
	// contract and the transcript should be handled manually.
	Fallback bool
}

// Reliable reports whether a measurement result clears the acceptance
// threshold. Fallback results are never reliable.
func (r *Result) Reliable() bool {
	if r.Fallback || r.Measurement == nil {
		return false
	}
	return r.Confidence >= ConfidenceThreshold
}

// fallbackResult builds the soft-failure result for a transcript.
func fallbackResult(transcript string) *Result {
	return &Result{Transcript: transcript, Fallback: true}
}
