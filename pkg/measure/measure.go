// Package measure turns free-form spoken or typed text into typed
// measurements with unit inference.
//
// Parsing is deliberately forgiving: filler phrases are stripped, then a
// fixed ordered list of pattern families is tried and the first match
// wins. When nothing matches the parsers report no match rather than an
// error, so callers can re-prompt the user instead of failing.
package measure

import (
	"regexp"
	"strconv"
	"strings"
)

// Unit identifies a measurement unit.
type Unit string

const (
	UnitInches      Unit = "in"
	UnitCentimeters Unit = "cm"
	UnitPounds      Unit = "lbs"
	UnitKilograms   Unit = "kg"
)

// Measurement is a parsed value with its inferred unit.
type Measurement struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// fillerPhrases are removed before pattern matching. Longer phrases come
// first so that partial overlaps strip cleanly.
var fillerPhrases = []string{
	"approximately",
	"my height is",
	"my weight is",
	"i weigh",
	"i am about",
	"i'm about",
	"i am",
	"i'm",
	"around",
	"roughly",
	"about",
	"like",
}

// Height pattern families, tried in order. First match wins; there is no
// backtracking across families.
var (
	reFeetInches = regexp.MustCompile(`(\d+)\s*(?:feet|foot|ft|')\s*(?:and\s+)?(\d+(?:\.\d+)?)\s*(?:inches|inch|in|")?`)
	reFeetOnly   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:feet|foot|ft|')`)
	reInchesOnly = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:inches|inch|in|")`)
	reCentim     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:centimeters|centimetres|centimeter|centimetre|cms|cm)`)
	reMeters     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:meters|metres|meter|metre|m)\b`)
)

// Weight pattern families, tried in order.
var (
	reStone     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:stones|stone|st)\b\s*(?:and\s+)?(?:(\d+(?:\.\d+)?)\s*(?:pounds|pound|lbs|lb))?`)
	rePounds    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:pounds|pound|lbs|lb)`)
	reKilograms = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:kilograms|kilogram|kilos|kilo|kgs|kg)`)
)

// ParseHeight extracts a height measurement from free-form text.
// Feet+inches combine as feet*12+inches with the unit fixed to inches;
// meters are converted to centimeters. Reports false when no pattern
// family matches — the caller should ask again, not fail.
func ParseHeight(text string) (Measurement, bool) {
	s := normalize(text)
	if s == "" {
		return Measurement{}, false
	}

	if m := reFeetInches.FindStringSubmatch(s); m != nil {
		feet := mustFloat(m[1])
		inches := mustFloat(m[2])
		return Measurement{Value: round1(feet*12 + inches), Unit: UnitInches}, true
	}
	if m := reFeetOnly.FindStringSubmatch(s); m != nil {
		return Measurement{Value: round1(mustFloat(m[1]) * 12), Unit: UnitInches}, true
	}
	if m := reInchesOnly.FindStringSubmatch(s); m != nil {
		return Measurement{Value: mustFloat(m[1]), Unit: UnitInches}, true
	}
	if m := reCentim.FindStringSubmatch(s); m != nil {
		return Measurement{Value: mustFloat(m[1]), Unit: UnitCentimeters}, true
	}
	if m := reMeters.FindStringSubmatch(s); m != nil {
		return Measurement{Value: round1(mustFloat(m[1]) * 100), Unit: UnitCentimeters}, true
	}

	return Measurement{}, false
}

// ParseWeight extracts a weight measurement from free-form text.
// Stone converts to pounds by *14 plus any trailing pounds remainder.
// Reports false when no pattern family matches.
func ParseWeight(text string) (Measurement, bool) {
	s := normalize(text)
	if s == "" {
		return Measurement{}, false
	}

	if m := reStone.FindStringSubmatch(s); m != nil {
		stone := mustFloat(m[1])
		var remainder float64
		if m[2] != "" {
			remainder = mustFloat(m[2])
		}
		return Measurement{Value: StoneToPounds(stone, remainder), Unit: UnitPounds}, true
	}
	if m := rePounds.FindStringSubmatch(s); m != nil {
		return Measurement{Value: mustFloat(m[1]), Unit: UnitPounds}, true
	}
	if m := reKilograms.FindStringSubmatch(s); m != nil {
		return Measurement{Value: mustFloat(m[1]), Unit: UnitKilograms}, true
	}

	return Measurement{}, false
}

// normalize lowercases the input and strips filler phrases.
func normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range fillerPhrases {
		s = strings.ReplaceAll(s, phrase, " ")
	}
	return strings.TrimSpace(s)
}

// mustFloat parses a string the regexp already guaranteed is numeric.
func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
