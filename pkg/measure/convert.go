package measure

import "math"

// Canonical conversion constants.
const (
	cmPerInch   = 2.54
	kgPerPound  = 0.45359237
	poundsPerSt = 14
)

// ConvertHeight converts a height value between inches and centimeters,
// rounding the result to 1 decimal place. Same-unit conversion returns
// the value rounded but otherwise unchanged. Round-tripping stays within
// 0.1 of the original.
func ConvertHeight(value float64, from, to Unit) float64 {
	if from == to {
		return round1(value)
	}
	switch {
	case from == UnitInches && to == UnitCentimeters:
		return round1(value * cmPerInch)
	case from == UnitCentimeters && to == UnitInches:
		return round1(value / cmPerInch)
	}
	return round1(value)
}

// ConvertWeight converts a weight value between pounds and kilograms,
// rounding to the nearest whole number. Same-unit conversion returns the
// value rounded but otherwise unchanged.
func ConvertWeight(value float64, from, to Unit) float64 {
	if from == to {
		return math.Round(value)
	}
	switch {
	case from == UnitPounds && to == UnitKilograms:
		return math.Round(value * kgPerPound)
	case from == UnitKilograms && to == UnitPounds:
		return math.Round(value / kgPerPound)
	}
	return math.Round(value)
}

// StoneToPounds converts whole stone plus a pounds remainder to pounds.
func StoneToPounds(stone, pounds float64) float64 {
	return stone*poundsPerSt + pounds
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
