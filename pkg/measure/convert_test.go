package measure_test

import (
	"math"
	"testing"

	"github.com/mealmind/go-mealmind/pkg/measure"
)

func TestConvertHeight(t *testing.T) {
	t.Run("inches to centimeters", func(t *testing.T) {
		got := measure.ConvertHeight(70, measure.UnitInches, measure.UnitCentimeters)
		if got != 177.8 {
			t.Errorf("got %v, want 177.8", got)
		}
	})

	t.Run("centimeters to inches", func(t *testing.T) {
		got := measure.ConvertHeight(177.8, measure.UnitCentimeters, measure.UnitInches)
		if got != 70.0 {
			t.Errorf("got %v, want 70.0", got)
		}
	})

	t.Run("same unit", func(t *testing.T) {
		got := measure.ConvertHeight(68.25, measure.UnitInches, measure.UnitInches)
		if got != 68.3 {
			t.Errorf("got %v, want 68.3", got)
		}
	})

	t.Run("round trip within tolerance", func(t *testing.T) {
		for x := 60.0; x <= 80.0; x += 0.5 {
			cm := measure.ConvertHeight(x, measure.UnitInches, measure.UnitCentimeters)
			back := measure.ConvertHeight(cm, measure.UnitCentimeters, measure.UnitInches)
			if math.Abs(back-x) > 0.1 {
				t.Errorf("round trip %v → %v → %v drifts more than 0.1", x, cm, back)
			}
		}
	})
}

func TestConvertWeight(t *testing.T) {
	t.Run("pounds to kilograms", func(t *testing.T) {
		got := measure.ConvertWeight(160, measure.UnitPounds, measure.UnitKilograms)
		if got != 73 {
			t.Errorf("got %v, want 73", got)
		}
	})

	t.Run("kilograms to pounds", func(t *testing.T) {
		got := measure.ConvertWeight(73, measure.UnitKilograms, measure.UnitPounds)
		if got != 161 {
			t.Errorf("got %v, want 161", got)
		}
	})

	t.Run("rounds to whole numbers", func(t *testing.T) {
		got := measure.ConvertWeight(150.6, measure.UnitPounds, measure.UnitPounds)
		if got != 151 {
			t.Errorf("got %v, want 151", got)
		}
	})
}

func TestStoneToPounds(t *testing.T) {
	if got := measure.StoneToPounds(11, 6); got != 160 {
		t.Errorf("got %v, want 160", got)
	}
	if got := measure.StoneToPounds(12, 0); got != 168 {
		t.Errorf("got %v, want 168", got)
	}
}
