package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false, want true", u)
		}
	}
	if IsValid("furlongs") {
		t.Error("IsValid(furlongs) = true, want false")
	}
	if IsValid("") {
		t.Error("IsValid(\"\") = true, want false")
	}
}

func TestConvertSpeed(t *testing.T) {
	c := Calibration{PixelsPerMetre: 100}

	tests := []struct {
		speedPXS float64
		units    string
		want     float64
	}{
		{100, PXS, 100},
		{100, MPS, 1},
		{100, MPH, 2.2369362920544},
		{100, KMPH, 3.6},
		{100, KPH, 3.6},
		{100, "bogus", 100}, // unknown units pass through
		{0, MPH, 0},
	}
	for _, tt := range tests {
		got := c.ConvertSpeed(tt.speedPXS, tt.units)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ConvertSpeed(%v, %q) = %v, want %v", tt.speedPXS, tt.units, got, tt.want)
		}
	}
}

func TestConvertSpeedZeroCalibrationFallsBack(t *testing.T) {
	c := Calibration{}
	got := c.ConvertSpeed(DefaultPixelsPerMetre, MPS)
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("zero calibration should fall back to default: got %v, want 1", got)
	}
}

func TestConvertDistance(t *testing.T) {
	c := Calibration{PixelsPerMetre: 200}
	if got := c.ConvertDistance(500, MPS); math.Abs(got-2.5) > 1e-9 {
		t.Errorf("ConvertDistance(500, mps) = %v, want 2.5", got)
	}
	if got := c.ConvertDistance(500, PXS); got != 500 {
		t.Errorf("ConvertDistance(500, pxs) = %v, want 500", got)
	}
}
