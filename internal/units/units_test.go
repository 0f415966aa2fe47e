package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	for _, u := range []string{"km", "mi"} {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false, want true", u)
		}
	}
	for _, u := range []string{"m", "ft", "", "kmph"} {
		if IsValid(u) {
			t.Errorf("IsValid(%q) = true, want false", u)
		}
	}
}

func TestConvertDistance(t *testing.T) {
	if got := ConvertDistance(100, KM); got != 100 {
		t.Errorf("ConvertDistance(100, km) = %f, want 100", got)
	}
	if got := ConvertDistance(100, MI); math.Abs(got-62.1371) > 1e-9 {
		t.Errorf("ConvertDistance(100, mi) = %f, want 62.1371", got)
	}
	// Unknown units fall back to km
	if got := ConvertDistance(42, "furlongs"); got != 42 {
		t.Errorf("ConvertDistance(42, furlongs) = %f, want 42", got)
	}
}

func TestAltitudeGainMeters(t *testing.T) {
	// 40 feet of accumulated gain scales to 12.192 meters
	if got := AltitudeGainMeters(40); math.Abs(got-12.192) > 1e-12 {
		t.Errorf("AltitudeGainMeters(40) = %f, want 12.192", got)
	}
	if got := AltitudeGainMeters(0); got != 0 {
		t.Errorf("AltitudeGainMeters(0) = %f, want 0", got)
	}
}
