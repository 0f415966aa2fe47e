// Package units provides shared constants and conversions for distance and
// altitude values.
package units

// Unit constants
const (
	KM = "km"
	MI = "mi"
)

// FeetToMeters is the unit-to-meter factor for the dataset's raw altitude
// values, which are recorded in feet.
const FeetToMeters = 0.3048

// ValidUnits contains all valid distance unit values
var ValidUnits = []string{KM, MI}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "km, mi"
}

// ConvertDistance converts a distance from kilometers to the target units.
// Distances are computed and stored in kilometers.
func ConvertDistance(distanceKm float64, targetUnits string) float64 {
	switch targetUnits {
	case MI:
		return distanceKm * 0.621371 // km to miles
	case KM:
		return distanceKm // no conversion needed
	default:
		return distanceKm // default to km if unknown unit
	}
}

// AltitudeGainMeters converts an accumulated altitude gain in raw dataset
// units (feet) to meters. Applied once at the end of an aggregation, not
// per-delta.
func AltitudeGainMeters(gainFeet float64) float64 {
	return gainFeet * FeetToMeters
}
