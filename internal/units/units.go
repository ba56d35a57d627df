// Package units provides shared constants and conversion for speed units.
//
// Tracker kinematics are computed in pixels per second. A pixels-per-metre
// calibration factor (from the camera setup) converts to metric units before
// any human-facing conversion.
package units

// Unit constants
const (
	PXS  = "pxs"
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values.
var ValidUnits = []string{PXS, MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages.
func GetValidUnitsString() string {
	return "pxs, mps, mph, kmph, kph"
}
