// Package units provides shared constants and conversions for speed and angle units.
// Everything inside the core packages is SI (m/s, radians); conversion happens at the
// document and API edges.
package units

import "math"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

const (
	mpsToKmh = 3.6
	mpsToMph = 2.2369362920544
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

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
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Unknown units leave the value in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * mpsToMph
	case KMPH, KPH:
		return speedMPS * mpsToKmh
	default:
		return speedMPS
	}
}

// KmhToMps converts km/h to m/s.
func KmhToMps(kmh float64) float64 { return kmh / mpsToKmh }

// MpsToKmh converts m/s to km/h.
func MpsToKmh(mps float64) float64 { return mps * mpsToKmh }

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180.0 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
