// Package units provides shared constants and conversions for vibration
// quantities. Signals are stored in the unit they were acquired in; the
// severity assessor converts to m/s² before integrating to velocity.
package units

import "strings"

// Acceleration unit names understood by the engine.
const (
	G   = "g"    // standard gravity
	MS2 = "m/s2" // metres per second squared
	MMS = "mm/s" // millimetres per second (already a velocity)
)

// StandardGravity is the conversion factor from g to m/s².
const StandardGravity = 9.80665

// MetersToMillimeters converts metres to millimetres.
const MetersToMillimeters = 1000.0

// ValidAccelerationUnits lists the unit labels accepted on signal load.
var ValidAccelerationUnits = []string{G, MS2, MMS}

// IsValidUnit reports whether the given label is a recognised sample unit.
// An empty label is accepted and treated as g.
func IsValidUnit(unit string) bool {
	if unit == "" {
		return true
	}
	u := Normalize(unit)
	for _, v := range ValidAccelerationUnits {
		if u == v {
			return true
		}
	}
	return false
}

// Normalize maps unit spellings ("G", "m/s^2", "ms2") onto the canonical
// constants above. Unknown labels are returned lower-cased.
func Normalize(unit string) string {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "g":
		return G
	case "m/s2", "m/s^2", "ms2", "mps2":
		return MS2
	case "mm/s", "mms":
		return MMS
	}
	return strings.ToLower(strings.TrimSpace(unit))
}

// AccelerationToMS2 converts an acceleration value in the given unit to
// m/s². Values already in m/s² pass through unchanged.
func AccelerationToMS2(value float64, unit string) float64 {
	if Normalize(unit) == G {
		return value * StandardGravity
	}
	return value
}

// RPMToHz converts a shaft speed in revolutions per minute to Hz.
func RPMToHz(rpm float64) float64 { return rpm / 60.0 }
