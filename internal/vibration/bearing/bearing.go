// Package bearing derives the four characteristic rolling-element fault
// frequencies (FTF, BPFO, BPFI, BSF) from bearing geometry, a catalog
// designation, or directly supplied values. All three construction paths
// converge on the same FrequencySet so downstream consumers never branch on
// how the frequencies were obtained.
package bearing

import (
	"fmt"
	"math"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// Geometry describes the physical dimensions of a rolling-element bearing.
type Geometry struct {
	// NumRollers is the number of rolling elements (balls or rollers), >= 1.
	NumRollers int `json:"num_rollers"`

	// BallDiameter is the ball or roller diameter in mm.
	BallDiameter float64 `json:"ball_diameter_mm"`

	// PitchDiameter is the pitch (cage) diameter in mm. BallDiameter divided
	// by PitchDiameter must lie strictly in [0, 1).
	PitchDiameter float64 `json:"pitch_diameter_mm"`

	// ContactAngle is the contact angle in radians, 0 for radial bearings.
	ContactAngle float64 `json:"contact_angle_rad"`
}

// Validate checks the kinematic preconditions of the geometry formulas.
func (g Geometry) Validate() error {
	if g.NumRollers < 1 {
		return fmt.Errorf("%w: bearing must have at least 1 rolling element, got %d", vibration.ErrInvalidInput, g.NumRollers)
	}
	if g.PitchDiameter <= 0 {
		return fmt.Errorf("%w: pitch diameter %v must be > 0", vibration.ErrInvalidInput, g.PitchDiameter)
	}
	ratio := g.BallDiameter / g.PitchDiameter
	if ratio < 0 || ratio >= 1 {
		return fmt.Errorf("%w: ball/pitch diameter ratio %v must be in [0, 1)", vibration.ErrInvalidInput, ratio)
	}
	return nil
}

// FrequencySet holds the four characteristic fault frequencies in Hz at a
// given shaft speed. All values are non-negative.
type FrequencySet struct {
	ShaftHz float64 `json:"shaft_hz"`
	FTF     float64 `json:"ftf_hz"`
	BPFO    float64 `json:"bpfo_hz"`
	BPFI    float64 `json:"bpfi_hz"`
	BSF     float64 `json:"bsf_hz"`
}

// FromGeometry computes the frequency set from bearing geometry and shaft
// speed using the standard rolling-element kinematics:
//
//	FTF  = f_shaft · 0.5 · (1 − (Bd/Pd)·cos α)
//	BPFO = f_shaft · (N/2) · (1 − (Bd/Pd)·cos α)
//	BPFI = f_shaft · (N/2) · (1 + (Bd/Pd)·cos α)
//	BSF  = f_shaft · (Pd/(2·Bd)) · (1 − ((Bd/Pd)·cos α)²)
func FromGeometry(g Geometry, rpm float64) (FrequencySet, error) {
	if rpm <= 0 {
		return FrequencySet{}, fmt.Errorf("bearing frequencies: %w: rpm %v must be > 0", vibration.ErrInvalidInput, rpm)
	}
	if err := g.Validate(); err != nil {
		return FrequencySet{}, fmt.Errorf("bearing frequencies: %w", err)
	}

	fShaft := rpm / 60.0
	ratioCos := (g.BallDiameter / g.PitchDiameter) * math.Cos(g.ContactAngle)
	n := float64(g.NumRollers)

	set := FrequencySet{
		ShaftHz: fShaft,
		FTF:     fShaft * 0.5 * (1 - ratioCos),
		BPFO:    fShaft * (n / 2) * (1 - ratioCos),
		BPFI:    fShaft * (n / 2) * (1 + ratioCos),
	}
	if g.BallDiameter > 0 {
		set.BSF = fShaft * (g.PitchDiameter / (2 * g.BallDiameter)) * (1 - ratioCos*ratioCos)
	}
	return set, nil
}

// FromCatalog looks up a designation in the built-in catalog and computes
// the frequency set at the given shaft speed.
func FromCatalog(designation string, rpm float64) (FrequencySet, error) {
	entry, ok := Lookup(designation)
	if !ok {
		return FrequencySet{}, fmt.Errorf("bearing frequencies: %w: unknown designation %q", vibration.ErrInvalidInput, designation)
	}
	return FromGeometry(entry.Geometry, rpm)
}

// Direct wraps caller-supplied frequencies, bypassing geometry entirely.
// shaftHz may be zero when the shaft speed is unknown.
func Direct(shaftHz, ftf, bpfo, bpfi, bsf float64) (FrequencySet, error) {
	for _, v := range []float64{shaftHz, ftf, bpfo, bpfi, bsf} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return FrequencySet{}, fmt.Errorf("bearing frequencies: %w: frequencies must be finite and non-negative", vibration.ErrInvalidInput)
		}
	}
	return FrequencySet{ShaftHz: shaftHz, FTF: ftf, BPFO: bpfo, BPFI: bpfi, BSF: bsf}, nil
}

// PerRPM returns the four fault frequencies expressed per unit RPM for a
// catalog designation, suitable for callers holding coefficient tables
// instead of geometry. Multiplying each coefficient by the running RPM gives
// the frequency in Hz.
func PerRPM(designation string) (FrequencySet, error) {
	// Frequencies are linear in shaft speed, so the coefficients are the
	// set at 1 RPM.
	return FromCatalog(designation, 1)
}

// Source is the tagged union of the three construction paths. Exactly one
// field should be populated; Resolve collapses it into a canonical
// FrequencySet once, at the orchestration boundary.
type Source struct {
	// Geometry constructs the set from physical dimensions (requires RPM).
	Geometry *Geometry `json:"geometry,omitempty"`

	// Designation names a catalog entry (requires RPM).
	Designation string `json:"designation,omitempty"`

	// Direct supplies the four frequencies as measured or published values;
	// no RPM is needed.
	Direct *FrequencySet `json:"direct,omitempty"`
}

// NeedsRPM reports whether resolving this source requires a shaft speed.
func (s Source) NeedsRPM() bool {
	return s.Direct == nil
}

// Resolve collapses the source into a FrequencySet. rpm is ignored for the
// direct path and required for the geometry and catalog paths.
func (s Source) Resolve(rpm float64) (FrequencySet, error) {
	switch {
	case s.Direct != nil:
		return Direct(s.Direct.ShaftHz, s.Direct.FTF, s.Direct.BPFO, s.Direct.BPFI, s.Direct.BSF)
	case s.Geometry != nil:
		return FromGeometry(*s.Geometry, rpm)
	case s.Designation != "":
		return FromCatalog(s.Designation, rpm)
	}
	return FrequencySet{}, fmt.Errorf("bearing frequencies: %w: empty bearing source", vibration.ErrInvalidInput)
}
