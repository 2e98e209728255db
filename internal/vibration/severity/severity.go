// Package severity classifies broadband vibration against a four-zone,
// four-machine-group RMS-velocity standard (ISO 10816 style).
//
// Acceleration signals are converted to velocity by frequency-domain
// integration: each spectral component in the 10–1000 Hz evaluation band is
// divided by 2πf and the broadband RMS is accumulated directly from the
// single-sided velocity amplitudes.
package severity

import (
	"fmt"
	"math"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/units"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/dsp"
)

// Evaluation band for broadband RMS velocity, in Hz.
const (
	BandLowHz  = 10.0
	BandHighHz = 1000.0
)

// Zone is the four-letter severity verdict.
type Zone string

const (
	ZoneA Zone = "A" // good, newly commissioned machines
	ZoneB Zone = "B" // acceptable for unrestricted long-term operation
	ZoneC Zone = "C" // unsatisfactory for long-term operation
	ZoneD Zone = "D" // severe enough to cause damage
)

// Thresholds holds the zone boundary velocities in mm/s RMS for one machine
// group. Boundaries are inclusive on the lower zone: RMS exactly at AB
// classifies as A.
type Thresholds struct {
	AB float64 `json:"a_b_mm_s"`
	BC float64 `json:"b_c_mm_s"`
	CD float64 `json:"c_d_mm_s"`
}

// groupThresholds maps machine group (1–4) to its zone boundaries.
//
//	Group 1: large machines (> 300 kW) on rigid foundations
//	Group 2: medium machines (15–300 kW) on rigid foundations
//	Group 3: large machines on flexible foundations
//	Group 4: small machines (< 15 kW)
var groupThresholds = map[int]Thresholds{
	1: {AB: 2.8, BC: 7.1, CD: 18.0},
	2: {AB: 1.4, BC: 2.8, CD: 7.1},
	3: {AB: 3.5, BC: 9.0, CD: 22.4},
	4: {AB: 0.71, BC: 1.8, CD: 4.5},
}

// Assessment is the severity verdict for one measurement.
type Assessment struct {
	MachineGroup int        `json:"machine_group"`
	RMSVelocity  float64    `json:"rms_velocity_mm_s"`
	Zone         Zone       `json:"zone"`
	Thresholds   Thresholds `json:"thresholds"`
}

// Describe returns the operator-facing meaning of the zone.
func (a Assessment) Describe() string {
	switch a.Zone {
	case ZoneA:
		return "Good - typical of newly commissioned machines"
	case ZoneB:
		return "Acceptable - unrestricted long-term operation"
	case ZoneC:
		return "Unsatisfactory - not suitable for continuous long-term operation"
	default:
		return "Unacceptable - severity sufficient to cause damage, stop the machine"
	}
}

// Classify assigns a zone to an RMS velocity already expressed in mm/s.
func Classify(rmsVelocityMMS float64, machineGroup int) (Assessment, error) {
	if rmsVelocityMMS < 0 || math.IsNaN(rmsVelocityMMS) || math.IsInf(rmsVelocityMMS, 0) {
		return Assessment{}, fmt.Errorf("severity: %w: rms velocity %v must be finite and non-negative", vibration.ErrInvalidInput, rmsVelocityMMS)
	}
	th, ok := groupThresholds[machineGroup]
	if !ok {
		return Assessment{}, fmt.Errorf("severity: %w: machine group %d must be 1-4", vibration.ErrInvalidInput, machineGroup)
	}

	var zone Zone
	switch {
	case rmsVelocityMMS <= th.AB:
		zone = ZoneA
	case rmsVelocityMMS <= th.BC:
		zone = ZoneB
	case rmsVelocityMMS <= th.CD:
		zone = ZoneC
	default:
		zone = ZoneD
	}

	return Assessment{
		MachineGroup: machineGroup,
		RMSVelocity:  rmsVelocityMMS,
		Zone:         zone,
		Thresholds:   th,
	}, nil
}

// AssessSignal converts an acceleration signal to broadband RMS velocity and
// classifies it. Signals whose Units are already mm/s are assessed from
// their time-domain RMS without integration.
func AssessSignal(sig vibration.Signal, machineGroup int) (Assessment, error) {
	rms, err := VelocityRMS(sig)
	if err != nil {
		return Assessment{}, err
	}
	return Classify(rms, machineGroup)
}

// VelocityRMS returns the broadband RMS velocity of the signal in mm/s,
// restricted to the 10–1000 Hz evaluation band.
func VelocityRMS(sig vibration.Signal) (float64, error) {
	if units.Normalize(sig.Units) == units.MMS {
		if err := sig.Validate(); err != nil {
			return 0, fmt.Errorf("severity: %w", err)
		}
		sum := 0.0
		for _, v := range sig.Samples {
			sum += v * v
		}
		return math.Sqrt(sum / float64(len(sig.Samples))), nil
	}

	spec, err := dsp.FFTSpectrum(sig, dsp.WindowRectangular)
	if err != nil {
		return 0, fmt.Errorf("severity: %w", err)
	}

	toMS2 := units.AccelerationToMS2(1, sig.Units)

	// Parseval over the single-sided amplitude spectrum: each sinusoidal
	// component of amplitude a contributes a²/2 to the mean square.
	sumSq := 0.0
	for i, f := range spec.Frequencies {
		if f < BandLowHz || f > BandHighHz || f == 0 {
			continue
		}
		velAmp := spec.Magnitudes[i] * toMS2 / (2 * math.Pi * f)
		sumSq += velAmp * velAmp / 2
	}
	return math.Sqrt(sumSq) * units.MetersToMillimeters, nil
}
