package envelope

import (
	"fmt"
	"sort"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// NoiseFloorMultiplier is the default factor by which a harmonic peak must
// exceed the spectrum median to count as detected.
const NoiseFloorMultiplier = 3.0

// HarmonicMatch records the search result for one harmonic of the target
// fault frequency.
type HarmonicMatch struct {
	Harmonic       int     `json:"harmonic"`
	ExpectedHz     float64 `json:"expected_hz"`
	FoundHz        float64 `json:"found_hz,omitempty"`
	Amplitude      float64 `json:"amplitude"`
	NoiseThreshold float64 `json:"noise_threshold"`
	Detected       bool    `json:"detected"`
}

// FaultPeakResult summarises a fault-frequency search over an envelope
// spectrum. Confidence scales with the number of harmonics matched: two or
// more detected harmonics give high confidence, one gives medium, none gives
// none.
type FaultPeakResult struct {
	TargetHz          float64              `json:"target_frequency_hz"`
	HarmonicsChecked  int                  `json:"harmonics_checked"`
	HarmonicsDetected int                  `json:"harmonics_detected"`
	Confidence        vibration.Confidence `json:"confidence"`
	Matches           []HarmonicMatch      `json:"matches"`
}

// CheckFaultPeak searches an envelope spectrum for targetHz and its
// harmonics 1..harmonics. Each harmonic is matched within ±tolerance (a
// fraction of the harmonic frequency, widened to at least one resolution bin)
// and must exceed the noise floor, which is the spectrum median scaled by
// NoiseFloorMultiplier. The median is insensitive to the narrow fault peaks
// themselves.
func CheckFaultPeak(spec vibration.Spectrum, targetHz float64, harmonics int, tolerance float64) (FaultPeakResult, error) {
	if len(spec.Frequencies) == 0 || len(spec.Frequencies) != len(spec.Magnitudes) {
		return FaultPeakResult{}, fmt.Errorf("check fault peak: %w: malformed spectrum", vibration.ErrInvalidInput)
	}
	if targetHz <= 0 {
		return FaultPeakResult{}, fmt.Errorf("check fault peak: %w: target frequency %v must be > 0", vibration.ErrInvalidInput, targetHz)
	}
	if harmonics < 1 {
		return FaultPeakResult{}, fmt.Errorf("check fault peak: %w: harmonics %d must be >= 1", vibration.ErrInvalidInput, harmonics)
	}
	if tolerance <= 0 || tolerance >= 1 {
		return FaultPeakResult{}, fmt.Errorf("check fault peak: %w: tolerance %v must be in (0, 1)", vibration.ErrInvalidInput, tolerance)
	}

	noiseFloor := medianOf(spec.Magnitudes) * NoiseFloorMultiplier

	result := FaultPeakResult{
		TargetHz:         targetHz,
		HarmonicsChecked: harmonics,
		Matches:          make([]HarmonicMatch, 0, harmonics),
	}

	for h := 1; h <= harmonics; h++ {
		expected := float64(h) * targetHz
		tol := expected * tolerance
		if tol < spec.Resolution {
			tol = spec.Resolution
		}

		match := HarmonicMatch{Harmonic: h, ExpectedHz: expected, NoiseThreshold: noiseFloor}
		for i, f := range spec.Frequencies {
			if f < expected-tol || f > expected+tol {
				continue
			}
			if spec.Magnitudes[i] > match.Amplitude {
				match.Amplitude = spec.Magnitudes[i]
				match.FoundHz = f
			}
		}
		if match.Amplitude > noiseFloor {
			match.Detected = true
			result.HarmonicsDetected++
		}
		result.Matches = append(result.Matches, match)
	}

	switch {
	case result.HarmonicsDetected >= 2:
		result.Confidence = vibration.ConfidenceHigh
	case result.HarmonicsDetected == 1:
		result.Confidence = vibration.ConfidenceMedium
	default:
		result.Confidence = vibration.ConfidenceNone
	}
	return result, nil
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
