package dsp

import (
	"fmt"
	"sort"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// FindPeaks extracts the ranked local maxima of a spectrum.
//
// A candidate is a point strictly greater than both neighbours. Candidates
// below minAmplitudeRatio times the spectrum maximum are discarded. The
// survivors are sorted by amplitude descending (equal amplitudes break to
// the lower frequency, so the result is deterministic), then any candidate
// within one frequency-resolution bin of a higher-ranked peak is suppressed,
// and the list is truncated to maxPeaks. Applying FindPeaks to its own
// output spectrum positions is idempotent.
func FindPeaks(spec vibration.Spectrum, minAmplitudeRatio float64, maxPeaks int) (vibration.PeakList, error) {
	if len(spec.Frequencies) != len(spec.Magnitudes) {
		return nil, fmt.Errorf("find peaks: %w: frequency/magnitude length mismatch (%d vs %d)",
			vibration.ErrInvalidInput, len(spec.Frequencies), len(spec.Magnitudes))
	}
	if minAmplitudeRatio < 0 || minAmplitudeRatio > 1 {
		return nil, fmt.Errorf("find peaks: %w: min amplitude ratio %v must be in [0, 1]", vibration.ErrInvalidInput, minAmplitudeRatio)
	}
	if maxPeaks < 1 {
		return nil, fmt.Errorf("find peaks: %w: max peaks %d must be >= 1", vibration.ErrInvalidInput, maxPeaks)
	}

	threshold := minAmplitudeRatio * spec.MaxMagnitude()

	// Local maxima: strictly greater than both neighbours. Endpoints are
	// never peaks.
	var candidates []vibration.Peak
	for i := 1; i < len(spec.Magnitudes)-1; i++ {
		m := spec.Magnitudes[i]
		if m > spec.Magnitudes[i-1] && m > spec.Magnitudes[i+1] && m >= threshold {
			candidates = append(candidates, vibration.Peak{
				Frequency: spec.Frequencies[i],
				Amplitude: m,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Amplitude != candidates[j].Amplitude {
			return candidates[i].Amplitude > candidates[j].Amplitude
		}
		return candidates[i].Frequency < candidates[j].Frequency
	})

	// Non-maximum suppression within one resolution bin.
	minSeparation := spec.Resolution
	var peaks vibration.PeakList
	for _, c := range candidates {
		suppressed := false
		for _, kept := range peaks {
			d := c.Frequency - kept.Frequency
			if d < 0 {
				d = -d
			}
			if d <= minSeparation {
				suppressed = true
				break
			}
		}
		if suppressed {
			continue
		}
		c.Rank = len(peaks) + 1
		peaks = append(peaks, c)
		if len(peaks) == maxPeaks {
			break
		}
	}

	return peaks, nil
}
