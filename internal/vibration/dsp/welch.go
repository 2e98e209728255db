package dsp

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/monitoring"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// WelchPSD estimates the power spectral density by averaging windowed,
// overlapping periodograms (Welch's method). Units are signal² per Hz.
//
// overlapFraction must lie in [0, 1). If segmentLength exceeds the signal
// length the estimator falls back to a single full-length segment; the
// fallback is logged, not silent, and the reported resolution reflects the
// segment actually used.
func WelchPSD(sig vibration.Signal, segmentLength int, overlapFraction float64, w Window) (vibration.Spectrum, error) {
	if err := sig.Validate(); err != nil {
		return vibration.Spectrum{}, fmt.Errorf("welch psd: %w", err)
	}
	if segmentLength < 2 {
		return vibration.Spectrum{}, fmt.Errorf("welch psd: %w: segment length %d must be >= 2", vibration.ErrInvalidInput, segmentLength)
	}
	if overlapFraction < 0 || overlapFraction >= 1 {
		return vibration.Spectrum{}, fmt.Errorf("welch psd: %w: overlap fraction %v must be in [0, 1)", vibration.ErrInvalidInput, overlapFraction)
	}

	n := len(sig.Samples)
	if segmentLength > n {
		monitoring.Logf("welch: segment length %d exceeds signal length %d, falling back to a single segment", segmentLength, n)
		segmentLength = n
	}
	if segmentLength < 2 {
		return vibration.Spectrum{}, fmt.Errorf("welch psd: %w: signal too short for any segment", vibration.ErrNumericalDegenerate)
	}

	wvals, err := windowValues(w, segmentLength)
	if err != nil {
		return vibration.Spectrum{}, fmt.Errorf("welch psd: %w", err)
	}
	_, wEnergy := windowSums(wvals)

	step := int(float64(segmentLength) * (1 - overlapFraction))
	if step < 1 {
		step = 1
	}

	fft := fourier.NewFFT(segmentLength)
	nb := segmentLength/2 + 1
	psd := make([]float64, nb)
	buf := make([]float64, segmentLength)
	coeffs := make([]complex128, nb)

	segments := 0
	for start := 0; start+segmentLength <= n; start += step {
		for i := 0; i < segmentLength; i++ {
			buf[i] = sig.Samples[start+i] * wvals[i]
		}
		coeffs = fft.Coefficients(coeffs, buf)
		for i, c := range coeffs {
			p := cmplx.Abs(c)
			p = p * p / (sig.SampleRate * wEnergy)
			// Single-sided: double everything except DC and Nyquist.
			if i != 0 && !(segmentLength%2 == 0 && i == nb-1) {
				p *= 2
			}
			psd[i] += p
		}
		segments++
	}
	if segments == 0 {
		return vibration.Spectrum{}, fmt.Errorf("welch psd: %w: no complete segments", vibration.ErrComputationFailure)
	}

	freqs := make([]float64, nb)
	for i := range freqs {
		freqs[i] = float64(i) * sig.SampleRate / float64(segmentLength)
	}
	for i := range psd {
		psd[i] /= float64(segments)
	}

	return vibration.Spectrum{
		Frequencies: freqs,
		Magnitudes:  psd,
		Resolution:  sig.SampleRate / float64(segmentLength),
	}, nil
}
