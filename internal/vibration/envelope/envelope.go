// Package envelope implements band-pass demodulation of vibration signals.
//
// Bearing defects excite short structural-resonance bursts whose repetition
// rate equals a characteristic fault frequency. The bursts spread their
// energy across a broad high-frequency band and are invisible in the raw
// spectrum, but the amplitude envelope of the band-limited signal repeats at
// the defect rate. The analyzer band-limits the signal around the resonance,
// extracts the analytic-signal envelope, and returns the spectrum of that
// envelope as the primary bearing-fault evidence channel.
package envelope

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/monitoring"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/dsp"
)

// DefaultBand returns the analysis band used when the caller supplies none.
// When the sample rate allows, the band is the 2–5 kHz structural-resonance
// heuristic for small and medium bearings; for lower rates it falls back to
// the adaptive [fs/20, fs/2.5] band. These are empirical defaults from
// domain practice, not invariants; callers should pass an explicit band when
// the resonance region is known.
func DefaultBand(sampleRate float64) (low, high float64) {
	low = sampleRate / 20
	high = sampleRate / 2.5
	if high >= 5000 {
		high = 5000
		if low < 2000 {
			low = 2000
		}
	}
	return low, high
}

// Spectrum runs the full envelope pipeline: band-pass to [bandLow, bandHigh],
// analytic-signal envelope extraction, then an amplitude spectrum of the
// zero-mean envelope. Pass bandLow = bandHigh = 0 to use DefaultBand.
//
// The band-pass and Hilbert demodulation are performed together in the
// frequency domain: the full complex spectrum is masked to the positive
// in-band frequencies (doubled, per the analytic-signal construction) and
// inverse-transformed, giving the band-limited analytic signal in one pass.
// A band edge above Nyquist is clamped and logged.
func Spectrum(sig vibration.Signal, bandLow, bandHigh float64) (vibration.Spectrum, error) {
	env, err := Envelope(sig, bandLow, bandHigh)
	if err != nil {
		return vibration.Spectrum{}, err
	}

	mean := 0.0
	for _, v := range env {
		mean += v
	}
	mean /= float64(len(env))
	centered := make([]float64, len(env))
	for i, v := range env {
		centered[i] = v - mean
	}

	return dsp.FFTSpectrum(vibration.Signal{
		Samples:    centered,
		SampleRate: sig.SampleRate,
		Channel:    sig.Channel,
		Units:      sig.Units,
	}, dsp.WindowHann)
}

// Envelope returns the amplitude envelope of the band-limited analytic
// signal, one value per input sample.
func Envelope(sig vibration.Signal, bandLow, bandHigh float64) ([]float64, error) {
	if err := sig.Validate(); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	n := len(sig.Samples)
	if n < 2 {
		return nil, fmt.Errorf("envelope: %w: need at least 2 samples, got %d", vibration.ErrNumericalDegenerate, n)
	}

	nyquist := sig.SampleRate / 2
	if bandLow == 0 && bandHigh == 0 {
		bandLow, bandHigh = DefaultBand(sig.SampleRate)
	}
	if bandLow < 0 || bandHigh <= bandLow {
		return nil, fmt.Errorf("envelope: %w: band [%v, %v] Hz is not a valid range", vibration.ErrInvalidInput, bandLow, bandHigh)
	}
	if bandHigh > nyquist {
		monitoring.Logf("envelope: band high %v Hz clamped to Nyquist %v Hz", bandHigh, nyquist)
		bandHigh = nyquist
	}
	if bandLow >= bandHigh {
		return nil, fmt.Errorf("envelope: %w: band low %v Hz is at or above Nyquist", vibration.ErrInvalidInput, bandLow)
	}

	seq := make([]complex128, n)
	for i, v := range sig.Samples {
		seq[i] = complex(v, 0)
	}
	fft := fourier.NewCmplxFFT(n)
	coeffs := fft.Coefficients(nil, seq)

	// Analytic signal: drop DC and negative frequencies, double the
	// positive ones, and additionally zero everything outside the band.
	half := n / 2
	for i := range coeffs {
		if i == 0 || i > half {
			coeffs[i] = 0
			continue
		}
		f := float64(i) * sig.SampleRate / float64(n)
		if f < bandLow || f > bandHigh {
			coeffs[i] = 0
			continue
		}
		if !(n%2 == 0 && i == half) {
			coeffs[i] *= 2
		}
	}

	analytic := fft.Sequence(nil, coeffs)
	env := make([]float64, n)
	for i, c := range analytic {
		// gonum's inverse is unnormalised; divide by n.
		env[i] = cmplx.Abs(c) / float64(n)
	}
	return env, nil
}
