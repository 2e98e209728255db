// Package dsp implements the spectral engine: single-sided FFT amplitude
// spectra, Welch power spectral density estimates, short-time spectrograms,
// and spectral peak extraction.
//
// All transforms are pure functions of their arguments and run sequentially;
// identical inputs always produce identical outputs.
package dsp

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// FFTSpectrum computes the single-sided amplitude spectrum of a signal.
//
// Bin i sits at frequency i·fs/N. Every bin is scaled by 2/Σw except DC and
// (for even N) the Nyquist bin, which are scaled by 1/Σw, where Σw is the
// window coherent-gain sum (Σw = N for the rectangular window). This
// preserves the amplitude of real sinusoidal components that fall on a bin.
func FFTSpectrum(sig vibration.Signal, w Window) (vibration.Spectrum, error) {
	if err := sig.Validate(); err != nil {
		return vibration.Spectrum{}, fmt.Errorf("fft spectrum: %w", err)
	}
	n := len(sig.Samples)
	if n < 2 {
		return vibration.Spectrum{}, fmt.Errorf("fft spectrum: %w: need at least 2 samples, got %d", vibration.ErrNumericalDegenerate, n)
	}

	wvals, err := windowValues(w, n)
	if err != nil {
		return vibration.Spectrum{}, fmt.Errorf("fft spectrum: %w", err)
	}
	wsum, _ := windowSums(wvals)

	buf := make([]float64, n)
	for i, v := range sig.Samples {
		buf[i] = v * wvals[i]
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, buf)

	nb := len(coeffs) // n/2 + 1
	freqs := make([]float64, nb)
	mags := make([]float64, nb)
	for i, c := range coeffs {
		freqs[i] = float64(i) * sig.SampleRate / float64(n)
		a := cmplx.Abs(c)
		if i == 0 || (n%2 == 0 && i == nb-1) {
			mags[i] = a / wsum
		} else {
			mags[i] = 2 * a / wsum
		}
	}

	return vibration.Spectrum{
		Frequencies: freqs,
		Magnitudes:  mags,
		Resolution:  sig.SampleRate / float64(n),
	}, nil
}
