package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/window"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// Window names a tapering function applied before a transform.
type Window string

const (
	WindowRectangular Window = "rectangular"
	WindowHann        Window = "hann"
	WindowHamming     Window = "hamming"
	WindowBlackman    Window = "blackman"
)

// windowValues returns the window coefficients for length n.
func windowValues(w Window, n int) ([]float64, error) {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = 1
	}
	switch w {
	case WindowRectangular, "":
	case WindowHann:
		window.Hann(vals)
	case WindowHamming:
		window.Hamming(vals)
	case WindowBlackman:
		window.Blackman(vals)
	default:
		return nil, fmt.Errorf("%w: unknown window %q", vibration.ErrInvalidInput, w)
	}
	return vals, nil
}

// windowSums returns the coherent gain sum Σw[i] and the energy sum Σw[i]².
// Amplitude spectra are normalised by the coherent gain so that an on-bin
// sinusoid of amplitude A reads A regardless of the window; power spectra
// are normalised by the energy sum.
func windowSums(vals []float64) (sum, sumSq float64) {
	for _, v := range vals {
		sum += v
		sumSq += v * v
	}
	return sum, sumSq
}
