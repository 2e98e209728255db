// Package vibration defines the shared data model for the machinery
// diagnostics engine: time-domain signals, spectra, peak lists, and fault
// findings. The analytic packages (dsp, envelope, bearing, severity,
// diagnose) all consume and produce these types so that results are
// interchangeable across the pipeline.
package vibration

import (
	"fmt"
	"math"
)

// Signal is an immutable, finite time-domain record captured from a single
// accelerometer channel. Samples are never mutated after construction;
// consumers must treat the slice as read-only.
type Signal struct {
	// Samples holds the raw time-domain values in acquisition order.
	Samples []float64

	// SampleRate is the sampling frequency in Hz. Must be > 0.
	SampleRate float64

	// Channel is an optional label such as "radial_horizontal" or "axial".
	Channel string

	// Units names the physical unit of the samples, typically "g" for
	// acceleration. "m/s2" and "mm/s" are also understood by the severity
	// assessor.
	Units string

	// Metadata carries free-form source information (machine, sensor, axis).
	Metadata map[string]string
}

// Duration returns the signal length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / s.SampleRate
}

// Validate checks the structural invariants shared by every analytic
// operation: a positive sample rate, at least one sample, and finite values.
func (s Signal) Validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %v must be > 0", ErrInvalidInput, s.SampleRate)
	}
	if len(s.Samples) == 0 {
		return fmt.Errorf("%w: signal has no samples", ErrInvalidInput)
	}
	for i, v := range s.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite sample at index %d", ErrNumericalDegenerate, i)
		}
	}
	return nil
}

// Spectrum is a single-sided frequency-domain record. Frequencies run from
// 0 to Nyquist and are strictly non-decreasing. Resolution is the bin width
// of the transform that produced the spectrum (sample rate divided by the
// number of samples actually transformed, which differs from the full signal
// length when segmentation is used).
type Spectrum struct {
	Frequencies []float64 `json:"frequencies_hz"`
	Magnitudes  []float64 `json:"magnitudes"`
	Resolution  float64   `json:"resolution_hz"`
}

// MaxMagnitude returns the largest magnitude in the spectrum, or 0 for an
// empty spectrum.
func (sp Spectrum) MaxMagnitude() float64 {
	max := 0.0
	for _, m := range sp.Magnitudes {
		if m > max {
			max = m
		}
	}
	return max
}

// Spectrogram is a time-frequency magnitude grid. Each row of Magnitudes is
// a valid single-sided spectrum over one analysis window; Times holds the
// window centre times and increases monotonically.
type Spectrogram struct {
	Frequencies []float64   `json:"frequencies_hz"`
	Times       []float64   `json:"times_s"`
	Magnitudes  [][]float64 `json:"magnitudes"`
	Resolution  float64     `json:"resolution_hz"`
}

// Peak is a ranked spectral maximum. Rank 1 is the largest amplitude.
type Peak struct {
	Frequency float64 `json:"frequency_hz"`
	Amplitude float64 `json:"amplitude"`
	Rank      int     `json:"rank"`
}

// PeakList is an ordered sequence of peaks, rank ascending. No two peaks lie
// within one frequency-resolution bin of each other.
type PeakList []Peak
