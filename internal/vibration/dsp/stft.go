package dsp

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// STFTSpectrogram computes a sliding-window amplitude spectrogram.
//
// hopLength must be >= 1 and may exceed windowLength: hops larger than the
// window leave unanalysed gaps between segments, which is permitted for
// sparse long-duration surveys. Each row uses the same amplitude scaling as
// FFTSpectrum, so a row is itself a valid single-sided spectrum with
// resolution sampleRate/windowLength.
func STFTSpectrogram(sig vibration.Signal, windowLength, hopLength int, w Window) (vibration.Spectrogram, error) {
	if err := sig.Validate(); err != nil {
		return vibration.Spectrogram{}, fmt.Errorf("stft: %w", err)
	}
	if windowLength < 2 {
		return vibration.Spectrogram{}, fmt.Errorf("stft: %w: window length %d must be >= 2", vibration.ErrInvalidInput, windowLength)
	}
	if hopLength < 1 {
		return vibration.Spectrogram{}, fmt.Errorf("stft: %w: hop length %d must be >= 1", vibration.ErrInvalidInput, hopLength)
	}
	n := len(sig.Samples)
	if windowLength > n {
		return vibration.Spectrogram{}, fmt.Errorf("stft: %w: window length %d exceeds signal length %d", vibration.ErrInvalidInput, windowLength, n)
	}

	wvals, err := windowValues(w, windowLength)
	if err != nil {
		return vibration.Spectrogram{}, fmt.Errorf("stft: %w", err)
	}
	wsum, _ := windowSums(wvals)

	fft := fourier.NewFFT(windowLength)
	nb := windowLength/2 + 1

	freqs := make([]float64, nb)
	for i := range freqs {
		freqs[i] = float64(i) * sig.SampleRate / float64(windowLength)
	}

	var times []float64
	var rows [][]float64
	buf := make([]float64, windowLength)
	coeffs := make([]complex128, nb)

	for start := 0; start+windowLength <= n; start += hopLength {
		for i := 0; i < windowLength; i++ {
			buf[i] = sig.Samples[start+i] * wvals[i]
		}
		coeffs = fft.Coefficients(coeffs, buf)
		row := make([]float64, nb)
		for i, c := range coeffs {
			a := cmplx.Abs(c)
			if i == 0 || (windowLength%2 == 0 && i == nb-1) {
				row[i] = a / wsum
			} else {
				row[i] = 2 * a / wsum
			}
		}
		rows = append(rows, row)
		center := float64(start) + float64(windowLength)/2
		times = append(times, center/sig.SampleRate)
	}

	return vibration.Spectrogram{
		Frequencies: freqs,
		Times:       times,
		Magnitudes:  rows,
		Resolution:  sig.SampleRate / float64(windowLength),
	}, nil
}
