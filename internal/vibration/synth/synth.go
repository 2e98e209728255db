// Package synth generates synthetic vibration signals with known fault
// signatures, used by the end-to-end tests and the sample-data tool to
// verify the analysis pipeline without hardware.
package synth

import (
	"math"
	"math/rand"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// Component is one sinusoidal constituent of a generated signal.
type Component struct {
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
	Phase     float64 `json:"phase,omitempty"`
}

// Generate builds a signal from sinusoidal components plus Gaussian noise.
// The same seed always produces the same samples.
func Generate(duration, sampleRate float64, components []Component, noiseLevel float64, seed int64) vibration.Signal {
	rng := rand.New(rand.NewSource(seed))
	n := int(duration * sampleRate)
	samples := make([]float64, n)

	for i := range samples {
		t := float64(i) / sampleRate
		for _, c := range components {
			samples[i] += c.Amplitude * math.Sin(2*math.Pi*c.Frequency*t+c.Phase)
		}
		samples[i] += rng.NormFloat64() * noiseLevel
	}

	return vibration.Signal{
		Samples:    samples,
		SampleRate: sampleRate,
		Units:      "g",
	}
}

// ImpulseTrain describes a repeating bearing-defect impact: each impact is a
// damped sinusoid at the structural resonance frequency, repeating at the
// fault frequency with slight amplitude jitter.
type ImpulseTrain struct {
	FaultFrequency     float64 // repetition rate in Hz (e.g. BPFO)
	ResonanceFrequency float64 // excited structural resonance in Hz
	Amplitude          float64 // impact amplitude
	Damping            float64 // exponential decay rate in 1/s
}

// AddBearingImpulses superimposes a modulated impulse train onto a signal,
// returning a new signal. The input samples are not modified.
func AddBearingImpulses(sig vibration.Signal, train ImpulseTrain, seed int64) vibration.Signal {
	rng := rand.New(rand.NewSource(seed))
	n := len(sig.Samples)
	out := append([]float64(nil), sig.Samples...)

	period := 1.0 / train.FaultFrequency
	duration := float64(n) / sig.SampleRate

	// Each impulse decays to negligible amplitude after ~7 time constants;
	// truncating there keeps generation linear in the signal length.
	decaySamples := int(7 / train.Damping * sig.SampleRate)
	if decaySamples < 1 {
		decaySamples = 1
	}

	for t0 := 0.0; t0 < duration; t0 += period {
		start := int(t0 * sig.SampleRate)
		jitter := 1.0 + 0.1*rng.NormFloat64()
		for i := start; i < start+decaySamples && i < n; i++ {
			dt := float64(i)/sig.SampleRate - t0
			out[i] += train.Amplitude * jitter * math.Exp(-train.Damping*dt) * math.Sin(2*math.Pi*train.ResonanceFrequency*dt)
		}
	}

	result := sig
	result.Samples = out
	return result
}
