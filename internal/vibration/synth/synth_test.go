package synth

import (
	"math"
	"testing"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/testutil"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/dsp"
)

func TestGenerate(t *testing.T) {
	t.Run("deterministic for a fixed seed", func(t *testing.T) {
		comps := []Component{{Frequency: 24.5, Amplitude: 1}}
		a := Generate(1, 8192, comps, 0.1, 42)
		b := Generate(1, 8192, comps, 0.1, 42)
		for i := range a.Samples {
			if a.Samples[i] != b.Samples[i] {
				t.Fatalf("sample %d differs: %v vs %v", i, a.Samples[i], b.Samples[i])
			}
		}
	})

	t.Run("different seeds differ", func(t *testing.T) {
		comps := []Component{{Frequency: 24.5, Amplitude: 1}}
		a := Generate(1, 8192, comps, 0.1, 42)
		b := Generate(1, 8192, comps, 0.1, 43)
		same := true
		for i := range a.Samples {
			if a.Samples[i] != b.Samples[i] {
				same = false
				break
			}
		}
		if same {
			t.Fatal("different seeds produced identical noise")
		}
	})

	t.Run("length and metadata", func(t *testing.T) {
		sig := Generate(2, 4096, nil, 0, 1)
		if len(sig.Samples) != 8192 {
			t.Fatalf("samples = %d, want 8192", len(sig.Samples))
		}
		if sig.SampleRate != 4096 || sig.Units != "g" {
			t.Errorf("unexpected signal header: rate %v units %q", sig.SampleRate, sig.Units)
		}
	})

	t.Run("components appear in the spectrum", func(t *testing.T) {
		sig := Generate(1, 4096, []Component{
			{Frequency: 100, Amplitude: 1},
			{Frequency: 320, Amplitude: 0.5},
		}, 0.01, 7)
		spec, err := dsp.FFTSpectrum(sig, dsp.WindowHann)
		testutil.AssertNoError(t, err)
		testutil.AssertInDelta(t, magnitudeAt(spec, 100), 1.0, 0.05)
		testutil.AssertInDelta(t, magnitudeAt(spec, 320), 0.5, 0.05)
	})
}

func TestAddBearingImpulses(t *testing.T) {
	base := Generate(1, 26667, []Component{{Frequency: 24.5, Amplitude: 0.2}}, 0.02, 42)
	train := ImpulseTrain{
		FaultFrequency:     87.5,
		ResonanceFrequency: 3200,
		Amplitude:          1.5,
		Damping:            400,
	}

	t.Run("input is not modified", func(t *testing.T) {
		before := append([]float64(nil), base.Samples...)
		_ = AddBearingImpulses(base, train, 43)
		for i := range before {
			if base.Samples[i] != before[i] {
				t.Fatalf("input mutated at sample %d", i)
			}
		}
	})

	t.Run("raises crest factor", func(t *testing.T) {
		faulty := AddBearingImpulses(base, train, 43)
		if crest(base) >= crest(faulty) {
			t.Errorf("impulses should raise crest factor: base %.2f, faulty %.2f", crest(base), crest(faulty))
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a := AddBearingImpulses(base, train, 43)
		b := AddBearingImpulses(base, train, 43)
		for i := range a.Samples {
			if a.Samples[i] != b.Samples[i] {
				t.Fatalf("sample %d differs", i)
			}
		}
	})
}

func magnitudeAt(spec vibration.Spectrum, hz float64) float64 {
	max := 0.0
	for i, f := range spec.Frequencies {
		if f >= hz-2*spec.Resolution && f <= hz+2*spec.Resolution && spec.Magnitudes[i] > max {
			max = spec.Magnitudes[i]
		}
	}
	return max
}

func crest(sig vibration.Signal) float64 {
	peak, sumSq := 0.0, 0.0
	for _, v := range sig.Samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
		sumSq += v * v
	}
	if sumSq == 0 {
		return 0
	}
	return peak / math.Sqrt(sumSq/float64(len(sig.Samples)))
}
