package signalstore

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/testutil"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

func TestStoreLoad(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		s := New()
		samples := testutil.SineSamples(1024, 1024, 100, 1)
		id, err := s.Load(samples, 1024, "vertical", "g", map[string]string{"machine": "pump-3"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		sig, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, 1024, len(sig.Samples))
		assert.Equal(t, 1024.0, sig.SampleRate)
		assert.Equal(t, "vertical", sig.Channel)
		assert.Equal(t, "g", sig.Units)
		assert.Equal(t, "pump-3", sig.Metadata["machine"])
	})

	t.Run("stores a copy of the samples", func(t *testing.T) {
		s := New()
		samples := []float64{1, 2, 3, 4}
		id, err := s.Load(samples, 100, "", "g", nil)
		require.NoError(t, err)

		samples[0] = 999
		sig, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, 1.0, sig.Samples[0], "caller mutation must not affect the stored signal")
	})

	t.Run("ids are unique", func(t *testing.T) {
		s := New()
		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			id, err := s.Load([]float64{1, 2, 3}, 100, "", "g", nil)
			require.NoError(t, err)
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
		assert.Equal(t, 50, s.Len())
	})

	t.Run("unit normalization", func(t *testing.T) {
		s := New()
		id, err := s.Load([]float64{1, 2, 3}, 100, "", "M/S^2", nil)
		require.NoError(t, err)
		sig, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "m/s2", sig.Units)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		s := New()
		_, err := s.Load([]float64{1, 2}, 100, "", "furlongs", nil)
		assert.ErrorIs(t, err, vibration.ErrInvalidInput)

		_, err = s.Load(nil, 100, "", "g", nil)
		assert.ErrorIs(t, err, vibration.ErrInvalidInput)

		_, err = s.Load([]float64{1, 2}, 0, "", "g", nil)
		assert.ErrorIs(t, err, vibration.ErrInvalidInput)

		_, err = s.Load([]float64{1, math.NaN()}, 100, "", "g", nil)
		assert.ErrorIs(t, err, vibration.ErrNumericalDegenerate)
	})
}

func TestStoreLookupAndRemove(t *testing.T) {
	s := New()
	id, err := s.Load([]float64{1, -1, 1, -1}, 100, "", "g", nil)
	require.NoError(t, err)

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Get("nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Stats("nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("remove", func(t *testing.T) {
		assert.True(t, s.Remove(id))
		assert.False(t, s.Remove(id), "second removal must report absence")
		_, err := s.Get(id)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 0, s.Len())
	})
}

func TestStoreList(t *testing.T) {
	s := New()
	ids := make(map[string]bool)
	for i := 0; i < 3; i++ {
		id, err := s.Load([]float64{1, 2, 3}, 100, fmt.Sprintf("ch%d", i), "g", nil)
		require.NoError(t, err)
		ids[id] = true
	}

	summaries := s.List()
	require.Len(t, summaries, 3)
	for _, sum := range summaries {
		assert.True(t, ids[sum.ID], "unexpected id %s", sum.ID)
		assert.Equal(t, 3, sum.Stats.Samples)
		assert.False(t, sum.CreatedAt.IsZero())
	}
}

func TestStoreConcurrency(t *testing.T) {
	s := New()
	seed, err := s.Load([]float64{1, 2, 3, 4}, 100, "", "g", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id, err := s.Load([]float64{1, 2, 3}, 100, "", "g", nil)
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := s.Get(id); err != nil {
					t.Error(err)
					return
				}
				if _, err := s.Get(seed); err != nil {
					t.Error(err)
					return
				}
				s.List()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1+8*50, s.Len())
}

func TestCompute(t *testing.T) {
	t.Run("constant signal", func(t *testing.T) {
		sig := vibration.Signal{Samples: []float64{2, 2, 2, 2}, SampleRate: 4, Units: "g"}
		st, err := Compute(sig)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, st.RMS, 1e-12)
		assert.InDelta(t, 2.0, st.Peak, 1e-12)
		assert.InDelta(t, 1.0, st.CrestFactor, 1e-12)
		assert.InDelta(t, 2.0, st.Mean, 1e-12)
		assert.InDelta(t, 1.0, st.Duration, 1e-12)
	})

	t.Run("sinusoid crest factor", func(t *testing.T) {
		sig := vibration.Signal{
			Samples:    testutil.SineSamples(4096, 4096, 64, 1),
			SampleRate: 4096,
			Units:      "g",
		}
		st, err := Compute(sig)
		require.NoError(t, err)
		assert.InDelta(t, 1/math.Sqrt2, st.RMS, 0.01)
		assert.InDelta(t, math.Sqrt2, st.CrestFactor, 0.01)
		// A sinusoid has excess kurtosis -1.5.
		assert.InDelta(t, -1.5, st.Kurtosis, 0.05)
	})

	t.Run("impulsive signal has positive excess kurtosis", func(t *testing.T) {
		samples := make([]float64, 1000)
		for i := 0; i < len(samples); i += 100 {
			samples[i] = 10
		}
		sig := vibration.Signal{Samples: samples, SampleRate: 1000, Units: "g"}
		st, err := Compute(sig)
		require.NoError(t, err)
		assert.Greater(t, st.Kurtosis, 1.0)
		assert.Greater(t, st.CrestFactor, 5.0)
	})

	t.Run("validation errors propagate", func(t *testing.T) {
		_, err := Compute(vibration.Signal{Samples: []float64{1}, SampleRate: 0, Units: "g"})
		assert.True(t, errors.Is(err, vibration.ErrInvalidInput))
	})
}
