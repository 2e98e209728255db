// Package signalstore holds loaded vibration signals keyed by opaque ids.
//
// The store is the only shared mutable state in the engine. Loads are
// serialized per id under a write lock and a signal is fully copied before
// it becomes visible, so readers never observe a partially written signal.
// Ids are UUIDs and are never reused within a process lifetime.
package signalstore

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/units"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// ErrNotFound is returned when no signal exists under the requested id.
var ErrNotFound = errors.New("signal not found")

// Stats are the derived time-domain statistics of a stored signal.
//
// Kurtosis is the excess kurtosis (fourth standardized moment minus 3, so a
// Gaussian signal reads 0). This convention is used consistently across the
// engine; the classifier's impulsiveness threshold is expressed in the same
// convention.
type Stats struct {
	Samples     int     `json:"samples"`
	RMS         float64 `json:"rms"`
	Peak        float64 `json:"peak"`
	CrestFactor float64 `json:"crest_factor"`
	Kurtosis    float64 `json:"kurtosis"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	Duration    float64 `json:"duration_s"`
}

// Summary is a compact description of a stored signal without raw samples.
type Summary struct {
	ID         string            `json:"signal_id"`
	SampleRate float64           `json:"sample_rate_hz"`
	Channel    string            `json:"channel,omitempty"`
	Units      string            `json:"units"`
	Stats      Stats             `json:"stats"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type entry struct {
	signal    vibration.Signal
	stats     Stats
	createdAt time.Time
}

// Store is a concurrency-safe in-memory signal store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty store. One store is created at process start and
// injected into the API and MCP surfaces.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Load validates, copies, and stores a signal, returning its assigned id.
// Statistics are computed once at load time.
func (s *Store) Load(samples []float64, sampleRate float64, channel, unit string, metadata map[string]string) (string, error) {
	if !units.IsValidUnit(unit) {
		return "", fmt.Errorf("signal store: %w: unknown unit %q", vibration.ErrInvalidInput, unit)
	}
	sig := vibration.Signal{
		Samples:    append([]float64(nil), samples...),
		SampleRate: sampleRate,
		Channel:    channel,
		Units:      units.Normalize(unit),
	}
	if len(metadata) > 0 {
		sig.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			sig.Metadata[k] = v
		}
	}
	if err := sig.Validate(); err != nil {
		return "", fmt.Errorf("signal store: %w", err)
	}

	stats, err := Compute(sig)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.entries[id] = entry{signal: sig, stats: stats, createdAt: time.Now()}
	s.mu.Unlock()
	return id, nil
}

// Get returns the stored signal. The returned samples are shared and must
// be treated as read-only; signals are immutable once stored.
func (s *Store) Get(id string) (vibration.Signal, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return vibration.Signal{}, fmt.Errorf("signal store: %w: %q", ErrNotFound, id)
	}
	return e.signal, nil
}

// Stats returns the time-domain statistics of a stored signal.
func (s *Store) Stats(id string) (Stats, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return Stats{}, fmt.Errorf("signal store: %w: %q", ErrNotFound, id)
	}
	return e.stats, nil
}

// Remove evicts a signal, reporting whether it existed. The id is not
// reused afterwards.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

// List returns summaries of all stored signals in unspecified order.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.entries))
	for id, e := range s.entries {
		out = append(out, Summary{
			ID:         id,
			SampleRate: e.signal.SampleRate,
			Channel:    e.signal.Channel,
			Units:      e.signal.Units,
			Stats:      e.stats,
			Metadata:   e.signal.Metadata,
			CreatedAt:  e.createdAt,
		})
	}
	return out
}

// Len returns the number of stored signals.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Compute derives time-domain statistics from a signal. Exported so the
// orchestrator can compute statistics for signals that bypass the store.
func Compute(sig vibration.Signal) (Stats, error) {
	if err := sig.Validate(); err != nil {
		return Stats{}, fmt.Errorf("signal stats: %w", err)
	}

	n := len(sig.Samples)
	sumSq := 0.0
	peak := 0.0
	for _, v := range sig.Samples {
		sumSq += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	rms := math.Sqrt(sumSq / float64(n))

	st := Stats{
		Samples:  n,
		RMS:      rms,
		Peak:     peak,
		Mean:     stat.Mean(sig.Samples, nil),
		Duration: sig.Duration(),
	}
	if rms > 0 {
		st.CrestFactor = peak / rms
	}
	if n >= 2 {
		st.StdDev = stat.StdDev(sig.Samples, nil)
	}
	if n >= 4 && st.StdDev > 0 {
		st.Kurtosis = stat.ExKurtosis(sig.Samples, nil)
	}
	return st, nil
}
