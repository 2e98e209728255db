package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/dsp"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/envelope"
)

// maxSignalBody caps the accepted request size; 2 seconds at the highest
// supported rate serialises to well under this.
const maxSignalBody = 64 << 20

type loadSignalRequest struct {
	Samples    []float64         `json:"samples"`
	SampleRate float64           `json:"sample_rate_hz"`
	Channel    string            `json:"channel,omitempty"`
	Units      string            `json:"units,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (s *Server) loadSignal(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSignalBody))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	var req loadSignalRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	id, err := s.store.Load(req.Samples, req.SampleRate, req.Channel, req.Units, req.Metadata)
	if err != nil {
		s.writeError(w, err)
		return
	}

	stats, err := s.store.Stats(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"signal_id": id,
		"stats":     stats,
	})
}

func (s *Server) listSignals(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"signals": s.store.List()})
}

func (s *Server) signalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) removeSignal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.store.Remove(id) {
		s.writeJSONError(w, http.StatusNotFound, "signal not found: "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"removed": id})
}

// parseWindow maps a window query parameter onto the dsp window names,
// defaulting to the tuned spectral window.
func (s *Server) parseWindow(r *http.Request) dsp.Window {
	if w := r.URL.Query().Get("window"); w != "" {
		return dsp.Window(w)
	}
	return dsp.Window(s.tuning.GetSpectralWindow())
}

func (s *Server) spectrum(w http.ResponseWriter, r *http.Request) {
	sig, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	spec, err := dsp.FFTSpectrum(sig, s.parseWindow(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, spec)
}

func (s *Server) psd(w http.ResponseWriter, r *http.Request) {
	sig, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	segment, err := queryInt(r, "segment_length", s.tuning.GetWelchSegmentLength())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid segment_length")
		return
	}
	overlap, err := queryFloat(r, "overlap", s.tuning.GetWelchOverlap())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid overlap")
		return
	}
	spec, err := dsp.WelchPSD(sig, segment, overlap, s.parseWindow(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, spec)
}

func (s *Server) spectrogram(w http.ResponseWriter, r *http.Request) {
	sig, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	windowLength, err := queryInt(r, "window_length", 1024)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid window_length")
		return
	}
	hop, err := queryInt(r, "hop_length", windowLength/2)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid hop_length")
		return
	}
	gram, err := dsp.STFTSpectrogram(sig, windowLength, hop, s.parseWindow(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, gram)
}

func (s *Server) peaks(w http.ResponseWriter, r *http.Request) {
	sig, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ratio, err := queryFloat(r, "min_amplitude_ratio", s.tuning.GetPeakMinAmplitudeRatio())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid min_amplitude_ratio")
		return
	}
	maxPeaks, err := queryInt(r, "max_peaks", s.tuning.GetPeakMaxCount())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid max_peaks")
		return
	}
	spec, err := dsp.FFTSpectrum(sig, s.parseWindow(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	found, err := dsp.FindPeaks(spec, ratio, maxPeaks)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"peaks": found})
}

func (s *Server) envelopeSpectrum(w http.ResponseWriter, r *http.Request) {
	sig, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	low, err := queryFloat(r, "band_low_hz", s.tuning.GetEnvelopeBandLow())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid band_low_hz")
		return
	}
	high, err := queryFloat(r, "band_high_hz", s.tuning.GetEnvelopeBandHigh())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid band_high_hz")
		return
	}
	spec, err := envelope.Spectrum(sig, low, high)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, spec)
}
