package api

import (
	"encoding/json"
	"net/http"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/bearing"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/diagnose"
)

type diagnoseRequest struct {
	SignalID         string          `json:"signal_id"`
	RPM              float64         `json:"rpm,omitempty"`
	Bearing          *bearing.Source `json:"bearing,omitempty"`
	MachineGroup     int             `json:"machine_group,omitempty"`
	EnvelopeBandLow  float64         `json:"envelope_band_low_hz,omitempty"`
	EnvelopeBandHigh float64         `json:"envelope_band_high_hz,omitempty"`
	Machine          string          `json:"machine,omitempty"`
}

func (s *Server) diagnose(w http.ResponseWriter, r *http.Request) {
	var req diagnoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	sig, err := s.store.Get(req.SignalID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	group := req.MachineGroup
	if group == 0 {
		group = s.tuning.GetMachineGroup()
	}
	low, high := req.EnvelopeBandLow, req.EnvelopeBandHigh
	if low == 0 && high == 0 {
		low, high = s.tuning.GetEnvelopeBandLow(), s.tuning.GetEnvelopeBandHigh()
	}

	diag, err := s.engine.Run(diagnose.Request{
		Signal:           sig,
		RPM:              req.RPM,
		Bearing:          req.Bearing,
		MachineGroup:     group,
		EnvelopeBandLow:  low,
		EnvelopeBandHigh: high,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.db != nil {
		machine := req.Machine
		if machine == "" {
			machine = sig.Metadata["machine"]
		}
		if _, err := s.db.RecordDiagnosis(req.SignalID, machine, diag); err != nil {
			// Persistence failure must not hide the diagnosis from the caller.
			s.writeJSON(w, http.StatusOK, map[string]interface{}{
				"diagnosis":     diag,
				"persist_error": err.Error(),
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, diag)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusNotImplemented, "diagnosis persistence is disabled")
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	records, err := s.db.History(r.URL.Query().Get("machine"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"diagnoses": records})
}

func (s *Server) listBearings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"bearings": bearing.ListCatalog()})
}

func (s *Server) bearingFrequencies(w http.ResponseWriter, r *http.Request) {
	designation := r.PathValue("designation")
	rpm, err := queryFloat(r, "rpm", 0)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid rpm")
		return
	}

	if rpm == 0 {
		entry, ok := bearing.Lookup(designation)
		if !ok {
			s.writeJSONError(w, http.StatusNotFound, "unknown bearing designation: "+designation)
			return
		}
		coeffs, err := bearing.PerRPM(designation)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"bearing":             entry,
			"frequencies_per_rpm": coeffs,
		})
		return
	}

	freqs, err := bearing.FromCatalog(designation, rpm)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"designation": designation,
		"rpm":         rpm,
		"frequencies": freqs,
	})
}
