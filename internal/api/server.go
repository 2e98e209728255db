// Package api exposes the diagnostic engine over HTTP JSON endpoints plus a
// few self-contained chart pages for quick visual inspection.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/config"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/diagdb"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/version"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/diagnose"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/signalstore"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	store  *signalstore.Store
	engine *diagnose.Engine
	db     *diagdb.DB // may be nil when persistence is disabled
	tuning *config.TuningConfig
}

func NewServer(store *signalstore.Store, engine *diagnose.Engine, db *diagdb.DB, tuning *config.TuningConfig) *Server {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	return &Server{
		store:  store,
		engine: engine,
		db:     db,
		tuning: tuning,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/signals", s.loadSignal)
	mux.HandleFunc("GET /api/signals", s.listSignals)
	mux.HandleFunc("GET /api/signals/{id}", s.signalStats)
	mux.HandleFunc("DELETE /api/signals/{id}", s.removeSignal)

	mux.HandleFunc("GET /api/signals/{id}/spectrum", s.spectrum)
	mux.HandleFunc("GET /api/signals/{id}/psd", s.psd)
	mux.HandleFunc("GET /api/signals/{id}/spectrogram", s.spectrogram)
	mux.HandleFunc("GET /api/signals/{id}/peaks", s.peaks)
	mux.HandleFunc("GET /api/signals/{id}/envelope", s.envelopeSpectrum)

	mux.HandleFunc("POST /api/diagnose", s.diagnose)
	mux.HandleFunc("GET /api/history", s.history)

	mux.HandleFunc("GET /api/bearings", s.listBearings)
	mux.HandleFunc("GET /api/bearings/{designation}", s.bearingFrequencies)

	mux.HandleFunc("GET /api/params", s.showParams)
	mux.HandleFunc("GET /api/version", s.showVersion)

	mux.HandleFunc("GET /charts/signal/{id}", s.chartSignal)
	mux.HandleFunc("GET /charts/spectrum/{id}", s.chartSpectrum)
	mux.HandleFunc("GET /charts/envelope/{id}", s.chartEnvelope)

	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps engine sentinel errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, signalstore.ErrNotFound):
		s.writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, vibration.ErrInvalidInput),
		errors.Is(err, vibration.ErrUnsupportedFormat),
		errors.Is(err, vibration.ErrNumericalDegenerate):
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// queryFloat parses a float query parameter, returning fallback when absent.
func queryFloat(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// queryInt parses an integer query parameter, returning fallback when absent.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) showParams(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tuning)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
