package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/dsp"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/envelope"
)

// chartMaxPoints bounds the rendered series so long captures stay
// responsive in the browser; series are downsampled by stride.
const chartMaxPoints = 8000

// renderLine renders an x/y series as a standalone ECharts HTML page.
func (s *Server) renderLine(w http.ResponseWriter, title, subtitle, xName, yName string, xs, ys []float64) {
	stride := 1
	if len(xs) > chartMaxPoints {
		stride = int(math.Ceil(float64(len(xs)) / float64(chartMaxPoints)))
	}

	axis := make([]string, 0, len(xs)/stride+1)
	data := make([]opts.LineData, 0, len(xs)/stride+1)
	for i := 0; i < len(xs); i += stride {
		axis = append(axis, fmt.Sprintf("%.3f", xs[i]))
		data = append(data, opts.LineData{Value: ys[i]})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName, NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, NameLocation: "middle", NameGap: 45}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(axis)
	line.AddSeries(yName, data, charts.WithLineChartOpts(opts.LineChart{Symbol: "none"}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) chartSignal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sig, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	times := make([]float64, len(sig.Samples))
	for i := range times {
		times[i] = float64(i) / sig.SampleRate
	}
	subtitle := fmt.Sprintf("signal=%s rate=%.0f Hz samples=%d", id, sig.SampleRate, len(sig.Samples))
	s.renderLine(w, "Waveform", subtitle, "time (s)", sig.Units, times, sig.Samples)
}

func (s *Server) chartSpectrum(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sig, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	spec, err := dsp.FFTSpectrum(sig, s.parseWindow(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	subtitle := fmt.Sprintf("signal=%s resolution=%.3f Hz", id, spec.Resolution)
	s.renderLine(w, "Amplitude Spectrum", subtitle, "frequency (Hz)", "amplitude", spec.Frequencies, spec.Magnitudes)
}

func (s *Server) chartEnvelope(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sig, err := s.store.Get(id)
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

	// The diagnostic region is the low-frequency part of the envelope
	// spectrum; trim the display to 500 Hz to keep fault peaks readable.
	spec = trimSpectrum(spec, 500)
	subtitle := fmt.Sprintf("signal=%s resolution=%.3f Hz", id, spec.Resolution)
	s.renderLine(w, "Envelope Spectrum", subtitle, "frequency (Hz)", "amplitude", spec.Frequencies, spec.Magnitudes)
}

func trimSpectrum(spec vibration.Spectrum, maxHz float64) vibration.Spectrum {
	cut := len(spec.Frequencies)
	for i, f := range spec.Frequencies {
		if f > maxHz {
			cut = i
			break
		}
	}
	spec.Frequencies = spec.Frequencies[:cut]
	spec.Magnitudes = spec.Magnitudes[:cut]
	return spec
}
