// Package mcpserver exposes the diagnostic engine over the Model Context
// Protocol so that LLM agents can load signals, run spectral analysis, and
// request full diagnoses as tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/config"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/diagdb"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/monitoring"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/version"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/bearing"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/diagnose"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/dsp"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/envelope"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/severity"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/signalstore"
)

// MCPServer wires the signal store and diagnostic engine into MCP tools.
type MCPServer struct {
	store      *signalstore.Store
	engine     *diagnose.Engine
	db         *diagdb.DB
	tuning     *config.TuningConfig
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

// NewMCPServer creates the MCP server and registers every tool. db may be
// nil when diagnosis persistence is disabled.
func NewMCPServer(store *signalstore.Store, engine *diagnose.Engine, db *diagdb.DB, tuning *config.TuningConfig) *MCPServer {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	m := &MCPServer{
		store:  store,
		engine: engine,
		db:     db,
		tuning: tuning,
	}

	m.mcpServer = server.NewMCPServer(
		"vibrationd",
		version.Version,
		server.WithToolCapabilities(true),
	)
	m.registerTools()
	m.httpServer = server.NewStreamableHTTPServer(m.mcpServer)
	return m
}

// Handler returns the HTTP handler for the streamable MCP endpoint.
func (m *MCPServer) Handler() http.Handler {
	return m.httpServer
}

func (m *MCPServer) registerTools() {
	m.mcpServer.AddTool(
		mcp.NewTool("load_signal",
			mcp.WithDescription("Load an accelerometer time series into the signal store for analysis. Returns a signal_id used by every other tool plus time-domain statistics (RMS, peak, crest factor, kurtosis). Samples are raw acceleration values in acquisition order."),
			mcp.WithArray("samples",
				mcp.Description("Time-domain sample values"),
				mcp.Required(),
				mcp.Items(map[string]any{"type": "number"}),
			),
			mcp.WithNumber("sample_rate_hz",
				mcp.Description("Sampling frequency in Hz, must be positive"),
				mcp.Required(),
			),
			mcp.WithString("units",
				mcp.Description("Physical unit of the samples: 'g', 'm/s2', or 'mm/s'"),
				mcp.DefaultString("g"),
			),
			mcp.WithString("channel",
				mcp.Description("Optional channel label such as 'radial_horizontal' or 'axial'"),
			),
		),
		m.handleLoadSignal,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("list_signals",
			mcp.WithDescription("List all signals currently in the store with their ids, sample rates, units, and statistics."),
		),
		m.handleListSignals,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("compute_fft_spectrum",
			mcp.WithDescription("Compute the single-sided amplitude spectrum of a stored signal. Amplitudes are normalised so an on-bin sinusoid of amplitude A reads A in the spectrum regardless of the window."),
			mcp.WithString("signal_id",
				mcp.Description("Signal id returned by load_signal"),
				mcp.Required(),
			),
			mcp.WithString("window",
				mcp.Description("Tapering window: 'hann', 'hamming', 'blackman', or 'rectangular'"),
			),
		),
		m.handleFFTSpectrum,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("compute_power_spectral_density",
			mcp.WithDescription("Estimate the power spectral density of a stored signal using Welch's method of averaged overlapping segments. Use this instead of the raw FFT when the signal is noisy and you need a stable noise floor estimate."),
			mcp.WithString("signal_id", mcp.Required()),
			mcp.WithNumber("segment_length",
				mcp.Description("Samples per segment (default from configuration, typically 4096)"),
			),
			mcp.WithNumber("overlap",
				mcp.Description("Fractional overlap between segments in [0, 1), default 0.5"),
			),
			mcp.WithString("window",
				mcp.Description("Tapering window name, default 'hann'"),
			),
		),
		m.handlePSD,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("compute_spectrogram",
			mcp.WithDescription("Compute a short-time Fourier transform spectrogram showing how the spectrum evolves over time. Useful for detecting transient events or speed changes during acquisition."),
			mcp.WithString("signal_id", mcp.Required()),
			mcp.WithNumber("window_length",
				mcp.Description("Samples per frame (default 1024)"),
				mcp.DefaultNumber(1024),
			),
			mcp.WithNumber("hop_length",
				mcp.Description("Samples between frame starts (default window_length/2)"),
			),
			mcp.WithString("window",
				mcp.Description("Tapering window name, default 'hann'"),
			),
		),
		m.handleSpectrogram,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("find_spectral_peaks",
			mcp.WithDescription("Find the dominant local maxima in a signal's amplitude spectrum, ranked by amplitude. Returns frequency, amplitude, and rank for each peak above the amplitude threshold."),
			mcp.WithString("signal_id", mcp.Required()),
			mcp.WithNumber("min_amplitude_ratio",
				mcp.Description("Minimum peak amplitude as a fraction of the spectrum maximum, in [0, 1]"),
			),
			mcp.WithNumber("max_peaks",
				mcp.Description("Maximum number of peaks to return"),
			),
			mcp.WithString("window",
				mcp.Description("Tapering window name, default 'hann'"),
			),
		),
		m.handleFindPeaks,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("compute_envelope_spectrum",
			mcp.WithDescription("Compute the envelope spectrum of a stored signal: band-pass around the bearing resonance region, Hilbert demodulation, then FFT of the envelope. Bearing fault frequencies that are invisible in the raw spectrum appear as peaks here."),
			mcp.WithString("signal_id", mcp.Required()),
			mcp.WithNumber("band_low_hz",
				mcp.Description("Band-pass lower edge in Hz; 0 selects an automatic band"),
			),
			mcp.WithNumber("band_high_hz",
				mcp.Description("Band-pass upper edge in Hz; 0 selects an automatic band"),
			),
		),
		m.handleEnvelopeSpectrum,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("check_bearing_fault_peak",
			mcp.WithDescription("Check the envelope spectrum of a stored signal for a fault frequency and its harmonics. Returns per-harmonic matches against the noise floor and an overall confidence (high: 2+ harmonics, medium: fundamental only, none)."),
			mcp.WithString("signal_id", mcp.Required()),
			mcp.WithNumber("target_hz",
				mcp.Description("Fault frequency to look for, e.g. a BPFO from calculate_bearing_frequencies"),
				mcp.Required(),
			),
			mcp.WithNumber("harmonics",
				mcp.Description("Number of harmonics to check including the fundamental (default 3)"),
				mcp.DefaultNumber(3),
			),
			mcp.WithNumber("tolerance",
				mcp.Description("Fractional frequency matching tolerance (default 0.03)"),
				mcp.DefaultNumber(0.03),
			),
			mcp.WithNumber("band_low_hz",
				mcp.Description("Envelope band-pass lower edge in Hz; 0 selects an automatic band"),
			),
			mcp.WithNumber("band_high_hz",
				mcp.Description("Envelope band-pass upper edge in Hz; 0 selects an automatic band"),
			),
		),
		m.handleCheckFaultPeak,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("calculate_bearing_frequencies",
			mcp.WithDescription("Calculate the characteristic fault frequencies (FTF, BPFO, BPFI, BSF) of a rolling-element bearing at a given shaft speed, from either a catalog designation or explicit geometry."),
			mcp.WithNumber("rpm",
				mcp.Description("Shaft speed in revolutions per minute"),
				mcp.Required(),
			),
			mcp.WithString("designation",
				mcp.Description("Catalog designation such as '6205'; leave empty to supply geometry"),
			),
			mcp.WithNumber("num_rollers",
				mcp.Description("Number of rolling elements (geometry path)"),
			),
			mcp.WithNumber("ball_diameter_mm",
				mcp.Description("Rolling element diameter in mm (geometry path)"),
			),
			mcp.WithNumber("pitch_diameter_mm",
				mcp.Description("Pitch diameter in mm (geometry path)"),
			),
			mcp.WithNumber("contact_angle_deg",
				mcp.Description("Contact angle in degrees (geometry path, default 0)"),
			),
		),
		m.handleBearingFrequencies,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("lookup_bearing",
			mcp.WithDescription("Look up a bearing designation in the built-in catalog. Returns its geometry and per-RPM frequency coefficients (multiply by shaft RPM to get fault frequencies in Hz)."),
			mcp.WithString("designation",
				mcp.Description("Catalog designation such as '6205' or 'NU205'"),
				mcp.Required(),
			),
		),
		m.handleLookupBearing,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("list_known_bearings",
			mcp.WithDescription("List every bearing in the built-in catalog with designation, name, and geometry."),
		),
		m.handleListBearings,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("assess_vibration_severity",
			mcp.WithDescription("Assess the overall vibration severity of a stored signal against ISO 10816 style zone boundaries. Converts acceleration to velocity RMS in the 10-1000 Hz band and classifies it into zone A (good) through D (unacceptable) for the machine group."),
			mcp.WithString("signal_id", mcp.Required()),
			mcp.WithNumber("machine_group",
				mcp.Description("Machine group 1-4: 1 large machines, 2 medium machines (default), 3 large on flexible foundation, 4 small machines"),
			),
		),
		m.handleAssessSeverity,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("diagnose",
			mcp.WithDescription("Run the full staged diagnosis on a stored signal: time-domain statistics, severity assessment, shaft fault rules (requires rpm), and bearing envelope analysis (requires bearing info). Findings are only reported when the inputs they depend on were provided; the context block states which stages ran and why."),
			mcp.WithString("signal_id", mcp.Required()),
			mcp.WithNumber("rpm",
				mcp.Description("Shaft speed in RPM; omit when unknown, shaft and bearing rules are then skipped"),
			),
			mcp.WithString("bearing_designation",
				mcp.Description("Catalog designation of the bearing under test; omit when unknown"),
			),
			mcp.WithNumber("bpfo_hz",
				mcp.Description("Directly measured outer race fault frequency; alternative to a designation"),
			),
			mcp.WithNumber("bpfi_hz",
				mcp.Description("Directly measured inner race fault frequency"),
			),
			mcp.WithNumber("bsf_hz",
				mcp.Description("Directly measured ball spin frequency"),
			),
			mcp.WithNumber("ftf_hz",
				mcp.Description("Directly measured cage frequency"),
			),
			mcp.WithNumber("machine_group",
				mcp.Description("Machine group 1-4 for severity zoning (default 2)"),
			),
			mcp.WithNumber("envelope_band_low_hz",
				mcp.Description("Envelope band-pass lower edge; 0 selects an automatic band"),
			),
			mcp.WithNumber("envelope_band_high_hz",
				mcp.Description("Envelope band-pass upper edge; 0 selects an automatic band"),
			),
			mcp.WithString("machine",
				mcp.Description("Machine label for the diagnosis history; enables persistence"),
			),
		),
		m.handleDiagnose,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("get_diagnosis_history",
			mcp.WithDescription("Retrieve past diagnoses recorded for a machine, newest first. Includes severity zone, velocity RMS, and the full diagnosis result."),
			mcp.WithString("machine",
				mcp.Description("Machine label to filter on; empty returns every machine"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of records (default 20)"),
				mcp.DefaultNumber(20),
			),
		),
		m.handleHistory,
	)
}

func toolJSON(v interface{}) (*mcp.CallToolResult, error) {
	blob, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(blob)), nil
}

func (m *MCPServer) handleLoadSignal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	raw, ok := args["samples"].([]interface{})
	if !ok {
		return mcp.NewToolResultError("samples must be an array of numbers"), nil
	}
	samples := make([]float64, len(raw))
	for i, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("samples[%d] is not a number", i)), nil
		}
		samples[i] = f
	}

	rate := request.GetFloat("sample_rate_hz", 0)
	units := request.GetString("units", "g")
	channel := request.GetString("channel", "")

	id, err := m.store.Load(samples, rate, channel, units, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stats, err := m.store.Stats(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	monitoring.Logf("mcp: loaded signal %s (%d samples at %.0f Hz)", id, len(samples), rate)
	return toolJSON(map[string]interface{}{"signal_id": id, "stats": stats})
}

func (m *MCPServer) handleListSignals(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolJSON(map[string]interface{}{"signals": m.store.List()})
}

func (m *MCPServer) window(request mcp.CallToolRequest) dsp.Window {
	name := request.GetString("window", "")
	if name == "" {
		name = m.tuning.GetSpectralWindow()
	}
	return dsp.Window(name)
}

func (m *MCPServer) handleFFTSpectrum(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sig, err := m.store.Get(request.GetString("signal_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	spec, err := dsp.FFTSpectrum(sig, m.window(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(spec)
}

func (m *MCPServer) handlePSD(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sig, err := m.store.Get(request.GetString("signal_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	segLen := request.GetInt("segment_length", m.tuning.GetWelchSegmentLength())
	overlap := request.GetFloat("overlap", m.tuning.GetWelchOverlap())
	spec, err := dsp.WelchPSD(sig, segLen, overlap, m.window(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(spec)
}

func (m *MCPServer) handleSpectrogram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sig, err := m.store.Get(request.GetString("signal_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	windowLen := request.GetInt("window_length", 1024)
	hopLen := request.GetInt("hop_length", windowLen/2)
	gram, err := dsp.STFTSpectrogram(sig, windowLen, hopLen, m.window(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(gram)
}

func (m *MCPServer) handleFindPeaks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sig, err := m.store.Get(request.GetString("signal_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	spec, err := dsp.FFTSpectrum(sig, m.window(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ratio := request.GetFloat("min_amplitude_ratio", m.tuning.GetPeakMinAmplitudeRatio())
	maxPeaks := request.GetInt("max_peaks", m.tuning.GetPeakMaxCount())
	found, err := dsp.FindPeaks(spec, ratio, maxPeaks)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(map[string]interface{}{"peaks": found})
}

func (m *MCPServer) handleEnvelopeSpectrum(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sig, err := m.store.Get(request.GetString("signal_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	low := request.GetFloat("band_low_hz", m.tuning.GetEnvelopeBandLow())
	high := request.GetFloat("band_high_hz", m.tuning.GetEnvelopeBandHigh())
	spec, err := envelope.Spectrum(sig, low, high)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(spec)
}

func (m *MCPServer) handleCheckFaultPeak(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sig, err := m.store.Get(request.GetString("signal_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	low := request.GetFloat("band_low_hz", m.tuning.GetEnvelopeBandLow())
	high := request.GetFloat("band_high_hz", m.tuning.GetEnvelopeBandHigh())
	spec, err := envelope.Spectrum(sig, low, high)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := envelope.CheckFaultPeak(spec,
		request.GetFloat("target_hz", 0),
		request.GetInt("harmonics", 3),
		request.GetFloat("tolerance", 0.03))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(result)
}

func (m *MCPServer) handleBearingFrequencies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rpm := request.GetFloat("rpm", 0)
	designation := request.GetString("designation", "")

	var (
		freqs bearing.FrequencySet
		err   error
	)
	if designation != "" {
		freqs, err = bearing.FromCatalog(designation, rpm)
	} else {
		g := bearing.Geometry{
			NumRollers:    request.GetInt("num_rollers", 0),
			BallDiameter:  request.GetFloat("ball_diameter_mm", 0),
			PitchDiameter: request.GetFloat("pitch_diameter_mm", 0),
			ContactAngle:  request.GetFloat("contact_angle_deg", 0) * math.Pi / 180,
		}
		freqs, err = bearing.FromGeometry(g, rpm)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(map[string]interface{}{"rpm": rpm, "frequencies": freqs})
}

func (m *MCPServer) handleLookupBearing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	designation := request.GetString("designation", "")
	entry, ok := bearing.Lookup(designation)
	if !ok {
		return mcp.NewToolResultError("unknown bearing designation: " + designation), nil
	}
	coeffs, err := bearing.PerRPM(designation)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(map[string]interface{}{"bearing": entry, "frequencies_per_rpm": coeffs})
}

func (m *MCPServer) handleListBearings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolJSON(map[string]interface{}{"bearings": bearing.ListCatalog()})
}

func (m *MCPServer) handleAssessSeverity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sig, err := m.store.Get(request.GetString("signal_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	group := request.GetInt("machine_group", m.tuning.GetMachineGroup())
	assessment, err := severity.AssessSignal(sig, group)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(assessment)
}

func (m *MCPServer) handleDiagnose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	signalID := request.GetString("signal_id", "")
	sig, err := m.store.Get(signalID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := diagnose.Request{
		Signal:           sig,
		RPM:              request.GetFloat("rpm", 0),
		MachineGroup:     request.GetInt("machine_group", m.tuning.GetMachineGroup()),
		EnvelopeBandLow:  request.GetFloat("envelope_band_low_hz", m.tuning.GetEnvelopeBandLow()),
		EnvelopeBandHigh: request.GetFloat("envelope_band_high_hz", m.tuning.GetEnvelopeBandHigh()),
	}

	if designation := request.GetString("bearing_designation", ""); designation != "" {
		req.Bearing = &bearing.Source{Designation: designation}
	} else if bpfo := request.GetFloat("bpfo_hz", 0); bpfo > 0 {
		direct, err := bearing.Direct(req.RPM/60,
			request.GetFloat("ftf_hz", 0),
			bpfo,
			request.GetFloat("bpfi_hz", 0),
			request.GetFloat("bsf_hz", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req.Bearing = &bearing.Source{Direct: &direct}
	}

	diag, err := m.engine.Run(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	machine := request.GetString("machine", "")
	if machine == "" {
		machine = sig.Metadata["machine"]
	}
	if m.db != nil && machine != "" {
		if _, err := m.db.RecordDiagnosis(signalID, machine, diag); err != nil {
			monitoring.Logf("mcp: failed to persist diagnosis for %s: %v", machine, err)
		}
	}
	return toolJSON(diag)
}

func (m *MCPServer) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if m.db == nil {
		return mcp.NewToolResultError("diagnosis history is not enabled"), nil
	}
	records, err := m.db.History(request.GetString("machine", ""), request.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(map[string]interface{}{"diagnoses": records})
}
