package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/config"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/diagdb"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/testutil"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/diagnose"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/signalstore"
)

func newTestMCP(t *testing.T) *MCPServer {
	t.Helper()
	store := signalstore.New()
	db, err := diagdb.NewDB(filepath.Join(t.TempDir(), "diag.db"))
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMCPServer(store, diagnose.NewEngine(diagnose.DefaultConfig()), db, config.EmptyTuningConfig())
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text payload of a successful tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool returned error result: %+v", res.Content)
	}
	if len(res.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("tool result content is not text: %T", res.Content[0])
	}
	return text.Text
}

func loadViaTool(t *testing.T, m *MCPServer, samples []float64, rate float64) string {
	t.Helper()
	anySamples := make([]interface{}, len(samples))
	for i, v := range samples {
		anySamples[i] = v
	}
	res, err := m.handleLoadSignal(context.Background(), callRequest(map[string]any{
		"samples":        anySamples,
		"sample_rate_hz": rate,
		"units":          "g",
	}))
	testutil.AssertNoError(t, err)

	var body struct {
		SignalID string `json:"signal_id"`
	}
	testutil.AssertNoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
	if body.SignalID == "" {
		t.Fatal("load_signal returned no signal_id")
	}
	return body.SignalID
}

func TestLoadSignalTool(t *testing.T) {
	m := newTestMCP(t)

	t.Run("valid signal", func(t *testing.T) {
		id := loadViaTool(t, m, testutil.SineSamples(1024, 1024, 100, 1), 1024)

		res, err := m.handleListSignals(context.Background(), callRequest(nil))
		testutil.AssertNoError(t, err)
		if !strings.Contains(resultText(t, res), id) {
			t.Error("loaded signal missing from list_signals")
		}
	})

	t.Run("rejects non-numeric samples", func(t *testing.T) {
		res, err := m.handleLoadSignal(context.Background(), callRequest(map[string]any{
			"samples":        []interface{}{1.0, "two"},
			"sample_rate_hz": 100.0,
		}))
		testutil.AssertNoError(t, err)
		if !res.IsError {
			t.Error("expected error result for non-numeric samples")
		}
	})

	t.Run("rejects zero sample rate", func(t *testing.T) {
		res, err := m.handleLoadSignal(context.Background(), callRequest(map[string]any{
			"samples":        []interface{}{1.0, 2.0},
			"sample_rate_hz": 0.0,
		}))
		testutil.AssertNoError(t, err)
		if !res.IsError {
			t.Error("expected error result for zero sample rate")
		}
	})
}

func TestSpectrumTools(t *testing.T) {
	m := newTestMCP(t)
	id := loadViaTool(t, m, testutil.SineSamples(8192, 8192, 100, 2), 8192)

	t.Run("fft spectrum", func(t *testing.T) {
		res, err := m.handleFFTSpectrum(context.Background(), callRequest(map[string]any{
			"signal_id": id,
		}))
		testutil.AssertNoError(t, err)

		var spec struct {
			Magnitudes []float64 `json:"magnitudes"`
			Resolution float64   `json:"resolution_hz"`
		}
		testutil.AssertNoError(t, json.Unmarshal([]byte(resultText(t, res)), &spec))
		testutil.AssertInDelta(t, spec.Resolution, 1.0, 1e-9)
		testutil.AssertInDelta(t, spec.Magnitudes[100], 2.0, 0.05)
	})

	t.Run("peaks", func(t *testing.T) {
		res, err := m.handleFindPeaks(context.Background(), callRequest(map[string]any{
			"signal_id":           id,
			"min_amplitude_ratio": 0.5,
			"max_peaks":           3.0,
		}))
		testutil.AssertNoError(t, err)

		var body struct {
			Peaks []struct {
				Frequency float64 `json:"frequency_hz"`
			} `json:"peaks"`
		}
		testutil.AssertNoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
		if len(body.Peaks) == 0 {
			t.Fatal("no peaks returned")
		}
		testutil.AssertInDelta(t, body.Peaks[0].Frequency, 100, 1.1)
	})

	t.Run("unknown signal id", func(t *testing.T) {
		res, err := m.handleFFTSpectrum(context.Background(), callRequest(map[string]any{
			"signal_id": "nope",
		}))
		testutil.AssertNoError(t, err)
		if !res.IsError {
			t.Error("expected error result for unknown signal")
		}
	})
}

func TestBearingTools(t *testing.T) {
	m := newTestMCP(t)

	t.Run("catalog frequencies", func(t *testing.T) {
		res, err := m.handleBearingFrequencies(context.Background(), callRequest(map[string]any{
			"rpm":         1470.0,
			"designation": "6205",
		}))
		testutil.AssertNoError(t, err)

		var body struct {
			Frequencies struct {
				BPFO float64 `json:"bpfo_hz"`
				BPFI float64 `json:"bpfi_hz"`
			} `json:"frequencies"`
		}
		testutil.AssertNoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
		testutil.AssertInDelta(t, body.Frequencies.BPFO, 87.5, 1)
		testutil.AssertInDelta(t, body.Frequencies.BPFI, 133.0, 1.5)
	})

	t.Run("geometry frequencies", func(t *testing.T) {
		res, err := m.handleBearingFrequencies(context.Background(), callRequest(map[string]any{
			"rpm":               1470.0,
			"num_rollers":       9.0,
			"ball_diameter_mm":  7.938,
			"pitch_diameter_mm": 38.5,
		}))
		testutil.AssertNoError(t, err)

		var body struct {
			Frequencies struct {
				BPFO float64 `json:"bpfo_hz"`
			} `json:"frequencies"`
		}
		testutil.AssertNoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
		testutil.AssertInDelta(t, body.Frequencies.BPFO, 87.5, 1)
	})

	t.Run("lookup and list", func(t *testing.T) {
		res, err := m.handleLookupBearing(context.Background(), callRequest(map[string]any{
			"designation": "6205",
		}))
		testutil.AssertNoError(t, err)
		if !strings.Contains(resultText(t, res), "frequencies_per_rpm") {
			t.Error("lookup_bearing missing per-rpm coefficients")
		}

		res, err = m.handleListBearings(context.Background(), callRequest(nil))
		testutil.AssertNoError(t, err)
		if !strings.Contains(resultText(t, res), "6205") {
			t.Error("list_known_bearings missing 6205")
		}
	})

	t.Run("unknown designation", func(t *testing.T) {
		res, err := m.handleLookupBearing(context.Background(), callRequest(map[string]any{
			"designation": "9999",
		}))
		testutil.AssertNoError(t, err)
		if !res.IsError {
			t.Error("expected error result for unknown designation")
		}
	})
}

func TestDiagnoseTool(t *testing.T) {
	m := newTestMCP(t)
	id := loadViaTool(t, m, testutil.SineSamples(16384, 8192, 24.5, 0.5), 8192)

	res, err := m.handleDiagnose(context.Background(), callRequest(map[string]any{
		"signal_id": id,
		"rpm":       1470.0,
		"machine":   "pump-7",
	}))
	testutil.AssertNoError(t, err)

	var diag diagnose.Diagnosis
	testutil.AssertNoError(t, json.Unmarshal([]byte(resultText(t, res)), &diag))
	if diag.Context.Mode != diagnose.ModeShaft {
		t.Errorf("mode = %q, want shaft", diag.Context.Mode)
	}
	if !diag.Context.ShaftAnalysisPerformed {
		t.Error("shaft analysis not performed despite rpm")
	}

	t.Run("history records the diagnosis", func(t *testing.T) {
		res, err := m.handleHistory(context.Background(), callRequest(map[string]any{
			"machine": "pump-7",
		}))
		testutil.AssertNoError(t, err)

		var body struct {
			Diagnoses []diagdb.Record `json:"diagnoses"`
		}
		testutil.AssertNoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
		if len(body.Diagnoses) != 1 {
			t.Fatalf("history records = %d, want 1", len(body.Diagnoses))
		}
		if body.Diagnoses[0].SignalID != id {
			t.Errorf("recorded signal id = %q, want %q", body.Diagnoses[0].SignalID, id)
		}
	})

	t.Run("no rpm yields stats only", func(t *testing.T) {
		res, err := m.handleDiagnose(context.Background(), callRequest(map[string]any{
			"signal_id": id,
		}))
		testutil.AssertNoError(t, err)

		var diag diagnose.Diagnosis
		testutil.AssertNoError(t, json.Unmarshal([]byte(resultText(t, res)), &diag))
		if diag.Context.Mode != diagnose.ModeStatsOnly {
			t.Errorf("mode = %q, want stats_only", diag.Context.Mode)
		}
	})
}

func TestAssessSeverityTool(t *testing.T) {
	m := newTestMCP(t)
	id := loadViaTool(t, m, testutil.SineSamples(8192, 8192, 100, 0.05), 8192)

	res, err := m.handleAssessSeverity(context.Background(), callRequest(map[string]any{
		"signal_id": id,
	}))
	testutil.AssertNoError(t, err)

	var assessment struct {
		Zone  string `json:"zone"`
		Group int    `json:"machine_group"`
	}
	testutil.AssertNoError(t, json.Unmarshal([]byte(resultText(t, res)), &assessment))
	if assessment.Zone == "" {
		t.Error("missing severity zone")
	}
	if assessment.Group != 2 {
		t.Errorf("machine group = %d, want default 2", assessment.Group)
	}
}
