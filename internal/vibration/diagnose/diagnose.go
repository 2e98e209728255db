// Package diagnose fuses time-domain statistics, spectral peaks,
// bearing-frequency matches, and severity into ranked fault findings.
//
// The pipeline is a state machine over the supplied context, not free-form
// branching: the request is classified once into one of four modes (RPM
// present/absent × bearing info present/absent) and each gated stage runs
// only in the modes that include its evidence. This enforces the
// evidence-honesty contract structurally: a finding whose kind requires
// shaft speed can only be produced inside the shaft stage, which is
// unreachable without RPM.
package diagnose

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/bearing"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/dsp"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/envelope"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/severity"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/signalstore"
)

// Mode is the enumerated analysis context, fixed once at entry.
type Mode string

const (
	// ModeStatsOnly: neither RPM nor bearing info supplied.
	ModeStatsOnly Mode = "stats_only"
	// ModeShaft: RPM supplied, no usable bearing info.
	ModeShaft Mode = "shaft"
	// ModeBearing: bearing frequencies available without RPM (direct path).
	ModeBearing Mode = "bearing"
	// ModeFull: both shaft and bearing analysis possible.
	ModeFull Mode = "full"
)

// Request carries everything a diagnosis needs. Optional inputs are
// explicit: a zero RPM means not supplied, a nil bearing source means not
// supplied.
type Request struct {
	Signal vibration.Signal

	// RPM is the shaft speed; 0 means unknown. The engine never infers
	// shaft speed from spectral content.
	RPM float64

	// Bearing identifies the bearing by geometry, catalog designation, or
	// direct frequencies. nil means no bearing information.
	Bearing *bearing.Source

	// MachineGroup selects the severity threshold row (1-4).
	MachineGroup int

	// EnvelopeBandLow/High override the envelope analysis band in Hz.
	// Both zero selects the default band heuristic.
	EnvelopeBandLow  float64
	EnvelopeBandHigh float64
}

// ContextFlags records which optional inputs were present and which stages
// actually ran, so the absence of a finding is never mistaken for the
// absence of a fault.
type ContextFlags struct {
	Mode                     Mode     `json:"mode"`
	RPMProvided              bool     `json:"rpm_provided"`
	BearingProvided          bool     `json:"bearing_provided"`
	ShaftAnalysisPerformed   bool     `json:"shaft_analysis_performed"`
	BearingAnalysisPerformed bool     `json:"bearing_analysis_performed"`
	Notes                    []string `json:"notes,omitempty"`
}

// ShaftFeatures are the spectral amplitudes at shaft-frequency harmonics,
// extracted during the shaft stage.
type ShaftFeatures struct {
	ShaftHz     float64 `json:"shaft_hz"`
	AmpHalfX    float64 `json:"amp_half_x"`
	Amp1X       float64 `json:"amp_1x"`
	Amp2X       float64 `json:"amp_2x"`
	Amp3X       float64 `json:"amp_3x"`
	SpectrumRMS float64 `json:"spectrum_rms"`
}

// Diagnosis is the aggregate output record.
type Diagnosis struct {
	Stats              signalstore.Stats     `json:"stats"`
	Severity           severity.Assessment   `json:"severity"`
	Findings           []vibration.Finding   `json:"findings"`
	Context            ContextFlags          `json:"context"`
	Shaft              *ShaftFeatures        `json:"shaft_features,omitempty"`
	BearingFrequencies *bearing.FrequencySet `json:"bearing_frequencies,omitempty"`
}

// Config holds the classifier tunables. The defaults come from rotating-
// machinery practice; they are deliberate inputs, not invariants.
type Config struct {
	// HarmonicTolerance is the fractional frequency tolerance when reading
	// amplitudes at expected harmonics (0.03 = ±3%).
	HarmonicTolerance float64

	// DominanceRatio is how far the 1× amplitude must stand above the
	// spectrum RMS to count as dominant.
	DominanceRatio float64

	// HarmonicSignificance is the amplitude-to-spectrum-RMS ratio above
	// which a harmonic counts towards the looseness rule.
	HarmonicSignificance float64

	// Elevated2XRatio is the 2×-to-spectrum-RMS ratio required before the
	// misalignment rule is considered.
	Elevated2XRatio float64

	// CrestThreshold and KurtosisThreshold gate the impulsiveness finding.
	// KurtosisThreshold is in the excess convention (Gaussian = 0).
	CrestThreshold    float64
	KurtosisThreshold float64

	// BearingHarmonics is how many harmonics of each fault frequency the
	// envelope stage checks.
	BearingHarmonics int

	// Shaft-synchronous findings are only meaningful once the broadband
	// level is elevated; RequireElevatedSeverity gates the shaft rules on
	// the machine being beyond the B/C boundary.
	RequireElevatedSeverity bool
}

// DefaultConfig returns the classifier defaults.
func DefaultConfig() Config {
	return Config{
		HarmonicTolerance:       0.03,
		DominanceRatio:          3.0,
		HarmonicSignificance:    1.5,
		Elevated2XRatio:         2.5,
		CrestThreshold:          5.0,
		KurtosisThreshold:       1.0,
		BearingHarmonics:        3,
		RequireElevatedSeverity: true,
	}
}

// Engine runs diagnoses with a fixed configuration. Engines are stateless
// and safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine; a zero Config selects DefaultConfig.
func NewEngine(cfg Config) *Engine {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// mode classifies the request context once at entry. The geometry and
// catalog bearing paths need RPM to resolve; only the direct-frequency path
// enables bearing analysis without shaft speed.
func (r Request) mode() (Mode, []string) {
	var notes []string
	hasRPM := r.RPM > 0
	hasBearing := r.Bearing != nil
	bearingUsable := hasBearing && (hasRPM || !r.Bearing.NeedsRPM())
	if hasBearing && !bearingUsable {
		notes = append(notes, "bearing analysis not performed: geometry/catalog bearing info requires rpm")
	}
	switch {
	case hasRPM && bearingUsable:
		return ModeFull, notes
	case hasRPM:
		return ModeShaft, notes
	case bearingUsable:
		return ModeBearing, notes
	}
	return ModeStatsOnly, notes
}

// Run executes the staged diagnosis pipeline.
func (e *Engine) Run(req Request) (Diagnosis, error) {
	if err := req.Signal.Validate(); err != nil {
		return Diagnosis{}, fmt.Errorf("diagnose: %w", err)
	}
	if req.MachineGroup == 0 {
		req.MachineGroup = 2
	}

	mode, notes := req.mode()
	ctx := ContextFlags{
		Mode:            mode,
		RPMProvided:     req.RPM > 0,
		BearingProvided: req.Bearing != nil,
		Notes:           notes,
	}

	// Stage 0: time-domain statistics and severity, always.
	stats, err := signalstore.Compute(req.Signal)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("diagnose: %w", err)
	}
	assessment, err := severity.AssessSignal(req.Signal, req.MachineGroup)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("diagnose: %w", err)
	}

	diag := Diagnosis{Stats: stats, Severity: assessment, Context: ctx}
	diag.Findings = append(diag.Findings, e.timeDomainFindings(stats)...)

	// The raw spectrum feeds only the shaft stage; computing it inside the
	// gate keeps stats-only requests cheap.
	if mode == ModeShaft || mode == ModeFull {
		spec, err := dsp.FFTSpectrum(req.Signal, dsp.WindowHann)
		if err != nil {
			return Diagnosis{}, fmt.Errorf("diagnose: shaft stage: %w", err)
		}
		features := e.extractShaftFeatures(spec, req.RPM/60.0)
		diag.Shaft = &features
		diag.Context.ShaftAnalysisPerformed = true
		diag.Findings = append(diag.Findings, e.shaftFindings(features, req.Signal.Channel, assessment)...)
	} else {
		diag.Context.Notes = append(diag.Context.Notes, "shaft-frequency analysis not performed: rpm not provided")
	}

	if mode == ModeBearing || mode == ModeFull {
		freqs, err := req.Bearing.Resolve(req.RPM)
		if err != nil {
			return Diagnosis{}, fmt.Errorf("diagnose: bearing stage: %w", err)
		}
		diag.BearingFrequencies = &freqs

		findings, err := e.bearingFindings(req, freqs)
		if err != nil {
			return Diagnosis{}, fmt.Errorf("diagnose: bearing stage: %w", err)
		}
		diag.Context.BearingAnalysisPerformed = true
		diag.Findings = append(diag.Findings, findings...)
	} else if req.Bearing == nil {
		diag.Context.Notes = append(diag.Context.Notes, "bearing analysis not performed: no bearing information provided")
	}

	sortFindings(diag.Findings)
	return diag, nil
}

// sortFindings orders findings by confidence (high first), then by kind for
// a deterministic output.
func sortFindings(findings []vibration.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Confidence != findings[j].Confidence {
			return findings[i].Confidence.Less(findings[j].Confidence)
		}
		return findings[i].Kind < findings[j].Kind
	})
}

// timeDomainFindings applies the Stage 0 rules that need no optional
// context: impulsive content detection from kurtosis and crest factor.
func (e *Engine) timeDomainFindings(stats signalstore.Stats) []vibration.Finding {
	if stats.Kurtosis <= e.cfg.KurtosisThreshold && stats.CrestFactor <= e.cfg.CrestThreshold {
		return nil
	}
	return []vibration.Finding{{
		Kind:        vibration.FaultImpulsive,
		Confidence:  vibration.ConfidenceMedium,
		Stage:       vibration.StageTimeDomain,
		Description: "Impulsive content detected; may indicate a bearing defect or gear tooth damage.",
		Evidence: []string{
			fmt.Sprintf("excess kurtosis = %.2f (Gaussian = 0)", stats.Kurtosis),
			fmt.Sprintf("crest factor = %.2f (smooth machines < 4)", stats.CrestFactor),
		},
		Recommendations: []string{
			"Perform envelope analysis to isolate bearing fault frequencies.",
			"Inspect gears for pitting or tooth damage if applicable.",
		},
	}}
}

// extractShaftFeatures reads the spectrum amplitude at 0.5x, 1x, 2x and 3x
// shaft frequency, each within the configured fractional tolerance (widened
// to at least one resolution bin).
func (e *Engine) extractShaftFeatures(spec vibration.Spectrum, shaftHz float64) ShaftFeatures {
	peakAt := func(target float64) float64 {
		tol := target * e.cfg.HarmonicTolerance
		if tol < spec.Resolution {
			tol = spec.Resolution
		}
		max := 0.0
		for i, f := range spec.Frequencies {
			if f < target-tol || f > target+tol {
				continue
			}
			if spec.Magnitudes[i] > max {
				max = spec.Magnitudes[i]
			}
		}
		return max
	}

	sumSq := 0.0
	for _, m := range spec.Magnitudes {
		sumSq += m * m
	}
	rms := 0.0
	if len(spec.Magnitudes) > 0 {
		rms = math.Sqrt(sumSq / float64(len(spec.Magnitudes)))
	}

	return ShaftFeatures{
		ShaftHz:     shaftHz,
		AmpHalfX:    peakAt(0.5 * shaftHz),
		Amp1X:       peakAt(shaftHz),
		Amp2X:       peakAt(2 * shaftHz),
		Amp3X:       peakAt(3 * shaftHz),
		SpectrumRMS: rms,
	}
}

// shaftFindings applies the Stage 1 shaft-synchronous rules. When
// RequireElevatedSeverity is set the rules only fire once the broadband
// level is beyond the B/C boundary; a dominant 1x on a machine in zone A or
// B is the normal residual unbalance every rotor has.
func (e *Engine) shaftFindings(f ShaftFeatures, channel string, assess severity.Assessment) []vibration.Finding {
	if e.cfg.RequireElevatedSeverity && (assess.Zone == severity.ZoneA || assess.Zone == severity.ZoneB) {
		return nil
	}
	if f.SpectrumRMS <= 0 {
		return nil
	}

	var findings []vibration.Finding
	ratio1x := f.Amp1X / f.SpectrumRMS
	ratio2x := f.Amp2X / f.SpectrumRMS

	// Unbalance: dominant 1x with the 2x at less than half of it.
	if ratio1x > e.cfg.DominanceRatio && f.Amp1X > 2*f.Amp2X {
		findings = append(findings, vibration.Finding{
			Kind:        vibration.FaultUnbalance,
			Confidence:  vibration.ConfidenceHigh,
			Stage:       vibration.StageShaft,
			Description: "Mass unbalance: dominant vibration at 1x shaft speed.",
			Evidence: []string{
				fmt.Sprintf("1x amplitude = %.4g (%.1fx spectrum RMS)", f.Amp1X, ratio1x),
				fmt.Sprintf("1x/2x ratio = %.1f", safeRatio(f.Amp1X, f.Amp2X)),
			},
			Recommendations: []string{
				"Balance the rotor.",
				"Check for material build-up or loss on rotating parts.",
				"Verify coupling alignment; unbalance can mask misalignment.",
			},
		})
	}

	// Misalignment: elevated 2x at or above half the 1x. An axial-dominant
	// channel points at the angular variant.
	if ratio2x > e.cfg.Elevated2XRatio && f.Amp2X >= 0.5*f.Amp1X {
		kind := vibration.FaultMisalignment
		desc := "Shaft misalignment: elevated vibration at 2x shaft speed."
		if strings.Contains(strings.ToLower(channel), "axial") {
			kind = vibration.FaultAngularMisalignment
			desc = "Angular misalignment: elevated 2x with axial-dominant 1x."
		}
		findings = append(findings, vibration.Finding{
			Kind:        kind,
			Confidence:  vibration.ConfidenceHigh,
			Stage:       vibration.StageShaft,
			Description: desc,
			Evidence: []string{
				fmt.Sprintf("2x amplitude = %.4g (%.1fx spectrum RMS)", f.Amp2X, ratio2x),
				fmt.Sprintf("2x/1x ratio = %.2f", safeRatio(f.Amp2X, f.Amp1X)),
			},
			Recommendations: []string{
				"Check shaft alignment with a laser or dial indicator.",
				"Inspect coupling condition and flexible element wear.",
			},
		})
	}

	// Looseness: three or more comparable harmonics, or a 0.5x sub-harmonic.
	significant := 0
	for _, a := range []float64{f.Amp1X, f.Amp2X, f.Amp3X} {
		if a/f.SpectrumRMS > e.cfg.HarmonicSignificance {
			significant++
		}
	}
	subharmonic := f.AmpHalfX/f.SpectrumRMS > e.cfg.HarmonicSignificance
	if significant >= 3 || subharmonic {
		evidence := []string{fmt.Sprintf("significant shaft harmonics: %d of 3", significant)}
		if subharmonic {
			evidence = append(evidence, fmt.Sprintf("0.5x sub-harmonic amplitude = %.4g", f.AmpHalfX))
		}
		findings = append(findings, vibration.Finding{
			Kind:        vibration.FaultLooseness,
			Confidence:  vibration.ConfidenceMedium,
			Stage:       vibration.StageShaft,
			Description: "Mechanical looseness: multiple shaft harmonics with comparable amplitude.",
			Evidence:    evidence,
			Recommendations: []string{
				"Inspect and tighten foundation bolts.",
				"Check bearing housing fit and clearance.",
				"Look for structural cracks or soft foot.",
			},
		})
	}

	return findings
}

// bearingFindings runs the Stage 2 envelope analysis and emits one finding
// per matched fault frequency.
//
// On top of the per-harmonic noise-floor test, a finding requires the
// fundamental to be detected and to coincide with one of the ranked envelope
// peaks. A lone above-floor bin in a harmonic window is then not enough to
// report a defect, which keeps the false-alarm rate on noise-only envelopes
// low.
func (e *Engine) bearingFindings(req Request, freqs bearing.FrequencySet) ([]vibration.Finding, error) {
	envSpec, err := envelope.Spectrum(req.Signal, req.EnvelopeBandLow, req.EnvelopeBandHigh)
	if err != nil {
		return nil, err
	}
	rankedPeaks, err := dsp.FindPeaks(envSpec, 0.25, 10)
	if err != nil {
		return nil, err
	}

	var assumed []string
	if req.EnvelopeBandLow == 0 && req.EnvelopeBandHigh == 0 {
		low, high := envelope.DefaultBand(req.Signal.SampleRate)
		assumed = append(assumed, fmt.Sprintf("envelope band %.0f-%.0f Hz assumed from the default resonance heuristic", low, high))
	}

	targets := []struct {
		kind  vibration.FaultKind
		label string
		hz    float64
	}{
		{vibration.FaultBearingOuterRace, "outer race (BPFO)", freqs.BPFO},
		{vibration.FaultBearingInnerRace, "inner race (BPFI)", freqs.BPFI},
		{vibration.FaultBearingBall, "rolling element (BSF)", freqs.BSF},
		{vibration.FaultBearingCage, "cage (FTF)", freqs.FTF},
	}

	var findings []vibration.Finding
	for _, target := range targets {
		if target.hz <= 0 {
			continue
		}
		result, err := envelope.CheckFaultPeak(envSpec, target.hz, e.cfg.BearingHarmonics, e.cfg.HarmonicTolerance)
		if err != nil {
			return nil, err
		}
		if result.Confidence == vibration.ConfidenceNone {
			continue
		}
		if len(result.Matches) == 0 || !result.Matches[0].Detected {
			continue
		}
		tol := target.hz * e.cfg.HarmonicTolerance
		if tol < envSpec.Resolution {
			tol = envSpec.Resolution
		}
		if !nearRankedPeak(rankedPeaks, target.hz, tol) {
			continue
		}

		evidence := []string{
			fmt.Sprintf("fault frequency %.2f Hz: %d of %d harmonics above the envelope noise floor",
				target.hz, result.HarmonicsDetected, result.HarmonicsChecked),
		}
		for _, m := range result.Matches {
			if m.Detected {
				evidence = append(evidence, fmt.Sprintf("harmonic %dx found at %.2f Hz, amplitude %.3g (floor %.3g)",
					m.Harmonic, m.FoundHz, m.Amplitude, m.NoiseThreshold))
			}
		}

		findings = append(findings, vibration.Finding{
			Kind:          target.kind,
			Confidence:    result.Confidence,
			Stage:         vibration.StageBearing,
			Description:   fmt.Sprintf("Bearing %s defect signature in the envelope spectrum.", target.label),
			Evidence:      evidence,
			AssumedInputs: assumed,
			Recommendations: []string{
				"Schedule bearing replacement.",
				"Increase monitoring frequency to track progression.",
				"Check lubrication condition.",
			},
		})
	}
	return findings, nil
}

// nearRankedPeak reports whether any ranked peak lies within tol of hz.
func nearRankedPeak(peaks vibration.PeakList, hz, tol float64) bool {
	for _, p := range peaks {
		if math.Abs(p.Frequency-hz) <= tol {
			return true
		}
	}
	return false
}

func safeRatio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
