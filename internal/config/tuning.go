package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/diagnose"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for analysis tuning
// parameters. The schema matches the /api/params endpoint so the same JSON
// can be used for both startup configuration and runtime updates.
//
// All fields are pointers so a partial JSON file only overrides what it
// names; the Get* methods fall back to built-in defaults for nil fields.
type TuningConfig struct {
	// Classifier params
	HarmonicTolerance    *float64 `json:"harmonic_tolerance,omitempty"`
	DominanceRatio       *float64 `json:"dominance_ratio,omitempty"`
	HarmonicSignificance *float64 `json:"harmonic_significance,omitempty"`
	Elevated2XRatio      *float64 `json:"elevated_2x_ratio,omitempty"`
	CrestThreshold       *float64 `json:"crest_threshold,omitempty"`
	KurtosisThreshold    *float64 `json:"kurtosis_threshold,omitempty"`
	BearingHarmonics     *int     `json:"bearing_harmonics,omitempty"`

	// Envelope params
	EnvelopeBandLow  *float64 `json:"envelope_band_low_hz,omitempty"`
	EnvelopeBandHigh *float64 `json:"envelope_band_high_hz,omitempty"`

	// Severity params
	MachineGroup *int `json:"machine_group,omitempty"`

	// Peak finding params
	PeakMinAmplitudeRatio *float64 `json:"peak_min_amplitude_ratio,omitempty"`
	PeakMaxCount          *int     `json:"peak_max_count,omitempty"`

	// Spectral params
	WelchSegmentLength *int     `json:"welch_segment_length,omitempty"`
	WelchOverlap       *float64 `json:"welch_overlap,omitempty"`
	SpectralWindow     *string  `json:"spectral_window,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// with its built-in default, suitable for serialising a reference file.
func DefaultTuningConfig() *TuningConfig {
	d := diagnose.DefaultConfig()
	return &TuningConfig{
		HarmonicTolerance:     ptrFloat64(d.HarmonicTolerance),
		DominanceRatio:        ptrFloat64(d.DominanceRatio),
		HarmonicSignificance:  ptrFloat64(d.HarmonicSignificance),
		Elevated2XRatio:       ptrFloat64(d.Elevated2XRatio),
		CrestThreshold:        ptrFloat64(d.CrestThreshold),
		KurtosisThreshold:     ptrFloat64(d.KurtosisThreshold),
		BearingHarmonics:      ptrInt(d.BearingHarmonics),
		MachineGroup:          ptrInt(2),
		PeakMinAmplitudeRatio: ptrFloat64(0.1),
		PeakMaxCount:          ptrInt(10),
		WelchSegmentLength:    ptrInt(4096),
		WelchOverlap:          ptrFloat64(0.5),
		SpectralWindow:        ptrString("hann"),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the size cap. Fields omitted from
// the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.HarmonicTolerance != nil && (*c.HarmonicTolerance <= 0 || *c.HarmonicTolerance >= 1) {
		return fmt.Errorf("harmonic_tolerance must be in (0, 1), got %f", *c.HarmonicTolerance)
	}
	if c.DominanceRatio != nil && *c.DominanceRatio <= 0 {
		return fmt.Errorf("dominance_ratio must be positive, got %f", *c.DominanceRatio)
	}
	if c.BearingHarmonics != nil && *c.BearingHarmonics < 1 {
		return fmt.Errorf("bearing_harmonics must be >= 1, got %d", *c.BearingHarmonics)
	}
	if c.MachineGroup != nil && (*c.MachineGroup < 1 || *c.MachineGroup > 4) {
		return fmt.Errorf("machine_group must be 1-4, got %d", *c.MachineGroup)
	}
	if c.EnvelopeBandLow != nil && *c.EnvelopeBandLow < 0 {
		return fmt.Errorf("envelope_band_low_hz must be non-negative, got %f", *c.EnvelopeBandLow)
	}
	if c.EnvelopeBandLow != nil && c.EnvelopeBandHigh != nil && *c.EnvelopeBandHigh <= *c.EnvelopeBandLow {
		return fmt.Errorf("envelope band [%f, %f] is not a valid range", *c.EnvelopeBandLow, *c.EnvelopeBandHigh)
	}
	if c.PeakMinAmplitudeRatio != nil && (*c.PeakMinAmplitudeRatio < 0 || *c.PeakMinAmplitudeRatio > 1) {
		return fmt.Errorf("peak_min_amplitude_ratio must be in [0, 1], got %f", *c.PeakMinAmplitudeRatio)
	}
	if c.PeakMaxCount != nil && *c.PeakMaxCount < 1 {
		return fmt.Errorf("peak_max_count must be >= 1, got %d", *c.PeakMaxCount)
	}
	if c.WelchSegmentLength != nil && *c.WelchSegmentLength < 2 {
		return fmt.Errorf("welch_segment_length must be >= 2, got %d", *c.WelchSegmentLength)
	}
	if c.WelchOverlap != nil && (*c.WelchOverlap < 0 || *c.WelchOverlap >= 1) {
		return fmt.Errorf("welch_overlap must be in [0, 1), got %f", *c.WelchOverlap)
	}
	if c.SpectralWindow != nil {
		switch *c.SpectralWindow {
		case "rectangular", "hann", "hamming", "blackman":
		default:
			return fmt.Errorf("unknown spectral_window %q", *c.SpectralWindow)
		}
	}
	return nil
}

// Classifier assembles a diagnose.Config from the tuning values, falling
// back to the classifier defaults for unset fields.
func (c *TuningConfig) Classifier() diagnose.Config {
	d := diagnose.DefaultConfig()
	if c.HarmonicTolerance != nil {
		d.HarmonicTolerance = *c.HarmonicTolerance
	}
	if c.DominanceRatio != nil {
		d.DominanceRatio = *c.DominanceRatio
	}
	if c.HarmonicSignificance != nil {
		d.HarmonicSignificance = *c.HarmonicSignificance
	}
	if c.Elevated2XRatio != nil {
		d.Elevated2XRatio = *c.Elevated2XRatio
	}
	if c.CrestThreshold != nil {
		d.CrestThreshold = *c.CrestThreshold
	}
	if c.KurtosisThreshold != nil {
		d.KurtosisThreshold = *c.KurtosisThreshold
	}
	if c.BearingHarmonics != nil {
		d.BearingHarmonics = *c.BearingHarmonics
	}
	return d
}

// GetMachineGroup returns the machine_group value or the default.
func (c *TuningConfig) GetMachineGroup() int {
	if c.MachineGroup == nil {
		return 2
	}
	return *c.MachineGroup
}

// GetEnvelopeBandLow returns the envelope_band_low_hz value or 0, meaning
// the band heuristic decides at analysis time.
func (c *TuningConfig) GetEnvelopeBandLow() float64 {
	if c.EnvelopeBandLow == nil {
		return 0
	}
	return *c.EnvelopeBandLow
}

// GetEnvelopeBandHigh returns the envelope_band_high_hz value or 0.
func (c *TuningConfig) GetEnvelopeBandHigh() float64 {
	if c.EnvelopeBandHigh == nil {
		return 0
	}
	return *c.EnvelopeBandHigh
}

// GetPeakMinAmplitudeRatio returns the peak_min_amplitude_ratio value or the default.
func (c *TuningConfig) GetPeakMinAmplitudeRatio() float64 {
	if c.PeakMinAmplitudeRatio == nil {
		return 0.1
	}
	return *c.PeakMinAmplitudeRatio
}

// GetPeakMaxCount returns the peak_max_count value or the default.
func (c *TuningConfig) GetPeakMaxCount() int {
	if c.PeakMaxCount == nil {
		return 10
	}
	return *c.PeakMaxCount
}

// GetWelchSegmentLength returns the welch_segment_length value or the default.
func (c *TuningConfig) GetWelchSegmentLength() int {
	if c.WelchSegmentLength == nil {
		return 4096
	}
	return *c.WelchSegmentLength
}

// GetWelchOverlap returns the welch_overlap value or the default.
func (c *TuningConfig) GetWelchOverlap() float64 {
	if c.WelchOverlap == nil {
		return 0.5
	}
	return *c.WelchOverlap
}

// GetSpectralWindow returns the spectral_window value or the default.
func (c *TuningConfig) GetSpectralWindow() string {
	if c.SpectralWindow == nil {
		return "hann"
	}
	return *c.SpectralWindow
}
