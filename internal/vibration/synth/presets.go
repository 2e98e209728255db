package synth

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// Scenario bundles a generated signal with the acquisition context needed to
// diagnose it: shaft speed, machine group, and the bearing under test.
type Scenario struct {
	Name               string
	Description        string
	RPM                float64
	MachineGroup       int
	BearingDesignation string
	Signal             vibration.Signal
}

const (
	presetSampleRate = 26667.0
	presetDuration   = 2.0
	presetShaftHz    = 24.5 // 1470 RPM
)

// HealthyPump is a smoothly running machine: small residual unbalance at 1x
// and a trace of 2x, well inside zone A/B for a group 2 machine.
func HealthyPump(seed int64) Scenario {
	sig := Generate(presetDuration, presetSampleRate, []Component{
		{Frequency: presetShaftHz, Amplitude: 0.05},
		{Frequency: 2 * presetShaftHz, Amplitude: 0.01},
	}, 0.02, seed)
	return Scenario{
		Name:               "healthy_pump",
		Description:        "Centrifugal pump in good condition at 1470 RPM",
		RPM:                presetShaftHz * 60,
		MachineGroup:       2,
		BearingDesignation: "6205",
		Signal:             sig,
	}
}

// UnbalancedMotor has a dominant 1x component strong enough to push the
// velocity RMS into zone D.
func UnbalancedMotor(seed int64) Scenario {
	sig := Generate(presetDuration, presetSampleRate, []Component{
		{Frequency: presetShaftHz, Amplitude: 0.5},
		{Frequency: 2 * presetShaftHz, Amplitude: 0.05},
	}, 0.02, seed)
	return Scenario{
		Name:               "unbalance_motor",
		Description:        "Motor with severe rotor unbalance at 1470 RPM",
		RPM:                presetShaftHz * 60,
		MachineGroup:       2,
		BearingDesignation: "6205",
		Signal:             sig,
	}
}

// OuterRaceFault superimposes a bearing impact train at the 6205 outer race
// frequency onto a moderately loaded machine. The impacts excite a 3.2 kHz
// structural resonance.
func OuterRaceFault(seed int64) Scenario {
	base := Generate(presetDuration, presetSampleRate, []Component{
		{Frequency: presetShaftHz, Amplitude: 0.1},
	}, 0.02, seed)
	sig := AddBearingImpulses(base, ImpulseTrain{
		FaultFrequency:     87.52, // 6205 BPFO at 1470 RPM
		ResonanceFrequency: 3200,
		Amplitude:          1.5,
		Damping:            400,
	}, seed+1)
	return Scenario{
		Name:               "bearing_outer_race",
		Description:        "6205 bearing with an outer race defect at 1470 RPM",
		RPM:                presetShaftHz * 60,
		MachineGroup:       2,
		BearingDesignation: "6205",
		Signal:             sig,
	}
}

// Scenarios returns the three reference scenarios with fixed seeds.
func Scenarios() []Scenario {
	return []Scenario{
		HealthyPump(42),
		UnbalancedMotor(43),
		OuterRaceFault(44),
	}
}

// SampleFile is the on-disk JSON form of a scenario.
type SampleFile struct {
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	RPM                float64   `json:"rpm"`
	MachineGroup       int       `json:"machine_group"`
	BearingDesignation string    `json:"bearing_designation,omitempty"`
	SampleRate         float64   `json:"sample_rate_hz"`
	Units              string    `json:"units"`
	Samples            []float64 `json:"samples"`
}

// WriteSampleFile serialises a scenario to path as JSON.
func WriteSampleFile(path string, sc Scenario) error {
	blob, err := json.Marshal(SampleFile{
		Name:               sc.Name,
		Description:        sc.Description,
		RPM:                sc.RPM,
		MachineGroup:       sc.MachineGroup,
		BearingDesignation: sc.BearingDesignation,
		SampleRate:         sc.Signal.SampleRate,
		Units:              sc.Signal.Units,
		Samples:            sc.Signal.Samples,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sample file: %w", err)
	}
	return os.WriteFile(path, blob, 0644)
}

// ReadSampleFile loads a JSON sample file back into a scenario.
func ReadSampleFile(path string) (Scenario, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read sample file: %w", err)
	}
	var f SampleFile
	if err := json.Unmarshal(blob, &f); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse sample file %s: %w", path, err)
	}
	sc := Scenario{
		Name:               f.Name,
		Description:        f.Description,
		RPM:                f.RPM,
		MachineGroup:       f.MachineGroup,
		BearingDesignation: f.BearingDesignation,
		Signal: vibration.Signal{
			Samples:    f.Samples,
			SampleRate: f.SampleRate,
			Units:      f.Units,
		},
	}
	if err := sc.Signal.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("sample file %s: %w", path, err)
	}
	return sc, nil
}
