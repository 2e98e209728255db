package vibration

// FaultKind enumerates the fault hypotheses the classifier can emit.
type FaultKind string

const (
	FaultUnbalance           FaultKind = "unbalance"
	FaultMisalignment        FaultKind = "misalignment"
	FaultAngularMisalignment FaultKind = "angular_misalignment"
	FaultLooseness           FaultKind = "mechanical_looseness"
	FaultImpulsive           FaultKind = "impulsive_signal"
	FaultBearingOuterRace    FaultKind = "bearing_outer_race"
	FaultBearingInnerRace    FaultKind = "bearing_inner_race"
	FaultBearingBall         FaultKind = "bearing_ball"
	FaultBearingCage         FaultKind = "bearing_cage"
)

// RequiresRPM reports whether a finding of this kind may only be emitted
// when shaft speed was supplied. Part of the evidence-honesty contract.
func (k FaultKind) RequiresRPM() bool {
	switch k {
	case FaultUnbalance, FaultMisalignment, FaultAngularMisalignment, FaultLooseness:
		return true
	}
	return false
}

// RequiresBearing reports whether a finding of this kind may only be emitted
// when bearing information was supplied.
func (k FaultKind) RequiresBearing() bool {
	switch k {
	case FaultBearingOuterRace, FaultBearingInnerRace, FaultBearingBall, FaultBearingCage:
		return true
	}
	return false
}

// Confidence is a coarse qualitative level. The engine never reports a bare
// numeric confidence; the levels map directly to how much of the expected
// evidence was observed.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ordinal orders confidences for sorting, high first.
func (c Confidence) ordinal() int {
	switch c {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	case ConfidenceLow:
		return 2
	}
	return 3
}

// Less reports whether c ranks above other (higher confidence sorts first).
func (c Confidence) Less(other Confidence) bool {
	return c.ordinal() < other.ordinal()
}

// Stage identifies which pipeline stage produced a finding.
type Stage string

const (
	StageTimeDomain Stage = "time_domain"
	StageShaft      Stage = "shaft_harmonics"
	StageBearing    Stage = "bearing_envelope"
)

// Finding is a single fault hypothesis with its supporting evidence trail.
type Finding struct {
	Kind        FaultKind  `json:"kind"`
	Confidence  Confidence `json:"confidence"`
	Description string     `json:"description"`

	// Evidence lists the peak and statistic observations that justified the
	// finding, formatted for the operator.
	Evidence []string `json:"evidence"`

	// Recommendations are maintenance follow-up actions.
	Recommendations []string `json:"recommendations,omitempty"`

	// Stage records which analysis stage emitted the finding.
	Stage Stage `json:"stage"`

	// AssumedInputs notes any values the finding relied on that were assumed
	// rather than measured (for example a default envelope band). Empty when
	// the finding rests entirely on supplied data.
	AssumedInputs []string `json:"assumed_inputs,omitempty"`
}
