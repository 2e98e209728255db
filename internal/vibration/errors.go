package vibration

import "errors"

// Error kinds surfaced by the analytic core. Callers classify failures with
// errors.Is; every wrapped message names the stage that rejected the input.
//
// Missing optional context (no RPM, no bearing info) is deliberately NOT an
// error: the orchestrator records it in the diagnosis context flags and skips
// the gated stages instead.
var (
	// ErrInvalidInput marks malformed or out-of-range parameters. The
	// operation rejects the request at entry and performs no partial work.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNumericalDegenerate marks inputs a transform cannot meaningfully
	// process: zero-length sequences, non-finite samples.
	ErrNumericalDegenerate = errors.New("numerically degenerate input")

	// ErrUnsupportedFormat marks file or payload formats the engine does not
	// decode.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrComputationFailure marks an analytic stage that could not complete
	// despite well-formed input.
	ErrComputationFailure = errors.New("computation failure")
)
