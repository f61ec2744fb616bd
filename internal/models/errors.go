package models

import "errors"

// Domain errors shared by the analysis packages. Wrap them with fmt.Errorf
// and test with errors.Is.
var (
	// ErrInsufficientData means too few units carry values for valid inference
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateInput means the value vector has zero variance
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrInvalidGeometry means a collaborator handed over an empty or nil geometry
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrInvalidInput means malformed arguments (mismatched lengths, bad ranges)
	ErrInvalidInput = errors.New("invalid input")
)

// IsSkippable reports whether err only means "skip this period".
// Such errors are never fatal to a batch of computations.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrDegenerateInput)
}

// ErrorCode maps an error to a stable machine-readable code
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrDegenerateInput):
		return "degenerate_input"
	case errors.Is(err, ErrInvalidGeometry):
		return "invalid_geometry"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	}
	return "internal"
}
