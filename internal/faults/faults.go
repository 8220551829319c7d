// Package faults defines the error classes a synthesis run can end with.
//
// Concrete error types live next to the code that raises them and report
// their class through an Is method, so callers classify with errors.Is:
//
//	if errors.Is(err, faults.ErrConfiguration) { ... }
package faults

import "errors"

var (
	// ErrConfiguration marks fatal problems detected before any stage runs:
	// mixed tiles or platforms, missing stages, missing resource files and
	// invalid overrides.
	ErrConfiguration = errors.New("configuration error")

	// ErrExternalStage marks a non-zero exit (or spawn failure) of an
	// external processing stage.
	ErrExternalStage = errors.New("external stage failure")

	// ErrInput marks unreadable or unusable input products.
	ErrInput = errors.New("input error")
)

// Class returns a short label for the class of err, or "internal" when err
// does not belong to any known class.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrExternalStage):
		return "external-stage"
	case errors.Is(err, ErrInput):
		return "input"
	default:
		return "internal"
	}
}
