package config

import (
	"fmt"
	"strings"

	"github.com/banshee-data/wasp/internal/faults"
)

// InvalidParameterError reports an override that cannot be used.
type InvalidParameterError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid parameter %s=%q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidParameterError) Is(target error) bool { return target == faults.ErrConfiguration }

// MissingResourceError reports that no candidate directory holds every
// required auxiliary file.
type MissingResourceError struct {
	Files      []string
	Candidates []string
}

func (e *MissingResourceError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("cannot find %s: application search path is empty", strings.Join(e.Files, ", "))
	}
	return fmt.Sprintf("cannot find %s in any of: %s",
		strings.Join(e.Files, ", "), strings.Join(e.Candidates, ", "))
}

func (e *MissingResourceError) Is(target error) bool { return target == faults.ErrConfiguration }
