package engine

import (
	"fmt"
	"strings"

	"github.com/banshee-data/wasp/internal/faults"
)

// FinalIteration marks invocations that do not belong to a per-product
// iteration, such as the final assembly.
const FinalIteration = -1

// ExternalStageFailure reports a stage that exited with a non-zero status
// or could not be started.
type ExternalStageFailure struct {
	Stage      string
	ExitStatus int
	// Iteration is the zero-based product index, or FinalIteration.
	Iteration int
	// Tail holds the last output lines of the stage.
	Tail []string
	// Err is set when the stage could not be run at all.
	Err error
}

func (e *ExternalStageFailure) Error() string {
	where := fmt.Sprintf("iteration %d", e.Iteration)
	if e.Iteration == FinalIteration {
		where = "final assembly"
	}
	if e.Err != nil {
		return fmt.Sprintf("stage %s (%s) could not be run: %v", e.Stage, where, e.Err)
	}
	return fmt.Sprintf("stage %s (%s) failed with exit status %d", e.Stage, where, e.ExitStatus)
}

func (e *ExternalStageFailure) Unwrap() error { return e.Err }

func (e *ExternalStageFailure) Is(target error) bool { return target == faults.ErrExternalStage }

// MissingCapabilityError reports required stages absent from the engine.
type MissingCapabilityError struct {
	Missing []string
	// Err is set when the launcher itself could not be run.
	Err error
}

func (e *MissingCapabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot list engine stages: %v", e.Err)
	}
	return fmt.Sprintf("engine is missing required stages: %s", strings.Join(e.Missing, ", "))
}

func (e *MissingCapabilityError) Unwrap() error { return e.Err }

func (e *MissingCapabilityError) Is(target error) bool { return target == faults.ErrConfiguration }
