package runlog

import (
	"github.com/banshee-data/wasp/internal/engine"
	"github.com/banshee-data/wasp/internal/monitoring"
)

// RunRecorder records the stage invocations of one run.
type RunRecorder struct {
	store *Store
	runID string
}

// Recorder returns a RunRecorder bound to runID.
func (s *Store) Recorder(runID string) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// RecordStage stores one invocation. Ledger failures never stop a run;
// they are logged instead.
func (r *RunRecorder) RecordStage(inv engine.StageInvocation, res engine.Result, stageErr error) {
	rec := StageRecord{
		Stage:      inv.Stage,
		Iteration:  inv.Iteration,
		ExitStatus: res.ExitStatus,
		Duration:   res.Duration,
		Args:       inv.Args,
	}
	if stageErr != nil {
		rec.Error = stageErr.Error()
	}
	if err := r.store.RecordStage(r.runID, rec); err != nil {
		monitoring.Warnf("could not record stage %s in ledger: %v", inv.Stage, err)
	}
}
