// Package synthesis drives a temporal synthesis: it walks the input
// products in acquisition order, runs the five per-product stages for
// each one and threads the running composite from one iteration to the
// next before the final assembly.
package synthesis

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/wasp/internal/config"
	"github.com/banshee-data/wasp/internal/engine"
	"github.com/banshee-data/wasp/internal/fsutil"
	"github.com/banshee-data/wasp/internal/monitoring"
	"github.com/banshee-data/wasp/internal/timeutil"
)

// StageRunner runs one external stage to completion.
type StageRunner interface {
	Invoke(ctx context.Context, inv engine.StageInvocation) (engine.Result, error)
}

// Recorder is told about every stage invocation, successful or not.
type Recorder interface {
	RecordStage(inv engine.StageInvocation, res engine.Result, stageErr error)
}

// State is a sequencer lifecycle state.
type State int

const (
	StateInit State = iota
	StateLoop
	StateFinalize
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateLoop:
		return "loop"
	case StateFinalize:
		return "finalize"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// PipelineState is owned by the sequencer and changes once per iteration.
type PipelineState struct {
	// Iteration is the index of the next product to process.
	Iteration int
	Previous  PriorComposite
}

// Outcome summarizes a finished run.
type Outcome struct {
	Iterations     int
	FinalComposite []string
	Duration       time.Duration
}

// Sequencer runs the per-product stage loop and the final assembly.
type Sequencer struct {
	Runner   StageRunner
	FS       fsutil.FileSystem
	Recorder Recorder
	Clock    timeutil.Clock

	state    State
	pipeline PipelineState
}

// NewSequencer creates a Sequencer working on the real filesystem.
func NewSequencer(runner StageRunner) *Sequencer {
	return &Sequencer{
		Runner: runner,
		FS:     fsutil.OSFileSystem{},
		Clock:  timeutil.RealClock{},
	}
}

// State returns the lifecycle state.
func (s *Sequencer) State() State { return s.state }

// Pipeline returns a copy of the pipeline state.
func (s *Sequencer) Pipeline() PipelineState { return s.pipeline }

// Run processes every input of cfg in order, then assembles the product.
// Any stage failure aborts the run and leaves all artifacts in place.
func (s *Sequencer) Run(ctx context.Context, cfg *config.RunConfiguration, manifestPath string, seed PriorComposite) (*Outcome, error) {
	if s.state != StateInit {
		return nil, fmt.Errorf("sequencer already used (state %s)", s.state)
	}
	if len(cfg.Inputs) == 0 {
		s.state = StateAborted
		return nil, fmt.Errorf("no inputs to process")
	}
	start := s.Clock.Now()
	s.pipeline = PipelineState{Previous: seed}
	s.state = StateLoop

	for i, product := range cfg.Inputs {
		monitoring.Opsf("processing product %d/%d: %s", i+1, len(cfg.Inputs), product.Path)
		if err := s.iterate(ctx, cfg, i, product.Path); err != nil {
			s.state = StateAborted
			return nil, err
		}
	}

	s.state = StateFinalize
	final := s.pipeline.Previous.CompositePaths()
	assembler := FinalAssembler{Runner: s.Runner, FS: s.FS, Recorder: s.Recorder}
	if err := assembler.Assemble(ctx, cfg, final, manifestPath); err != nil {
		s.state = StateAborted
		return nil, err
	}
	s.state = StateDone

	out := &Outcome{
		Iterations:     s.pipeline.Iteration,
		FinalComposite: final,
		Duration:       s.Clock.Since(start),
	}
	monitoring.Opsf("synthesis of %d inputs finished in %.3fs", out.Iterations, out.Duration.Seconds())
	return out, nil
}

func (s *Sequencer) iterate(ctx context.Context, cfg *config.RunConfiguration, i int, xml string) error {
	a := Layout(cfg.TempDir, i, cfg.Platform)
	prior := s.pipeline.Previous

	// The order is fixed; each stage consumes what the previous one wrote.
	invocations := []engine.StageInvocation{
		PreprocessingInvocation(cfg, i, xml, a),
		CloudWeightInvocation(cfg, i, a),
		AOTWeightInvocation(cfg, i, xml, a),
		TotalWeightInvocation(cfg, i, xml, a),
		CompositeUpdateInvocation(cfg, i, xml, a, prior),
	}
	for _, inv := range invocations {
		if err := invoke(ctx, s.Runner, s.Recorder, inv); err != nil {
			return err
		}
	}

	s.pipeline.Previous = FromPreviousIteration(a.Composite)
	s.pipeline.Iteration = i + 1

	if cfg.RemoveTemp {
		stale := a.Intermediates()
		// A finished prior product belongs to the user and is never removed.
		stale = append(stale, prior.CompositePaths()...)
		removeAll(s.FS, stale)
	}
	return nil
}

func invoke(ctx context.Context, runner StageRunner, rec Recorder, inv engine.StageInvocation) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stage %s not started: %w", inv.Stage, err)
	}
	res, err := runner.Invoke(ctx, inv)
	if rec != nil {
		rec.RecordStage(inv, res, err)
	}
	return err
}

func removeAll(fsys fsutil.FileSystem, paths []string) {
	if err := fsutil.EnsureAllAbsent(fsys, paths...); err != nil {
		monitoring.Warnf("could not remove temporary files: %v", err)
	}
}
