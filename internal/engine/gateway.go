package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/wasp/internal/monitoring"
	"github.com/banshee-data/wasp/internal/timeutil"
)

// DefaultLauncher is the engine's command-line application launcher.
const DefaultLauncher = "otbApplicationLauncherCommandLine"

// Stage names.
const (
	StageCompositePreprocessing = "CompositePreprocessing"
	StageWeightOnClouds         = "WeightOnClouds"
	StageWeightAOT              = "WeightAOT"
	StageTotalWeight            = "TotalWeight"
	StageUpdateSynthesis        = "UpdateSynthesis"
	StageProductFormatter       = "ProductFormatter"
)

// RequiredStages lists every stage a synthesis run needs.
var RequiredStages = []string{
	StageCompositePreprocessing,
	StageWeightOnClouds,
	StageWeightAOT,
	StageTotalWeight,
	StageUpdateSynthesis,
	StageProductFormatter,
}

// probeStage is a name no real stage uses; the launcher answers it with
// the list of installed stages.
const probeStage = "test"

const tailLines = 20

// StageInvocation describes one call of an external stage.
type StageInvocation struct {
	Stage string
	Args  []string
	// Inputs and Outputs are the artifact paths the stage reads and writes.
	Inputs  []string
	Outputs []string
	// Iteration is the zero-based product index, or FinalIteration.
	Iteration int
}

// Result is what a finished stage process reports.
type Result struct {
	ExitStatus int
	Lines      []string
	Duration   time.Duration
}

// Gateway invokes external stages through the launcher. It runs one
// process at a time and blocks until it exits.
type Gateway struct {
	Launcher string
	Builder  CommandBuilder
	Env      Environment
	Clock    timeutil.Clock
}

// NewGateway creates a Gateway that spawns real processes.
func NewGateway(launcher string, env Environment) *Gateway {
	if launcher == "" {
		launcher = DefaultLauncher
	}
	return &Gateway{
		Launcher: launcher,
		Builder:  NewRealCommandBuilder(),
		Env:      env,
		Clock:    timeutil.RealClock{},
	}
}

// CommandLine returns the full launcher argument list for inv.
func CommandLine(inv StageInvocation) []string {
	args := make([]string, 0, len(inv.Args)+3)
	args = append(args, inv.Stage)
	args = append(args, inv.Args...)
	return append(args, "-progress", "1")
}

// Invoke runs inv and waits for it. A non-zero exit status is returned
// as an *ExternalStageFailure together with the result.
func (g *Gateway) Invoke(ctx context.Context, inv StageInvocation) (Result, error) {
	argv := CommandLine(inv)
	monitoring.Diagf("%s %s", g.Launcher, strings.Join(argv, " "))

	cmd := g.Builder.BuildCommand(ctx, g.Launcher, argv...)
	cmd.SetEnv(g.Env.Env())

	var res Result
	start := g.Clock.Now()
	status, err := cmd.Stream(func(line string) {
		monitoring.Tracef("%s", line)
		res.Lines = append(res.Lines, line)
	})
	res.Duration = g.Clock.Since(start)
	res.ExitStatus = status

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return res, fmt.Errorf("stage %s interrupted: %w", inv.Stage, err)
		}
		return res, &ExternalStageFailure{Stage: inv.Stage, ExitStatus: status, Iteration: inv.Iteration,
			Tail: tail(res.Lines), Err: err}
	}
	if status != 0 {
		return res, &ExternalStageFailure{Stage: inv.Stage, ExitStatus: status, Iteration: inv.Iteration,
			Tail: tail(res.Lines)}
	}
	monitoring.Opsf("stage %s took %.3fs", inv.Stage, res.Duration.Seconds())
	return res, nil
}

// Probe asks the launcher for the installed stage names. The launcher's
// exit status is ignored; only its listing matters.
func (g *Gateway) Probe(ctx context.Context) ([]string, error) {
	cmd := g.Builder.BuildCommand(ctx, g.Launcher, CommandLine(StageInvocation{Stage: probeStage})...)
	cmd.SetEnv(g.Env.Env())

	var names []string
	_, err := cmd.Stream(func(line string) {
		if _, name, ok := strings.Cut(line, "\t"); ok {
			names = append(names, strings.TrimSpace(name))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("cannot run %s: %w", g.Launcher, err)
	}
	return names, nil
}

// CheckCapabilities probes the launcher and fails with a
// *MissingCapabilityError unless every required stage is installed.
func (g *Gateway) CheckCapabilities(ctx context.Context) error {
	names, err := g.Probe(ctx)
	if err != nil {
		return &MissingCapabilityError{Missing: RequiredStages, Err: err}
	}
	missing := MissingStages(names)
	if len(missing) > 0 {
		return &MissingCapabilityError{Missing: missing}
	}
	monitoring.Diagf("engine provides all %d required stages", len(RequiredStages))
	return nil
}

// MissingStages returns the required stages absent from available.
func MissingStages(available []string) []string {
	have := make(map[string]bool, len(available))
	for _, n := range available {
		have[n] = true
	}
	var missing []string
	for _, s := range RequiredStages {
		if !have[s] {
			missing = append(missing, s)
		}
	}
	return missing
}

func tail(lines []string) []string {
	if len(lines) <= tailLines {
		return append([]string(nil), lines...)
	}
	return append([]string(nil), lines[len(lines)-tailLines:]...)
}
