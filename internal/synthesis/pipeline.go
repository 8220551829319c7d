package synthesis

import (
	"context"

	"github.com/banshee-data/wasp/internal/config"
	"github.com/banshee-data/wasp/internal/fsutil"
	"github.com/banshee-data/wasp/internal/manifest"
	"github.com/banshee-data/wasp/internal/metadata"
	"github.com/banshee-data/wasp/internal/monitoring"
	"github.com/banshee-data/wasp/internal/platform"
	"github.com/banshee-data/wasp/internal/timeutil"
	"github.com/banshee-data/wasp/internal/version"
	"github.com/banshee-data/wasp/internal/window"
)

// Engine is the external engine as the pipeline uses it.
type Engine interface {
	StageRunner
	CheckCapabilities(ctx context.Context) error
}

// Plan is a run that passed every check and is ready to execute.
type Plan struct {
	Config       *config.RunConfiguration
	ManifestPath string
	Seed         PriorComposite
	Window       window.Result
}

// Pipeline wires metadata loading, configuration, the manifest and the
// sequencer into one synthesis run.
type Pipeline struct {
	FS     fsutil.FileSystem
	Engine Engine
	// SearchPath is the application search path used to find resource files.
	SearchPath []string
	Recorder   Recorder
	Clock      timeutil.Clock
}

// Prepare performs every check that must pass before a stage runs and
// writes the manifest. No external stage is started.
func (p *Pipeline) Prepare(ctx context.Context, req *config.Request) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	monitoring.Opsf("wasp %s: synthesis of %d inputs", version.Version, len(req.Inputs))

	headers, err := metadata.LoadHeaders(p.FS, req.Inputs)
	if err != nil {
		return nil, err
	}
	profile, tile, err := platform.Resolve(headers)
	if err != nil {
		return nil, err
	}
	monitoring.Opsf("platform %s, tile %s", profile.Name, tile)

	target, err := req.GetTargetDate()
	if err != nil {
		return nil, err
	}
	win, err := window.Compute(headers, window.Options{
		Target:        target,
		ToleranceDays: req.GetHalfPeriod(profile),
		Spacing:       profile.Spacing,
	})
	if err != nil {
		return nil, err
	}

	cfg, err := config.Resolve(req, config.ResolveInput{
		Platform:   profile,
		Tile:       tile,
		Window:     win,
		SearchPath: p.SearchPath,
		FS:         p.FS,
	})
	if err != nil {
		return nil, err
	}
	logConfig(cfg)

	if err := p.Engine.CheckCapabilities(ctx); err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.OutDir, cfg.TempDir} {
		if err := fsutil.EnsureDir(p.FS, dir); err != nil {
			field := "out"
			if dir == cfg.TempDir && dir != cfg.OutDir {
				field = "tempout"
			}
			return nil, &config.InvalidParameterError{Field: field, Value: dir, Reason: err.Error()}
		}
	}

	manifestPath, err := manifest.Write(p.FS, cfg)
	if err != nil {
		return nil, err
	}

	seed := NoPrior()
	if cfg.PriorProductPath != "" {
		monitoring.Warnf("seeding from finished product %s is not supported; starting from an empty composite",
			cfg.PriorProductPath)
	}
	return &Plan{Config: cfg, ManifestPath: manifestPath, Seed: seed, Window: win}, nil
}

// Execute runs a prepared plan.
func (p *Pipeline) Execute(ctx context.Context, plan *Plan) (*Outcome, error) {
	seq := &Sequencer{
		Runner:   p.Engine,
		FS:       p.FS,
		Recorder: p.Recorder,
		Clock:    p.Clock,
	}
	if seq.Clock == nil {
		seq.Clock = timeutil.RealClock{}
	}
	return seq.Run(ctx, plan.Config, plan.ManifestPath, plan.Seed)
}

// Run prepares and executes a synthesis.
func (p *Pipeline) Run(ctx context.Context, req *config.Request) (*Outcome, error) {
	plan, err := p.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, plan)
}

func logConfig(cfg *config.RunConfiguration) {
	monitoring.Diagf("parameters: version=%s tile=%s out=%s temp=%s remove_temp=%v cog=%v threads=%d",
		cfg.ParameterVersion, cfg.Tile, cfg.OutDir, cfg.TempDir, cfg.RemoveTemp, cfg.Optimized, cfg.Threads)
	monitoring.Diagf("weights: aot=[%s,%s] aotmax=%s date_min=%s",
		config.FormatFloat(cfg.WeightAOTMin), config.FormatFloat(cfg.WeightAOTMax),
		config.FormatFloat(cfg.AOTMax), config.FormatFloat(cfg.WeightDateMin))
	monitoring.Diagf("clouds: coarseres=%d kernel=%d sigma=[%s,%s]",
		cfg.CoarseRes, cfg.KernelWidth,
		config.FormatFloat(cfg.SigmaSmallCloud), config.FormatFloat(cfg.SigmaLargeCloud))
	monitoring.Diagf("window: %s .. %s, synthesis date %s",
		metadata.FormatLong(cfg.WindowMin), metadata.FormatLong(cfg.WindowMax), metadata.FormatLong(cfg.SynthesisDate))
	monitoring.Diagf("resources: %s", cfg.ResourceDir)
	for i, in := range cfg.Inputs {
		monitoring.Diagf("input %d: %s (%s)", i, in.Path, metadata.FormatLong(in.AcquisitionDate))
	}
}
