package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/banshee-data/wasp/internal/config"
	"github.com/banshee-data/wasp/internal/faults"
	"github.com/banshee-data/wasp/internal/fsutil"
	"github.com/banshee-data/wasp/internal/metadata"
	"github.com/banshee-data/wasp/internal/monitoring"
	"github.com/banshee-data/wasp/internal/runlog"
	"github.com/banshee-data/wasp/internal/synthesis"
	"github.com/banshee-data/wasp/internal/timeline"
	"github.com/banshee-data/wasp/internal/timeutil"
	"github.com/banshee-data/wasp/internal/version"
)

// runFlags holds the raw values of the run command's flags. Only flags the
// user actually set are copied into the request.
type runFlags struct {
	inputs       []string
	out          string
	tempOut      string
	paramVersion string
	date         string
	synthHalf    int
	prevL3A      string
	removeTemp   string
	cog          string
	verbose      string
	logDir       string

	weightAOTMin    float64
	weightAOTMax    float64
	aotMax          float64
	coarseRes       int
	kernelWidth     int
	sigmaSmallCloud float64
	sigmaLargeCloud float64
	weightDateMin   float64
	threads         int
	scatteringPath  string

	params   string
	ledger   string
	timeline string
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a synthesis over a set of input products",
		Example: `  wasp run -i A/A_MTD_ALL.xml -i B/B_MTD_ALL.xml -o /data/out
  wasp run --params run.yaml --date 20240615 --ledger wasp.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, err := config.ParseBool("verbose", f.verbose)
			if err != nil {
				return err
			}
			closeLog, err := setupLogging(cmd.OutOrStdout(), verbose, f.logDir)
			if err != nil {
				return err
			}
			defer closeLog()

			req, err := f.request(cmd.Flags())
			if err != nil {
				return err
			}
			return runSynthesis(cmd, req, f)
		},
	}

	f.register(cmd.Flags())
	return cmd
}

func (f *runFlags) register(fl *pflag.FlagSet) {
	fl.StringArrayVarP(&f.inputs, "input", "i", nil, "Input product metadata file (repeatable)")
	fl.StringVarP(&f.out, "out", "o", "", "Output directory")
	fl.StringVarP(&f.tempOut, "tempout", "t", "", "Temporary output directory (default: --out)")
	fl.StringVarP(&f.paramVersion, "version", "v", "", "Parameter version <major>.<minor> (default "+config.DefaultParameterVersion+")")
	fl.StringVarP(&f.date, "date", "d", "", "Synthesis date YYYYMMDD or YYYY-MM-DD (default: middle of the acquisition span)")
	fl.IntVar(&f.synthHalf, "synthalf", 0, "Half synthesis period in days (default: platform specific)")
	fl.StringVar(&f.prevL3A, "prev-l3a", "", "Previous finished product directory")
	fl.StringVarP(&f.removeTemp, "remove-temp", "r", "", "Remove intermediate files after use (default true)")
	fl.StringVar(&f.cog, "cog", "", "Write the product as cloud optimized GeoTIFF (default false)")
	fl.StringVar(&f.verbose, "verbose", "true", "Log resolved parameters, command lines and stage output")
	fl.StringVar(&f.logDir, "log-dir", "", "Directory for "+logFileName)

	fl.Float64Var(&f.weightAOTMin, "weightaotmin", config.DefaultWeightAOTMin, "AOT minimum weight")
	fl.Float64Var(&f.weightAOTMax, "weightaotmax", config.DefaultWeightAOTMax, "AOT maximum weight")
	fl.Float64Var(&f.aotMax, "aotmax", config.DefaultAOTMax, "AOT maximum value")
	fl.IntVar(&f.coarseRes, "coarseres", config.DefaultCoarseRes, "Resolution for cloud weight resampling")
	fl.IntVar(&f.kernelWidth, "kernelwidth", config.DefaultKernelWidth, "Kernel width for the cloud weight")
	fl.Float64Var(&f.sigmaSmallCloud, "sigmasmallcld", config.DefaultSigmaSmallCloud, "Sigma for small clouds")
	fl.Float64Var(&f.sigmaLargeCloud, "sigmalargecld", config.DefaultSigmaLargeCloud, "Sigma for large clouds")
	fl.Float64Var(&f.weightDateMin, "weightdatemin", config.DefaultWeightDateMin, "Minimum date weight")
	fl.IntVar(&f.threads, "nthreads", config.DefaultThreads, "Threads per stage")
	fl.StringVar(&f.scatteringPath, "scatteringcoeffpath", "", "Directory holding the scattering coefficient files")

	fl.StringVar(&f.params, "params", "", "Parameter file (.json, .yaml or .yml); flags override its values")
	fl.StringVar(&f.ledger, "ledger", "", "SQLite run ledger to record this run in")
	fl.StringVar(&f.timeline, "timeline", "", "Write an acquisition timeline image to this path")
}

// request builds the run request: parameter file first, then every flag
// the user set explicitly.
func (f *runFlags) request(fl *pflag.FlagSet) (*config.Request, error) {
	req := &config.Request{}
	if f.params != "" {
		fileReq, err := config.LoadRequestFile(f.params)
		if err != nil {
			return nil, err
		}
		req = fileReq
	}

	o := &config.Request{}
	if fl.Changed("input") {
		o.Inputs = f.inputs
	}
	if fl.Changed("out") {
		o.OutDir = f.out
	}
	setString(fl, "tempout", f.tempOut, &o.TempDir)
	setString(fl, "version", f.paramVersion, &o.ParameterVersion)
	setString(fl, "date", f.date, &o.TargetDate)
	setString(fl, "prev-l3a", f.prevL3A, &o.PriorProductPath)
	setString(fl, "scatteringcoeffpath", f.scatteringPath, &o.ScatteringCoeffPath)
	setValue(fl, "synthalf", f.synthHalf, &o.HalfPeriod)
	setValue(fl, "weightaotmin", f.weightAOTMin, &o.WeightAOTMin)
	setValue(fl, "weightaotmax", f.weightAOTMax, &o.WeightAOTMax)
	setValue(fl, "aotmax", f.aotMax, &o.AOTMax)
	setValue(fl, "coarseres", f.coarseRes, &o.CoarseRes)
	setValue(fl, "kernelwidth", f.kernelWidth, &o.KernelWidth)
	setValue(fl, "sigmasmallcld", f.sigmaSmallCloud, &o.SigmaSmallCloud)
	setValue(fl, "sigmalargecld", f.sigmaLargeCloud, &o.SigmaLargeCloud)
	setValue(fl, "weightdatemin", f.weightDateMin, &o.WeightDateMin)
	setValue(fl, "nthreads", f.threads, &o.Threads)

	for name, dst := range map[string]**bool{"remove-temp": &o.RemoveTemp, "cog": &o.Optimized} {
		if !fl.Changed(name) {
			continue
		}
		raw, _ := fl.GetString(name)
		b, err := config.ParseBool(name, raw)
		if err != nil {
			return nil, err
		}
		*dst = &b
	}

	req.Overlay(o)
	return req, nil
}

func setString(fl *pflag.FlagSet, name, v string, dst **string) {
	if fl.Changed(name) {
		*dst = &v
	}
}

func setValue[T int | float64](fl *pflag.FlagSet, name string, v T, dst **T) {
	if fl.Changed(name) {
		*dst = &v
	}
}

// runSynthesis prepares and executes one synthesis, recording it in the
// ledger when one is configured.
func runSynthesis(cmd *cobra.Command, req *config.Request, f *runFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	gw, err := newGateway(cmd, req.GetThreads())
	if err != nil {
		return err
	}

	p := &synthesis.Pipeline{
		FS:         fsutil.OSFileSystem{},
		Engine:     gw,
		SearchPath: gw.Env.ApplicationSearchPath(),
		Clock:      timeutil.RealClock{},
	}

	var (
		store *runlog.Store
		runID string
	)
	if f.ledger != "" {
		store, err = runlog.Open(f.ledger)
		if err != nil {
			return err
		}
		defer store.Close()
		runID, err = store.StartRun(runlog.RunInfo{
			ProgramVersion: version.Version,
			InputCount:     len(req.Inputs),
			OutDir:         req.OutDir,
		})
		if err != nil {
			return err
		}
		p.Recorder = store.Recorder(runID)
		monitoring.Diagf("ledger run id %s", runID)
	}

	plan, outcome, runErr := execute(ctx, p, req, f.timeline)

	if store != nil {
		if err := store.FinishRun(runID, summarize(plan, outcome, runErr)); err != nil {
			monitoring.Warnf("failed to record run outcome: %v", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	monitoring.Opsf("wasp synthesis of %d inputs finished in %s", len(plan.Config.Inputs), time.Since(start).Round(time.Millisecond))
	return nil
}

func execute(ctx context.Context, p *synthesis.Pipeline, req *config.Request, timelinePath string) (*synthesis.Plan, *synthesis.Outcome, error) {
	plan, err := p.Prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if timelinePath != "" {
		if err := timeline.Render(timelinePath, plan.Config); err != nil {
			monitoring.Warnf("failed to render timeline: %v", err)
		} else {
			monitoring.Opsf("timeline written to %s", timelinePath)
		}
	}
	outcome, err := p.Execute(ctx, plan)
	return plan, outcome, err
}

func summarize(plan *synthesis.Plan, outcome *synthesis.Outcome, err error) runlog.RunSummary {
	sum := runlog.RunSummary{Status: runlog.StatusCompleted}
	if plan != nil {
		sum.Platform = plan.Config.Platform.Name
		sum.Tile = plan.Config.Tile
		sum.SynthesisDate = metadata.FormatShort(plan.Config.SynthesisDate)
	}
	if outcome != nil {
		sum.Iterations = outcome.Iterations
	}
	if err != nil {
		sum.Status = runlog.StatusFailed
		sum.ErrorClass = faults.Class(err)
		sum.ErrorMessage = fmt.Sprint(err)
	}
	return sum
}
