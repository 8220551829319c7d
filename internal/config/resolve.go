package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/banshee-data/wasp/internal/fsutil"
	"github.com/banshee-data/wasp/internal/metadata"
	"github.com/banshee-data/wasp/internal/monitoring"
	"github.com/banshee-data/wasp/internal/platform"
	"github.com/banshee-data/wasp/internal/version"
	"github.com/banshee-data/wasp/internal/window"
)

// halfPeriodTolerance is the allowed gap, in days, between the requested
// half-period and the one observed in the input dates.
const halfPeriodTolerance = 2.0

// RunConfiguration is the fully resolved, read-only setting of one run.
type RunConfiguration struct {
	ProgramVersion          string
	ParameterVersion        string
	ScatteringCoeffsVersion string

	Platform platform.Profile
	Tile     string

	// Inputs are the metadata paths in ascending acquisition order.
	Inputs []metadata.Product

	OutDir  string
	TempDir string

	SynthesisDate time.Time
	WindowMin     time.Time
	WindowMax     time.Time
	HalfPeriod    int
	// ObservedHalfPeriod is the mean half-span of the input dates in days.
	ObservedHalfPeriod float64

	WeightAOTMin    float64
	WeightAOTMax    float64
	AOTMax          float64
	CoarseRes       int
	KernelWidth     int
	SigmaSmallCloud float64
	SigmaLargeCloud float64
	WeightDateMin   float64

	RemoveTemp       bool
	Optimized        bool
	Threads          int
	ResourceDir      string
	PriorProductPath string

	// Advisories collects every non-fatal warning raised while resolving.
	Advisories []string
}

// ResolveInput carries what the resolver needs besides the request.
type ResolveInput struct {
	Platform platform.Profile
	Tile     string
	Window   window.Result
	// SearchPath is the application search path used to probe for resource
	// files when the request does not name a directory.
	SearchPath []string
	FS         fsutil.FileSystem
}

// Resolve merges req over the defaults and the computed window into a
// RunConfiguration.
func Resolve(req *Request, in ResolveInput) (*RunConfiguration, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(in.Window.Products) == 0 {
		return nil, window.ErrNoValidDates
	}

	target, err := req.GetTargetDate()
	if err != nil {
		return nil, err
	}

	cfg := &RunConfiguration{
		ProgramVersion:          version.Version,
		ParameterVersion:        req.GetParameterVersion(),
		ScatteringCoeffsVersion: DefaultScatteringCoeffsVersion,
		Platform:                in.Platform,
		Tile:                    in.Tile,
		Inputs:                  append([]metadata.Product(nil), in.Window.Products...),
		OutDir:                  req.OutDir,
		TempDir:                 req.GetTempDir(),
		HalfPeriod:              req.GetHalfPeriod(in.Platform),
		ObservedHalfPeriod:      in.Window.MeanHalfSpanDays,
		WeightAOTMin:            req.GetWeightAOTMin(),
		WeightAOTMax:            req.GetWeightAOTMax(),
		AOTMax:                  req.GetAOTMax(),
		CoarseRes:               req.GetCoarseRes(),
		KernelWidth:             req.GetKernelWidth(),
		SigmaSmallCloud:         req.GetSigmaSmallCloud(),
		SigmaLargeCloud:         req.GetSigmaLargeCloud(),
		WeightDateMin:           req.GetWeightDateMin(),
		RemoveTemp:              req.GetRemoveTemp(),
		Optimized:               req.GetOptimized(),
		Threads:                 req.GetThreads(),
		PriorProductPath:        req.GetPriorProductPath(),
		Advisories:              append([]string(nil), in.Window.Advisories...),
	}
	if req.ParameterVersion != nil && cfg.ParameterVersion != *req.ParameterVersion {
		monitoring.Diagf("ignoring malformed parameter version %q, using %s", *req.ParameterVersion, cfg.ParameterVersion)
	}

	if target == nil {
		w := in.Window.Window
		cfg.SynthesisDate = w.MidDate
		cfg.WindowMin = w.MinDate
		cfg.WindowMax = w.MaxDate
	} else {
		half := time.Duration(cfg.HalfPeriod) * 24 * time.Hour
		cfg.SynthesisDate = *target
		cfg.WindowMin = target.Add(-half)
		cfg.WindowMax = target.Add(half)
	}

	if math.Abs(float64(cfg.HalfPeriod)-cfg.ObservedHalfPeriod) > halfPeriodTolerance {
		msg := fmt.Sprintf("the given half synthesis period of %d days differs from the one in the date list with %g days",
			cfg.HalfPeriod, cfg.ObservedHalfPeriod)
		monitoring.Warnf("%s", msg)
		cfg.Advisories = append(cfg.Advisories, msg)
	}

	if req.ScatteringCoeffPath != nil && *req.ScatteringCoeffPath != "" {
		cfg.ResourceDir = *req.ScatteringCoeffPath
	} else {
		dir, err := FindResourceDir(in.FS, in.SearchPath)
		if err != nil {
			return nil, err
		}
		cfg.ResourceDir = dir
	}

	monitoring.Opsf("synthesis date is %s", metadata.FormatLong(cfg.SynthesisDate))
	monitoring.Opsf("half synthesis period in days is %d", cfg.HalfPeriod)
	return cfg, nil
}

// VersionTag returns the parameter version with dots replaced by dashes,
// as used in file names and product identifiers.
func (c *RunConfiguration) VersionTag() string {
	return strings.ReplaceAll(c.ParameterVersion, ".", "-")
}

// InputPaths returns the ordered input metadata paths.
func (c *RunConfiguration) InputPaths() []string {
	out := make([]string, len(c.Inputs))
	for i, p := range c.Inputs {
		out[i] = p.Path
	}
	return out
}
