package synthesis

import (
	"strconv"

	"github.com/banshee-data/wasp/internal/config"
	"github.com/banshee-data/wasp/internal/engine"
	"github.com/banshee-data/wasp/internal/metadata"
)

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// PreprocessingInvocation corrects the product and extracts its masks.
// Multi-resolution platforms also get the scattering coefficient files.
func PreprocessingInvocation(cfg *config.RunConfiguration, i int, xml string, a IterationArtifacts) engine.StageInvocation {
	tiers := cfg.Platform.Tiers
	args := []string{
		"-xml", xml,
		"-outcld", a.Cloud,
		"-outwat", a.Water,
		"-outsnw", a.Snow,
		"-outaot", a.AOT,
		"-outr" + tiers[0], a.Reflectance[0],
	}
	inputs := []string{xml}
	if cfg.Platform.MultiResolution() {
		for ti := 1; ti < len(tiers); ti++ {
			args = append(args, "-outr"+tiers[ti], a.Reflectance[ti])
		}
		coeffs := config.ScatteringCoeffPaths(cfg.ResourceDir)
		for ti, path := range coeffs {
			if ti < len(tiers) {
				args = append(args, "-scatteringcoeffsr"+tiers[ti], path)
				inputs = append(inputs, path)
			}
		}
	}
	outputs := append([]string{a.Cloud, a.Water, a.Snow, a.AOT}, a.Reflectance...)
	return engine.StageInvocation{
		Stage:     engine.StageCompositePreprocessing,
		Args:      args,
		Inputs:    inputs,
		Outputs:   outputs,
		Iteration: i,
	}
}

// CloudWeightInvocation derives the cloud weight from the cloud mask.
func CloudWeightInvocation(cfg *config.RunConfiguration, i int, a IterationArtifacts) engine.StageInvocation {
	return engine.StageInvocation{
		Stage: engine.StageWeightOnClouds,
		Args: []string{
			"-incldmsk", a.Cloud,
			"-coarseres", strconv.Itoa(cfg.CoarseRes),
			"-sigmasmallcld", config.FormatFloat(cfg.SigmaSmallCloud),
			"-sigmalargecld", config.FormatFloat(cfg.SigmaLargeCloud),
			"-kernelwidth", strconv.Itoa(cfg.KernelWidth),
			"-out", a.WeightCloud,
			"-cut", boolFlag(cfg.Platform.CloudCut),
		},
		Inputs:    []string{a.Cloud},
		Outputs:   []string{a.WeightCloud},
		Iteration: i,
	}
}

// AOTWeightInvocation derives the aerosol weight from the AOT mask.
func AOTWeightInvocation(cfg *config.RunConfiguration, i int, xml string, a IterationArtifacts) engine.StageInvocation {
	return engine.StageInvocation{
		Stage: engine.StageWeightAOT,
		Args: []string{
			"-in", a.AOT,
			"-xml", xml,
			"-out", a.WeightAOT,
			"-waotmin", config.FormatFloat(cfg.WeightAOTMin),
			"-waotmax", config.FormatFloat(cfg.WeightAOTMax),
			"-aotmax", config.FormatFloat(cfg.AOTMax),
		},
		Inputs:    []string{a.AOT, xml},
		Outputs:   []string{a.WeightAOT},
		Iteration: i,
	}
}

// TotalWeightInvocation combines the weights with the date weight.
func TotalWeightInvocation(cfg *config.RunConfiguration, i int, xml string, a IterationArtifacts) engine.StageInvocation {
	return engine.StageInvocation{
		Stage: engine.StageTotalWeight,
		Args: []string{
			"-xml", xml,
			"-waotfile", a.WeightAOT,
			"-wcldfile", a.WeightCloud,
			"-l3adate", metadata.FormatShort(cfg.SynthesisDate),
			"-halfsynthesis", strconv.Itoa(cfg.HalfPeriod),
			"-wdatemin", config.FormatFloat(cfg.WeightDateMin),
			"-out", a.WeightTotal,
		},
		Inputs:    []string{xml, a.WeightAOT, a.WeightCloud},
		Outputs:   []string{a.WeightTotal},
		Iteration: i,
	}
}

// CompositeUpdateInvocation folds the product into the composite. The
// prior decides whether a previous composite or finished product is read.
func CompositeUpdateInvocation(cfg *config.RunConfiguration, i int, xml string, a IterationArtifacts, prior PriorComposite) engine.StageInvocation {
	tiers := cfg.Platform.Tiers
	args := []string{
		"-inr" + tiers[0], a.Reflectance[0],
		"-xml", xml,
		"-cld", a.Cloud,
		"-wat", a.Water,
		"-snw", a.Snow,
		"-weightl2a", a.WeightTotal,
		"-outr" + tiers[0], a.Composite[0],
	}
	args = append(args, prior.Args(0, tiers[0])...)
	for ti := 1; ti < len(tiers); ti++ {
		args = append(args, "-inr"+tiers[ti], a.Reflectance[ti], "-outr"+tiers[ti], a.Composite[ti])
		args = append(args, prior.Args(ti, tiers[ti])...)
	}

	inputs := append([]string{xml, a.Cloud, a.Water, a.Snow, a.WeightTotal}, a.Reflectance...)
	inputs = append(inputs, prior.CompositePaths()...)
	return engine.StageInvocation{
		Stage:     engine.StageUpdateSynthesis,
		Args:      args,
		Inputs:    inputs,
		Outputs:   append([]string(nil), a.Composite...),
		Iteration: i,
	}
}

// AssemblyInvocation packages the final composite into the delivered
// product.
func AssemblyInvocation(cfg *config.RunConfiguration, composite []string, manifestPath string) engine.StageInvocation {
	args := append([]string{"-products"}, composite...)
	args = append(args,
		"-platform", cfg.Platform.Name,
		"-destination", cfg.OutDir,
		"-syntdate", metadata.FormatLong(cfg.SynthesisDate),
		"-begin", metadata.FormatLong(cfg.WindowMin),
		"-end", metadata.FormatLong(cfg.WindowMax),
		"-vcurrent", cfg.VersionTag(),
		"-gipp", manifestPath,
		"-cog", boolFlag(cfg.Optimized),
		"-cogtemp", cfg.TempDir,
		"-xml",
	)
	inputs := cfg.InputPaths()
	args = append(args, inputs...)

	return engine.StageInvocation{
		Stage:     engine.StageProductFormatter,
		Args:      args,
		Inputs:    append(append(append([]string(nil), composite...), manifestPath), inputs...),
		Outputs:   []string{cfg.OutDir},
		Iteration: engine.FinalIteration,
	}
}
