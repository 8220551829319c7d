package synthesis

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/wasp/internal/platform"
)

// IterationArtifacts are the temp files one iteration produces. Names are
// prefixed with the iteration index so iterations never collide.
type IterationArtifacts struct {
	// Reflectance holds the corrected reflectance per tier.
	Reflectance []string
	Cloud       string
	Water       string
	Snow        string
	AOT         string
	WeightCloud string
	WeightAOT   string
	WeightTotal string
	// Composite holds the updated composite per tier.
	Composite []string
}

// Layout returns the artifact paths of iteration i in dir.
func Layout(dir string, i int, p platform.Profile) IterationArtifacts {
	name := func(base string) string {
		return filepath.Join(dir, strconv.Itoa(i)+"_"+base)
	}
	perTier := func(stem string) []string {
		out := make([]string, len(p.Tiers))
		for ti, tier := range p.Tiers {
			out[ti] = name(fmt.Sprintf("%s_%s%s.tif", stem, p.ReflectanceStem, tier))
		}
		return out
	}
	return IterationArtifacts{
		Reflectance: perTier("CP"),
		Cloud:       name("cld10.tif"),
		Water:       name("wat10.tif"),
		Snow:        name("snw10.tif"),
		AOT:         name("aot10.tif"),
		WeightCloud: name("WeightOnCloud.tif"),
		WeightAOT:   name("WeightAot.tif"),
		WeightTotal: name("WeightTotal.tif"),
		Composite:   perTier("UpdateSynthesis"),
	}
}

// Intermediates returns every artifact except the composite.
func (a IterationArtifacts) Intermediates() []string {
	out := append([]string(nil), a.Reflectance...)
	return append(out, a.Cloud, a.Water, a.Snow, a.AOT, a.WeightCloud, a.WeightAOT, a.WeightTotal)
}
