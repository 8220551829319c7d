package synthesis

import (
	"context"
	"fmt"

	"github.com/banshee-data/wasp/internal/config"
	"github.com/banshee-data/wasp/internal/fsutil"
	"github.com/banshee-data/wasp/internal/monitoring"
)

// FinalAssembler packages the last composite into the delivered product.
type FinalAssembler struct {
	Runner   StageRunner
	FS       fsutil.FileSystem
	Recorder Recorder
}

// Assemble runs the packaging stage once. When temp files are not kept,
// the composite and the manifest are removed after it succeeds.
func (f FinalAssembler) Assemble(ctx context.Context, cfg *config.RunConfiguration, composite []string, manifestPath string) error {
	if len(composite) == 0 {
		return fmt.Errorf("no composite to assemble")
	}
	monitoring.Diagf("assembling %s product into %s (optimized=%v, temp=%s)",
		cfg.Platform.Name, cfg.OutDir, cfg.Optimized, cfg.TempDir)

	if err := invoke(ctx, f.Runner, f.Recorder, AssemblyInvocation(cfg, composite, manifestPath)); err != nil {
		return err
	}
	if cfg.RemoveTemp {
		removeAll(f.FS, append(append([]string(nil), composite...), manifestPath))
	}
	return nil
}
