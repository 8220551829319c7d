package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/wasp/internal/engine"
)

// newGateway builds the engine gateway from the --launcher flag. The
// launcher's directory (or this executable's, for a bare name) is the
// install directory whose bin, lib and application paths are handed to
// every stage.
func newGateway(cmd *cobra.Command, threads int) (*engine.Gateway, error) {
	launcher, err := cmd.Flags().GetString("launcher")
	if err != nil {
		return nil, err
	}
	dir := installDir(launcher)
	if !strings.ContainsRune(launcher, filepath.Separator) && dir != "" {
		if _, err := os.Stat(filepath.Join(dir, launcher)); err == nil {
			launcher = filepath.Join(dir, launcher)
		}
	}
	return engine.NewGateway(launcher, engine.NewEnvironment(dir, threads)), nil
}

func installDir(launcher string) string {
	if strings.ContainsRune(launcher, filepath.Separator) {
		abs, err := filepath.Abs(launcher)
		if err != nil {
			return filepath.Dir(launcher)
		}
		return filepath.Dir(abs)
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
