package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variable names understood by the engine.
const (
	EnvPath            = "PATH"
	EnvLibraryPath     = "LD_LIBRARY_PATH"
	EnvApplicationPath = "OTB_APPLICATION_PATH"
	EnvCacheMax        = "GDAL_CACHEMAX"
	EnvThreads         = "ITK_GLOBAL_DEFAULT_NUMBER_OF_THREADS"
	DefaultCacheMaxMB  = 16384
	applicationsSubdir = "lib/otb/applications"
	librarySubdir      = "lib"
)

// Environment is the configuration handed to every stage process. It is
// built once before the first stage runs and never applied to the
// orchestrator's own process.
type Environment struct {
	// Base is the inherited environment, usually os.Environ().
	Base []string
	// InstallDir is the directory holding the engine launcher. When set,
	// its binary, library and application directories are prepended to
	// the matching search paths.
	InstallDir string
	// CacheMaxMB is the raster cache size hint.
	CacheMaxMB int
	// Threads is the per-stage thread count hint.
	Threads int
}

// NewEnvironment returns an Environment based on the current process
// environment.
func NewEnvironment(installDir string, threads int) Environment {
	return Environment{
		Base:       os.Environ(),
		InstallDir: installDir,
		CacheMaxMB: DefaultCacheMaxMB,
		Threads:    threads,
	}
}

// Env returns the environment as KEY=VALUE pairs.
func (e Environment) Env() []string {
	vars := make(map[string]string)
	var order []string
	for _, kv := range e.Base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, seen := vars[k]; !seen {
			order = append(order, k)
		}
		vars[k] = v
	}
	set := func(k, v string) {
		if _, seen := vars[k]; !seen {
			order = append(order, k)
		}
		vars[k] = v
	}

	if e.InstallDir != "" {
		set(EnvPath, prependList(e.InstallDir, vars[EnvPath]))
		set(EnvLibraryPath, prependList(filepath.Join(e.InstallDir, "..", librarySubdir), vars[EnvLibraryPath]))
		set(EnvApplicationPath, prependList(filepath.Join(e.InstallDir, "..", applicationsSubdir), vars[EnvApplicationPath]))
	}
	if e.CacheMaxMB > 0 {
		set(EnvCacheMax, strconv.Itoa(e.CacheMaxMB))
	}
	if e.Threads > 0 {
		set(EnvThreads, strconv.Itoa(e.Threads))
	}

	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, k+"="+vars[k])
	}
	return out
}

// ApplicationSearchPath returns the entries of the application search
// path that stages will see.
func (e Environment) ApplicationSearchPath() []string {
	for _, kv := range e.Env() {
		if v, ok := strings.CutPrefix(kv, EnvApplicationPath+"="); ok {
			return filepath.SplitList(v)
		}
	}
	return nil
}

// Lookup returns the value a stage will see for key.
func (e Environment) Lookup(key string) (string, bool) {
	for _, kv := range e.Env() {
		if v, ok := strings.CutPrefix(kv, key+"="); ok {
			return v, true
		}
	}
	return "", false
}

func prependList(head, rest string) string {
	if rest == "" {
		return head
	}
	return head + string(os.PathListSeparator) + rest
}
