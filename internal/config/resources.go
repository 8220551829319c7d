package config

import (
	"path/filepath"

	"github.com/banshee-data/wasp/internal/fsutil"
)

// ScatteringCoeffFiles are the directional-correction coefficient files,
// one per resolution tier, that must sit together in one directory.
var ScatteringCoeffFiles = []string{
	"scattering_coeffs_10m.txt",
	"scattering_coeffs_20m.txt",
}

// CandidateResourceDirs maps each application search path entry P to
// P/../../../share.
func CandidateResourceDirs(searchPath []string) []string {
	out := make([]string, 0, len(searchPath))
	for _, p := range searchPath {
		if p == "" {
			continue
		}
		out = append(out, filepath.Join(p, "..", "..", "..", "share"))
	}
	return out
}

// FindResourceDir returns the first candidate directory holding every
// scattering coefficient file.
func FindResourceDir(fsys fsutil.FileSystem, searchPath []string) (string, error) {
	candidates := CandidateResourceDirs(searchPath)
	for _, dir := range candidates {
		if hasAll(fsys, dir, ScatteringCoeffFiles) {
			return dir, nil
		}
	}
	return "", &MissingResourceError{Files: ScatteringCoeffFiles, Candidates: candidates}
}

// ScatteringCoeffPaths returns the full path of every coefficient file in dir.
func ScatteringCoeffPaths(dir string) []string {
	out := make([]string, len(ScatteringCoeffFiles))
	for i, name := range ScatteringCoeffFiles {
		out[i] = filepath.Join(dir, name)
	}
	return out
}

func hasAll(fsys fsutil.FileSystem, dir string, names []string) bool {
	for _, name := range names {
		if !fsys.Exists(filepath.Join(dir, name)) {
			return false
		}
	}
	return true
}
