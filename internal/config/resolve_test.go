package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wasp/internal/faults"
	"github.com/banshee-data/wasp/internal/fsutil"
	"github.com/banshee-data/wasp/internal/metadata"
	"github.com/banshee-data/wasp/internal/platform"
	"github.com/banshee-data/wasp/internal/window"
)

var day0 = time.Date(2018, 3, 1, 10, 30, 0, 0, time.UTC)

func headersAt(offsets ...int) []metadata.Header {
	var hs []metadata.Header
	for i, off := range offsets {
		hs = append(hs, metadata.Header{
			Path:            "/in/p" + string(rune('a'+i)) + ".xml",
			Platform:        platform.Sentinel2,
			Tile:            "T31TCJ",
			AcquisitionDate: metadata.FormatLong(day0.AddDate(0, 0, off)),
		})
	}
	return hs
}

func resourceFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	for _, name := range ScatteringCoeffFiles {
		require.NoError(t, fsys.WriteFile("/opt/otb/share/"+name, []byte("coeffs"), 0o644))
	}
	return fsys
}

func s2Input(t *testing.T, fsys fsutil.FileSystem, offsets ...int) ResolveInput {
	t.Helper()
	s2, err := platform.Lookup(platform.Sentinel2)
	require.NoError(t, err)
	res, err := window.Compute(headersAt(offsets...), window.Options{Spacing: s2.Spacing})
	require.NoError(t, err)
	return ResolveInput{
		Platform:   s2,
		Tile:       "T31TCJ",
		Window:     res,
		SearchPath: []string{"/nowhere/lib/otb/applications", "/opt/otb/lib/otb/applications"},
		FS:         fsys,
	}
}

func TestResolveWithoutTargetUsesWindow(t *testing.T) {
	in := s2Input(t, resourceFS(t), 0, 20, 46)
	req := &Request{Inputs: []string{"x"}, OutDir: "/out"}

	cfg, err := Resolve(req, in)
	require.NoError(t, err)

	assert.Equal(t, day0, cfg.WindowMin)
	assert.Equal(t, day0.AddDate(0, 0, 23), cfg.SynthesisDate)
	assert.Equal(t, day0.AddDate(0, 0, 46), cfg.WindowMax)
	assert.Equal(t, 23, cfg.HalfPeriod)
	assert.Equal(t, "/out", cfg.TempDir)
	assert.Equal(t, "/opt/otb/share", cfg.ResourceDir)
	assert.Equal(t, "1-1", cfg.VersionTag())
	assert.Equal(t, "1.0", cfg.ProgramVersion)
	assert.Len(t, cfg.Inputs, 3)
	assert.Empty(t, cfg.Advisories)
}

func TestResolveWithTargetDate(t *testing.T) {
	in := s2Input(t, resourceFS(t), 0, 20, 46)
	req := &Request{Inputs: []string{"x"}, OutDir: "/out", TargetDate: ptr("2018-03-20"), HalfPeriod: ptr(10)}

	cfg, err := Resolve(req, in)
	require.NoError(t, err)

	target := time.Date(2018, 3, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, target, cfg.SynthesisDate)
	assert.Equal(t, target.AddDate(0, 0, -10), cfg.WindowMin)
	assert.Equal(t, target.AddDate(0, 0, 10), cfg.WindowMax)
	require.Len(t, cfg.Advisories, 1)
	assert.Contains(t, cfg.Advisories[0], "half synthesis period of 10 days")
}

func TestResolveExplicitResourceDirSkipsProbe(t *testing.T) {
	in := s2Input(t, fsutil.NewMemoryFileSystem(), 0, 20, 46)
	req := &Request{Inputs: []string{"x"}, OutDir: "/out", ScatteringCoeffPath: ptr("/data/coeffs")}

	cfg, err := Resolve(req, in)
	require.NoError(t, err)
	assert.Equal(t, "/data/coeffs", cfg.ResourceDir)
}

func TestResolveMissingResources(t *testing.T) {
	in := s2Input(t, fsutil.NewMemoryFileSystem(), 0, 20, 46)
	req := &Request{Inputs: []string{"x"}, OutDir: "/out"}

	_, err := Resolve(req, in)
	var mre *MissingResourceError
	require.True(t, errors.As(err, &mre), "got %v", err)
	assert.Len(t, mre.Candidates, 2)
	assert.ErrorIs(t, err, faults.ErrConfiguration)
}

func TestResolveRejectsInvalidRequest(t *testing.T) {
	in := s2Input(t, resourceFS(t), 0)
	_, err := Resolve(&Request{Inputs: []string{"x"}, OutDir: "/out", CoarseRes: ptr(-5)}, in)
	assert.ErrorIs(t, err, faults.ErrConfiguration)
}

func TestFindResourceDirRequiresAllFiles(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/a/share/scattering_coeffs_10m.txt", nil, 0o644))
	for _, name := range ScatteringCoeffFiles {
		require.NoError(t, fsys.WriteFile("/b/share/"+name, nil, 0o644))
	}

	dir, err := FindResourceDir(fsys, []string{"/a/x/y/z", "", "/b/x/y/z"})
	require.NoError(t, err)
	assert.Equal(t, "/b/share", dir)

	_, err = FindResourceDir(fsys, nil)
	assert.ErrorIs(t, err, faults.ErrConfiguration)
}
