package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnvironment_Env(t *testing.T) {
	env := Environment{
		Base: []string{
			"HOME=/home/user",
			"PATH=/usr/bin:/bin",
			"OTB_APPLICATION_PATH=/other/apps",
			"GDAL_CACHEMAX=10",
		},
		InstallDir: "/opt/wasp/bin",
		CacheMaxMB: 16384,
		Threads:    4,
	}

	want := []string{
		"HOME=/home/user",
		"PATH=/opt/wasp/bin:/usr/bin:/bin",
		"OTB_APPLICATION_PATH=/opt/wasp/lib/otb/applications:/other/apps",
		"GDAL_CACHEMAX=16384",
		"LD_LIBRARY_PATH=/opt/wasp/lib",
		"ITK_GLOBAL_DEFAULT_NUMBER_OF_THREADS=4",
	}
	if diff := cmp.Diff(want, env.Env()); diff != "" {
		t.Errorf("Env() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvironment_WithoutInstallDir(t *testing.T) {
	env := Environment{Base: []string{"PATH=/bin"}, Threads: 8}

	want := []string{"PATH=/bin", "ITK_GLOBAL_DEFAULT_NUMBER_OF_THREADS=8"}
	if diff := cmp.Diff(want, env.Env()); diff != "" {
		t.Errorf("Env() mismatch (-want +got):\n%s", diff)
	}
	if got := env.ApplicationSearchPath(); got != nil {
		t.Errorf("Expected no search path, got %v", got)
	}
}

func TestEnvironment_ApplicationSearchPath(t *testing.T) {
	env := Environment{
		Base:       []string{"OTB_APPLICATION_PATH=/a/apps:/b/apps"},
		InstallDir: "/opt/wasp/bin",
	}
	want := []string{"/opt/wasp/lib/otb/applications", "/a/apps", "/b/apps"}
	if diff := cmp.Diff(want, env.ApplicationSearchPath()); diff != "" {
		t.Errorf("ApplicationSearchPath() mismatch (-want +got):\n%s", diff)
	}

	v, ok := env.Lookup("LD_LIBRARY_PATH")
	if !ok || v != "/opt/wasp/lib" {
		t.Errorf("Lookup(LD_LIBRARY_PATH) = %q, %v", v, ok)
	}
}
