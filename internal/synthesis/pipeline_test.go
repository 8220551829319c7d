package synthesis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wasp/internal/config"
	"github.com/banshee-data/wasp/internal/engine"
	"github.com/banshee-data/wasp/internal/faults"
	"github.com/banshee-data/wasp/internal/fsutil"
	"github.com/banshee-data/wasp/internal/platform"
	"github.com/banshee-data/wasp/internal/timeutil"
)

func ptr[T any](v T) *T { return &v }

func newPipeline(fsys *fsutil.MemoryFileSystem, eng *fakeEngine) *Pipeline {
	clock := timeutil.NewMockClock(day0)
	clock.SetStep(time.Second)
	return &Pipeline{
		FS:         fsys,
		Engine:     eng,
		SearchPath: []string{testSearch},
		Clock:      clock,
	}
}

func request(inputs []string) *config.Request {
	return &config.Request{Inputs: inputs, OutDir: testOut, TempDir: ptr(testTemp)}
}

var perIteration = []string{
	engine.StageCompositePreprocessing,
	engine.StageWeightOnClouds,
	engine.StageWeightAOT,
	engine.StageTotalWeight,
	engine.StageUpdateSynthesis,
}

func TestRunVisitsProductsInDateOrder(t *testing.T) {
	fsys, paths := newWorld(t, s2("c", 40), s2("a", 0), s2("b", 20))
	eng := &fakeEngine{fs: fsys}

	out, err := newPipeline(fsys, eng).Run(context.Background(), request(paths))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Iterations)

	var want []string
	for i := 0; i < 3; i++ {
		want = append(want, perIteration...)
	}
	want = append(want, engine.StageProductFormatter)
	assert.Equal(t, want, eng.stages())

	var visited []string
	for _, c := range eng.callsOf(engine.StageCompositePreprocessing) {
		visited = append(visited, c.Args[1])
	}
	assert.Equal(t, []string{paths[1], paths[2], paths[0]}, visited)
}

func TestRunThreadsPreviousComposite(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0), s2("b", 20), s2("c", 40))
	eng := &fakeEngine{fs: fsys}

	_, err := newPipeline(fsys, eng).Run(context.Background(), request(paths))
	require.NoError(t, err)

	updates := eng.callsOf(engine.StageUpdateSynthesis)
	require.Len(t, updates, 3)
	assert.NotContains(t, updates[0].Args, "-prevproductr1")
	for i := 1; i < 3; i++ {
		prev := Layout(testTemp, i-1, mustProfile(t, platform.Sentinel2)).Composite
		assert.Equal(t, prev, updates[i].Inputs[len(updates[i].Inputs)-2:], "iteration %d", i)
		assert.Contains(t, updates[i].Args, prev[0])
		assert.Contains(t, updates[i].Args, prev[1])
	}

	final := eng.callsOf(engine.StageProductFormatter)
	require.Len(t, final, 1)
	assert.Equal(t, Layout(testTemp, 2, mustProfile(t, platform.Sentinel2)).Composite, final[0].Args[1:3])
}

func TestRunWithRetentionLeavesOnlyProduct(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0), s2("b", 20), s2("c", 40))
	eng := &fakeEngine{fs: fsys}

	_, err := newPipeline(fsys, eng).Run(context.Background(), request(paths))
	require.NoError(t, err)

	assert.Empty(t, fsys.Files(testTemp))
	assert.Equal(t, []string{productOut}, fsys.Files(testOut))
}

func TestRunWithoutRetentionKeepsEverything(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0), s2("b", 20))
	eng := &fakeEngine{fs: fsys}
	req := request(paths)
	req.RemoveTemp = ptr(false)

	_, err := newPipeline(fsys, eng).Run(context.Background(), req)
	require.NoError(t, err)

	files := fsys.Files(testTemp)
	assert.Contains(t, files, testTemp+"/TS_GIPP_v1-1.xml")
	assert.Contains(t, files, testTemp+"/0_WeightTotal.tif")
	assert.Contains(t, files, testTemp+"/0_UpdateSynthesis_R1.tif")
	assert.Contains(t, files, testTemp+"/1_UpdateSynthesis_R2.tif")
	// 2 iterations x (2 CP + 4 masks + 3 weights + 2 composites) + manifest
	assert.Len(t, files, 23)
}

func TestRunAbortStopsLaterIterations(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0), s2("b", 20), s2("c", 40), s2("d", 46))
	eng := &fakeEngine{fs: fsys, failStage: engine.StageWeightAOT, failAt: 1}
	p := newPipeline(fsys, eng)

	plan, err := p.Prepare(context.Background(), request(paths))
	require.NoError(t, err)
	seq := &Sequencer{Runner: eng, FS: fsys, Clock: timeutil.NewMockClock(day0)}
	_, err = seq.Run(context.Background(), plan.Config, plan.ManifestPath, plan.Seed)

	var failure *engine.ExternalStageFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 1, failure.Iteration)
	assert.Equal(t, engine.StageWeightAOT, failure.Stage)
	assert.ErrorIs(t, err, faults.ErrExternalStage)
	assert.Equal(t, StateAborted, seq.State())
	assert.Equal(t, 1, seq.Pipeline().Iteration)

	for _, c := range eng.calls {
		assert.LessOrEqual(t, c.Iteration, 1)
		assert.NotEqual(t, engine.StageProductFormatter, c.Stage)
	}
	assert.Equal(t, perIteration[:3], eng.stages()[5:])

	// Nothing is cleaned on abort: the first composite, the partial second
	// iteration and the manifest stay for inspection.
	assert.True(t, fsys.Exists(testTemp+"/0_UpdateSynthesis_R1.tif"))
	assert.True(t, fsys.Exists(testTemp+"/1_WeightOnCloud.tif"))
	assert.True(t, fsys.Exists(plan.ManifestPath))
	assert.Empty(t, fsys.Files(testOut))
}

func TestRunAbortInAssembly(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0), s2("b", 20))
	eng := &fakeEngine{fs: fsys, failStage: engine.StageProductFormatter, failAt: engine.FinalIteration}

	_, err := newPipeline(fsys, eng).Run(context.Background(), request(paths))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "final assembly")
	assert.True(t, fsys.Exists(testTemp+"/1_UpdateSynthesis_R1.tif"))
}

func TestRunSingleProduct(t *testing.T) {
	fsys, paths := newWorld(t, venus("only", 0))
	eng := &fakeEngine{fs: fsys}
	p := newPipeline(fsys, eng)

	plan, err := p.Prepare(context.Background(), request(paths))
	require.NoError(t, err)
	w := plan.Window.Window
	assert.Equal(t, w.MinDate, w.MidDate)
	assert.Equal(t, w.MidDate, w.MaxDate)
	assert.Equal(t, day0, plan.Config.SynthesisDate)
	assert.Equal(t, PriorNone, plan.Seed.Kind())

	out, err := p.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Iterations)

	updates := eng.callsOf(engine.StageUpdateSynthesis)
	require.Len(t, updates, 1)
	for _, a := range updates[0].Args {
		assert.NotContains(t, a, "-prev")
	}
	assert.Equal(t, []string{productOut}, fsys.Files(testOut))
}

func TestRunCloselySpacedDatesStillRuns(t *testing.T) {
	fsys, paths := newWorld(t, venus("a", 0), venus("b", 1))
	eng := &fakeEngine{fs: fsys}
	p := newPipeline(fsys, eng)

	plan, err := p.Prepare(context.Background(), request(paths))
	require.NoError(t, err)
	assert.NotEmpty(t, plan.Config.Advisories)

	_, err = p.Execute(context.Background(), plan)
	assert.NoError(t, err)
}

func TestMismatchedTilesSpawnNothing(t *testing.T) {
	other := s2("b", 20)
	other.tile = "T31TCK"
	fsys, paths := newWorld(t, s2("a", 0), other)
	eng := &fakeEngine{fs: fsys}

	_, err := newPipeline(fsys, eng).Run(context.Background(), request(paths))
	var tiles *platform.MultipleTilesError
	require.True(t, errors.As(err, &tiles), "got %v", err)
	assert.ErrorIs(t, err, faults.ErrConfiguration)
	assert.Empty(t, eng.calls)
	assert.False(t, eng.probeCalled)
	assert.False(t, fsys.Exists(testTemp))
}

func TestMixedPlatformsSpawnNothing(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0), venus("b", 20))
	eng := &fakeEngine{fs: fsys}

	_, err := newPipeline(fsys, eng).Run(context.Background(), request(paths))
	assert.ErrorIs(t, err, faults.ErrConfiguration)
	assert.Empty(t, eng.calls)
}

func TestMissingCapabilityStopsBeforeManifest(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0))
	eng := &fakeEngine{fs: fsys, capability: &engine.MissingCapabilityError{Missing: []string{"TotalWeight"}}}

	_, err := newPipeline(fsys, eng).Run(context.Background(), request(paths))
	assert.ErrorIs(t, err, faults.ErrConfiguration)
	assert.Empty(t, eng.calls)
	assert.False(t, fsys.Exists(testTemp+"/TS_GIPP_v1-1.xml"))
}

func TestDirectoryCollisionNamesField(t *testing.T) {
	tests := []struct {
		name      string
		blocked   string
		wantField string
	}{
		{"output directory", testOut, "out"},
		{"temp directory", testTemp, "tempout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys, paths := newWorld(t, s2("a", 0))
			require.NoError(t, fsys.WriteFile(tt.blocked, []byte("not a directory"), 0o644))
			eng := &fakeEngine{fs: fsys}

			_, err := newPipeline(fsys, eng).Prepare(context.Background(), request(paths))
			var invalid *config.InvalidParameterError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.wantField, invalid.Field)
			assert.Equal(t, tt.blocked, invalid.Value)
			assert.ErrorIs(t, err, faults.ErrConfiguration)
		})
	}
}

func TestTargetDateFiltersInputs(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0), s2("b", 20), s2("c", 90))
	eng := &fakeEngine{fs: fsys}
	req := request(paths)
	req.TargetDate = ptr("20180311")

	plan, err := newPipeline(fsys, eng).Prepare(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{paths[0], paths[1]}, plan.Config.InputPaths())
	assert.Equal(t, time.Date(2018, 3, 11, 0, 0, 0, 0, time.UTC), plan.Config.SynthesisDate)
}

func TestUnreadableInputIsDropped(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0), s2("b", 20))
	paths = append(paths, "/in/missing_MTD_ALL.xml")
	eng := &fakeEngine{fs: fsys}

	out, err := newPipeline(fsys, eng).Run(context.Background(), request(paths))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Iterations)
}

func TestPriorProductIsIgnoredWithWarning(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0))
	eng := &fakeEngine{fs: fsys}
	req := request(paths)
	req.PriorProductPath = ptr("/products/previous_MTD_ALL.xml")

	plan, err := newPipeline(fsys, eng).Prepare(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, PriorNone, plan.Seed.Kind())
}

func TestSequencerIsSingleUse(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0))
	eng := &fakeEngine{fs: fsys}
	p := newPipeline(fsys, eng)
	plan, err := p.Prepare(context.Background(), request(paths))
	require.NoError(t, err)

	seq := &Sequencer{Runner: eng, FS: fsys, Clock: timeutil.RealClock{}}
	_, err = seq.Run(context.Background(), plan.Config, plan.ManifestPath, plan.Seed)
	require.NoError(t, err)
	assert.Equal(t, StateDone, seq.State())

	_, err = seq.Run(context.Background(), plan.Config, plan.ManifestPath, plan.Seed)
	assert.Error(t, err)
}

func TestCancelledContextStartsNoStage(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0))
	eng := &fakeEngine{fs: fsys}
	p := newPipeline(fsys, eng)
	plan, err := p.Prepare(context.Background(), request(paths))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Execute(ctx, plan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, eng.calls)
}

type recorded struct {
	stage string
	err   error
}

type sliceRecorder struct{ got []recorded }

func (r *sliceRecorder) RecordStage(inv engine.StageInvocation, _ engine.Result, err error) {
	r.got = append(r.got, recorded{inv.Stage, err})
}

func TestRecorderSeesEveryInvocation(t *testing.T) {
	fsys, paths := newWorld(t, s2("a", 0), s2("b", 20))
	eng := &fakeEngine{fs: fsys, failStage: engine.StageTotalWeight, failAt: 1}
	rec := &sliceRecorder{}
	p := newPipeline(fsys, eng)
	p.Recorder = rec

	_, err := p.Run(context.Background(), request(paths))
	require.Error(t, err)
	require.Len(t, rec.got, 9)
	assert.NoError(t, rec.got[7].err)
	assert.Equal(t, engine.StageTotalWeight, rec.got[8].stage)
	assert.Error(t, rec.got[8].err)
}

func mustProfile(t *testing.T, name string) platform.Profile {
	t.Helper()
	p, err := platform.Lookup(name)
	require.NoError(t, err)
	return p
}
