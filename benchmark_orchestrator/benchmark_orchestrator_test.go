package benchmarkorchestrator

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
	_ "github.com/Octogonapus/BenchLab/benchmark/cpu"
	"github.com/Octogonapus/BenchLab/benchmark/disk"
	"github.com/Octogonapus/BenchLab/benchmark/gpu"
	_ "github.com/Octogonapus/BenchLab/benchmark/memory"
	"github.com/Octogonapus/BenchLab/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	kind    string
	testID  string
	percent float64
}

type recorder struct {
	events  []event
	results map[benchmark.Category][]benchmark.Result
	done    int
}

func (r *recorder) OnTestStarted(_ benchmark.Category, testID, _ string) {
	r.events = append(r.events, event{kind: "started", testID: testID})
}
func (r *recorder) OnProgress(testID string, percent float64) {
	r.events = append(r.events, event{kind: "progress", testID: testID, percent: percent})
}
func (r *recorder) OnResult(_ benchmark.Category, res benchmark.Result) {
	r.events = append(r.events, event{kind: "result", testID: res.Name()})
}
func (r *recorder) OnTestFailed(_ benchmark.Category, testID string, kind benchmark.ErrorKind, _ string) {
	r.events = append(r.events, event{kind: "failed:" + string(kind), testID: testID})
}
func (r *recorder) OnSessionComplete(results map[benchmark.Category][]benchmark.Result) {
	r.results = results
	r.done++
}

func (r *recorder) kinds() []string {
	out := []string{}
	for _, e := range r.events {
		if e.kind != "progress" {
			out = append(out, e.kind+" "+e.testID)
		}
	}
	return out
}

type fakeWorkload func(sink benchmark.ProgressSink) (benchmark.Result, error)

func (f fakeWorkload) Run(sink benchmark.ProgressSink) (benchmark.Result, error) { return f(sink) }

func entry(c benchmark.Category, id string, run fakeWorkload) benchmark.Entry {
	return benchmark.Entry{Category: c, ID: id, Label: id, New: func(map[string]any) (benchmark.Workload, error) { return run, nil }}
}

func ok(id string) fakeWorkload {
	return func(sink benchmark.ProgressSink) (benchmark.Result, error) {
		sink.Report(0)
		sink.Report(100)
		return benchmark.CPUResult{TestName: id, DurationSec: 0.1, Operations: 1, OpsPerSecond: 10}, nil
	}
}

func newOrchestrator(r *benchmark.Registry) BenchmarkOrchestrator {
	return NewLocalBenchmarkOrchestrator(
		WithRegistry(r),
		WithHostDescriber(func(context.Context, bool) *report.Host { return &report.Host{} }),
	)
}

func TestFailuresAreIsolated(t *testing.T) {
	r := benchmark.NewRegistry()
	r.Register(entry(benchmark.Disk, "disk.a", func(benchmark.ProgressSink) (benchmark.Result, error) {
		return nil, benchmark.ResourceError("opening backing file", os.ErrPermission)
	}))
	r.Register(entry(benchmark.Disk, "disk.b", func(benchmark.ProgressSink) (benchmark.Result, error) {
		return benchmark.DiskResult{TestName: "disk.b", DurationSec: 1}, nil
	}))
	r.Register(entry(benchmark.CPU, "cpu.a", func(benchmark.ProgressSink) (benchmark.Result, error) { panic("boom") }))
	r.Register(entry(benchmark.CPU, "cpu.b", ok("cpu.b")))

	rec := &recorder{}
	sess, err := newOrchestrator(r).RunSession(context.Background(), &SessionConfig{}, rec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"started disk.a", "failed:resource disk.a",
		"started disk.b", "result disk.b",
		"started cpu.a", "failed:internal cpu.a",
		"started cpu.b", "result cpu.b",
	}, rec.kinds())
	assert.Len(t, sess.Results[benchmark.Disk], 1)
	assert.Len(t, sess.Results[benchmark.CPU], 1)
	assert.Equal(t, sess.Results, rec.results)
	assert.Equal(t, 1, rec.done)

	failed := sess.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, benchmark.KindResource, failed[0].ErrorKind)
	assert.Contains(t, failed[1].Error, "panic: boom")
	assert.NotEmpty(t, sess.ID)
	assert.False(t, sess.Cancelled)
}

func TestInvalidParametersFailTheTest(t *testing.T) {
	r := benchmark.NewRegistry()
	r.Register(benchmark.Entry{Category: benchmark.Memory, ID: "mem.a", Label: "a", New: func(map[string]any) (benchmark.Workload, error) {
		return nil, benchmark.ParamErrorf("size_mb must be positive")
	}})
	rec := &recorder{}
	sess, err := newOrchestrator(r).RunSession(context.Background(), &SessionConfig{}, rec)
	require.NoError(t, err)
	require.Len(t, sess.Tests, 1)
	assert.Equal(t, report.Failed, sess.Tests[0].State)
	assert.Equal(t, []string{"started mem.a", "failed:invalid_parameters mem.a"}, rec.kinds())
}

func TestUnavailableCategoryIsSkipped(t *testing.T) {
	r := benchmark.NewRegistry()
	r.Register(entry(benchmark.CPU, "cpu.a", ok("cpu.a")))
	r.Register(entry(benchmark.GPU, "gpu.a", ok("gpu.a")))
	r.RegisterCapability(benchmark.GPU, func(map[string]any) bool { return false })

	rec := &recorder{}
	sess, err := newOrchestrator(r).RunSession(context.Background(), &SessionConfig{}, rec)
	require.NoError(t, err)
	assert.Len(t, sess.Tests, 1)
	assert.Empty(t, sess.Failed())
	assert.Empty(t, sess.Results[benchmark.GPU])
	assert.Equal(t, []string{"started cpu.a", "result cpu.a"}, rec.kinds())
}

func TestCancellationStopsBetweenTests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanups := 0
	r := benchmark.NewRegistry()
	r.Register(entry(benchmark.Disk, "disk.a", func(sink benchmark.ProgressSink) (benchmark.Result, error) {
		cancel()
		return ok("disk.a")(sink)
	}))
	r.Register(entry(benchmark.Disk, "disk.b", ok("disk.b")))
	r.Register(entry(benchmark.CPU, "cpu.a", ok("cpu.a")))
	r.RegisterCleanup(benchmark.Disk, func(map[string]any) error {
		cleanups++
		return errors.New("ignored")
	})

	rec := &recorder{}
	sess, err := newOrchestrator(r).RunSession(ctx, &SessionConfig{}, rec)
	require.NoError(t, err)
	assert.True(t, sess.Cancelled)
	assert.Equal(t, []string{"started disk.a", "result disk.a"}, rec.kinds())
	assert.Len(t, sess.Results[benchmark.Disk], 1)
	assert.Equal(t, report.Completed, sess.Tests[0].State)
	assert.Equal(t, report.Pending, sess.Tests[1].State)
	assert.Equal(t, report.Pending, sess.Tests[2].State)
	assert.Equal(t, 1, cleanups)
	assert.Equal(t, 1, rec.done)
}

func TestCleanupRunsOncePerCategory(t *testing.T) {
	cleanups := map[benchmark.Category]int{}
	r := benchmark.NewRegistry()
	r.Register(entry(benchmark.Disk, "disk.a", func(benchmark.ProgressSink) (benchmark.Result, error) {
		return nil, errors.New("failed")
	}))
	r.Register(entry(benchmark.Disk, "disk.b", ok("disk.b")))
	r.Register(entry(benchmark.CPU, "cpu.a", ok("cpu.a")))
	for _, c := range benchmark.AllCategories {
		r.RegisterCleanup(c, func(map[string]any) error {
			cleanups[c]++
			return nil
		})
	}

	_, err := newOrchestrator(r).RunSession(context.Background(), &SessionConfig{TestIDs: []string{"disk.a", "disk.b"}}, &recorder{})
	require.NoError(t, err)
	assert.Equal(t, map[benchmark.Category]int{benchmark.Disk: 1}, cleanups)
}

func TestUnresolvedIDs(t *testing.T) {
	r := benchmark.NewRegistry()
	r.Register(entry(benchmark.CPU, "cpu.a", ok("cpu.a")))

	sess, err := newOrchestrator(r).RunSession(context.Background(), &SessionConfig{TestIDs: []string{"cpu.a", "cpu.nope"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"cpu.nope"}, sess.Unresolved)
	assert.Len(t, sess.Results[benchmark.CPU], 1)
}

func TestProgressDoesNotBleedIntoNextTest(t *testing.T) {
	var kept benchmark.ProgressSink
	r := benchmark.NewRegistry()
	r.Register(entry(benchmark.CPU, "cpu.a", func(sink benchmark.ProgressSink) (benchmark.Result, error) {
		kept = sink
		return ok("cpu.a")(sink)
	}))
	r.Register(entry(benchmark.CPU, "cpu.b", func(sink benchmark.ProgressSink) (benchmark.Result, error) {
		kept.Report(100)
		kept.Report(50)
		return ok("cpu.b")(sink)
	}))

	rec := &recorder{}
	_, err := newOrchestrator(r).RunSession(context.Background(), &SessionConfig{}, rec)
	require.NoError(t, err)

	progress := []event{}
	for _, e := range rec.events {
		if e.kind == "progress" {
			progress = append(progress, e)
		}
	}
	assert.Equal(t, []event{
		{kind: "progress", testID: "cpu.a", percent: 0},
		{kind: "progress", testID: "cpu.a", percent: 100},
		{kind: "progress", testID: "cpu.b", percent: 0},
		{kind: "progress", testID: "cpu.b", percent: 100},
	}, progress)
}

func TestProgressSinkThrottles(t *testing.T) {
	rec := &recorder{}
	sink := newProgressSink("t", rec, time.Hour)

	sink.Report(0)
	for i := 1; i < 100; i++ {
		sink.Report(float64(i))
	}
	sink.Report(math.NaN())
	sink.Report(150)
	sink.Report(100)

	percents := []float64{}
	for _, e := range rec.events {
		percents = append(percents, e.percent)
	}
	// the burst allows one report between the first and the last
	assert.Equal(t, []float64{0, 1, 100}, percents)
}

func hostless() Option {
	return WithHostDescriber(func(context.Context, bool) *report.Host { return &report.Host{} })
}

// Short runs of the real cpu and memory workloads.
func quickParams() map[benchmark.Category]map[string]any {
	return map[benchmark.Category]map[string]any{
		benchmark.CPU: {
			"duration_seconds":       0.05,
			"multi_duration_seconds": 0.05,
			"batch_size":             100,
			"temperature":            false,
		},
		benchmark.Memory: {
			"size_mb":                1,
			"iterations":             1,
			"accesses":               1000,
			"cache_duration_seconds": 0.05,
		},
	}
}

func TestDiskSession(t *testing.T) {
	dir := t.TempDir()
	cfg := &SessionConfig{
		TestIDs: []string{"disk.seq-read", "disk.seq-write"},
		Params: map[benchmark.Category]map[string]any{
			benchmark.Disk: {"file_size_mb": 10, "block_size_kb": 4, "dir": dir},
		},
	}
	rec := &recorder{}
	sess, err := NewLocalBenchmarkOrchestrator(hostless()).RunSession(context.Background(), cfg, rec)
	require.NoError(t, err)

	assert.Empty(t, sess.Failed())
	results := sess.Results[benchmark.Disk]
	require.Len(t, results, 2)
	assert.Equal(t, "Sequential Write", results[0].Name())
	assert.Equal(t, "Sequential Read", results[1].Name())
	for _, res := range results {
		assert.EqualValues(t, 10*1024*1024, res.Transferred(), res.Name())
		assert.Greater(t, res.Seconds(), 0.0, res.Name())
		assert.Greater(t, res.Primary().Value, 0.0, res.Name())
	}
	assert.Equal(t, 10, sess.Tests[0].Input["FileSizeMB"])
	assert.NoFileExists(t, disk.BackingFilePath(dir))
}

func TestUnavailableGPUSession(t *testing.T) {
	if gpu.Available(nil) {
		t.Skip("accelerator present")
	}
	cfg := &SessionConfig{
		Categories: []benchmark.Category{benchmark.CPU, benchmark.GPU},
		Params:     quickParams(),
	}
	rec := &recorder{}
	sess, err := NewLocalBenchmarkOrchestrator(hostless()).RunSession(context.Background(), cfg, rec)
	require.NoError(t, err)

	assert.Empty(t, sess.Failed())
	assert.Empty(t, sess.Results[benchmark.GPU])
	for _, tr := range sess.Tests {
		assert.Equal(t, benchmark.CPU, tr.Category, tr.ID)
		assert.Equal(t, report.Completed, tr.State, tr.ID)
	}
	assert.Len(t, sess.Results[benchmark.CPU], planned(t, benchmark.CPU))
	assert.Equal(t, 1, rec.done)
}

func planned(t *testing.T, c benchmark.Category) int {
	t.Helper()
	plan, _ := benchmark.Default().Resolve([]benchmark.Category{c}, nil)
	require.NotEmpty(t, plan)
	return len(plan)
}

func TestDiskFailuresDoNotStopOtherCategories(t *testing.T) {
	params := quickParams()
	params[benchmark.Disk] = map[string]any{"file_size_mb": 1, "dir": filepath.Join(t.TempDir(), "missing")}
	cfg := &SessionConfig{
		Categories: []benchmark.Category{benchmark.Disk, benchmark.CPU, benchmark.Memory},
		Params:     params,
	}
	rec := &recorder{}
	sess, err := NewLocalBenchmarkOrchestrator(hostless()).RunSession(context.Background(), cfg, rec)
	require.NoError(t, err)

	kinds := map[string]benchmark.ErrorKind{}
	for _, tr := range sess.Failed() {
		kinds[tr.ID] = tr.ErrorKind
	}
	assert.Equal(t, benchmark.KindResource, kinds["disk.seq-write"])
	assert.Equal(t, benchmark.KindPrecondition, kinds["disk.seq-read"])
	for id := range kinds {
		entry, ok := benchmark.Default().Lookup(id)
		require.True(t, ok)
		assert.Equal(t, benchmark.Disk, entry.Category, "only disk tests fail, %s failed", id)
	}

	assert.Empty(t, sess.Results[benchmark.Disk])
	assert.Len(t, sess.Results[benchmark.CPU], planned(t, benchmark.CPU))
	assert.Len(t, sess.Results[benchmark.Memory], planned(t, benchmark.Memory))
}
