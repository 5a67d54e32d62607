package benchmarkorchestrator

import (
	"context"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/Octogonapus/BenchLab/profile"
	"github.com/Octogonapus/BenchLab/report"
	"github.com/Octogonapus/BenchLab/target"
)

type SessionConfig struct {
	// Categories to run; empty means all. Ignored when TestIDs is set.
	Categories []benchmark.Category
	TestIDs    []string

	// Parameter section of each category, handed to the workload factories and cleanups.
	Params map[benchmark.Category]map[string]any

	Monitor          bool
	ProfilerKind     profile.ProfilerKind
	ProfileSaveDir   string
	ProgressInterval time.Duration
}

// Runs a benchmark session on a platform (e.g. the local host).
type BenchmarkOrchestrator interface {
	// Run the selected tests one after the other and return the session report. Failed tests are part of the report;
	// the error is reserved for sessions that could not start. Cancelling ctx stops the session between tests.
	RunSession(ctx context.Context, cfg *SessionConfig, rep report.Reporter) (*report.SessionReport, error)
}

type Option func(*localBenchmarkOrchestrator)

// WithRegistry replaces the process-wide workload registry.
func WithRegistry(r *benchmark.Registry) Option {
	return func(o *localBenchmarkOrchestrator) { o.registry = r }
}

func WithTarget(t target.Target) Option {
	return func(o *localBenchmarkOrchestrator) { o.target = t }
}

// WithHostDescriber replaces how the host is described in the session report.
func WithHostDescriber(f func(ctx context.Context, gpuAvailable bool) *report.Host) Option {
	return func(o *localBenchmarkOrchestrator) { o.describeHost = f }
}
