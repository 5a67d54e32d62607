package benchmarkorchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/Octogonapus/BenchLab/profile"
	"github.com/Octogonapus/BenchLab/report"
	systemmonitor "github.com/Octogonapus/BenchLab/system_monitor"
	"github.com/Octogonapus/BenchLab/target"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type localBenchmarkOrchestrator struct {
	registry     *benchmark.Registry
	target       target.Target
	describeHost func(ctx context.Context, gpuAvailable bool) *report.Host
}

func NewLocalBenchmarkOrchestrator(opts ...Option) BenchmarkOrchestrator {
	o := &localBenchmarkOrchestrator{
		registry:     benchmark.Default(),
		target:       target.NewLocalTarget(),
		describeHost: systemmonitor.DescribeHost,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *localBenchmarkOrchestrator) RunSession(ctx context.Context, cfg *SessionConfig, rep report.Reporter) (*report.SessionReport, error) {
	if rep == nil {
		rep = report.NopReporter{}
	}

	var prof profile.Profiler
	if cfg.ProfilerKind != "" && cfg.ProfilerKind != profile.None {
		var err error
		prof, err = profile.NewProfiler(cfg.ProfilerKind, cfg.ProfileSaveDir)
		if err != nil {
			return nil, fmt.Errorf("creating profiler failed: %w", err)
		}
	}

	sess := &report.SessionReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Results:   map[benchmark.Category][]benchmark.Result{},
	}

	plan, categories := o.plan(cfg, sess)
	sess.Host = o.describeHost(ctx, o.registry.Available(benchmark.GPU, cfg.Params[benchmark.GPU]))
	for _, e := range plan {
		sess.Tests = append(sess.Tests, &report.TestReport{ID: e.ID, Label: e.Label, Category: e.Category, State: report.Pending})
	}
	slog.Info("starting session", slog.String("id", sess.ID), slog.Int("tests", len(plan)))

	for i, e := range plan {
		if err := ctx.Err(); err != nil {
			slog.Warn("session cancelled, skipping remaining tests", slog.Int("skipped", len(plan)-i))
			sess.Cancelled = true
			break
		}
		runner := NewBenchmarkRunner(e, cfg.Params[e.Category], RunnerOptions{
			Target:           o.target,
			Monitor:          cfg.Monitor,
			Profiler:         prof,
			ProfilerKind:     cfg.ProfilerKind,
			ProgressInterval: cfg.ProgressInterval,
		})
		tr := runner.Run(rep)
		sess.Tests[i] = tr
		if tr.State == report.Completed {
			sess.Results[e.Category] = append(sess.Results[e.Category], tr.Result)
		}
	}

	o.teardown(categories, cfg.Params)
	sess.FinishedAt = time.Now()
	rep.OnSessionComplete(sess.Results)
	slog.Info("finished session",
		slog.String("id", sess.ID),
		slog.Int("failed", len(sess.Failed())),
		slog.Bool("cancelled", sess.Cancelled))
	return sess, nil
}

// plan resolves the selection and drops categories that can't run on this host. It returns the tests to run and the
// categories they belong to, in execution order.
func (o *localBenchmarkOrchestrator) plan(cfg *SessionConfig, sess *report.SessionReport) ([]benchmark.Entry, []benchmark.Category) {
	plan, unresolved := o.registry.Resolve(cfg.Categories, cfg.TestIDs)
	for _, id := range unresolved {
		slog.Warn("unknown test id, ignoring", slog.String("id", id))
	}
	sess.Unresolved = unresolved

	categories := lo.Uniq(lo.Map(plan, func(e benchmark.Entry, _ int) benchmark.Category { return e.Category }))
	unavailable := lo.Filter(categories, func(c benchmark.Category, _ int) bool {
		return !o.registry.Available(c, cfg.Params[c])
	})
	for _, c := range unavailable {
		slog.Warn("category is not available on this host, skipping", slog.String("category", string(c)))
	}
	plan = lo.Reject(plan, func(e benchmark.Entry, _ int) bool { return lo.Contains(unavailable, e.Category) })
	return plan, lo.Without(categories, unavailable...)
}

// teardown runs the cleanup of every category in the session once.
func (o *localBenchmarkOrchestrator) teardown(categories []benchmark.Category, params map[benchmark.Category]map[string]any) {
	for _, c := range categories {
		cleanup, ok := o.registry.Cleanup(c)
		if !ok {
			continue
		}
		if err := cleanup(params[c]); err != nil {
			slog.Error("cleanup failed", slog.String("category", string(c)), slog.String("error", err.Error()))
		}
	}
}
