package benchmarkorchestrator

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/Octogonapus/BenchLab/profile"
	"github.com/Octogonapus/BenchLab/report"
	systemmonitor "github.com/Octogonapus/BenchLab/system_monitor"
	"github.com/Octogonapus/BenchLab/target"
	"github.com/Octogonapus/BenchLab/util"
)

type RunnerOptions struct {
	Target           target.Target // sampled by the system monitor
	Monitor          bool
	Profiler         profile.Profiler // nil disables profiling
	ProfilerKind     profile.ProfilerKind
	ProgressInterval time.Duration
}

type benchmarkRunner struct {
	entry  benchmark.Entry
	params map[string]any
	opts   RunnerOptions
}

// Helps implement a benchmark orchestrator. Handles the progress sink, system monitor and profiler of one test.
// Wrap each planned test in this interface via NewBenchmarkRunner.
type BenchmarkRunner interface {
	// Run the test once. Failures are recorded in the returned report, never returned or panicked.
	Run(rep report.Reporter) *report.TestReport
}

func NewBenchmarkRunner(entry benchmark.Entry, params map[string]any, opts RunnerOptions) BenchmarkRunner {
	if opts.Target == nil {
		opts.Target = target.NewLocalTarget()
	}
	if opts.Profiler == nil {
		opts.ProfilerKind = profile.None
	}
	return &benchmarkRunner{entry: entry, params: params, opts: opts}
}

func (br *benchmarkRunner) Run(rep report.Reporter) *report.TestReport {
	e := br.entry
	tr := &report.TestReport{
		ID:       e.ID,
		Label:    e.Label,
		Category: e.Category,
		State:    report.Running,
		Metadata: map[string]string{"profiler": string(br.opts.ProfilerKind)},
	}
	slog.Info("starting test", slog.String("id", e.ID))
	rep.OnTestStarted(e.Category, e.ID, e.Label)

	w, err := e.New(br.params)
	if err != nil {
		return br.fail(tr, rep, fmt.Errorf("creating workload failed: %w", err))
	}
	if d, ok := w.(benchmark.InputDescriber); ok {
		tr.Input = util.StructMap(d.Input())
	}

	var sm systemmonitor.SystemMonitor
	if br.opts.Monitor {
		sm = systemmonitor.NewSystemMonitor(br.opts.Target)
		if err := sm.StartMonitoring(); err != nil {
			slog.Warn("starting SystemMonitor failed", slog.String("id", e.ID), slog.String("error", err.Error()))
			sm = nil
		}
	}

	sink := newProgressSink(e.ID, rep, br.opts.ProgressInterval)
	res, err := br.invoke(w, sink, tr)
	sink.detach()

	if sm != nil {
		sm.StopMonitoring()
		sm.WaitUntilStopped()
		tr.SystemMeasurements = sm.GetSystemMeasurements()
	}

	if err != nil {
		return br.fail(tr, rep, err)
	}
	if res == nil {
		return br.fail(tr, rep, &benchmark.Error{Kind: benchmark.KindInternal, Op: "running workload", Err: fmt.Errorf("no result")})
	}

	tr.State = report.Completed
	tr.Result = res
	rep.OnResult(e.Category, res)
	primary := res.Primary()
	slog.Info("finished test",
		slog.String("id", e.ID),
		slog.Float64("seconds", res.Seconds()),
		slog.String(primary.Name, fmt.Sprintf("%.2f %s", primary.Value, primary.Unit)))
	return tr
}

// invoke runs the workload under the profiler, turning a panic into an internal error.
func (br *benchmarkRunner) invoke(w benchmark.Workload, sink benchmark.ProgressSink, tr *report.TestReport) (res benchmark.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("workload panicked", slog.String("id", tr.ID), slog.String("stack", string(debug.Stack())))
			res, err = nil, &benchmark.Error{Kind: benchmark.KindInternal, Op: "running workload", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if br.opts.Profiler == nil {
		return w.Run(sink)
	}
	path, perr := br.opts.Profiler.ProfileTest(tr.ID, func() { res, err = w.Run(sink) })
	if perr != nil {
		slog.Warn("profiling test failed", slog.String("id", tr.ID), slog.String("error", perr.Error()))
	} else {
		tr.Metadata["profilingResultPath"] = path
	}
	return res, err
}

func (br *benchmarkRunner) fail(tr *report.TestReport, rep report.Reporter, err error) *report.TestReport {
	tr.State = report.Failed
	tr.ErrorKind = benchmark.KindOf(err)
	tr.Error = err.Error()
	slog.Error("test failed",
		slog.String("id", tr.ID),
		slog.String("kind", string(tr.ErrorKind)),
		slog.String("error", tr.Error))
	rep.OnTestFailed(tr.Category, tr.ID, tr.ErrorKind, tr.Error)
	return tr
}
