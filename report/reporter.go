package report

import "github.com/Octogonapus/BenchLab/benchmark"

// A Reporter observes a session. All methods are called from the goroutine running the session, one test at a time,
// and must return quickly.
type Reporter interface {
	OnTestStarted(category benchmark.Category, testID, label string)
	OnProgress(testID string, percent float64)
	OnResult(category benchmark.Category, result benchmark.Result)
	OnTestFailed(category benchmark.Category, testID string, kind benchmark.ErrorKind, message string)
	OnSessionComplete(results map[benchmark.Category][]benchmark.Result)
}

// NopReporter ignores every event. Embed it to implement only part of Reporter.
type NopReporter struct{}

func (NopReporter) OnTestStarted(benchmark.Category, string, string)                     {}
func (NopReporter) OnProgress(string, float64)                                           {}
func (NopReporter) OnResult(benchmark.Category, benchmark.Result)                        {}
func (NopReporter) OnTestFailed(benchmark.Category, string, benchmark.ErrorKind, string) {}
func (NopReporter) OnSessionComplete(map[benchmark.Category][]benchmark.Result)          {}
