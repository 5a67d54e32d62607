// Package console renders a benchmark session in the terminal.
package console

import (
	"fmt"
	"io"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/Octogonapus/BenchLab/report"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	faint = color.New(color.Faint)
)

type failure struct {
	testID  string
	kind    benchmark.ErrorKind
	message string
}

// Reporter prints one progress bar per test, each outcome as it happens, and a summary table per category at the
// end of the session.
type Reporter struct {
	out          io.Writer
	showProgress bool
	bar          *progressbar.ProgressBar
	current      string
	failures     []failure
}

var _ report.Reporter = (*Reporter)(nil)

func New(out io.Writer, showProgress bool) *Reporter {
	return &Reporter{out: out, showProgress: showProgress}
}

func (r *Reporter) OnTestStarted(category benchmark.Category, testID, label string) {
	r.current = testID
	if !r.showProgress {
		faint.Fprintf(r.out, "running %s (%s)\n", label, testID)
		return
	}
	r.bar = progressbar.NewOptions(100,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(fmt.Sprintf("[%s] %s", category, label)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *Reporter) OnProgress(testID string, percent float64) {
	if r.bar == nil || testID != r.current {
		return
	}
	_ = r.bar.Set(int(percent))
}

func (r *Reporter) finishBar() {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

func (r *Reporter) OnResult(category benchmark.Category, result benchmark.Result) {
	r.finishBar()
	primary := result.Primary()
	green.Fprint(r.out, "✓ ")
	fmt.Fprintf(r.out, "%-24s %s %s  (%.2fs)\n", result.Name(), formatFloat(primary.Value), primary.Unit, result.Seconds())
}

func (r *Reporter) OnTestFailed(category benchmark.Category, testID string, kind benchmark.ErrorKind, message string) {
	r.finishBar()
	r.failures = append(r.failures, failure{testID: testID, kind: kind, message: message})
	red.Fprintf(r.out, "✗ %s failed (%s): %s\n", testID, kind, message)
}

func (r *Reporter) OnSessionComplete(results map[benchmark.Category][]benchmark.Result) {
	r.finishBar()
	for _, c := range benchmark.AllCategories {
		if len(results[c]) == 0 {
			continue
		}
		fmt.Fprintln(r.out)
		bold.Fprintf(r.out, "%s results\n", titles[c])
		table := tablewriter.NewWriter(r.out)
		table.Header(headers[c]...)
		for _, res := range results[c] {
			_ = table.Append(row(res)...)
		}
		if err := table.Render(); err != nil {
			red.Fprintf(r.out, "rendering %s table failed: %v\n", c, err)
		}
		fmt.Fprintln(r.out, Summary(c, results[c]))
	}

	if len(r.failures) > 0 {
		fmt.Fprintln(r.out)
		red.Fprintf(r.out, "%d test(s) failed\n", len(r.failures))
		for _, f := range r.failures {
			red.Fprintf(r.out, "  %s: %s\n", f.testID, f.kind)
		}
	}
}

var titles = map[benchmark.Category]string{
	benchmark.Disk:   "Disk",
	benchmark.CPU:    "CPU",
	benchmark.Memory: "Memory",
	benchmark.GPU:    "GPU",
}

var headers = map[benchmark.Category][]any{
	benchmark.Disk:   {"Test", "Throughput", "IOPS", "Transferred", "Time"},
	benchmark.CPU:    {"Test", "Ops/s", "Score", "Cores", "Temperature", "Time"},
	benchmark.Memory: {"Test", "Bandwidth", "Score", "Buffer", "Transferred", "Time"},
	benchmark.GPU:    {"Test", "Ops/s", "Score", "Device", "GFLOPS", "Time"},
}

func row(res benchmark.Result) []any {
	secs := fmt.Sprintf("%.2fs", res.Seconds())
	switch r := res.(type) {
	case benchmark.DiskResult:
		iops := "-"
		if r.IOPS != nil {
			iops = humanize.Comma(int64(*r.IOPS))
		}
		return []any{r.TestName, formatFloat(r.ThroughputMBps) + " MB/s", iops, humanize.IBytes(uint64(r.BytesTransferred)), secs}
	case benchmark.CPUResult:
		temp := "-"
		if r.TemperatureC != nil {
			temp = fmt.Sprintf("%.1f °C", *r.TemperatureC)
		}
		return []any{r.TestName, formatFloat(r.OpsPerSecond), formatFloat(r.Score), r.CoresUsed, temp, secs}
	case benchmark.MemoryResult:
		return []any{r.TestName, formatFloat(r.BandwidthGBps) + " GB/s", formatFloat(r.Score), r.BufferSize, humanize.IBytes(uint64(r.BytesTransferred)), secs}
	case benchmark.GPUResult:
		gflops := "-"
		if r.GFLOPS > 0 {
			gflops = formatFloat(r.GFLOPS)
		}
		return []any{r.TestName, formatFloat(r.OpsPerSecond), formatFloat(r.Score), r.Device, gflops, secs}
	}
	p := res.Primary()
	return []any{res.Name(), formatFloat(p.Value) + " " + p.Unit, "", "", "", secs}
}

// Summary is the averages line printed under a category's table.
func Summary(c benchmark.Category, results []benchmark.Result) string {
	if len(results) == 0 {
		return ""
	}
	var total, temps float64
	var nTemps int
	for _, res := range results {
		switch r := res.(type) {
		case benchmark.DiskResult:
			total += r.ThroughputMBps
		case benchmark.CPUResult:
			total += r.Score
			if r.TemperatureC != nil {
				temps += *r.TemperatureC
				nTemps++
			}
		case benchmark.MemoryResult:
			total += r.BandwidthGBps
		case benchmark.GPUResult:
			total += r.Score
		}
	}
	avg := total / float64(len(results))
	switch c {
	case benchmark.Disk:
		return fmt.Sprintf("Average throughput: %s MB/s", formatFloat(avg))
	case benchmark.CPU:
		line := fmt.Sprintf("Average score: %s", formatFloat(avg))
		if nTemps > 0 {
			line += fmt.Sprintf(", average temperature: %.1f °C", temps/float64(nTemps))
		}
		return line
	case benchmark.Memory:
		return fmt.Sprintf("Average bandwidth: %s GB/s", formatFloat(avg))
	}
	return fmt.Sprintf("Average score: %s", formatFloat(avg))
}

func formatFloat(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}
