package systemmonitor

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/Octogonapus/BenchLab/report"
	"github.com/Octogonapus/BenchLab/target"
	"golang.org/x/sync/errgroup"
)

// A SystemMonitor samples host utilization from /proc while a single test runs. Create one per test.
type SystemMonitor interface {
	StartMonitoring() error
	StopMonitoring()
	WaitUntilStopped()
	GetSystemMeasurements() *report.SystemMeasurements
}

type systemMonitor struct {
	target   target.Target
	layout   diskstatLayout
	interval time.Duration
	cancel   context.CancelFunc
	group    *errgroup.Group
	sm       *report.SystemMeasurements
}

var loopTime = 1 * time.Second
var maxJitter = 1 * time.Second

func NewSystemMonitor(t target.Target) SystemMonitor {
	return &systemMonitor{
		target:   t,
		layout:   layoutForKernel(KernelRelease()),
		interval: loopTime,
		sm:       &report.SystemMeasurements{},
	}
}

func (mon *systemMonitor) StartMonitoring() error {
	if runtime.GOOS != "linux" {
		slog.Debug("SystemMonitor: /proc is not available, not sampling", slog.String("os", runtime.GOOS))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	mon.cancel = cancel
	mon.group, ctx = errgroup.WithContext(ctx)
	mon.group.Go(func() error { return mon.runMonitor(ctx) })
	return nil
}

func (mon *systemMonitor) StopMonitoring() {
	if mon.cancel != nil {
		mon.cancel()
	}
}

func (mon *systemMonitor) WaitUntilStopped() {
	if mon.group != nil {
		_ = mon.group.Wait()
	}
}

func (mon *systemMonitor) GetSystemMeasurements() *report.SystemMeasurements {
	return mon.sm
}

func (mon *systemMonitor) runMonitor(ctx context.Context) error {
	ticker := time.NewTicker(mon.interval)
	defer ticker.Stop()

	prevCPU := mon.sample(nil)
	lastWakeTime := time.Now()
	for {
		select {
		case <-ctx.Done():
			// One last sample so that short tests still get a CPU usage delta
			mon.sample(prevCPU)
			slog.Debug("SystemMonitor: stopped")
			return nil
		case <-ticker.C:
		}

		jitterMs := time.Since(lastWakeTime).Milliseconds() - mon.interval.Milliseconds()
		if jitterMs > maxJitter.Milliseconds() {
			slog.Warn("SystemMonitor: jitter exceeded maximum", slog.Int64("jitterMs", jitterMs), slog.Int64("maxJitterMs", maxJitter.Milliseconds()))
		}
		lastWakeTime = time.Now()

		prevCPU = mon.sample(prevCPU)
	}
}

// sample appends one measurement of every metric and returns the CPU counters for the next delta.
func (mon *systemMonitor) sample(prevCPU *cpuTimeStat) *cpuTimeStat {
	buf := mon.readFile("/proc/stat")
	currCPU := parseCPUTimeStat(buf)
	if prevCPU != nil && currCPU != nil {
		mon.appendCPUMetrics(time.Now(), currCPU, prevCPU)
	}

	buf = mon.readFile("/proc/diskstats")
	mon.appendDiskIOMetrics(time.Now(), buf)

	buf = mon.readFile("/proc/meminfo")
	mon.appendMemoryMetrics(time.Now(), buf)

	if currCPU == nil {
		return prevCPU
	}
	return currCPU
}

func (mon *systemMonitor) readFile(path string) []byte {
	buf, err := mon.target.ReadFile(path)
	if err != nil {
		slog.Warn("SystemMonitor: failed to read", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	return buf
}
