package cpu

import (
	"context"
	"log/slog"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
	systemmonitor "github.com/Octogonapus/BenchLab/system_monitor"
)

type Params struct {
	DurationSeconds      float64 `mapstructure:"duration_seconds"`
	MultiDurationSeconds float64 `mapstructure:"multi_duration_seconds"` // multi-core hash and compression
	Workers              int     `mapstructure:"workers"`                // 0 means one per logical core
	BatchSize            int     `mapstructure:"batch_size"`
	Temperature          bool    `mapstructure:"temperature"`
}

func DefaultParams() Params {
	return Params{
		DurationSeconds:      5,
		MultiDurationSeconds: 10,
		BatchSize:            10000,
		Temperature:          true,
	}
}

func ParseParams(raw map[string]any) (Params, error) {
	p := DefaultParams()
	if err := benchmark.DecodeParams(raw, &p); err != nil {
		return p, err
	}
	switch {
	case p.DurationSeconds <= 0:
		return p, benchmark.ParamErrorf("duration_seconds must be positive, got %v", p.DurationSeconds)
	case p.MultiDurationSeconds <= 0:
		return p, benchmark.ParamErrorf("multi_duration_seconds must be positive, got %v", p.MultiDurationSeconds)
	case p.Workers < 0:
		return p, benchmark.ParamErrorf("workers must not be negative, got %d", p.Workers)
	case p.BatchSize <= 0:
		return p, benchmark.ParamErrorf("batch_size must be positive, got %d", p.BatchSize)
	}
	return p, nil
}

func (p Params) duration() time.Duration      { return benchmark.Seconds(p.DurationSeconds) }
func (p Params) multiDuration() time.Duration { return benchmark.Seconds(p.MultiDurationSeconds) }

func (p Params) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return systemmonitor.LogicalCores()
}

func init() {
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.CPU, ID: "cpu.single-int", Label: "Single-core integer", New: factory(newSingleInteger)})
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.CPU, ID: "cpu.single-float", Label: "Single-core floating point", New: factory(newSingleFloat)})
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.CPU, ID: "cpu.multi", Label: "Multi-core hash", New: factory(newMultiHash)})
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.CPU, ID: "cpu.compress", Label: "Compression", New: factory(newCompression)})
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.CPU, ID: "cpu.crypto", Label: "Cryptography", New: factory(newCrypto)})
}

func factory(build func(Params) benchmark.Workload) benchmark.Factory {
	return func(raw map[string]any) (benchmark.Workload, error) {
		p, err := ParseParams(raw)
		if err != nil {
			return nil, err
		}
		return build(p), nil
	}
}

// readTemperature is swapped out by tests.
var readTemperature = systemmonitor.CPUTemperature

// temperature samples the CPU sensor, returning nil when disabled or unreadable.
func temperature(enabled bool) *float64 {
	if !enabled {
		return nil
	}
	c, ok := readTemperature(context.Background())
	if !ok {
		return nil
	}
	return &c
}

// measure samples the temperature around fn and reports the reading taken afterwards.
func measure(p Params, fn func() benchmark.CPUResult) benchmark.CPUResult {
	if before := temperature(p.Temperature); before != nil {
		slog.Debug("cpu temperature before test", slog.Float64("celsius", *before))
	}
	res := fn()
	res.TemperatureC = temperature(p.Temperature)
	return res
}

// result fills in the derived fields. divisor scales ops/s into the score.
func result(name string, ops int64, seconds float64, divisor float64, cores int) benchmark.CPUResult {
	rate := benchmark.PerSecond(float64(ops), seconds)
	return benchmark.CPUResult{
		TestName:     name,
		DurationSec:  seconds,
		Operations:   ops,
		OpsPerSecond: rate,
		Score:        rate / divisor,
		CoresUsed:    cores,
	}
}

// Results of the timed loops are stored here so the compiler can't drop the work.
var (
	sinkFloat float64
	sinkBytes []byte
)
