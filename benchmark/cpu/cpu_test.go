package cpu

import (
	"context"
	"testing"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortParams() map[string]any {
	return map[string]any{
		"duration_seconds":       0.05,
		"multi_duration_seconds": 0.05,
		"workers":                2,
		"batch_size":             100,
		"temperature":            false,
	}
}

func runCPU(t *testing.T, id string, raw map[string]any) benchmark.CPUResult {
	t.Helper()
	entry, ok := benchmark.Default().Lookup(id)
	require.True(t, ok, id)
	w, err := entry.New(raw)
	require.NoError(t, err)
	res, err := w.Run(benchmark.NopProgress)
	require.NoError(t, err)
	return res.(benchmark.CPUResult)
}

func TestWorkloadsRespectDuration(t *testing.T) {
	tests := []struct {
		id    string
		name  string
		cores int
	}{
		{"cpu.single-int", "Single-Core Integer", 1},
		{"cpu.single-float", "Single-Core Float", 1},
		{"cpu.multi", "Multi-Core Hash", 2},
		{"cpu.compress", "Compression", 1},
		{"cpu.crypto", "Cryptography", 1},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			res := runCPU(t, tt.id, shortParams())
			assert.Equal(t, tt.name, res.TestName)
			assert.Equal(t, tt.cores, res.CoresUsed)
			assert.GreaterOrEqual(t, res.DurationSec, 0.05)
			assert.LessOrEqual(t, res.DurationSec, 0.55)
			assert.Positive(t, res.Operations)
			assert.InDelta(t, float64(res.Operations)/res.DurationSec, res.OpsPerSecond, 1e-6)
			assert.Nil(t, res.TemperatureC)
		})
	}
}

func TestScores(t *testing.T) {
	res := runCPU(t, "cpu.single-int", shortParams())
	assert.InDelta(t, res.OpsPerSecond/1000, res.Score, 1e-9)

	res = runCPU(t, "cpu.single-float", shortParams())
	assert.Zero(t, res.Operations%4)
	assert.InDelta(t, res.OpsPerSecond/100000, res.Score, 1e-9)

	res = runCPU(t, "cpu.multi", shortParams())
	assert.Zero(t, res.Operations%100)
	assert.InDelta(t, res.OpsPerSecond/10000, res.Score, 1e-9)

	res = runCPU(t, "cpu.crypto", shortParams())
	assert.Zero(t, res.Operations%3)

	res = runCPU(t, "cpu.compress", shortParams())
	mbps := float64(res.Operations) * 9000 / (1 << 20) / res.DurationSec
	assert.InDelta(t, mbps/10, res.Score, 1e-6)
}

func TestTemperature(t *testing.T) {
	orig := readTemperature
	t.Cleanup(func() { readTemperature = orig })

	raw := shortParams()
	raw["temperature"] = true

	readTemperature = func(context.Context) (float64, bool) { return 0, false }
	assert.Nil(t, runCPU(t, "cpu.crypto", raw).TemperatureC)

	calls := 0
	readTemperature = func(context.Context) (float64, bool) {
		calls++
		return 40 + float64(calls), true
	}
	res := runCPU(t, "cpu.crypto", raw)
	require.NotNil(t, res.TemperatureC)
	assert.Equal(t, 42.0, *res.TemperatureC)
	assert.Equal(t, 2, calls)
}

func TestIsPrime(t *testing.T) {
	primes := []int{}
	for n := range 30 {
		if isPrime(n) {
			primes = append(primes, n)
		}
	}
	assert.Equal(t, []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}, primes)
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), p)
	assert.Positive(t, p.workers())

	for _, raw := range []map[string]any{
		{"duration_seconds": 0},
		{"multi_duration_seconds": -1},
		{"workers": -2},
		{"batch_size": 0},
		{"duration_seconds": "soon"},
	} {
		_, err := ParseParams(raw)
		assert.ErrorIs(t, err, benchmark.ErrInvalidParameters, "%v", raw)
	}
}
