package memory

import (
	"testing"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallParams() map[string]any {
	return map[string]any{"size_mb": 1, "iterations": 3, "accesses": 1000, "cache_duration_seconds": 0.02}
}

func runMemory(t *testing.T, id string) benchmark.MemoryResult {
	t.Helper()
	entry, ok := benchmark.Default().Lookup(id)
	require.True(t, ok, id)
	w, err := entry.New(smallParams())
	require.NoError(t, err)

	var reports []float64
	res, err := w.Run(benchmark.ProgressFunc(func(p float64) { reports = append(reports, p) }))
	require.NoError(t, err)
	assert.IsNonDecreasing(t, reports)
	return res.(benchmark.MemoryResult)
}

func TestRegistrationOrder(t *testing.T) {
	ids := []string{}
	for _, e := range benchmark.Default().Entries() {
		if e.Category == benchmark.Memory {
			ids = append(ids, e.ID)
		}
	}
	assert.Equal(t, []string{"mem.seq-read", "mem.seq-write", "mem.random", "mem.l1", "mem.l2", "mem.l3", "mem.copy"}, ids)
}

func TestBandwidthWorkloads(t *testing.T) {
	tests := []struct {
		id    string
		name  string
		bytes int64
		scale float64
	}{
		{"mem.seq-read", "Sequential Read", 3 * benchmark.MiB, 1},
		{"mem.seq-write", "Sequential Write", 3 * benchmark.MiB, 1},
		{"mem.random", "Random Access", 8000, 10},
		{"mem.copy", "Memory Copy", 6 * benchmark.MiB, 1},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			res := runMemory(t, tt.id)
			assert.Equal(t, tt.name, res.TestName)
			assert.Equal(t, tt.bytes, res.BytesTransferred)
			assert.Equal(t, "1 MB", res.BufferSize)
			assert.Greater(t, res.DurationSec, 0.0)
			assert.InDelta(t, float64(tt.bytes)/(1<<30)/res.DurationSec, res.BandwidthGBps, 1e-6)
			assert.InDelta(t, res.BandwidthGBps*tt.scale, res.Score, 1e-6)
		})
	}
}

func TestCacheTiers(t *testing.T) {
	tests := []struct {
		id     string
		name   string
		buffer string
		bytes  int64
	}{
		{"mem.l1", "L1 Cache", "16 KB", 16 << 10},
		{"mem.l2", "L2 Cache", "256 KB", 256 << 10},
		{"mem.l3", "L3 Cache", "8 MB", 8 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			res := runMemory(t, tt.id)
			assert.Equal(t, tt.name, res.TestName)
			assert.Equal(t, tt.buffer, res.BufferSize)
			assert.Positive(t, res.BytesTransferred)
			assert.Zero(t, res.BytesTransferred%tt.bytes, "whole passes only")
			assert.GreaterOrEqual(t, res.DurationSec, 0.02)
			assert.LessOrEqual(t, res.DurationSec, 0.52)
		})
	}
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), p)
	assert.Equal(t, 100*benchmark.MiB/8, p.elements())

	for _, raw := range []map[string]any{
		{"size_mb": 0},
		{"iterations": -1},
		{"accesses": 0},
		{"cache_duration_seconds": 0},
	} {
		_, err := ParseParams(raw)
		assert.ErrorIs(t, err, benchmark.ErrInvalidParameters, "%v", raw)
	}
}
