package gpu

import (
	"testing"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyParams() map[string]any {
	return map[string]any{
		"iterations":        2,
		"warmup":            1,
		"matrix_size":       8,
		"element_size":      64,
		"memory_mb":         1,
		"memory_iterations": 2,
		"conv_batch":        1,
		"conv_image":        8,
		"embed":             8,
		"heads":             2,
		"seq_len":           4,
		"batch":             2,
		"inference_image":   16,
		"allow_host":        true,
	}
}

func TestUnavailableWithoutAccelerator(t *testing.T) {
	if acceleratorPresent() {
		t.Skip("accelerator present")
	}
	assert.False(t, Available(nil))
	assert.False(t, benchmark.Default().Available(benchmark.GPU, nil))
	assert.True(t, Available(map[string]any{"allow_host": true}))

	raw := tinyParams()
	raw["allow_host"] = false
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w, err := tt.factory(raw)
			require.NoError(t, err)
			_, err = w.Run(benchmark.NopProgress)
			require.Error(t, err)
			assert.ErrorIs(t, err, benchmark.ErrCapabilityUnavailable)
			assert.Equal(t, benchmark.KindCapabilityUnavailable, benchmark.KindOf(err))
		})
	}
}

func TestHostEngine(t *testing.T) {
	if acceleratorPresent() {
		t.Skip("accelerator present")
	}
	for _, id := range []string{"gpu.matrix", "gpu.element", "gpu.memory", "gpu.conv", "gpu.transformer", "gpu.inference"} {
		t.Run(id, func(t *testing.T) {
			entry, ok := benchmark.Default().Lookup(id)
			require.True(t, ok)
			w, err := entry.New(tinyParams())
			require.NoError(t, err)

			var reports []float64
			res, err := w.Run(benchmark.ProgressFunc(func(p float64) { reports = append(reports, p) }))
			require.NoError(t, err)
			r := res.(benchmark.GPUResult)
			assert.Equal(t, "host (gorgonia)", r.Device)
			assert.Greater(t, r.DurationSec, 0.0)
			assert.Positive(t, r.Operations)
			assert.Positive(t, r.Score)
			assert.Equal(t, 100.0, reports[len(reports)-1])
		})
	}
}

func TestScores(t *testing.T) {
	p, err := ParseParams(tinyParams())
	require.NoError(t, err)

	score, gflops := matrixScore(p, 10, 1)
	assert.InDelta(t, 2*512*10/1e9, gflops, 1e-12)
	assert.InDelta(t, gflops/100, score, 1e-12)

	score, gflops = rateScore(50)(p, 10, 2)
	assert.Equal(t, 250.0, score)
	assert.Zero(t, gflops)

	score, _ = bandwidthScore(p, 2, 1)
	assert.InDelta(t, 4.0/1024, score, 1e-12)

	assert.Equal(t, 1, half(p))
	assert.Equal(t, 4, pooledSize(8))
	assert.Equal(t, 112, pooledSize(224))
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), p)
	assert.False(t, p.AllowHost)

	for _, raw := range []map[string]any{
		{"matrix_size": 0},
		{"warmup": -1},
		{"embed": 10, "heads": 3},
		{"inference_image": 4},
	} {
		_, err := ParseParams(raw)
		assert.ErrorIs(t, err, benchmark.ErrInvalidParameters, "%v", raw)
	}
}
