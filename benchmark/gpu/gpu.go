// Package gpu benchmarks tensor workloads on gorgonia graphs. The tape machine runs on CUDA when the binary is built
// with the cuda tag and an NVIDIA driver is loaded; the host engine only counts as a device when allow_host is set.
package gpu

import (
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/Octogonapus/BenchLab/benchmark"
)

type Params struct {
	Iterations       int  `mapstructure:"iterations"`
	Warmup           int  `mapstructure:"warmup"`
	MatrixSize       int  `mapstructure:"matrix_size"`
	ElementSize      int  `mapstructure:"element_size"`
	MemoryMB         int  `mapstructure:"memory_mb"`
	MemoryIterations int  `mapstructure:"memory_iterations"`
	ConvBatch        int  `mapstructure:"conv_batch"`
	ConvImage        int  `mapstructure:"conv_image"`
	Embed            int  `mapstructure:"embed"`
	Heads            int  `mapstructure:"heads"`
	SeqLen           int  `mapstructure:"seq_len"`
	Batch            int  `mapstructure:"batch"`
	InferenceImage   int  `mapstructure:"inference_image"`
	AllowHost        bool `mapstructure:"allow_host"`
}

func DefaultParams() Params {
	return Params{
		Iterations:       100,
		Warmup:           5,
		MatrixSize:       2048,
		ElementSize:      10_000_000,
		MemoryMB:         500,
		MemoryIterations: 20,
		ConvBatch:        16,
		ConvImage:        224,
		Embed:            512,
		Heads:            8,
		SeqLen:           128,
		Batch:            32,
		InferenceImage:   224,
	}
}

func ParseParams(raw map[string]any) (Params, error) {
	p := DefaultParams()
	if err := benchmark.DecodeParams(raw, &p); err != nil {
		return p, err
	}
	positive := map[string]int{
		"iterations":        p.Iterations,
		"matrix_size":       p.MatrixSize,
		"element_size":      p.ElementSize,
		"memory_mb":         p.MemoryMB,
		"memory_iterations": p.MemoryIterations,
		"conv_batch":        p.ConvBatch,
		"conv_image":        p.ConvImage,
		"embed":             p.Embed,
		"heads":             p.Heads,
		"seq_len":           p.SeqLen,
		"batch":             p.Batch,
	}
	for key, v := range positive {
		if v <= 0 {
			return p, benchmark.ParamErrorf("%s must be positive, got %d", key, v)
		}
	}
	switch {
	case p.Warmup < 0:
		return p, benchmark.ParamErrorf("warmup must not be negative, got %d", p.Warmup)
	case p.Embed%p.Heads != 0:
		return p, benchmark.ParamErrorf("embed %d is not divisible by heads %d", p.Embed, p.Heads)
	case p.InferenceImage < 8:
		return p, benchmark.ParamErrorf("inference_image must be at least 8, got %d", p.InferenceImage)
	}
	return p, nil
}

const nvidiaDriver = "/proc/driver/nvidia/version"

// acceleratorPresent reports whether gorgonia can run on an accelerator in this process.
func acceleratorPresent() bool {
	if !acceleratorBuild || runtime.GOOS != "linux" {
		return false
	}
	v, err := os.ReadFile(nvidiaDriver)
	if err != nil {
		return false
	}
	slog.Debug("nvidia driver", slog.String("version", strings.TrimSpace(strings.SplitN(string(v), "\n", 2)[0])))
	return true
}

// device returns the label of the device the workloads run on, or false when there is none.
func device(p Params) (string, bool) {
	switch {
	case acceleratorPresent():
		return "cuda (gorgonia)", true
	case p.AllowHost:
		return "host (gorgonia)", true
	}
	return "", false
}

// Available is the capability query of the GPU category. Parameters that don't decode count as no host fallback.
func Available(raw map[string]any) bool {
	p, err := ParseParams(raw)
	if err != nil {
		slog.Debug("gpu parameters invalid, ignoring allow_host", slog.String("error", err.Error()))
		p.AllowHost = false
	}
	_, ok := device(p)
	return ok
}

func init() {
	for _, t := range tests {
		benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.GPU, ID: t.id, Label: t.label, New: t.factory})
	}
	benchmark.RegisterCapability(benchmark.GPU, Available)
}
