package memory

import (
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/Octogonapus/BenchLab/util"
)

type Params struct {
	SizeMB               int     `mapstructure:"size_mb"`
	Iterations           int     `mapstructure:"iterations"`
	Accesses             int     `mapstructure:"accesses"` // random access test only
	CacheDurationSeconds float64 `mapstructure:"cache_duration_seconds"`
}

func DefaultParams() Params {
	return Params{
		SizeMB:               100,
		Iterations:           10,
		Accesses:             1_000_000,
		CacheDurationSeconds: 5,
	}
}

func ParseParams(raw map[string]any) (Params, error) {
	p := DefaultParams()
	if err := benchmark.DecodeParams(raw, &p); err != nil {
		return p, err
	}
	switch {
	case p.SizeMB <= 0:
		return p, benchmark.ParamErrorf("size_mb must be positive, got %d", p.SizeMB)
	case p.Iterations <= 0:
		return p, benchmark.ParamErrorf("iterations must be positive, got %d", p.Iterations)
	case p.Accesses <= 0:
		return p, benchmark.ParamErrorf("accesses must be positive, got %d", p.Accesses)
	case p.CacheDurationSeconds <= 0:
		return p, benchmark.ParamErrorf("cache_duration_seconds must be positive, got %v", p.CacheDurationSeconds)
	}
	return p, nil
}

func (p Params) bytes() int64                 { return int64(p.SizeMB) * benchmark.MiB }
func (p Params) elements() int                { return int(p.bytes() / 8) }
func (p Params) cacheDuration() time.Duration { return benchmark.Seconds(p.CacheDurationSeconds) }

func init() {
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.Memory, ID: "mem.seq-read", Label: "Sequential read", New: factory(newSequentialRead)})
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.Memory, ID: "mem.seq-write", Label: "Sequential write", New: factory(newSequentialWrite)})
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.Memory, ID: "mem.random", Label: "Random access", New: factory(newRandomAccess)})
	for _, tier := range cacheTiers {
		benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.Memory, ID: tier.id, Label: tier.name + " cache", New: factory(tier.workload)})
	}
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.Memory, ID: "mem.copy", Label: "Memory copy", New: factory(newCopy)})
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

func result(name string, bytes int64, seconds float64, scale float64, buffer int64) benchmark.MemoryResult {
	gbps := benchmark.GBps(bytes, seconds)
	return benchmark.MemoryResult{
		TestName:         name,
		DurationSec:      seconds,
		BytesTransferred: bytes,
		BandwidthGBps:    gbps,
		Score:            gbps * scale,
		BufferSize:       util.SizeLabel(buffer),
	}
}

// Loads from the timed loops are accumulated here so the compiler can't drop them.
var sink float64

func sum(buf []float64) float64 {
	var s float64
	for _, v := range buf {
		s += v
	}
	return s
}

func filled(n int) []float64 {
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = float64(i)
	}
	return buf
}
