package memory

import (
	"log/slog"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/cpuid/v2"
)

// cacheTier is a working set small enough to stay in one cache level on any reasonable CPU.
type cacheTier struct {
	id       string
	name     string
	bytes    int64
	detected func() int // size reported by cpuid, -1 or 0 when unknown
}

var cacheTiers = []cacheTier{
	{id: "mem.l1", name: "L1", bytes: 16 << 10, detected: func() int { return cpuid.CPU.Cache.L1D }},
	{id: "mem.l2", name: "L2", bytes: 256 << 10, detected: func() int { return cpuid.CPU.Cache.L2 }},
	{id: "mem.l3", name: "L3", bytes: 8 << 20, detected: func() int { return cpuid.CPU.Cache.L3 }},
}

func (c cacheTier) workload(p Params) benchmark.Workload { return &cacheSweep{params: p, tier: c} }

type cacheSweep struct {
	params Params
	tier   cacheTier
}

func (w *cacheSweep) Input() any { return w.params }

// Run sums the tier's working set over and over until the cache duration is up, counting whole passes.
func (w *cacheSweep) Run(progress benchmark.ProgressSink) (benchmark.Result, error) {
	if detected := w.tier.detected(); detected > 0 {
		slog.Debug("cache sizes",
			slog.String("level", w.tier.name),
			slog.String("detected", humanize.IBytes(uint64(detected))),
			slog.String("working_set", humanize.IBytes(uint64(w.tier.bytes))))
	}

	buf := filled(int(w.tier.bytes / 8))
	dl := benchmark.NewDeadline(w.params.cacheDuration(), 16).Reporting(progress)

	start := time.Now()
	var passes int64
	var s float64
	for !dl.Passed() {
		s += sum(buf)
		passes++
	}
	sink += s
	dur := benchmark.Elapsed(start)

	return result(w.tier.name+" Cache", w.tier.bytes*passes, dur, 1, w.tier.bytes), nil
}
