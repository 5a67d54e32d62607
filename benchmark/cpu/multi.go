package cpu

import (
	"crypto/sha256"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/alitto/pond"
)

const hashPrefix = "BenchLab benchmark data"

type multiHash struct{ params Params }

func newMultiHash(p Params) benchmark.Workload { return &multiHash{params: p} }

func (w *multiHash) Input() any { return w.params }

// Run hashes batches of counter-suffixed strings on a fixed size pool until the duration is up. Submit blocks while
// every worker is busy, so at most one batch per worker is in flight when the deadline passes.
func (w *multiHash) Run(sink benchmark.ProgressSink) (benchmark.Result, error) {
	workers := w.params.workers()
	batch := w.params.BatchSize

	return measure(w.params, func() benchmark.CPUResult {
		pool := pond.New(workers, 0, pond.MinWorkers(workers))
		var completed atomic.Int64

		dl := benchmark.NewDeadline(w.params.multiDuration(), 1).Reporting(sink)
		start := time.Now()
		for n := 0; !dl.Passed(); n++ {
			base := n * batch
			pool.Submit(func() {
				hashBatch(base, batch)
				completed.Add(1)
			})
		}
		pool.StopAndWait()
		dur := benchmark.Elapsed(start)

		slog.Debug("multi-core hash finished", slog.Int("workers", workers), slog.Int64("batches", completed.Load()))
		return result("Multi-Core Hash", completed.Load()*int64(batch), dur, 10000, workers)
	}), nil
}

func hashBatch(base, n int) {
	buf := make([]byte, 0, len(hashPrefix)+20)
	for i := range n {
		buf = strconv.AppendInt(append(buf[:0], hashPrefix...), int64(base+i), 10)
		_ = sha256.Sum256(buf)
	}
}
