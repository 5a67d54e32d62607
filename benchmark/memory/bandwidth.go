package memory

import (
	"math/rand/v2"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
)

type sequentialRead struct{ params Params }

func newSequentialRead(p Params) benchmark.Workload { return &sequentialRead{params: p} }

func (w *sequentialRead) Input() any { return w.params }

func (w *sequentialRead) Run(progress benchmark.ProgressSink) (benchmark.Result, error) {
	buf := filled(w.params.elements())
	iters := w.params.Iterations

	start := time.Now()
	for i := range iters {
		sink += sum(buf)
		progress.Report(benchmark.Percent(i+1, iters))
	}
	dur := benchmark.Elapsed(start)

	return result("Sequential Read", w.params.bytes()*int64(iters), dur, 1, w.params.bytes()), nil
}

type sequentialWrite struct{ params Params }

func newSequentialWrite(p Params) benchmark.Workload { return &sequentialWrite{params: p} }

func (w *sequentialWrite) Input() any { return w.params }

// Run allocates a fresh buffer on every pass and writes each element, so page faults are part of the cost.
func (w *sequentialWrite) Run(progress benchmark.ProgressSink) (benchmark.Result, error) {
	n := w.params.elements()
	iters := w.params.Iterations

	start := time.Now()
	for i := range iters {
		buf := make([]float64, n)
		for j := range buf {
			buf[j] = float64(j)
		}
		sink += buf[n-1]
		progress.Report(benchmark.Percent(i+1, iters))
	}
	dur := benchmark.Elapsed(start)

	return result("Sequential Write", w.params.bytes()*int64(iters), dur, 1, w.params.bytes()), nil
}

type randomAccess struct{ params Params }

func newRandomAccess(p Params) benchmark.Workload { return &randomAccess{params: p} }

func (w *randomAccess) Input() any { return w.params }

// Run reads Accesses uniformly random elements. The indices are generated before the clock starts.
func (w *randomAccess) Run(progress benchmark.ProgressSink) (benchmark.Result, error) {
	buf := filled(w.params.elements())
	indices := make([]int, w.params.Accesses)
	for i := range indices {
		indices[i] = rand.IntN(len(buf))
	}

	const reportEvery = 1 << 16
	start := time.Now()
	var s float64
	for i, idx := range indices {
		s += buf[idx]
		if i%reportEvery == 0 {
			progress.Report(benchmark.Percent(i, len(indices)))
		}
	}
	sink += s
	dur := benchmark.Elapsed(start)
	progress.Report(100)

	return result("Random Access", int64(len(indices))*8, dur, 10, w.params.bytes()), nil
}

type memoryCopy struct{ params Params }

func newCopy(p Params) benchmark.Workload { return &memoryCopy{params: p} }

func (w *memoryCopy) Input() any { return w.params }

// Run copies the source into a newly allocated destination on every pass. Each pass reads and writes the buffer.
func (w *memoryCopy) Run(progress benchmark.ProgressSink) (benchmark.Result, error) {
	src := filled(w.params.elements())
	iters := w.params.Iterations

	start := time.Now()
	for i := range iters {
		dst := make([]float64, len(src))
		copy(dst, src)
		sink += dst[len(dst)-1]
		progress.Report(benchmark.Percent(i+1, iters))
	}
	dur := benchmark.Elapsed(start)

	return result("Memory Copy", 2*w.params.bytes()*int64(iters), dur, 1, w.params.bytes()), nil
}
