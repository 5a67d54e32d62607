package cpu

import (
	"math"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
)

const checkEvery = 64

type singleInteger struct{ params Params }

func newSingleInteger(p Params) benchmark.Workload { return &singleInteger{params: p} }

func (w *singleInteger) Input() any { return w.params }

// Run counts primes by trial division, one candidate after the other, until the duration is up.
func (w *singleInteger) Run(sink benchmark.ProgressSink) (benchmark.Result, error) {
	return measure(w.params, func() benchmark.CPUResult {
		dl := benchmark.NewDeadline(w.params.duration(), checkEvery).Reporting(sink)
		start := time.Now()
		var primes int64
		for n := 2; !dl.Passed(); n++ {
			if isPrime(n) {
				primes++
			}
		}
		return result("Single-Core Integer", primes, benchmark.Elapsed(start), 1000, 1)
	}), nil
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

type singleFloat struct{ params Params }

func newSingleFloat(p Params) benchmark.Workload { return &singleFloat{params: p} }

func (w *singleFloat) Input() any { return w.params }

func (w *singleFloat) Run(sink benchmark.ProgressSink) (benchmark.Result, error) {
	return measure(w.params, func() benchmark.CPUResult {
		dl := benchmark.NewDeadline(w.params.duration(), checkEvery*16).Reporting(sink)
		start := time.Now()
		var ops int64
		x := 1.0
		for !dl.Passed() {
			x = math.Sqrt(x + 1)
			x = math.Sin(x) * math.Cos(x)
			x = math.Exp(x / 100)
			x = math.Log(math.Abs(x) + 1)
			ops += 4
		}
		sinkFloat = x
		return result("Single-Core Float", ops, benchmark.Elapsed(start), 100000, 1)
	}), nil
}
