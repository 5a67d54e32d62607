package benchmark

// A ProgressSink receives the completion percentage of a running workload. Implementations must return quickly;
// workloads call Report from their measurement loops.
type ProgressSink interface {
	Report(percent float64)
}

type ProgressFunc func(percent float64)

func (f ProgressFunc) Report(percent float64) { f(percent) }

var NopProgress ProgressSink = ProgressFunc(func(float64) {})

// Percent returns done/total as a percentage in [0, 100].
func Percent(done, total int) float64 {
	if total <= 0 {
		return 100
	}
	return min(max(float64(done)/float64(total)*100, 0), 100)
}
