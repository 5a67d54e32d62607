package benchmark

import "time"

const (
	MiB = 1 << 20
	GiB = 1 << 30
)

// MinDuration is the smallest duration a workload reports. Anything that finishes faster than the clock resolution
// is clamped to it so that rates stay finite.
const MinDuration = time.Nanosecond

// Elapsed returns the seconds since start, clamped to MinDuration.
func Elapsed(start time.Time) float64 {
	return max(time.Since(start), MinDuration).Seconds()
}

func PerSecond(count float64, seconds float64) float64 {
	return count / max(seconds, MinDuration.Seconds())
}

func MBps(bytes int64, seconds float64) float64 {
	return PerSecond(float64(bytes)/MiB, seconds)
}

func GBps(bytes int64, seconds float64) float64 {
	return PerSecond(float64(bytes)/GiB, seconds)
}

// Deadline polls the wall clock every n calls to Passed. Tight loops use it to bound the cost of reading the clock.
type Deadline struct {
	start time.Time
	end   time.Time
	every int
	calls int
	sink  ProgressSink
}

func NewDeadline(d time.Duration, every int) *Deadline {
	now := time.Now()
	return &Deadline{start: now, end: now.Add(d), every: max(every, 1)}
}

// Reporting makes d send the elapsed share of its duration to sink whenever it reads the clock.
func (d *Deadline) Reporting(sink ProgressSink) *Deadline {
	d.sink = sink
	return d
}

func (d *Deadline) Passed() bool {
	d.calls++
	if d.calls < d.every {
		return false
	}
	d.calls = 0
	now := time.Now()
	if d.sink != nil {
		total := d.end.Sub(d.start)
		if total <= 0 {
			d.sink.Report(100)
		} else {
			d.sink.Report(min(float64(now.Sub(d.start))/float64(total)*100, 100))
		}
	}
	return !now.Before(d.end)
}

// Seconds converts a floating point number of seconds into a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
