package benchmarkorchestrator

import (
	"math"
	"sync"
	"time"

	"github.com/Octogonapus/BenchLab/report"
	"golang.org/x/time/rate"
)

const defaultProgressInterval = 100 * time.Millisecond

// progressSink forwards the progress of one test to the reporter, at most once per interval. The first report at 0
// and the final one at 100 always pass. Reports that go backwards are dropped, as is everything after detach.
type progressSink struct {
	mu       sync.Mutex
	testID   string
	rep      report.Reporter
	limiter  *rate.Limiter
	last     float64
	detached bool
}

func newProgressSink(testID string, rep report.Reporter, interval time.Duration) *progressSink {
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	return &progressSink{
		testID:  testID,
		rep:     rep,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		last:    -1,
	}
}

func (s *progressSink) Report(percent float64) {
	if math.IsNaN(percent) {
		return
	}
	percent = min(max(percent, 0), 100)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached || percent <= s.last {
		return
	}
	if percent != 0 && percent != 100 && !s.limiter.Allow() {
		return
	}
	s.last = percent
	s.rep.OnProgress(s.testID, percent)
}

func (s *progressSink) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
}
