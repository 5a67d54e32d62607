package cpu

import (
	"bytes"
	"strings"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/klauspost/compress/zlib"
)

const compressionLevel = 6

var compressionInput = []byte(strings.Repeat("BenchLab ", 1000))

type compression struct{ params Params }

func newCompression(p Params) benchmark.Workload { return &compression{params: p} }

func (w *compression) Input() any { return w.params }

// Run deflates the same 9000 byte input over and over, reusing one writer.
func (w *compression) Run(sink benchmark.ProgressSink) (benchmark.Result, error) {
	var out bytes.Buffer
	zw, err := zlib.NewWriterLevel(&out, compressionLevel)
	if err != nil {
		return nil, err
	}

	var runErr error
	res := measure(w.params, func() benchmark.CPUResult {
		dl := benchmark.NewDeadline(w.params.multiDuration(), 10).Reporting(sink)
		start := time.Now()
		var ops int64
		for !dl.Passed() {
			out.Reset()
			zw.Reset(&out)
			if _, runErr = zw.Write(compressionInput); runErr != nil {
				break
			}
			if runErr = zw.Close(); runErr != nil {
				break
			}
			ops++
		}
		dur := benchmark.Elapsed(start)
		sinkBytes = out.Bytes()

		res := result("Compression", ops, dur, 1, 1)
		res.Score = benchmark.MBps(ops*int64(len(compressionInput)), dur) / 10
		return res
	})
	if runErr != nil {
		return nil, runErr
	}
	return res, nil
}
