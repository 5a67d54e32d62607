package disk

import (
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
)

// randomAccess issues Operations block sized reads or writes at uniformly random offsets of the backing file. The
// file is created zero filled when it doesn't exist yet.
type randomAccess struct {
	params Params
	write  bool
}

func newRandomWrite(p Params) benchmark.Workload { return &randomAccess{params: p, write: true} }
func newRandomRead(p Params) benchmark.Workload  { return &randomAccess{params: p} }

func (w *randomAccess) Input() any { return w.params }

func (w *randomAccess) Run(sink benchmark.ProgressSink) (benchmark.Result, error) {
	file := w.params.backingFile()
	if err := file.ensure(); err != nil {
		return nil, err
	}
	if !w.write && w.params.DropCache {
		if err := dropPageCache(file.path); err != nil {
			slog.Debug("dropping page cache failed", slog.String("error", err.Error()))
		}
	}

	ops := w.params.Operations
	offsets := make([]int64, ops)
	for i := range offsets {
		offsets[i] = rand.Int64N(file.size - int64(file.block) + 1)
	}
	var block []byte
	flag, name, op := os.O_RDONLY, "Random Read", "reading backing file"
	if w.write {
		block = randomBlock(file.block)
		flag, name, op = os.O_WRONLY, "Random Write", "writing backing file"
	} else {
		block = make([]byte, file.block)
	}

	start := time.Now()
	f, err := os.OpenFile(file.path, flag, 0)
	if err != nil {
		return nil, benchmark.ResourceError("opening backing file", err)
	}
	defer f.Close()
	for i, off := range offsets {
		if w.write {
			_, err = f.WriteAt(block, off)
		} else {
			_, err = f.ReadAt(block, off)
		}
		if err != nil {
			return nil, benchmark.ResourceError(op, err)
		}
		sink.Report(benchmark.Percent(i+1, ops))
	}
	if w.write {
		if err := f.Sync(); err != nil {
			return nil, benchmark.ResourceError("syncing backing file", err)
		}
	}
	dur := benchmark.Elapsed(start)

	iops := int(float64(ops) / dur)
	transferred := int64(ops) * int64(file.block)
	return benchmark.DiskResult{
		TestName:         name,
		DurationSec:      dur,
		BytesTransferred: transferred,
		ThroughputMBps:   benchmark.MBps(transferred, dur),
		IOPS:             &iops,
	}, nil
}
