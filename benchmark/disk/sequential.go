package disk

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/cespare/xxhash/v2"
)

type sequentialWrite struct{ params Params }

func newSequentialWrite(p Params) benchmark.Workload { return &sequentialWrite{params: p} }

func (w *sequentialWrite) Input() any { return w.params }

// Run writes the backing file front to back, one block at a time, and fsyncs it before the clock stops.
func (w *sequentialWrite) Run(sink benchmark.ProgressSink) (benchmark.Result, error) {
	file := w.params.backingFile()
	if err := checkFreeSpace(w.params.Dir, file.size); err != nil {
		return nil, err
	}
	if r := file.residual(); r != 0 {
		slog.Warn("file size is not a multiple of the block size, the remainder is not written",
			slog.Int64("remainder", r))
	}

	block := randomBlock(file.block)
	blocks := file.blocks()
	digest := xxhash.New()

	start := time.Now()
	f, err := os.OpenFile(file.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, benchmark.ResourceError("creating backing file", err)
	}
	for i := range blocks {
		if _, err := f.Write(block); err != nil {
			f.Close()
			return nil, benchmark.ResourceError("writing backing file", err)
		}
		digest.Write(block)
		sink.Report(benchmark.Percent(i+1, blocks))
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, benchmark.ResourceError("syncing backing file", err)
	}
	if err := f.Close(); err != nil {
		return nil, benchmark.ResourceError("closing backing file", err)
	}
	dur := benchmark.Elapsed(start)

	written := int64(blocks) * int64(file.block)
	slog.Debug("wrote backing file", slog.String("file", file.String()), slog.Float64("seconds", dur))
	return benchmark.DiskResult{
		TestName:         "Sequential Write",
		DurationSec:      dur,
		BytesTransferred: written,
		ThroughputMBps:   benchmark.MBps(written, dur),
		Checksum:         digest.Sum64(),
	}, nil
}

type sequentialRead struct{ params Params }

func newSequentialRead(p Params) benchmark.Workload { return &sequentialRead{params: p} }

func (w *sequentialRead) Input() any { return w.params }

// Run reads the backing file front to back. The file must already exist; a short file is read to its end.
func (w *sequentialRead) Run(sink benchmark.ProgressSink) (benchmark.Result, error) {
	file := w.params.backingFile()
	ok, err := file.exists()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, benchmark.PreconditionError("reading backing file",
			fmt.Errorf("%s does not exist, run disk.seq-write first", file.path))
	}
	if w.params.DropCache {
		if err := dropPageCache(file.path); err != nil {
			slog.Debug("dropping page cache failed", slog.String("error", err.Error()))
		}
	}

	buf := make([]byte, file.block)
	blocks := file.blocks()
	digest := xxhash.New()
	var read int64

	start := time.Now()
	f, err := os.Open(file.path)
	if err != nil {
		return nil, benchmark.ResourceError("opening backing file", err)
	}
	defer f.Close()
	for i := range blocks {
		n, err := io.ReadFull(f, buf)
		read += int64(n)
		digest.Write(buf[:n])
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, benchmark.ResourceError("reading backing file", err)
		}
		sink.Report(benchmark.Percent(i+1, blocks))
	}
	dur := benchmark.Elapsed(start)

	return benchmark.DiskResult{
		TestName:         "Sequential Read",
		DurationSec:      dur,
		BytesTransferred: read,
		ThroughputMBps:   benchmark.MBps(read, dur),
		Checksum:         digest.Sum64(),
	}, nil
}
