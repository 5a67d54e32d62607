package disk

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/dustin/go-humanize"
	psdisk "github.com/shirou/gopsutil/v4/disk"
)

type Params struct {
	FileSizeMB  int    `mapstructure:"file_size_mb"`
	BlockSizeKB int    `mapstructure:"block_size_kb"`
	Dir         string `mapstructure:"dir"`        // defaults to the system temp dir
	Operations  int    `mapstructure:"operations"` // random access tests only
	DropCache   bool   `mapstructure:"drop_cache"` // evict the file from the page cache before reading
}

func DefaultParams() Params {
	return Params{
		FileSizeMB:  100,
		BlockSizeKB: 4,
		Operations:  1000,
		DropCache:   true,
	}
}

func decodeParams(raw map[string]any) (Params, error) {
	p := DefaultParams()
	if err := benchmark.DecodeParams(raw, &p); err != nil {
		return p, err
	}
	if p.Dir == "" {
		p.Dir = os.TempDir()
	}
	return p, nil
}

func ParseParams(raw map[string]any) (Params, error) {
	p, err := decodeParams(raw)
	if err != nil {
		return p, err
	}
	switch {
	case p.FileSizeMB <= 0:
		return p, benchmark.ParamErrorf("file_size_mb must be positive, got %d", p.FileSizeMB)
	case p.BlockSizeKB <= 0:
		return p, benchmark.ParamErrorf("block_size_kb must be positive, got %d", p.BlockSizeKB)
	case int64(p.BlockSizeKB)*1024 > p.fileSize():
		return p, benchmark.ParamErrorf("block size %d KB exceeds file size %d MB", p.BlockSizeKB, p.FileSizeMB)
	case p.Operations <= 0:
		return p, benchmark.ParamErrorf("operations must be positive, got %d", p.Operations)
	}
	return p, nil
}

func (p Params) fileSize() int64 { return int64(p.FileSizeMB) * benchmark.MiB }
func (p Params) blockSize() int  { return p.BlockSizeKB * 1024 }

func (p Params) backingFile() backingFile {
	return backingFile{path: BackingFilePath(p.Dir), size: p.fileSize(), block: p.blockSize()}
}

// BackingFilePath is the file the disk tests of this process share inside dir.
func BackingFilePath(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("benchlab_%d.tmp", os.Getpid()))
}

func init() {
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.Disk, ID: "disk.seq-write", Label: "Sequential write", New: factory(newSequentialWrite)})
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.Disk, ID: "disk.seq-read", Label: "Sequential read", New: factory(newSequentialRead)})
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.Disk, ID: "disk.rand-write", Label: "Random write", New: factory(newRandomWrite)})
	benchmark.RegisterWorkload(benchmark.Entry{Category: benchmark.Disk, ID: "disk.rand-read", Label: "Random read", New: factory(newRandomRead)})
	benchmark.RegisterCleanup(benchmark.Disk, Cleanup)
}

func factory(build func(Params) benchmark.Workload) benchmark.Factory {
	return func(raw map[string]any) (benchmark.Workload, error) {
		p, err := ParseParams(raw)
		if err != nil {
			return nil, err
		}
		return build(p), nil
	}
}

// Cleanup removes the backing file. Removing a file that doesn't exist is not an error.
func Cleanup(raw map[string]any) error {
	p, err := decodeParams(raw)
	if err != nil {
		return err
	}
	path := BackingFilePath(p.Dir)
	err = os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return benchmark.ResourceError("removing backing file", err)
	}
	if err == nil {
		slog.Debug("removed backing file", slog.String("path", path))
	}
	return nil
}

// checkFreeSpace fails early when dir can't hold need more bytes. Errors from the check itself are ignored; the
// write that follows reports them properly.
func checkFreeSpace(dir string, need int64) error {
	usage, err := psdisk.Usage(dir)
	if err != nil {
		slog.Debug("free space check failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return nil
	}
	if need > 0 && usage.Free < uint64(need) {
		return benchmark.ResourceError("checking free space", fmt.Errorf("%s has %s free, need %s",
			dir, humanize.IBytes(usage.Free), humanize.IBytes(uint64(need))))
	}
	return nil
}
