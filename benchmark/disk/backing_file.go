package disk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/Octogonapus/BenchLab/benchmark"
)

type backingFile struct {
	path  string
	size  int64
	block int
}

// blocks is the number of whole blocks in the file. A remainder smaller than one block is never touched.
func (b backingFile) blocks() int {
	return int(b.size / int64(b.block))
}

func (b backingFile) residual() int64 {
	return b.size % int64(b.block)
}

func (b backingFile) exists() (bool, error) {
	_, err := os.Stat(b.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, benchmark.ResourceError("checking backing file", err)
}

// ensure makes the file at least size bytes long, zero filling whatever is missing.
func (b backingFile) ensure() error {
	var have int64
	if info, err := os.Stat(b.path); err == nil {
		have = info.Size()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return benchmark.ResourceError("checking backing file", err)
	}
	if have >= b.size {
		return nil
	}
	if err := checkFreeSpace(filepath.Dir(b.path), b.size-have); err != nil {
		return err
	}

	f, err := os.OpenFile(b.path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return benchmark.ResourceError("creating backing file", err)
	}
	defer f.Close()

	zeros := make([]byte, max(b.block, 1<<20))
	for off := have; off < b.size; {
		n := int(min(int64(len(zeros)), b.size-off))
		if _, err := f.WriteAt(zeros[:n], off); err != nil {
			return benchmark.ResourceError("zero filling backing file", err)
		}
		off += int64(n)
	}
	if err := f.Sync(); err != nil {
		return benchmark.ResourceError("syncing backing file", err)
	}
	return f.Close()
}

func (b backingFile) String() string {
	return fmt.Sprintf("%s (%d bytes)", b.path, b.size)
}

func randomBlock(size int) []byte {
	block := make([]byte, size+8)
	for i := 0; i < size; i += 8 {
		binary.LittleEndian.PutUint64(block[i:], rand.Uint64())
	}
	return block[:size]
}
