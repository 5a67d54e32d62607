package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
)

type pprofProfiler struct {
	saveDir string
}

func init() {
	RegisterProfiler(Pprof, NewPprof)
}

// NewPprof records a Go CPU profile of each test into saveDir/<test id>.pprof.
func NewPprof(saveDir string) Profiler {
	return &pprofProfiler{saveDir: saveDir}
}

func (p *pprofProfiler) ProfileTest(testID string, fn func()) (string, error) {
	path, stop, err := p.start(testID)
	if err != nil {
		fn()
		return "", err
	}
	defer stop()

	fn()
	slog.Debug("pprof: profile written", slog.String("test", testID), slog.String("path", path))
	return path, nil
}

func (p *pprofProfiler) start(testID string) (string, func(), error) {
	if err := os.MkdirAll(p.saveDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating profile directory failed: %w", err)
	}
	path := filepath.Join(p.saveDir, strings.ReplaceAll(testID, string(filepath.Separator), "_")+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("creating profile file failed: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return "", nil, fmt.Errorf("starting cpu profile failed: %w", err)
	}
	return path, func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}
