package profile

import (
	"fmt"
	"slices"
	"strings"
)

type Profiler interface {
	// Run fn under the profiler and return the path of the saved profile. testID names the output. fn runs exactly
	// once, also when profiling fails.
	ProfileTest(testID string, fn func()) (string, error)
}

type ProfilerKind string

const (
	None  ProfilerKind = "none"
	Pprof ProfilerKind = "pprof"
)

type ProfilerFactory func(saveDir string) Profiler

var allProfilers map[ProfilerKind]ProfilerFactory

func RegisterProfiler(kind ProfilerKind, factory ProfilerFactory) {
	if allProfilers == nil {
		allProfilers = map[ProfilerKind]ProfilerFactory{
			None: func(string) Profiler { panic("Profiler kind none is reserved and can't be created") },
		}
	}
	allProfilers[kind] = factory
}

func NewProfiler(kind ProfilerKind, saveDir string) (Profiler, error) {
	if kind == None {
		return nil, fmt.Errorf("Profiler kind none is reserved and can't be created")
	}

	factory, ok := allProfilers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown profiler kind: %s", kind)
	}
	return factory(saveDir), nil
}

func ExplainProfilers() string {
	kinds := []string{}
	for kind := range allProfilers {
		kinds = append(kinds, "\""+string(kind)+"\"")
	}
	slices.Sort(kinds)
	return strings.Join(kinds, ", ")
}
