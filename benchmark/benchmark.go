package benchmark

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
)

type Workload interface {
	// Run the workload once. The workload measures its own duration and reports progress to sink. It must not
	// retain sink after returning.
	Run(sink ProgressSink) (Result, error)
}

// InputDescriber is implemented by workloads that expose their decoded parameters. The session report includes
// them next to the result.
type InputDescriber interface {
	Input() any
}

// Factory builds a workload from the parameter section of its category. Missing keys take their defaults.
type Factory func(params map[string]any) (Workload, error)

// Cleanup releases state a category's workloads leave behind. It must succeed when there is nothing to clean up.
type Cleanup func(params map[string]any) error

// Capability reports whether a category can run on this host.
type Capability func(params map[string]any) bool

type Entry struct {
	Category Category
	ID       string // dotted id, e.g. "disk.seq-write"
	Label    string
	New      Factory
}

// Registry is the catalog of workloads. Workload packages register their entries at init time; afterwards the
// registry is only read.
type Registry struct {
	mu           sync.RWMutex
	entries      []Entry
	cleanups     map[Category]Cleanup
	capabilities map[Category]Capability
}

func NewRegistry() *Registry {
	return &Registry{
		cleanups:     map[Category]Cleanup{},
		capabilities: map[Category]Capability{},
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry populated by the workload packages.
func Default() *Registry {
	return defaultRegistry
}

// All workloads must register themselves at package init time so the session orchestrator can find them.
func RegisterWorkload(e Entry) {
	defaultRegistry.Register(e)
}

func RegisterCleanup(c Category, f Cleanup) {
	defaultRegistry.RegisterCleanup(c, f)
}

func RegisterCapability(c Category, f Capability) {
	defaultRegistry.RegisterCapability(c, f)
}

// Register adds e after all entries of the same category. Registering an invalid or duplicate entry is a programming
// error and panics.
func (r *Registry) Register(e Entry) {
	if e.ID == "" || e.New == nil || e.Category.index() == len(AllCategories) {
		panic(fmt.Sprintf("invalid workload entry: %+v", e))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.entries, func(x Entry) bool { return x.ID == e.ID }) {
		panic(fmt.Sprintf("workload %s registered twice", e.ID))
	}
	r.entries = append(r.entries, e)
	slices.SortStableFunc(r.entries, func(a, b Entry) int { return a.Category.index() - b.Category.index() })
}

func (r *Registry) RegisterCleanup(c Category, f Cleanup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups[c] = f
}

func (r *Registry) RegisterCapability(c Category, f Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[c] = f
}

// Entries returns all entries in execution order: by category, then by registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

func (r *Registry) Lookup(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Find(r.entries, func(e Entry) bool { return e.ID == id })
}

func (r *Registry) Cleanup(c Category) (Cleanup, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.cleanups[c]
	return f, ok
}

// Available runs the capability query of c. Categories without one are always available.
func (r *Registry) Available(c Category, params map[string]any) bool {
	r.mu.RLock()
	f, ok := r.capabilities[c]
	r.mu.RUnlock()
	return !ok || f(params)
}

// Resolve turns a selection into an ordered execution plan. When ids is non-empty it selects exactly those tests and
// categories is ignored; ids that match no entry are returned as unresolved. Otherwise every test of the given
// categories is selected, and an empty categories means all of them.
func (r *Registry) Resolve(categories []Category, ids []string) (plan []Entry, unresolved []string) {
	entries := r.Entries()
	if len(ids) > 0 {
		ids = lo.Uniq(ids)
		plan = lo.Filter(entries, func(e Entry, _ int) bool { return lo.Contains(ids, e.ID) })
		unresolved = lo.Filter(ids, func(id string, _ int) bool {
			return !lo.ContainsBy(entries, func(e Entry) bool { return e.ID == id })
		})
		return plan, unresolved
	}
	if len(categories) == 0 {
		categories = AllCategories
	}
	plan = lo.Filter(entries, func(e Entry, _ int) bool { return lo.Contains(categories, e.Category) })
	return plan, nil
}
