package search

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/dcshock/pipegen/config"
)

// Search modes registered by DefaultRegistry.
const (
	ModeRandom = "random"
	ModeGrid   = "grid"
)

// DefaultSampleCount is the number of samples per searchable component in random mode.
const DefaultSampleCount = 10

// Strategy expands the stage candidates of one raw variant into concrete
// component lists, one component per present stage. Skipped candidates
// contribute nothing. Every yielded slice and its components are private copies.
type Strategy interface {
	Expand(stages []config.Candidate) iter.Seq[[]config.Component]
}

// Options configures a strategy for one generation run.
type Options struct {
	SampleCount int            // random mode: samples per searchable component
	Seed        uint64         // random mode: sampler seed
	NewSampler  SamplerFactory // random mode: nil uses NewParamSampler
}

// Factory builds a fresh Strategy for one generation run.
type Factory func(opts Options) Strategy

// Registry maps mode names to strategy factories. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the "random" and "grid" modes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ModeRandom, func(opts Options) Strategy {
		newSampler := opts.NewSampler
		if newSampler == nil {
			newSampler = func(seed uint64) Sampler { return NewParamSampler(seed) }
		}
		return NewRandom(opts.SampleCount, newSampler(opts.Seed))
	})
	r.Register(ModeGrid, func(Options) Strategy { return Grid{} })
	return r
}

// Register adds a factory under mode. Overwrites any existing registration.
func (r *Registry) Register(mode string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = make(map[string]Factory)
	}
	r.factories[mode] = f
}

// Get returns the factory for mode, or nil and false if not found.
func (r *Registry) Get(mode string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[mode]
	return f, ok
}

// MustGet returns the factory for mode, or panics if not found.
func (r *Registry) MustGet(mode string) Factory {
	f, ok := r.Get(mode)
	if !ok {
		panic(fmt.Sprintf("search: mode %q not registered", mode))
	}
	return f
}

// Modes returns the registered mode names, sorted.
func (r *Registry) Modes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	modes := make([]string, 0, len(r.factories))
	for m := range r.factories {
		modes = append(modes, m)
	}
	slices.Sort(modes)
	return modes
}

func present(stages []config.Candidate) []config.Component {
	out := make([]config.Component, 0, len(stages))
	for _, c := range stages {
		if comp, ok := c.Component(); ok {
			out = append(out, comp)
		}
	}
	return out
}

func cloneAll(comps []config.Component) []config.Component {
	out := make([]config.Component, len(comps))
	for i, c := range comps {
		out[i] = c.Clone()
	}
	return out
}
