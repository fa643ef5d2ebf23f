package pipegen

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dcshock/pipegen/config"
	"github.com/dcshock/pipegen/internal/xiter"
	"github.com/dcshock/pipegen/search"
)

// Options configures a Generator. Only SaveRoot is required.
type Options struct {
	SaveRoot    string // root of every rewritten save_path/load_path; ~ is expanded
	Mode        string // search mode; empty means search.ModeRandom
	SampleCount int    // random mode: samples per searchable component; 0 means search.DefaultSampleCount
	Seed        uint64 // random mode: sampler seed; 0 means search.DefaultSeed
	TestMode    bool   // place outputs under <root>/tmp

	Registry   *search.Registry      // nil uses search.DefaultRegistry()
	NewSampler search.SamplerFactory // nil uses search.NewParamSampler
}

// Generator produces the concrete pipeline configurations of a template.
type Generator struct {
	tmpl     *config.Template
	enum     *Enumerator
	strategy search.Factory
	search   search.Options
	mode     string
	saveRoot string
	testMode bool
	length   int
}

// New validates t and builds a generator over a private copy of it. Checks run
// in this order: chainer present, dataset_iterator a single mapping, search
// mode registered, component_name on every candidate, then the remaining
// sections. All of them fail with an error wrapping config.ErrInvalidConfig.
//
// The number of configurations is computed here by draining one run, so New
// costs a full generation pass.
func New(t *config.Template, opts Options) (*Generator, error) {
	if t == nil || t.Chainer == nil {
		return nil, fmt.Errorf("%w: template has no %q component; structure search cannot start without it",
			config.ErrInvalidConfig, config.KeyChainer)
	}
	if t.DatasetIterator == nil {
		return nil, fmt.Errorf("%w: %s must be a single mapping for the whole experiment",
			config.ErrInvalidConfig, config.KeyDatasetIterator)
	}

	reg := opts.Registry
	if reg == nil {
		reg = search.DefaultRegistry()
	}
	mode := opts.Mode
	if mode == "" {
		mode = search.ModeRandom
	}
	factory, ok := reg.Get(mode)
	if !ok {
		return nil, fmt.Errorf("%w: %q search is not implemented; available modes: %s",
			config.ErrInvalidConfig, mode, strings.Join(reg.Modes(), ", "))
	}

	tmpl := t.Clone()
	enum, err := NewEnumerator(tmpl)
	if err != nil {
		return nil, err
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	if opts.SampleCount < 0 {
		return nil, fmt.Errorf("%w: sample count must be positive, got %d", config.ErrInvalidConfig, opts.SampleCount)
	}
	if opts.SaveRoot == "" {
		return nil, errors.New("pipegen: save root is required")
	}
	root, err := config.ExpandPath(opts.SaveRoot)
	if err != nil {
		return nil, fmt.Errorf("pipegen: save root: %w", err)
	}

	g := &Generator{
		tmpl:     tmpl,
		enum:     enum,
		strategy: factory,
		search: search.Options{
			SampleCount: opts.SampleCount,
			Seed:        opts.Seed,
			NewSampler:  opts.NewSampler,
		},
		mode:     mode,
		saveRoot: root,
		testMode: opts.TestMode,
	}
	if g.search.SampleCount == 0 {
		g.search.SampleCount = search.DefaultSampleCount
	}
	if g.search.Seed == 0 {
		g.search.Seed = search.DefaultSeed
	}
	g.length = xiter.Count(g.Configs())
	return g, nil
}

// Len returns the number of configurations every run of Configs yields.
func (g *Generator) Len() int { return g.length }

// Mode returns the search mode in use.
func (g *Generator) Mode() string { return g.mode }

// SaveRoot returns the expanded save root.
func (g *Generator) SaveRoot() string { return g.saveRoot }

// Configs returns a lazy sequence over all configurations. Each call starts a
// new run with its own strategy, sampler and counter, so repeated calls yield
// identical sequences. Every yielded config is a private deep copy.
func (g *Generator) Configs() iter.Seq[*PipelineConfig] {
	return func(yield func(*PipelineConfig) bool) {
		strategy := g.strategy(g.search)
		n := 0
		for v := range g.enum.Variants() {
			dataPath, _ := v.Reader.String(config.KeyDataPath)
			dataset := config.LastSegment(dataPath)
			for comps := range strategy.Expand(v.Stages) {
				cfg := g.assemble(v, comps, n, dataset)
				n++
				if !yield(cfg) {
					return
				}
			}
		}
	}
}

func (g *Generator) assemble(v RawVariant, comps []config.Component, n int, dataset string) *PipelineConfig {
	return &PipelineConfig{
		Index:           n,
		DatasetName:     dataset,
		DatasetReader:   v.Reader.Clone(),
		DatasetIterator: g.tmpl.DatasetIterator.Clone(),
		Chainer:         g.tmpl.Chainer.Raw.Clone(),
		Pipe:            RewritePaths(comps, n, g.saveRoot, dataset, g.testMode),
		Train:           v.Train.Clone(),
		Metadata:        g.tmpl.Metadata.Clone(),
	}
}
