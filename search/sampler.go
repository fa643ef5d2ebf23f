package search

import (
	"math"
	"math/rand/v2"

	"github.com/dcshock/pipegen/config"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSeed seeds the sampler when no seed is configured.
const DefaultSeed uint64 = 42

// Sampler resolves the random search directives of a component into one
// concrete sampling. Implementations are deterministic for a given seed.
type Sampler interface {
	Sample(c config.Component) config.Component
}

// SamplerFactory returns a Sampler seeded with seed.
type SamplerFactory func(seed uint64) Sampler

// ParamSampler is the default Sampler. It supports random_bool,
// random_choice and random_range (with "scale": "log" and "discrete": true).
// Not safe for concurrent use.
type ParamSampler struct {
	src *rand.PCG
	rng *rand.Rand
}

// NewParamSampler returns a sampler seeded with seed.
func NewParamSampler(seed uint64) *ParamSampler {
	src := rand.NewPCG(seed, seed)
	return &ParamSampler{src: src, rng: rand.New(src)}
}

// Sample returns a copy of c with every top-level random directive replaced by
// a sampled literal. Other parameters are copied unchanged.
func (s *ParamSampler) Sample(c config.Component) config.Component {
	out := c.Clone()
	for _, p := range c.Params() {
		r, ok := p.Value.(config.RandomSearch)
		if !ok {
			continue
		}
		out.SetLiteral(p.Key, s.sample(r))
	}
	return out
}

func (s *ParamSampler) sample(r config.RandomSearch) any {
	switch r.Kind {
	case config.RandomBool:
		return distuv.Bernoulli{P: 0.5, Src: s.src}.Rand() == 1
	case config.RandomChoice:
		return config.CloneValue(r.Choices[s.rng.IntN(len(r.Choices))])
	case config.RandomRange:
		var v float64
		if r.Log {
			v = math.Exp(distuv.Uniform{Min: math.Log(r.Low), Max: math.Log(r.High), Src: s.src}.Rand())
		} else {
			v = distuv.Uniform{Min: r.Low, Max: r.High, Src: s.src}.Rand()
		}
		if r.Discrete {
			return int(math.Round(v))
		}
		return v
	}
	return nil
}

var _ Sampler = (*ParamSampler)(nil)
