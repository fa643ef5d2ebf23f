package search

import (
	"iter"

	"github.com/dcshock/pipegen/config"
	"github.com/dcshock/pipegen/internal/xiter"
)

// Random samples every searchable component n times and yields the product of
// the per-stage samples: up to n^k lists for k searchable stages.
type Random struct {
	n       int
	sampler Sampler
}

// NewRandom returns a random strategy drawing n samples per searchable
// component from sampler.
func NewRandom(n int, sampler Sampler) *Random {
	return &Random{n: n, sampler: sampler}
}

// Expand implements Strategy. Samples are drawn when Expand is called, so the
// sampler advances once per raw variant regardless of how far the result is consumed.
func (r *Random) Expand(stages []config.Candidate) iter.Seq[[]config.Component] {
	comps := present(stages)
	axes := make([][]config.Component, 0, len(comps))
	for _, comp := range comps {
		if !comp.Searchable() {
			axes = append(axes, []config.Component{comp})
			continue
		}
		samples := make([]config.Component, 0, r.n)
		for i := 0; i < r.n; i++ {
			samples = append(samples, r.sampler.Sample(comp))
		}
		axes = append(axes, samples)
	}
	return func(yield func([]config.Component) bool) {
		for tuple := range xiter.Product(axes) {
			if !yield(cloneAll(tuple)) {
				return
			}
		}
	}
}

var _ Strategy = (*Random)(nil)
