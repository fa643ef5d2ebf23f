package search

import (
	"iter"

	"github.com/dcshock/pipegen/config"
	"github.com/dcshock/pipegen/internal/xiter"
)

// Grid yields every combination of grid_search values. Axes are ordered by
// stage, then by parameter order within the component.
type Grid struct{}

type gridSlot struct {
	stage int
	key   string
}

// Expand implements Strategy. With no grid_search parameters it yields the
// components once, unchanged.
func (Grid) Expand(stages []config.Candidate) iter.Seq[[]config.Component] {
	comps := present(stages)
	var (
		slots []gridSlot
		axes  [][]any
	)
	for i, comp := range comps {
		for _, p := range comp.Params() {
			if g, ok := p.Value.(config.GridSearch); ok {
				slots = append(slots, gridSlot{stage: i, key: p.Key})
				axes = append(axes, g.Values)
			}
		}
	}
	return func(yield func([]config.Component) bool) {
		for combo := range xiter.Product(axes) {
			out := cloneAll(comps)
			for k, v := range combo {
				out[slots[k].stage].SetLiteral(slots[k].key, config.CloneValue(v))
			}
			if !yield(out) {
				return
			}
		}
	}
}

var _ Strategy = Grid{}
