package pipegen

import (
	"fmt"
	"iter"

	"github.com/dcshock/pipegen/config"
	"github.com/dcshock/pipegen/internal/xiter"
)

// RawVariant is one point of the reader × train × stage product, before
// search directives are resolved. Stages holds the chosen candidate for each
// stage, skips included.
type RawVariant struct {
	Reader *config.Object
	Train  *config.Object
	Stages []config.Candidate
}

// Enumerator yields the raw variants of a template. Axes are, in order: the
// dataset readers, the train variants, then one axis per pipe stage holding
// its candidates. The last axis varies fastest.
type Enumerator struct {
	readers []*config.Object
	trains  []*config.Object
	stages  []config.Stage
}

// NewEnumerator checks the template and prepares its axes. Every present
// candidate must carry component_name and dataset_iterator must be a single mapping.
func NewEnumerator(t *config.Template) (*Enumerator, error) {
	if t == nil || t.Chainer == nil {
		return nil, fmt.Errorf("%w: template has no %q component", config.ErrInvalidConfig, config.KeyChainer)
	}
	if t.DatasetIterator == nil {
		return nil, fmt.Errorf("%w: %s must be a single mapping", config.ErrInvalidConfig, config.KeyDatasetIterator)
	}
	if err := t.ValidateComponents(); err != nil {
		return nil, err
	}
	e := &Enumerator{
		trains: TrainVariants(t.Train),
		stages: t.Chainer.Pipe,
	}
	for _, r := range t.DatasetReaders {
		e.readers = append(e.readers, r.Clone())
	}
	return e, nil
}

// TrainVariants explodes a list-valued batch_size into one deep copy of train
// per value. Any other train block yields a single deep copy.
func TrainVariants(train *config.Object) []*config.Object {
	if train == nil {
		return nil
	}
	v, _ := train.Get(config.KeyBatchSize)
	sizes, ok := v.([]any)
	if !ok {
		return []*config.Object{train.Clone()}
	}
	out := make([]*config.Object, 0, len(sizes))
	for _, bs := range sizes {
		c := train.Clone()
		c.Set(config.KeyBatchSize, config.CloneValue(bs))
		out = append(out, c)
	}
	return out
}

// Len returns the number of raw variants: readers × train variants × the
// candidate count of every stage.
func (e *Enumerator) Len() int {
	return xiter.ProductLen(e.axes())
}

func (e *Enumerator) axes() [][]int {
	axes := make([][]int, 0, 2+len(e.stages))
	axes = append(axes, indices(len(e.readers)), indices(len(e.trains)))
	for _, s := range e.stages {
		axes = append(axes, indices(len(s.Candidates)))
	}
	return axes
}

// Variants yields the raw variants in lexicographic order. Reader, Train and
// the candidates are shared with the enumerator; clone before modifying.
func (e *Enumerator) Variants() iter.Seq[RawVariant] {
	return func(yield func(RawVariant) bool) {
		for idx := range xiter.Product(e.axes()) {
			v := RawVariant{
				Reader: e.readers[idx[0]],
				Train:  e.trains[idx[1]],
				Stages: make([]config.Candidate, len(e.stages)),
			}
			for i, c := range idx[2:] {
				v.Stages[i] = e.stages[i].Candidates[c]
			}
			if !yield(v) {
				return
			}
		}
	}
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
