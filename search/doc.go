// Package search expands the hyperparameter search directives of pipeline
// components into concrete components.
//
// Two strategies are registered by default:
//
//   - "random": every component with a random_* directive is sampled
//     SampleCount times by a Sampler; the samples of all stages are combined
//     as a Cartesian product.
//   - "grid": every parameter written as {"grid_search": [...]} becomes one
//     axis; every combination of values is produced.
//
// Strategies are looked up by mode name in a Registry, so callers can add
// their own modes:
//
//	reg := search.DefaultRegistry()
//	reg.Register("first", func(search.Options) search.Strategy { return firstOnly{} })
package search
