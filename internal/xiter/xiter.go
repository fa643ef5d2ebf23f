// Package xiter holds iterator helpers shared by the enumerator and the search strategies.
package xiter

import "iter"

// Product yields the Cartesian product of axes in nested lexicographic order:
// the last axis varies fastest. Each yielded slice is freshly allocated and
// owned by the caller. No axes yield a single empty tuple; an empty axis
// yields nothing.
func Product[T any](axes [][]T) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		for _, axis := range axes {
			if len(axis) == 0 {
				return
			}
		}
		idx := make([]int, len(axes))
		for {
			tuple := make([]T, len(axes))
			for i, axis := range axes {
				tuple[i] = axis[idx[i]]
			}
			if !yield(tuple) {
				return
			}
			i := len(axes) - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < len(axes[i]) {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}

// ProductLen returns the number of tuples Product(axes) yields.
func ProductLen[T any](axes [][]T) int {
	n := 1
	for _, axis := range axes {
		n *= len(axis)
	}
	return n
}

// Count returns how many values are yielded by a sequence.
func Count[T any](seq iter.Seq[T]) int {
	n := 0
	for range seq {
		n++
	}
	return n
}
