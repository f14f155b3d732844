// Package priority implements the join-priority scheduler: a pure policy
// function deciding the order in which a nonterminal's child diagrams are
// combined into a product, ranking candidates by live node count for the
// smallest/biggest-pair policies.
package priority

import "sort"

// Policy names the four join-priority strategies.
type Policy int

const (
	FCFS Policy = iota
	Arbitrary
	SmallestPair
	BiggestPair
)

// Sized is anything the scheduler can rank by current node count, enough
// information to run the smallest/biggest-pair policies without coupling
// this package to a specific diagram backend.
type Sized interface {
	NodeCount() int
}

// Combine runs policy over items, calling combine(a, b) whenever two items
// are merged, and returns the single remaining item. Ties in node count
// are broken by insertion order, so runs stay reproducible under a fixed
// random seed.
func Combine[T Sized](policy Policy, items []T, combine func(a, b T) T) T {
	switch policy {
	case FCFS, Arbitrary:
		acc := items[0]
		for _, item := range items[1:] {
			acc = combine(acc, item)
		}
		return acc
	case SmallestPair:
		return combinePaired(items, combine, true)
	case BiggestPair:
		return combinePaired(items, combine, false)
	default:
		acc := items[0]
		for _, item := range items[1:] {
			acc = combine(acc, item)
		}
		return acc
	}
}

// combinePaired repeatedly pops the two extreme-sized items (smallest pair
// when smallest is true, biggest pair otherwise), combines them, and
// reinserts the result, until one item remains.
func combinePaired[T Sized](items []T, combine func(a, b T) T, smallest bool) T {
	pool := make([]T, len(items))
	copy(pool, items)

	for len(pool) > 1 {
		sort.SliceStable(pool, func(i, j int) bool {
			if smallest {
				return pool[i].NodeCount() < pool[j].NodeCount()
			}
			return pool[i].NodeCount() > pool[j].NodeCount()
		})
		a, b := pool[0], pool[1]
		rest := append([]T{}, pool[2:]...)
		pool = append(rest, combine(a, b))
	}
	return pool[0]
}
