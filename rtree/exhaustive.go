package rtree

import (
	"errors"

	"golang.org/x/exp/constraints"

	"github.com/hopi-go/hopi/bound"
	"github.com/hopi-go/hopi/multiset"
)

// exhaustiveEntry pairs a stored value with its bound.
type exhaustiveEntry[V any, T constraints.Float] struct {
	bound bound.Box[T]
	value V
}

// Exhaustive is a linear-scan spatial index with the same query surface as
// Tree. It exists as a correctness oracle: slow, but trivially correct,
// since it has no splitting or balancing logic to get wrong.
type Exhaustive[V any, T constraints.Float] struct {
	entries []exhaustiveEntry[V, T]
	equal   func(a, b V) bool
	cached  bound.Box[T]
	hasCached bool
}

// NewExhaustive builds an empty Exhaustive index.
func NewExhaustive[V any, T constraints.Float](equal func(a, b V) bool) *Exhaustive[V, T] {
	return &Exhaustive[V, T]{equal: equal}
}

// Insert adds value, bounded by bb, to the index.
func (x *Exhaustive[V, T]) Insert(value V, bb bound.Box[T]) {
	x.entries = append(x.entries, exhaustiveEntry[V, T]{bound: bb, value: value})
	if !x.hasCached {
		x.cached = bb.Clone()
		x.hasCached = true
	} else {
		x.cached.Stretch(bb)
	}
}

// InsertAll inserts every (value, bound) pair in values.
func (x *Exhaustive[V, T]) InsertAll(values []V, bounds []bound.Box[T]) error {
	if len(values) != len(bounds) {
		return errors.New("rtree: values and bounds have different lengths")
	}
	for i := range values {
		x.Insert(values[i], bounds[i])
	}
	return nil
}

// Remove removes one entry equal to value with bound bb. Reports whether an
// entry was found and removed. The cached overall bound is recomputed from
// scratch, since shrinking it incrementally is not possible in general.
func (x *Exhaustive[V, T]) Remove(value V, bb bound.Box[T]) bool {
	for i, e := range x.entries {
		if bound.Equals(e.bound, bb) && x.equal(e.value, value) {
			x.entries = append(x.entries[:i], x.entries[i+1:]...)
			x.recache()
			return true
		}
	}
	return false
}

func (x *Exhaustive[V, T]) recache() {
	x.hasCached = false
	for _, e := range x.entries {
		if !x.hasCached {
			x.cached = e.bound.Clone()
			x.hasCached = true
		} else {
			x.cached.Stretch(e.bound)
		}
	}
}

// Clear empties the index.
func (x *Exhaustive[V, T]) Clear() {
	x.entries = nil
	x.hasCached = false
}

// Len reports how many values are currently stored.
func (x *Exhaustive[V, T]) Len() int {
	return len(x.entries)
}

// Bounds returns the union of every value's bound. Panics if the index is
// empty.
func (x *Exhaustive[V, T]) Bounds() bound.Box[T] {
	if !x.hasCached {
		panic("rtree: Bounds called on an empty index")
	}
	return x.cached
}

// Query calls visit once for every value whose bound satisfies pred's leaf
// test, scanning every stored entry. Returns the number of values visited.
func (x *Exhaustive[V, T]) Query(pred SpatialPredicate[T], visit func(value V, bb bound.Box[T]) bool) int {
	count := 0
	for _, e := range x.entries {
		if !pred.Leaf(e.bound) {
			continue
		}
		count++
		if !visit(e.value, e.bound) {
			break
		}
	}
	return count
}

// QueryNearest scans every stored entry and keeps the K smallest by
// pred.Leaf, ignoring pred.Node since there is nothing to prune.
func (x *Exhaustive[V, T]) QueryNearest(pred DistancePredicate[T]) []multiset.Item[T, V] {
	if pred.K <= 0 {
		return nil
	}
	top := multiset.New[T, V](pred.K)
	for _, e := range x.entries {
		top.Insert(pred.Leaf(e.bound), e.value)
	}
	return top.Sorted()
}
