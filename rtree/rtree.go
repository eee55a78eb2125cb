// Package rtree implements a generic R-tree spatial index: Guttman's
// insertion, deletion and node-splitting algorithms over an arena of nodes
// addressed by integer handle, plus spatial and best-first nearest-neighbor
// queries driven by predicate closures.
package rtree

import (
	"container/heap"
	"errors"

	"golang.org/x/exp/constraints"

	"github.com/hopi-go/hopi/bound"
	"github.com/hopi-go/hopi/multiset"
)

// Tree is a generic R-tree over values of type V with coordinates of type
// T. The zero value is not usable; construct with New.
type Tree[V any, T constraints.Float] struct {
	engine *engine[V, T]
	equal  func(a, b V) bool
}

// New builds an empty Tree using policy to choose how overfull pages are
// split and sizes to bound their fan-out. equal is used by Remove to match
// a candidate leaf's value against the value being removed.
func New[V any, T constraints.Float](policy SplitPolicy[T], sizes Policy, equal func(a, b V) bool) *Tree[V, T] {
	return &Tree[V, T]{engine: newEngine[V, T](policy, sizes), equal: equal}
}

// NewQuadratic builds an empty Tree using Guttman's QuadraticSplit policy,
// the default the original implementation ships with.
func NewQuadratic[V any, T constraints.Float](sizes Policy, equal func(a, b V) bool) *Tree[V, T] {
	return New[V, T](Quadratic[T]{}, sizes, equal)
}

// Insert adds value, bounded by bb, to the tree.
func (t *Tree[V, T]) Insert(value V, bb bound.Box[T]) {
	t.engine.insertValue(value, bb)
}

// InsertAll inserts every (value, bound) pair in values.
func (t *Tree[V, T]) InsertAll(values []V, bounds []bound.Box[T]) error {
	if len(values) != len(bounds) {
		return errors.New("rtree: values and bounds have different lengths")
	}
	for i := range values {
		t.Insert(values[i], bounds[i])
	}
	return nil
}

// Remove removes every leaf entry equal to value with bound bb. Reports
// whether at least one entry was found and removed.
func (t *Tree[V, T]) Remove(value V, bb bound.Box[T]) bool {
	return t.engine.removeValue(bb, func(v V) bool { return t.equal(v, value) })
}

// RemoveAll calls Remove for each (value, bound) pair in values, returning
// the number of pairs for which at least one entry was removed.
func (t *Tree[V, T]) RemoveAll(values []V, bounds []bound.Box[T]) (int, error) {
	if len(values) != len(bounds) {
		return 0, errors.New("rtree: values and bounds have different lengths")
	}
	removed := 0
	for i := range values {
		if t.Remove(values[i], bounds[i]) {
			removed++
		}
	}
	return removed, nil
}

// Clear empties the tree.
func (t *Tree[V, T]) Clear() {
	t.engine.clear()
}

// Len reports how many values are currently stored.
func (t *Tree[V, T]) Len() int {
	return t.engine.len()
}

// Bounds returns the union of every value's bound. Panics if the tree is
// empty.
func (t *Tree[V, T]) Bounds() bound.Box[T] {
	if t.engine.empty() {
		panic("rtree: Bounds called on an empty tree")
	}
	return t.engine.bounds()
}

// Query performs a breadth-first spatial search, calling visit once for
// every value whose leaf bound satisfies pred. If visit returns false, the
// search stops early. Returns the number of values visited.
func (t *Tree[V, T]) Query(pred SpatialPredicate[T], visit func(value V, bb bound.Box[T]) bool) int {
	if t.engine.empty() {
		return 0
	}
	a := t.engine.a
	count := 0
	queue := []int{a.root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node := a.get(current)
		isLeaf := node.isLeaf
		for _, e := range node.entries {
			if !pred.Test(e.bound, isLeaf) {
				continue
			}
			if isLeaf {
				count++
				if !visit(e.value, e.bound) {
					return count
				}
			} else {
				queue = append(queue, e.child)
			}
		}
	}
	return count
}

// pqItem is one entry in the best-first candidate queue: a node (page or
// leaf) and its distance lower bound under the active DistancePredicate.
type pqItem[T constraints.Float] struct {
	dist T
	node int
}

type candidateHeap[T constraints.Float] []pqItem[T]

func (h candidateHeap[T]) Len() int            { return len(h) }
func (h candidateHeap[T]) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h candidateHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap[T]) Push(x interface{}) { *h = append(*h, x.(pqItem[T])) }
func (h *candidateHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// QueryNearest performs a best-first nearest-neighbor search, returning up
// to pred.K values ranked ascending by pred.Leaf. Every candidate pulled off
// the heap, including a leaf bucket's own entry, is scheduled by pred.Node -
// the only metric that is an admissible lower bound on what lies inside it.
// pred.Leaf is only ever applied to the individual entries inside a leaf
// bucket once that bucket is popped, never to the bucket's own aggregate
// bound: scheduling a bucket by pred.Leaf(bucketBound) would rank it by a
// metric that can overstate the true distance to its nearest entry, letting
// threshold drop below the bucket's real lower bound and prune it even
// though it holds the best remaining candidate.
func (t *Tree[V, T]) QueryNearest(pred DistancePredicate[T]) []multiset.Item[T, V] {
	if t.engine.empty() || pred.K <= 0 {
		return nil
	}
	a := t.engine.a

	candidates := &candidateHeap[T]{}
	heap.Init(candidates)
	rootDist := pred.Node(a.boundOf(a.root))
	heap.Push(candidates, pqItem[T]{dist: rootDist, node: a.root})

	leaves := multiset.New[T, V](pred.K)
	threshold := highest[T]()

	for candidates.Len() > 0 {
		top := heap.Pop(candidates).(pqItem[T])
		if top.dist > threshold {
			continue
		}

		node := a.get(top.node)
		if node.isLeaf {
			for _, e := range node.entries {
				d := pred.Leaf(e.bound)
				if leaves.Insert(d, e.value) && leaves.Full() {
					worst, _ := leaves.Worst()
					threshold = worst
				}
			}
			continue
		}
		for _, e := range node.entries {
			d := pred.Node(e.bound)
			if d <= threshold {
				heap.Push(candidates, pqItem[T]{dist: d, node: e.child})
			}
		}
	}
	return leaves.Sorted()
}
