// Package multiset implements a bounded ranking structure that retains only
// the K smallest-keyed elements ever inserted, discarding the rest as soon
// as a better candidate displaces them.
package multiset

import (
	"container/heap"

	"golang.org/x/exp/constraints"
)

// Item pairs a ranking key with an arbitrary payload.
type Item[T constraints.Float, V any] struct {
	Key   T
	Value V
}

// Truncated keeps the K items with the smallest Key ever inserted, where K
// is fixed at construction. Insert is the only mutator; once full, an
// insertion that does not improve on the current worst-kept item is a no-op.
// The zero value is not usable; use New or NewUnbounded.
type Truncated[T constraints.Float, V any] struct {
	k int
	h maxHeap[T, V]
}

// New returns a Truncated retaining at most k items. k must be positive.
func New[T constraints.Float, V any](k int) *Truncated[T, V] {
	if k <= 0 {
		panic("multiset: k must be positive")
	}
	return &Truncated[T, V]{k: k}
}

// NewUnbounded returns a Truncated with no effective cap, useful where the
// caller wants ranking behavior without a fixed truncation point.
func NewUnbounded[T constraints.Float, V any]() *Truncated[T, V] {
	return &Truncated[T, V]{k: int(^uint(0) >> 1)}
}

// Len reports how many items are currently kept.
func (m *Truncated[T, V]) Len() int {
	return len(m.h)
}

// Full reports whether the structure holds k items already.
func (m *Truncated[T, V]) Full() bool {
	return len(m.h) >= m.k
}

// Worst returns the largest key currently kept, and whether one exists.
func (m *Truncated[T, V]) Worst() (T, bool) {
	if len(m.h) == 0 {
		var zero T
		return zero, false
	}
	return m.h[0].Key, true
}

// Insert offers (key, value) for membership. If the structure has fewer
// than k items, it is kept unconditionally. Otherwise it replaces the
// current worst-kept item only if key is smaller, and is dropped otherwise.
// Reports whether the item was kept.
func (m *Truncated[T, V]) Insert(key T, value V) bool {
	item := Item[T, V]{Key: key, Value: value}
	if len(m.h) < m.k {
		heap.Push(&m.h, item)
		return true
	}
	if key >= m.h[0].Key {
		return false
	}
	m.h[0] = item
	heap.Fix(&m.h, 0)
	return true
}

// Sorted drains the structure and returns its items in ascending key order.
// After Sorted, the structure is empty.
func (m *Truncated[T, V]) Sorted() []Item[T, V] {
	n := len(m.h)
	out := make([]Item[T, V], n)
	for i := n - 1; i >= 0; i-- {
		out[i] = heap.Pop(&m.h).(Item[T, V])
	}
	return out
}

// maxHeap is a container/heap max-heap on Key, so the current worst-kept
// item always sits at index 0 and can be displaced in O(log k).
type maxHeap[T constraints.Float, V any] []Item[T, V]

func (h maxHeap[T, V]) Len() int            { return len(h) }
func (h maxHeap[T, V]) Less(i, j int) bool  { return h[i].Key > h[j].Key }
func (h maxHeap[T, V]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap[T, V]) Push(x interface{}) { *h = append(*h, x.(Item[T, V])) }
func (h *maxHeap[T, V]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
