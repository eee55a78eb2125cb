package rtree

import (
	"golang.org/x/exp/constraints"

	"github.com/hopi-go/hopi/bound"
)

// entry is one child slot of a node. When the owning node is a page, child
// indexes another node in the arena and value is unused; when the owning
// node is a leaf, value holds the stored payload and child is unused.
type entry[V any, T constraints.Float] struct {
	bound bound.Box[T]
	child int
	value V
}

// node is either a page (an internal fan-out node whose entries point at
// other nodes) or a leaf (whose entries hold values directly). Parent is an
// index into the arena, or -1 for the root; there is no parent pointer
// cycle to manage because the whole tree lives in one slice.
type node[V any, T constraints.Float] struct {
	isLeaf  bool
	entries []entry[V, T]
	parent  int
}

func (n *node[V, T]) bounds() []bound.Box[T] {
	bounds := make([]bound.Box[T], len(n.entries))
	for i, e := range n.entries {
		bounds[i] = e.bound
	}
	return bounds
}

// calculateBound returns the union of every entry's bound in n. Panics if n
// has no entries; callers never call this on an empty node.
func (n *node[V, T]) calculateBound() bound.Box[T] {
	u := n.entries[0].bound.Clone()
	for _, e := range n.entries[1:] {
		u.Stretch(e.bound)
	}
	return u
}

// arena is the backing store for every node in a tree, addressed by integer
// handle rather than pointer so that parent back-references never need a
// weak pointer or a cycle-breaking allocator.
type arena[V any, T constraints.Float] struct {
	nodes []node[V, T]
	root  int
}

func newArena[V any, T constraints.Float]() *arena[V, T] {
	return &arena[V, T]{root: -1}
}

func (a *arena[V, T]) empty() bool {
	return a.root == -1
}

// newNode appends a node to the arena and returns its index.
func (a *arena[V, T]) newNode(isLeaf bool) int {
	a.nodes = append(a.nodes, node[V, T]{isLeaf: isLeaf, parent: -1})
	return len(a.nodes) - 1
}

func (a *arena[V, T]) get(i int) *node[V, T] {
	return &a.nodes[i]
}

// boundOf returns the cached bound of the subtree rooted at node i: the
// union of the node's own entries for a non-empty node.
func (a *arena[V, T]) boundOf(i int) bound.Box[T] {
	return a.get(i).calculateBound()
}

func (a *arena[V, T]) isRoot(i int) bool {
	return i == a.root
}

// entryIndexInParent locates which entry of child's parent points back at
// child, so its cached bound can be updated in place.
func (a *arena[V, T]) entryIndexInParent(child int) int {
	parent := a.get(child).parent
	for i, e := range a.get(parent).entries {
		if e.child == child {
			return i
		}
	}
	panic("rtree: parent does not reference child")
}
