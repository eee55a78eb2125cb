package rtree

import (
	"golang.org/x/exp/constraints"

	"github.com/hopi-go/hopi/bound"
)

// engine owns an arena and the split policy and size bounds used to keep it
// balanced. It implements Guttman's insertion, node-splitting and
// condense-tree algorithms in terms of arena handles rather than pointers.
type engine[V any, T constraints.Float] struct {
	a      *arena[V, T]
	policy SplitPolicy[T]
	sizes  Policy
	length int
}

func newEngine[V any, T constraints.Float](policy SplitPolicy[T], sizes Policy) *engine[V, T] {
	return &engine[V, T]{a: newArena[V, T](), policy: policy, sizes: sizes}
}

func (e *engine[V, T]) clear() {
	e.a = newArena[V, T]()
	e.length = 0
}

func (e *engine[V, T]) len() int {
	return e.length
}

func (e *engine[V, T]) empty() bool {
	return e.a.empty()
}

func (e *engine[V, T]) bounds() bound.Box[T] {
	return e.a.boundOf(e.a.root)
}

// heightOf counts the number of page levels between n and the leaves below
// it; a leaf itself has height 0.
func (e *engine[V, T]) heightOf(n int) int {
	h := 0
	for !e.a.get(n).isLeaf {
		n = e.a.get(n).entries[0].child
		h++
	}
	return h
}

// findBestFitInNode picks the child of the page at pageIdx whose bound needs
// the smallest enlargement to hold bb, breaking ties first by smaller area
// then by fewer children.
func (e *engine[V, T]) findBestFitInNode(bb bound.Box[T], pageIdx int) int {
	page := e.a.get(pageIdx)
	best := 0
	bestIncrease := bound.IncreaseToHold(page.entries[0].bound, bb)
	for i := 1; i < len(page.entries); i++ {
		increase := bound.IncreaseToHold(page.entries[i].bound, bb)
		switch {
		case increase < bestIncrease:
			bestIncrease = increase
			best = i
		case increase == bestIncrease:
			area, bestArea := page.entries[i].bound.Area(), page.entries[best].bound.Area()
			if area < bestArea || area == bestArea &&
				len(e.a.get(page.entries[i].child).entries) < len(e.a.get(page.entries[best].child).entries) {
				best = i
			}
		}
	}
	return page.entries[best].child
}

// chooseLeafNode descends from the root to the leaf node that is the best
// geometric fit for bb.
func (e *engine[V, T]) chooseLeafNode(bb bound.Box[T]) int {
	node := e.a.root
	for !e.a.get(node).isLeaf {
		node = e.findBestFitInNode(bb, node)
	}
	return node
}

// propagateBoundUp stretches every ancestor's cached entry bound, up to the
// root, by bb. Used after an insertion into a descendant enlarges it.
func (e *engine[V, T]) propagateBoundUp(n int, bb bound.Box[T]) {
	current := n
	for !e.a.isRoot(current) {
		parent := e.a.get(current).parent
		idx := e.a.entryIndexInParent(current)
		e.a.get(parent).entries[idx].bound.Stretch(bb)
		current = parent
	}
}

// insertValue inserts a new leaf entry carrying value, bounded by bb.
func (e *engine[V, T]) insertValue(value V, bb bound.Box[T]) {
	if e.a.empty() {
		root := e.a.newNode(true)
		e.a.root = root
	}
	e.insertSubtree(entry[V, T]{bound: bb, value: value}, -1)
	e.length++
}

// insertSubtree inserts newEntry as a child of some node at height
// subtreeHeight+1, per Guttman's height-aware reinsertion rule: an entry
// representing a subtree of height H must land as a child of a node whose
// other children are also at height H, so every leaf stays at the same
// depth. subtreeHeight is -1 for a raw leaf value.
func (e *engine[V, T]) insertSubtree(newEntry entry[V, T], subtreeHeight int) {
	node := e.a.root
	for e.heightOf(node) > subtreeHeight+1 {
		node = e.findBestFitInNode(newEntry.bound, node)
	}

	target := e.a.get(node)
	target.entries = append(target.entries, newEntry)
	if !target.isLeaf {
		e.a.get(newEntry.child).parent = node
	}
	e.propagateBoundUp(node, newEntry.bound)

	if len(target.entries) <= e.sizes.Max {
		return
	}
	newNode := e.splitNode(node)
	e.adjustTree(node, newNode)
}

// splitNode splits the node at n into two using the configured SplitPolicy,
// reusing n for one half and allocating a new arena slot for the other.
// Returns the new node's index.
func (e *engine[V, T]) splitNode(n int) int {
	nd := e.a.get(n)
	entries := nd.entries
	bounds := nd.bounds()
	parentBound := nd.calculateBound()

	seedI, seedJ := e.policy.PickSeeds(bounds, parentBound)

	remaining := make([]entry[V, T], 0, len(entries)-2)
	for k, en := range entries {
		if k != seedI && k != seedJ {
			remaining = append(remaining, en)
		}
	}

	entriesA := []entry[V, T]{entries[seedI]}
	entriesB := []entry[V, T]{entries[seedJ]}
	aBound := entries[seedI].bound.Clone()
	bBound := entries[seedJ].bound.Clone()

	for len(remaining) > 0 &&
		len(remaining)+len(entriesA) > e.sizes.Min &&
		len(remaining)+len(entriesB) > e.sizes.Min {

		remBounds := make([]bound.Box[T], len(remaining))
		for i, en := range remaining {
			remBounds[i] = en.bound
		}
		idx, intoA := e.policy.PickNext(remBounds, aBound, bBound)
		picked := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		if intoA {
			entriesA = append(entriesA, picked)
			aBound.Stretch(picked.bound)
		} else {
			entriesB = append(entriesB, picked)
			bBound.Stretch(picked.bound)
		}
	}
	if len(remaining) > 0 {
		if len(entriesA) < e.sizes.Min {
			entriesA = append(entriesA, remaining...)
		} else {
			entriesB = append(entriesB, remaining...)
		}
	}

	nd.entries = entriesA
	newIdx := e.a.newNode(nd.isLeaf)
	newNode := e.a.get(newIdx)
	newNode.entries = entriesB
	newNode.parent = nd.parent
	if !nd.isLeaf {
		for _, en := range entriesB {
			e.a.get(en.child).parent = newIdx
		}
	}
	return newIdx
}

// adjustTree ascends from n, which has just been split producing nn,
// updating ancestor bounds and splitting further pages that overflow. When
// the split propagates all the way past the root, a new root is created.
func (e *engine[V, T]) adjustTree(n, nn int) {
	for {
		if e.a.isRoot(n) {
			if nn != -1 {
				e.joinRoots(n, nn)
			}
			return
		}
		parent := e.a.get(n).parent
		idx := e.a.entryIndexInParent(n)
		e.a.get(parent).entries[idx].bound = e.a.boundOf(n)

		pp := -1
		if nn != -1 {
			newEntry := entry[V, T]{bound: e.a.boundOf(nn), child: nn}
			e.a.get(parent).entries = append(e.a.get(parent).entries, newEntry)
			e.a.get(nn).parent = parent
			if len(e.a.get(parent).entries) > e.sizes.Max {
				pp = e.splitNode(parent)
			}
		}
		n, nn = parent, pp
	}
}

func (e *engine[V, T]) joinRoots(r1, r2 int) {
	newRoot := e.a.newNode(false)
	root := e.a.get(newRoot)
	root.entries = []entry[V, T]{
		{bound: e.a.boundOf(r1), child: r1},
		{bound: e.a.boundOf(r2), child: r2},
	}
	e.a.get(r1).parent = newRoot
	e.a.get(r2).parent = newRoot
	e.a.root = newRoot
}

// removeValue removes every leaf entry whose bound equals bb and whose value
// satisfies matches, restretches the page, and condenses the tree once.
// Reports whether at least one entry was removed.
func (e *engine[V, T]) removeValue(bb bound.Box[T], matches func(V) bool) bool {
	if e.a.empty() {
		return false
	}
	leaf := e.chooseLeafNode(bb)
	page := e.a.get(leaf)

	kept := page.entries[:0]
	removed := 0
	for _, en := range page.entries {
		if bound.Equals(en.bound, bb) && matches(en.value) {
			removed++
			continue
		}
		kept = append(kept, en)
	}
	if removed == 0 {
		return false
	}
	page.entries = kept
	e.condenseTree(leaf)
	e.length -= removed
	if e.length == 0 {
		e.clear()
	}
	return true
}

// condenseTree ascends from the node where an entry was just removed,
// eliminating pages that fell below the minimum fill, and reinserting their
// surviving entries at the correct height so every leaf stays at the same
// depth. Finally, a root page left with a single child is collapsed onto
// that child.
func (e *engine[V, T]) condenseTree(start int) {
	type orphan struct {
		en     entry[V, T]
		height int
	}
	var orphans []orphan

	current := start
	for !e.a.isRoot(current) {
		parent := e.a.get(current).parent
		node := e.a.get(current)

		if len(node.entries) < e.sizes.Min {
			childHeight := -1
			if !node.isLeaf && len(node.entries) > 0 {
				childHeight = e.heightOf(node.entries[0].child)
			}
			for _, en := range node.entries {
				orphans = append(orphans, orphan{en: en, height: childHeight})
			}
			idx := e.a.entryIndexInParent(current)
			pn := e.a.get(parent)
			pn.entries = append(pn.entries[:idx], pn.entries[idx+1:]...)
		} else {
			idx := e.a.entryIndexInParent(current)
			e.a.get(parent).entries[idx].bound = e.a.boundOf(current)
		}
		current = parent
	}

	for _, o := range orphans {
		e.insertSubtree(o.en, o.height)
	}

	root := e.a.get(e.a.root)
	if !root.isLeaf && len(root.entries) == 1 {
		onlyChild := root.entries[0].child
		e.a.get(onlyChild).parent = -1
		e.a.root = onlyChild
	}
}
