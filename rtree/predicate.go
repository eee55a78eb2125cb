package rtree

import (
	"golang.org/x/exp/constraints"

	"github.com/hopi-go/hopi/bound"
)

// SpatialPredicate decides, for a candidate bound encountered during a
// query, whether to descend into it (Node) or to report it (Leaf). Pages
// and leaves often need different tests: for example a "contained by"
// search only needs to know a page might hold a match (Intersects) before
// descending, but a leaf must pass the stricter Contains test before being
// reported.
type SpatialPredicate[T constraints.Float] struct {
	Node func(candidate bound.Box[T]) bool
	Leaf func(candidate bound.Box[T]) bool
}

// Test evaluates the predicate against candidate, dispatching to Node or
// Leaf depending on isLeaf.
func (p SpatialPredicate[T]) Test(candidate bound.Box[T], isLeaf bool) bool {
	if isLeaf {
		return p.Leaf(candidate)
	}
	return p.Node(candidate)
}

// Disjoint matches leaves that do not touch query anywhere. Every page is
// descended into, since a disjoint leaf can be nested inside any page.
func Disjoint[T constraints.Float](query bound.Box[T]) SpatialPredicate[T] {
	return SpatialPredicate[T]{
		Node: func(bound.Box[T]) bool { return true },
		Leaf: func(c bound.Box[T]) bool { return bound.Disjoint(c, query) },
	}
}

// Intersects matches leaves that touch or overlap query.
func Intersects[T constraints.Float](query bound.Box[T]) SpatialPredicate[T] {
	return SpatialPredicate[T]{
		Node: func(c bound.Box[T]) bool { return bound.Intersects(c, query) },
		Leaf: func(c bound.Box[T]) bool { return bound.Intersects(c, query) },
	}
}

// Overlaps matches leaves that overlap query with positive area.
func Overlaps[T constraints.Float](query bound.Box[T]) SpatialPredicate[T] {
	return SpatialPredicate[T]{
		Node: func(c bound.Box[T]) bool { return bound.Overlaps(c, query) },
		Leaf: func(c bound.Box[T]) bool { return bound.Overlaps(c, query) },
	}
}

// Contains matches leaves that fully contain query (touching permitted).
func Contains[T constraints.Float](query bound.Box[T]) SpatialPredicate[T] {
	return SpatialPredicate[T]{
		Node: func(c bound.Box[T]) bool { return bound.Contains(c, query) },
		Leaf: func(c bound.Box[T]) bool { return bound.Contains(c, query) },
	}
}

// ContainedBy matches leaves fully contained by query (touching permitted).
// Pages only need to be intersected by query to possibly hold a match.
func ContainedBy[T constraints.Float](query bound.Box[T]) SpatialPredicate[T] {
	return SpatialPredicate[T]{
		Node: func(c bound.Box[T]) bool { return bound.Intersects(c, query) },
		Leaf: func(c bound.Box[T]) bool { return bound.Contains(query, c) },
	}
}

// ContainedByNonInclusive matches leaves contained by query, strict on the
// max side of every axis. It gives a point lying exactly on the boundary
// between two adjacent query regions a unique owner, which is what a
// domain-decomposition sweep over adjoining cells needs.
func ContainedByNonInclusive[T constraints.Float](query bound.Box[T]) SpatialPredicate[T] {
	return SpatialPredicate[T]{
		Node: func(c bound.Box[T]) bool { return bound.Intersects(c, query) },
		Leaf: func(c bound.Box[T]) bool { return bound.ContainsNonInclusive(query, c) },
	}
}

// Covers matches leaves that fully cover query, strict on both sides.
func Covers[T constraints.Float](query bound.Box[T]) SpatialPredicate[T] {
	return SpatialPredicate[T]{
		Node: func(c bound.Box[T]) bool { return bound.Covers(c, query) },
		Leaf: func(c bound.Box[T]) bool { return bound.Covers(c, query) },
	}
}

// CoveredBy matches leaves fully covered by query, strict on both sides.
func CoveredBy[T constraints.Float](query bound.Box[T]) SpatialPredicate[T] {
	return SpatialPredicate[T]{
		Node: func(c bound.Box[T]) bool { return bound.Overlaps(c, query) },
		Leaf: func(c bound.Box[T]) bool { return bound.Covers(query, c) },
	}
}

// Equals matches leaves with identical coordinates to query.
func Equals[T constraints.Float](query bound.Box[T]) SpatialPredicate[T] {
	return SpatialPredicate[T]{
		Node: func(c bound.Box[T]) bool { return bound.Intersects(c, query) },
		Leaf: func(c bound.Box[T]) bool { return bound.Equals(c, query) },
	}
}

// All matches every leaf; every page is descended into.
func All[T constraints.Float]() SpatialPredicate[T] {
	return SpatialPredicate[T]{
		Node: func(bound.Box[T]) bool { return true },
		Leaf: func(bound.Box[T]) bool { return true },
	}
}

// DistancePredicate drives a best-first k-nearest query: Node supplies the
// lower-bound distance used to prune whole subtrees, Leaf supplies the
// metric used to rank the K results actually returned. K is the number of
// results to keep.
//
// Node must always be an admissible lower bound for Leaf, or best-first
// search can prune a subtree that actually holds a better match than any
// candidate found so far. node and leaf are unexported so a DistancePredicate
// can only come from this package's own factories below, every one of which
// pins Node to bound.Nearest - the only metric admissible for every Leaf
// metric this package offers. An unsound Node/Leaf pairing is therefore not
// rejected at construction, it is unrepresentable: there is no exported way
// to build a DistancePredicate with a Node other than Nearest.
type DistancePredicate[T constraints.Float] struct {
	node func(candidate bound.Box[T]) T
	leaf func(candidate bound.Box[T]) T
	K    int
}

// Node evaluates the page-pruning lower-bound metric.
func (p DistancePredicate[T]) Node(candidate bound.Box[T]) T { return p.node(candidate) }

// Leaf evaluates the metric results are ranked and kept by.
func (p DistancePredicate[T]) Leaf(candidate bound.Box[T]) T { return p.leaf(candidate) }

// Nearest ranks leaves by nearest-point distance to query and keeps the k
// closest. Node pruning uses the same metric, which is always a valid
// admissible lower bound for nearest-point ranking.
func Nearest[T constraints.Float](query bound.Box[T], k int) DistancePredicate[T] {
	return DistancePredicate[T]{
		node: func(c bound.Box[T]) T { return bound.Nearest(c, query) },
		leaf: func(c bound.Box[T]) T { return bound.Nearest(c, query) },
		K:    k,
	}
}

// Centroid ranks leaves by center-to-center distance to query and keeps the
// k closest. Node pruning still uses Nearest: centroid distance is not a
// lower bound on any descendant's centroid distance, so page pruning must
// fall back to the one metric that is always admissible.
func Centroid[T constraints.Float](query bound.Box[T], k int) DistancePredicate[T] {
	return DistancePredicate[T]{
		node: func(c bound.Box[T]) T { return bound.Nearest(c, query) },
		leaf: func(c bound.Box[T]) T { return bound.Centroid(c, query) },
		K:    k,
	}
}

// Furthest ranks leaves by furthest-point distance to query and keeps the k
// largest... in the sense of "closest furthest point", i.e. it still keeps
// the k smallest values of the furthest-point metric. Node pruning uses
// Nearest for the same admissibility reason as Centroid.
func Furthest[T constraints.Float](query bound.Box[T], k int) DistancePredicate[T] {
	return DistancePredicate[T]{
		node: func(c bound.Box[T]) T { return bound.Nearest(c, query) },
		leaf: func(c bound.Box[T]) T { return bound.Furthest(c, query) },
		K:    k,
	}
}
