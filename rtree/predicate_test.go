package rtree

import (
	"testing"

	"github.com/hopi-go/hopi/bound"
)

func TestContainedByNonInclusiveGivesUniqueOwnership(t *testing.T) {
	low := box2(0, 0, 5, 10)
	high := box2(5, 0, 10, 10)
	onBoundary := bound.NewPoint([]float64{5, 3})

	lowPred := ContainedByNonInclusive[float64](low)
	highPred := ContainedByNonInclusive[float64](high)

	lowOwns := lowPred.Test(onBoundary, true)
	highOwns := highPred.Test(onBoundary, true)
	if lowOwns == highOwns {
		t.Fatalf("exactly one of the two adjoining cells should own a boundary point: low=%v high=%v", lowOwns, highOwns)
	}
}

func TestIntersectsNodeAndLeafAgree(t *testing.T) {
	query := box2(1, 1, 2, 2)
	pred := Intersects[float64](query)
	candidate := box2(1.5, 1.5, 3, 3)
	if !pred.Test(candidate, false) {
		t.Error("Intersects page test should match an intersecting candidate")
	}
	if !pred.Test(candidate, true) {
		t.Error("Intersects leaf test should match an intersecting candidate")
	}
}

func TestDisjointPrunesOnlyLeaves(t *testing.T) {
	query := box2(0, 0, 1, 1)
	pred := Disjoint[float64](query)
	far := box2(5, 5, 6, 6)
	if !pred.Test(far, false) {
		t.Error("Disjoint must always descend into pages, since a disjoint leaf may be nested anywhere")
	}
	if !pred.Test(far, true) {
		t.Error("a far-away box should be Disjoint")
	}
	touching := box2(1, 0, 2, 1)
	if pred.Test(touching, true) {
		t.Error("touching boxes should not satisfy Disjoint")
	}
}

func TestAllMatchesEverything(t *testing.T) {
	pred := All[float64]()
	b := box2(0, 0, 1, 1)
	if !pred.Test(b, true) || !pred.Test(b, false) {
		t.Error("All should match unconditionally")
	}
}

func TestNearestRanksByNearestPointDistance(t *testing.T) {
	query := bound.NewPoint([]float64{0, 0})
	pred := Nearest[float64](query, 3)
	close := box2(1, 0, 2, 1)
	far := box2(5, 0, 6, 1)
	if pred.Leaf(close) >= pred.Leaf(far) {
		t.Error("a closer box should have a smaller Nearest distance")
	}
}

func TestCentroidUsesNearestForNodePruning(t *testing.T) {
	query := bound.NewPoint([]float64{0, 0})
	pred := Centroid[float64](query, 1)
	b := box2(1, 1, 3, 3)
	if pred.Node(b) != bound.Nearest(b, query) {
		t.Error("Centroid's Node bound must be Nearest, the only metric admissible for pruning")
	}
	if pred.Leaf(b) != bound.Centroid(b, query) {
		t.Error("Centroid's Leaf metric should rank by centroid distance")
	}
}
