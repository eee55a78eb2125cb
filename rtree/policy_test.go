package rtree

import (
	"testing"

	"github.com/hopi-go/hopi/bound"
)

func box2(minX, minY, maxX, maxY float64) bound.Box[float64] {
	return bound.New([]float64{minX, minY}, []float64{maxX, maxY})
}

func TestNewPolicyValidation(t *testing.T) {
	if _, err := NewPolicy(1, 4); err == nil {
		t.Error("min == 1 should be rejected")
	}
	if _, err := NewPolicy(3, 4); err == nil {
		t.Error("min > max/2 should be rejected")
	}
	if _, err := NewPolicy(2, 4); err != nil {
		t.Errorf("valid policy rejected: %v", err)
	}
}

func TestLinearPickSeedsPicksFurthestExtremes(t *testing.T) {
	bounds := []bound.Box[float64]{
		box2(0, 0, 1, 1),
		box2(2, 0, 3, 1),
		box2(0.9, 0, 1.9, 1),
	}
	parent := box2(0, 0, 3, 1)
	i, j := Linear[float64]{}.PickSeeds(bounds, parent)
	if i == j {
		t.Fatalf("PickSeeds returned the same index twice: %d", i)
	}
	got := map[int]bool{i: true, j: true}
	if !got[0] || !got[1] {
		t.Errorf("PickSeeds = (%d, %d), want the two furthest-apart boxes (0, 1)", i, j)
	}
}

func TestLinearPickSeedsSelfCorrectsWhenExtremesCoincide(t *testing.T) {
	// Cartesian-aligned cells along a single axis, where the furthest-apart
	// pair by the min/max scan coincides on both ends.
	bounds := []bound.Box[float64]{
		box2(0, 0, 1, 1),
		box2(1, 0, 2, 1),
	}
	parent := box2(0, 0, 2, 1)
	i, j := Linear[float64]{}.PickSeeds(bounds, parent)
	if i == j {
		t.Fatalf("PickSeeds must never return the same index for both seeds, got %d twice", i)
	}
}

func TestLinearPickNextTakesFirstRemaining(t *testing.T) {
	bounds := []bound.Box[float64]{
		box2(5, 5, 6, 6),
		box2(9, 9, 10, 10),
	}
	aBound := box2(0, 0, 1, 1)
	bBound := box2(10, 10, 11, 11)
	idx, intoA := Linear[float64]{}.PickNext(bounds, aBound, bBound)
	if idx != 0 {
		t.Errorf("PickNext index = %d, want 0 (first remaining)", idx)
	}
	if !intoA {
		t.Error("the closer candidate to aBound should be placed into A")
	}
}

func TestQuadraticPickSeedsPicksMostWastefulPair(t *testing.T) {
	bounds := []bound.Box[float64]{
		box2(0, 0, 1, 1),
		box2(0, 0, 1.1, 1.1),
		box2(10, 10, 11, 11),
	}
	i, j := Quadratic[float64]{}.PickSeeds(bounds, bound.Box[float64]{})
	got := map[int]bool{i: true, j: true}
	if !got[0] && !got[1] && !got[2] {
		t.Fatalf("unexpected seeds (%d, %d)", i, j)
	}
	if !(got[1] && got[2]) && !(got[0] && got[2]) {
		t.Errorf("PickSeeds = (%d, %d), want a pair including the far-away box 2", i, j)
	}
}

func TestQuadraticPickNextMaximizesDifference(t *testing.T) {
	bounds := []bound.Box[float64]{
		box2(0, 0, 1, 1),  // fits A exactly, costly for B
		box2(9, 9, 10, 10), // fits B exactly, costly for A
	}
	aBound := box2(0, 0, 1, 1)
	bBound := box2(9, 9, 10, 10)
	idx, intoA := Quadratic[float64]{}.PickNext(bounds, aBound, bBound)
	if idx != 0 {
		t.Errorf("PickNext should prefer the candidate with the larger cost differential, got idx=%d", idx)
	}
	if !intoA {
		t.Error("candidate 0 fits aBound for free and should be placed into A")
	}
}
