package rtree

import (
	"errors"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/hopi-go/hopi/bound"
	"github.com/hopi-go/hopi/internal/tracing"
)

// Policy bounds the fan-out of a tree's internal nodes: every page holds
// between Min and Max entries, except the root, which may hold fewer.
type Policy struct {
	Min int
	Max int
}

// NewPolicy validates and returns a node-size policy. Min must be greater
// than 1 and no more than half of Max, mirroring the static assertion the
// original implementation places on its split-policy template parameters.
func NewPolicy(min, max int) (Policy, error) {
	if min <= 1 {
		return Policy{}, errors.New("rtree: min children must be greater than 1")
	}
	if min > max/2 {
		return Policy{}, errors.New("rtree: min children must be at most half of max children")
	}
	return Policy{Min: min, Max: max}, nil
}

// SplitPolicy chooses how an overfull page's children are partitioned into
// two new pages. Implementations only ever see the candidate bounds, never
// the payload the entries carry, since the split decision is purely
// geometric.
type SplitPolicy[T constraints.Float] interface {
	// PickSeeds picks two distinct indices into bounds to seed the two
	// halves of the split. parent is the union of every bound in bounds.
	PickSeeds(bounds []bound.Box[T], parent bound.Box[T]) (i, j int)

	// PickNext picks the index of the next bound to place, and whether it
	// should be placed into the A half (as opposed to B).
	PickNext(bounds []bound.Box[T], aBound, bBound bound.Box[T]) (idx int, intoA bool)
}

// Linear is Guttman's LinearSplit policy: pick_seeds scans each axis for the
// pair of children whose min/max extremes are furthest apart relative to
// that axis's length, and pick_next simply takes entries in order. Logger,
// if set, is notified when PickSeeds has to self-correct a degenerate seed
// pair; the zero value traces nowhere.
type Linear[T constraints.Float] struct {
	Logger tracing.Logger
}

var _ SplitPolicy[float64] = Linear[float64]{}

func (l Linear[T]) logger() tracing.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return tracing.NopLogger
}

func (l Linear[T]) PickSeeds(bounds []bound.Box[T], parent bound.Box[T]) (int, int) {
	if len(bounds) < 2 {
		panic("rtree: PickSeeds requires at least two candidates")
	}
	dim := parent.Dim()
	bestI, bestJ := -1, -1
	maxScaledLength := lowest[T]()

	for axis := 0; axis < dim; axis++ {
		maximumMinValue := lowest[T]()
		minimumMaxValue := highest[T]()
		maximumMinIdx, minimumMaxIdx := -1, -1

		for k, b := range bounds {
			if b.Min[axis] > maximumMinValue {
				maximumMinValue = b.Min[axis]
				maximumMinIdx = k
			}
			if b.Max[axis] < minimumMaxValue {
				minimumMaxValue = b.Max[axis]
				minimumMaxIdx = k
			}
		}

		length := parent.Length(axis)
		if length == 0 {
			continue
		}
		scaledLength := absT(minimumMaxValue-maximumMinValue) / length
		if scaledLength > maxScaledLength {
			maxScaledLength = scaledLength
			bestI, bestJ = minimumMaxIdx, maximumMinIdx
		}
	}

	if bestI == -1 {
		// Every axis of parent has zero length, so no axis picked a pair.
		bestI, bestJ = 0, 0
	}
	if bestI == bestJ {
		// The two extremes coincide when the candidates are Cartesian
		// aligned cells. Force distinct seeds by swapping in whichever
		// end of the list isn't already chosen.
		l.logger().Debugf("rtree: LinearSplit seeds coincided at index %d, self-correcting", bestI)
		if bestI == 0 {
			bestJ = len(bounds) - 1
		} else {
			bestJ = 0
		}
	}
	return bestI, bestJ
}

func (Linear[T]) PickNext(bounds []bound.Box[T], aBound, bBound bound.Box[T]) (int, bool) {
	next := 0
	aIncrease := bound.IncreaseToHold(aBound, bounds[next])
	bIncrease := bound.IncreaseToHold(bBound, bounds[next])
	return next, aIncrease < bIncrease
}

// Quadratic is Guttman's QuadraticSplit policy: pick_seeds exhaustively
// scans every pair of children for the one whose combined bound wastes the
// most area, and pick_next greedily places the child with the largest
// difference in enlargement cost between the two halves.
type Quadratic[T constraints.Float] struct{}

var _ SplitPolicy[float64] = Quadratic[float64]{}

func (Quadratic[T]) PickSeeds(bounds []bound.Box[T], _ bound.Box[T]) (int, int) {
	if len(bounds) < 2 {
		panic("rtree: PickSeeds requires at least two candidates")
	}
	bestI, bestJ := 0, 1
	maxWastedArea := lowest[T]()
	for i := 0; i < len(bounds); i++ {
		iArea := bounds[i].Area()
		for j := i + 1; j < len(bounds); j++ {
			jArea := bounds[j].Area()
			combined := bound.Union(bounds[i], bounds[j]).Area()
			wasted := combined - iArea - jArea
			if wasted > maxWastedArea {
				maxWastedArea = wasted
				bestI, bestJ = i, j
			}
		}
	}
	return bestI, bestJ
}

func (Quadratic[T]) PickNext(bounds []bound.Box[T], aBound, bBound bound.Box[T]) (int, bool) {
	next := -1
	intoA := true
	maxDiff := lowest[T]()
	for k, b := range bounds {
		aIncrease := bound.IncreaseToHold(aBound, b)
		bIncrease := bound.IncreaseToHold(bBound, b)
		diff := absT(aIncrease - bIncrease)
		if diff > maxDiff {
			maxDiff = diff
			next = k
			intoA = aIncrease < bIncrease
		}
	}
	return next, intoA
}

func absT[T constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func lowest[T constraints.Float]() T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return T(-math.MaxFloat32)
	default:
		max64 := math.MaxFloat64
		return T(-max64)
	}
}

func highest[T constraints.Float]() T {
	return -lowest[T]()
}
