package partition

import (
	"context"
	"math"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/hopi-go/hopi/bound"
	"github.com/hopi-go/hopi/rtree"
)

// Stats summarizes how evenly a set of partition boxes divides the total
// weight of a domain, grounded on RCB::report in
// original_source/library/hopi/partition/rcb.hpp.
type Stats struct {
	// Weight holds the total weight assigned to each box, ordered the same
	// as the boxes slice passed to Report.
	Weight []float64
	Min    float64
	Max    float64
	// Ratio is (Max-Min)/Sum, the spread relative to the total weight.
	Ratio float64
	// Imbalance is Max/Min, the classic load-imbalance factor. It is +Inf
	// if Min is zero and there is at least one box with positive weight.
	Imbalance float64
	// Mean and StdDev summarize the weight distribution across boxes beyond
	// the original report()'s min/max/ratio/imbalance.
	Mean   float64
	StdDev float64
}

// Report sums the weight of every local point falling in each box, using a
// ContainedByNonInclusive query so a point on a shared boundary is counted
// by exactly one box, then all-reduces those per-box sums across every
// rank and computes spread statistics over the result.
func Report[T constraints.Float](ctx context.Context, comm Communicator[T], localPoints []bound.Box[T], localWeights []T, boxes []bound.Box[T]) (Stats, error) {
	tree := rtree.New[int, T](rtree.Quadratic[T]{}, rtree.Policy{Min: 2, Max: 8}, func(a, b int) bool { return a == b })
	weight := make([]T, len(localPoints))
	for i, p := range localPoints {
		tree.Insert(i, p)
		if localWeights != nil {
			weight[i] = localWeights[i]
		} else {
			weight[i] = 1
		}
	}

	localTotals := make([]T, len(boxes))
	for i, box := range boxes {
		tree.Query(rtree.ContainedByNonInclusive[T](box), func(idx int, _ bound.Box[T]) bool {
			localTotals[i] += weight[idx]
			return true
		})
	}

	globalTotals, err := comm.AllReduceWeights(ctx, localTotals)
	if err != nil {
		return Stats{}, err
	}

	weights := make([]float64, len(globalTotals))
	for i, w := range globalTotals {
		weights[i] = float64(w)
	}

	var s Stats
	s.Weight = weights
	if len(weights) == 0 {
		return s, nil
	}

	s.Min, s.Max = floats.Min(weights), floats.Max(weights)
	s.Mean, s.StdDev = stat.MeanStdDev(weights, nil)
	sum := floats.Sum(weights)
	if sum > 0 {
		s.Ratio = (s.Max - s.Min) / sum
	}
	if s.Min > 0 {
		s.Imbalance = s.Max / s.Min
	} else if s.Max > 0 {
		s.Imbalance = math.Inf(1)
	} else {
		s.Imbalance = 1
	}
	return s, nil
}
