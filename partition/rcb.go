package partition

import (
	"context"
	"sort"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"

	"github.com/hopi-go/hopi/bound"
	"github.com/hopi-go/hopi/internal/hopierr"
	"github.com/hopi-go/hopi/internal/tracing"
	"github.com/hopi-go/hopi/rtree"
)

// pendingBox is a box still awaiting further bisection, paired with how many
// of the final partitions it must still be split into.
type pendingBox[T constraints.Float] struct {
	box        bound.Box[T]
	partitions int
}

// RCB implements recursive coordinate bisection over a set of weighted
// points distributed across the ranks of a Communicator: it repeatedly
// splits the domain's longest dimension at the weighted median, assigning
// half of the remaining partitions to each side, until every partition
// holds roughly the same total weight.
//
// Grounded on original_source/library/hopi/partition/rcb.hpp's RCB::init,
// with one deliberate correction: the original's all-reduce combiner for
// the per-box median overwrites the running total with whichever rank's
// value arrives last (`std::get<0>(ans[n]) = std::get<0>(b[n])`), which
// means the result depends on evaluation order and is not a reduction at
// all. This implementation instead accumulates the weighted sum across
// every rank, so the combined median is the sum of (median * weight) over
// (sum of weight), independent of reduce order.
type RCB[T constraints.Float] struct {
	Policy rtree.Policy
	Split  rtree.SplitPolicy[T]

	// Logger, if set, is notified of non-fatal events during Run: falling
	// back to a single partition, and an AllReduce round folding a
	// zero-weight box into the running sum. The zero value traces nowhere.
	Logger tracing.Logger
}

// NewRCB builds an RCB engine using the quadratic split policy with the
// given node capacities, mirroring the default rtree.NewQuadratic.
func NewRCB[T constraints.Float](sizes rtree.Policy) RCB[T] {
	return RCB[T]{Policy: sizes, Split: rtree.Quadratic[T]{}}
}

func (r RCB[T]) logger() tracing.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return tracing.NopLogger
}

// Run partitions the union of every rank's local points into comm.Size()
// boxes whose total weights are as close to equal as the bisection
// procedure allows. localPoints and localWeights must have equal length;
// a nil localWeights is treated as all-ones.
func (r RCB[T]) Run(ctx context.Context, comm Communicator[T], localPoints []bound.Box[T], localWeights []T) ([]bound.Box[T], error) {
	tree := rtree.New[int, T](r.Split, r.Policy, func(a, b int) bool { return a == b })
	weight := make([]T, len(localPoints))
	for i, p := range localPoints {
		tree.Insert(i, p)
		if localWeights != nil {
			weight[i] = localWeights[i]
		} else {
			weight[i] = 1
		}
	}

	// A rank with no local points contributes the zero-dimension Box, so it
	// never perturbs the elementwise-min/max Stretch below.
	var localBound bound.Box[T]
	if tree.Len() > 0 {
		localBound = tree.Bounds()
	}

	globalBounds, err := comm.AllGather(ctx, localBound)
	if err != nil {
		return nil, err
	}

	var globalBox bound.Box[T]
	for _, b := range globalBounds {
		if b.Dim() == 0 {
			continue
		}
		globalBox.Stretch(b)
	}
	if globalBox.Dim() == 0 {
		return nil, hopierr.DomainEmpty
	}
	globalBox.NextLarger()

	totalPartitions := comm.Size()
	var finalBoxes []bound.Box[T]
	pending := []pendingBox[T]{}
	if totalPartitions == 1 {
		r.logger().Debugf("partition: RCB falling back to a single partition, returning the global box unsplit")
		finalBoxes = append(finalBoxes, globalBox)
	} else {
		pending = append(pending, pendingBox[T]{box: globalBox, partitions: totalPartitions})
	}

	for len(pending) > 0 {
		localSplits := make([]MedianWeight[T], len(pending))
		for i, p := range pending {
			localSplits[i] = r.localMedian(tree, weight, p.box, p.partitions)
		}

		globalSplits, err := comm.AllReduce(ctx, localSplits, r.sumMedianWeight)
		if err != nil {
			return nil, err
		}

		var next []pendingBox[T]
		for i, p := range pending {
			longDim := p.box.LongestDimension()
			split := globalSplits[i].WeightedMedian / globalSplits[i].TotalWeight

			low := p.box.Clone()
			low.Max[longDim] = split
			high := p.box.Clone()
			high.Min[longDim] = split

			small := p.partitions / 2
			large := p.partitions - small

			if small == 1 {
				finalBoxes = append(finalBoxes, low)
			} else {
				next = append(next, pendingBox[T]{box: low, partitions: small})
			}
			if large == 1 {
				finalBoxes = append(finalBoxes, high)
			} else {
				next = append(next, pendingBox[T]{box: high, partitions: large})
			}
		}
		pending = next
	}

	sort.Slice(finalBoxes, func(i, j int) bool { return bound.Less(finalBoxes[i], finalBoxes[j]) })
	return finalBoxes, nil
}

// localMedian finds this rank's weighted point, along box's longest
// dimension, at the fraction of total weight that will become the small
// side of the split (small = partitions/2), and packs it with the total
// weight it was computed from so AllReduce can combine it with every other
// rank's.
func (r RCB[T]) localMedian(tree *rtree.Tree[int, T], weight []T, box bound.Box[T], partitions int) MedianWeight[T] {
	longDim := box.LongestDimension()
	small := partitions / 2
	ratio := float64(small) / float64(partitions)

	type containedPoint struct {
		center T
		weight T
	}
	var contained []containedPoint
	tree.Query(rtree.ContainedByNonInclusive[T](box), func(idx int, bb bound.Box[T]) bool {
		contained = append(contained, containedPoint{center: bb.Center(longDim), weight: weight[idx]})
		return true
	})

	if len(contained) == 0 {
		return MedianWeight[T]{}
	}

	sort.Slice(contained, func(i, j int) bool { return contained[i].center < contained[j].center })

	weights := make([]float64, len(contained))
	for i, c := range contained {
		weights[i] = float64(c.weight)
	}
	floats.CumSum(weights, weights)
	totalWeight := weights[len(weights)-1]

	// Smallest index whose prefix sum strictly exceeds the target fraction of
	// total weight, matching the original's std::upper_bound - not
	// sort.SearchFloat64s, which is lower_bound and picks a different index
	// on exact ties.
	target := ratio * totalWeight
	medianIdx := sort.Search(len(weights), func(i int) bool { return weights[i] > target })
	if medianIdx >= len(contained) {
		medianIdx = len(contained) - 1
	}

	medianValue := contained[medianIdx].center
	return MedianWeight[T]{
		WeightedMedian: medianValue * T(totalWeight),
		TotalWeight:    T(totalWeight),
	}
}

// sumMedianWeight is the corrected all-reduce combiner: elementwise sum of
// both the weighted-median accumulator and the weight accumulator, so the
// combined result is the global weighted sum regardless of reduce order. A
// rank that had no points contained in a given pending box contributes the
// zero MedianWeight for it; folding that in is a no-op arithmetically but
// worth narrating, since a box with every rank reporting zero weight means
// the box is empty and its eventual split will be degenerate.
func (r RCB[T]) sumMedianWeight(a, b []MedianWeight[T]) []MedianWeight[T] {
	out := make([]MedianWeight[T], len(a))
	for i := range a {
		if a[i].TotalWeight == 0 && b[i].TotalWeight != 0 || b[i].TotalWeight == 0 && a[i].TotalWeight != 0 {
			r.logger().Debugf("partition: RCB AllReduce folding a zero-weight box at pending index %d", i)
		}
		out[i] = MedianWeight[T]{
			WeightedMedian: a[i].WeightedMedian + b[i].WeightedMedian,
			TotalWeight:    a[i].TotalWeight + b[i].TotalWeight,
		}
	}
	return out
}
