// Package partition implements recursive coordinate bisection over a set of
// weighted points distributed across ranks, plus the collective-communication
// contract it runs on top of.
package partition

import (
	"context"

	"golang.org/x/exp/constraints"

	"github.com/hopi-go/hopi/bound"
)

// MedianWeight is the per-box payload exchanged during a bisection round: a
// weighted median coordinate paired with the total weight it was computed
// from, so an AllReduce combiner can fold several ranks' medians into one
// weighted average without re-deriving it from raw points.
type MedianWeight[T constraints.Float] struct {
	WeightedMedian T
	TotalWeight    T
}

// Combiner folds two same-shaped slices of per-box reduction payloads into
// one. Implementations must be associative and commutative: AllReduce may
// apply them in any order and any grouping across ranks.
type Combiner[T constraints.Float] func(a, b []MedianWeight[T]) []MedianWeight[T]

// Communicator is the collective-communication contract RCB runs on top of.
// Every rank in a run must call each collective the same number of times, in
// the same order, with slices of the same length — precisely the lock-step
// shape the RCB bisection loop produces, since every rank executes the same
// box-splitting schedule derived from the same globally agreed box count.
//
// Grounded on boost::mpi's communicator surface as wrapped by the original's
// mpixx.hpp: rank/size plus all_gather and all_reduce with a user combiner.
type Communicator[T constraints.Float] interface {
	Rank() int
	Size() int

	// Barrier blocks until every rank has called Barrier for this round.
	Barrier(ctx context.Context) error

	// AllGather exchanges one value per rank and returns all of them, ordered
	// by rank.
	AllGather(ctx context.Context, local bound.Box[T]) ([]bound.Box[T], error)

	// AllReduce folds every rank's local slice into one, using combine as the
	// pairwise combinator. The returned slice is identical on every rank.
	AllReduce(ctx context.Context, local []MedianWeight[T], combine Combiner[T]) ([]MedianWeight[T], error)

	// AllReduceWeights is the report-path analogue of AllReduce, summing a
	// per-box weight total across every rank.
	AllReduceWeights(ctx context.Context, local []T) ([]T, error)
}
