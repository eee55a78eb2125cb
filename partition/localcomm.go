package partition

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/guiguan/caster"
	"golang.org/x/exp/constraints"

	"github.com/hopi-go/hopi/bound"
)

// RoundComplete is published on a LocalWorld's caster whenever every rank
// has finished a collective call, so an observer can watch a run's progress
// without polling LocalWorld's internal state.
type RoundComplete struct {
	Round int
	Kind  string
}

// LocalWorld is an in-process Communicator group for tests and single-binary
// deployments: every rank is a goroutine sharing this struct, and collective
// calls rendezvous on a generation counter rather than on any real transport.
//
// Every rank must call each collective the same number of times in the same
// order - the lock-step shape the RCB bisection loop guarantees by
// construction, since every rank computes the same box-splitting schedule
// from the same globally agreed partition count. LocalWorld relies on that
// invariant: it does not distinguish an AllGather round from an AllReduce
// round, it only counts arrivals.
type LocalWorld[T constraints.Float] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	size     int
	round    int
	arrived  int
	payloads []any
	result   any
	combine  func([]any) any
	cast     *caster.Caster
}

// NewLocalWorld creates a group of size ranks. Call Comm(rank) once per
// rank, normally from the goroutine that will drive that rank.
func NewLocalWorld[T constraints.Float](size int) *LocalWorld[T] {
	if size < 1 {
		panic("partition: LocalWorld size must be positive")
	}
	w := &LocalWorld[T]{
		size:     size,
		payloads: make([]any, size),
		cast:     caster.New(nil),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Subscribe returns a channel of RoundComplete events published as each
// collective round finishes. It returns an error if the world's broadcaster
// has already been closed.
func (w *LocalWorld[T]) Subscribe() (<-chan interface{}, error) {
	ch, ok := w.cast.Sub(context.Background(), 1)
	if !ok {
		return nil, errors.New("partition: caster is closed")
	}
	return ch, nil
}

// Close shuts down the world's broadcaster. Call once all ranks have
// finished, typically via errgroup.Wait or sync.WaitGroup.
func (w *LocalWorld[T]) Close() {
	w.cast.Close()
}

// Comm returns the Communicator view for one rank of the group.
func (w *LocalWorld[T]) Comm(rank int) Communicator[T] {
	if rank < 0 || rank >= w.size {
		panic("partition: rank out of range")
	}
	return &localComm[T]{world: w, rank: rank}
}

// rendezvous blocks the calling rank until every rank in the group has
// supplied its payload for the current round, then returns the combined
// result to all of them. combine runs exactly once per round, on whichever
// rank happens to arrive last.
func (w *LocalWorld[T]) rendezvous(ctx context.Context, rank int, kind string, payload any, combine func([]any) any) (any, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	myRound := w.round
	w.payloads[rank] = payload
	w.arrived++

	if w.arrived == w.size {
		w.result = combine(w.payloads)
		w.payloads = make([]any, w.size)
		w.arrived = 0
		w.round++
		w.cast.Pub(RoundComplete{Round: myRound, Kind: kind})
		w.cond.Broadcast()
	} else {
		for w.round == myRound {
			w.cond.Wait()
		}
	}
	return w.result, nil
}

// localComm is one rank's handle onto a LocalWorld.
type localComm[T constraints.Float] struct {
	world *LocalWorld[T]
	rank  int
}

func (c *localComm[T]) Rank() int { return c.rank }
func (c *localComm[T]) Size() int { return c.world.size }

func (c *localComm[T]) Barrier(ctx context.Context) error {
	_, err := c.world.rendezvous(ctx, c.rank, "barrier", struct{}{}, func([]any) any { return struct{}{} })
	return err
}

func (c *localComm[T]) AllGather(ctx context.Context, local bound.Box[T]) ([]bound.Box[T], error) {
	res, err := c.world.rendezvous(ctx, c.rank, "all_gather", local, func(payloads []any) any {
		out := make([]bound.Box[T], len(payloads))
		for i, p := range payloads {
			out[i] = p.(bound.Box[T])
		}
		return out
	})
	if err != nil {
		return nil, err
	}
	return res.([]bound.Box[T]), nil
}

func (c *localComm[T]) AllReduce(ctx context.Context, local []MedianWeight[T], combine Combiner[T]) ([]MedianWeight[T], error) {
	res, err := c.world.rendezvous(ctx, c.rank, "all_reduce", local, func(payloads []any) any {
		acc := payloads[0].([]MedianWeight[T])
		for i := 1; i < len(payloads); i++ {
			acc = combine(acc, payloads[i].([]MedianWeight[T]))
		}
		return acc
	})
	if err != nil {
		return nil, err
	}
	return res.([]MedianWeight[T]), nil
}

func (c *localComm[T]) AllReduceWeights(ctx context.Context, local []T) ([]T, error) {
	res, err := c.world.rendezvous(ctx, c.rank, "all_reduce_weights", local, func(payloads []any) any {
		n := len(payloads[0].([]T))
		acc := make([]T, n)
		for _, p := range payloads {
			row := p.([]T)
			if len(row) != n {
				panic(fmt.Sprintf("partition: mismatched AllReduceWeights width across ranks: %d vs %d", len(row), n))
			}
			for i, v := range row {
				acc[i] += v
			}
		}
		return acc
	})
	if err != nil {
		return nil, err
	}
	return res.([]T), nil
}
