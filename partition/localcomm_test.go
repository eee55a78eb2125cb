package partition

import (
	"context"
	"sync"
	"testing"

	"github.com/hopi-go/hopi/bound"
)

func box1(min, max float64) bound.Box[float64] {
	return bound.New([]float64{min}, []float64{max})
}

func TestAllGatherOrdersByRank(t *testing.T) {
	world := NewLocalWorld[float64](3)
	defer world.Close()

	var wg sync.WaitGroup
	got := make([][]bound.Box[float64], 3)
	for rank := 0; rank < 3; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			comm := world.Comm(rank)
			result, err := comm.AllGather(context.Background(), box1(float64(rank), float64(rank)+1))
			if err != nil {
				t.Errorf("rank %d: AllGather: %v", rank, err)
				return
			}
			got[rank] = result
		}(rank)
	}
	wg.Wait()

	for rank := 0; rank < 3; rank++ {
		if len(got[rank]) != 3 {
			t.Fatalf("rank %d saw %d boxes, want 3", rank, len(got[rank]))
		}
		for i, b := range got[rank] {
			if b.Min[0] != float64(i) {
				t.Errorf("rank %d: box %d min = %v, want %v", rank, i, b.Min[0], float64(i))
			}
		}
	}
}

func TestAllReduceSumsAcrossRanks(t *testing.T) {
	world := NewLocalWorld[float64](4)
	defer world.Close()

	sum := func(a, b []MedianWeight[float64]) []MedianWeight[float64] {
		out := make([]MedianWeight[float64], len(a))
		for i := range a {
			out[i] = MedianWeight[float64]{
				WeightedMedian: a[i].WeightedMedian + b[i].WeightedMedian,
				TotalWeight:    a[i].TotalWeight + b[i].TotalWeight,
			}
		}
		return out
	}

	var wg sync.WaitGroup
	results := make([][]MedianWeight[float64], 4)
	for rank := 0; rank < 4; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			comm := world.Comm(rank)
			local := []MedianWeight[float64]{{WeightedMedian: 1, TotalWeight: 1}}
			res, err := comm.AllReduce(context.Background(), local, sum)
			if err != nil {
				t.Errorf("rank %d: AllReduce: %v", rank, err)
				return
			}
			results[rank] = res
		}(rank)
	}
	wg.Wait()

	for rank, res := range results {
		if res[0].TotalWeight != 4 {
			t.Errorf("rank %d: total weight = %v, want 4", rank, res[0].TotalWeight)
		}
	}
}

func TestBarrierReleasesOnlyAfterEveryRankArrives(t *testing.T) {
	world := NewLocalWorld[float64](2)
	defer world.Close()

	released := make(chan int, 2)
	var wg sync.WaitGroup
	for rank := 0; rank < 2; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			comm := world.Comm(rank)
			if err := comm.Barrier(context.Background()); err != nil {
				t.Errorf("rank %d: Barrier: %v", rank, err)
			}
			released <- rank
		}(rank)
	}
	wg.Wait()
	close(released)

	count := 0
	for range released {
		count++
	}
	if count != 2 {
		t.Fatalf("both ranks should have been released, got %d", count)
	}
}

func TestSubscribePublishesRoundComplete(t *testing.T) {
	world := NewLocalWorld[float64](1)
	defer world.Close()

	ch, err := world.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	comm := world.Comm(0)
	go func() {
		if err := comm.Barrier(context.Background()); err != nil {
			t.Errorf("Barrier: %v", err)
		}
	}()

	msg := <-ch
	evt, ok := msg.(RoundComplete)
	if !ok {
		t.Fatalf("expected RoundComplete, got %T", msg)
	}
	if evt.Kind != "barrier" {
		t.Errorf("Kind = %q, want %q", evt.Kind, "barrier")
	}
}
