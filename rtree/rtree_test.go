package rtree

import (
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"golang.org/x/exp/constraints"

	"github.com/hopi-go/hopi/bound"
)

func intEqual(a, b int) bool { return a == b }

func randomBox(rnd *rand.Rand, maxStart, maxWidth float64) bound.Box[float64] {
	minX := rnd.Float64() * maxStart
	minY := rnd.Float64() * maxStart
	maxX := minX + rnd.Float64()*maxWidth
	maxY := minY + rnd.Float64()*maxWidth
	return bound.New([]float64{minX, minY}, []float64{maxX, maxY})
}

func TestRandomInsertAgainstExhaustive(t *testing.T) {
	policies := []struct {
		name string
		make func() SplitPolicy[float64]
	}{
		{"linear", func() SplitPolicy[float64] { return Linear[float64]{} }},
		{"quadratic", func() SplitPolicy[float64] { return Quadratic[float64]{} }},
	}

	for _, p := range policies {
		for maxCapacity := 4; maxCapacity <= 8; maxCapacity += 2 {
			for minCapacity := 2; minCapacity <= maxCapacity/2; minCapacity++ {
				for population := 0; population < 40; population += 7 {
					name := fmt.Sprintf("%s_min_%d_max_%d_pop_%d", p.name, minCapacity, maxCapacity, population)
					t.Run(name, func(t *testing.T) {
						rnd := rand.New(rand.NewSource(0))
						boxes := make([]bound.Box[float64], population)
						for i := range boxes {
							boxes[i] = randomBox(rnd, 0.9, 0.1)
						}

						sizes, err := NewPolicy(minCapacity, maxCapacity)
						if err != nil {
							t.Fatal(err)
						}
						tr := New[int, float64](p.make(), sizes, intEqual)
						oracle := NewExhaustive[int, float64](intEqual)
						for i, bb := range boxes {
							tr.Insert(i, bb)
							oracle.Insert(i, bb)
							checkInvariants(t, tr)
						}

						if tr.Len() != population {
							t.Fatalf("Len() = %d, want %d", tr.Len(), population)
						}

						for i := 0; i < 10; i++ {
							searchBB := randomBox(rnd, 0.5, 0.5)
							var got, want []int
							tr.Query(Intersects[float64](searchBB), func(v int, _ bound.Box[float64]) bool {
								got = append(got, v)
								return true
							})
							oracle.Query(Intersects[float64](searchBB), func(v int, _ bound.Box[float64]) bool {
								want = append(want, v)
								return true
							})
							sort.Ints(got)
							sort.Ints(want)
							if !reflect.DeepEqual(got, want) {
								t.Fatalf("Query mismatch: got %v want %v (box %v)", got, want, searchBB)
							}
						}
					})
				}
			}
		}
	}
}

func TestInsertThenRemoveAllEmptiesTree(t *testing.T) {
	sizes, err := NewPolicy(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	rnd := rand.New(rand.NewSource(1))
	const n = 60
	boxes := make([]bound.Box[float64], n)
	values := make([]int, n)
	for i := range boxes {
		boxes[i] = randomBox(rnd, 0.9, 0.1)
		values[i] = i
	}

	tr := New[int, float64](Quadratic[float64]{}, sizes, intEqual)
	if err := tr.InsertAll(values, boxes); err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, tr)

	removed, err := tr.RemoveAll(values, boxes)
	if err != nil {
		t.Fatal(err)
	}
	if removed != n {
		t.Fatalf("RemoveAll removed %d, want %d", removed, n)
	}
	if tr.Len() != 0 {
		t.Fatalf("Len() after removing everything = %d, want 0", tr.Len())
	}
	checkInvariants(t, tr)
}

func TestRemoveDeletesEveryDuplicateMatch(t *testing.T) {
	sizes, err := NewPolicy(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	rnd := rand.New(rand.NewSource(3))
	tr := New[int, float64](Quadratic[float64]{}, sizes, intEqual)

	dup := randomBox(rnd, 0.9, 0.1)
	const dupCount = 5
	for i := 0; i < dupCount; i++ {
		tr.Insert(7, dup)
	}
	for i := 0; i < 20; i++ {
		tr.Insert(i, randomBox(rnd, 0.9, 0.1))
	}
	checkInvariants(t, tr)

	before := tr.Len()
	if !tr.Remove(7, dup) {
		t.Fatal("Remove reported no match for a value known to be present")
	}
	checkInvariants(t, tr)

	if got, want := before-tr.Len(), dupCount; got != want {
		t.Fatalf("Remove deleted %d entries, want all %d duplicates", got, want)
	}

	var stillFound int
	tr.Query(Equals[float64](dup), func(v int, _ bound.Box[float64]) bool {
		if v == 7 {
			stillFound++
		}
		return true
	})
	if stillFound != 0 {
		t.Fatalf("%d duplicate(s) of value 7 survived Remove", stillFound)
	}
}

// TestQueryNearestCentroidMatchesBruteForce exercises the same randomized
// multi-bucket setup as TestQueryNearestMatchesBruteForce, but with Centroid
// and Furthest, whose Leaf metric is not a valid Node lower bound - the case
// that exposed the bucket-pruning bug where a leaf bucket's own aggregate
// bound was scored with Leaf instead of Node and could be pruned even though
// it held the true best candidate.
func TestQueryNearestCentroidMatchesBruteForce(t *testing.T) {
	sizes, err := NewPolicy(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	rnd := rand.New(rand.NewSource(4))
	const n = 200
	tr := New[int, float64](Quadratic[float64]{}, sizes, intEqual)
	oracle := NewExhaustive[int, float64](intEqual)
	for i := 0; i < n; i++ {
		bb := randomBox(rnd, 100, 10)
		tr.Insert(i, bb)
		oracle.Insert(i, bb)
	}
	checkInvariants(t, tr)

	query := bound.NewPoint([]float64{50, 50})
	preds := []struct {
		name string
		make func(int) DistancePredicate[float64]
	}{
		{"centroid", func(k int) DistancePredicate[float64] { return Centroid[float64](query, k) }},
		{"furthest", func(k int) DistancePredicate[float64] { return Furthest[float64](query, k) }},
	}
	for _, p := range preds {
		for _, k := range []int{1, 5} {
			got := tr.QueryNearest(p.make(k))
			want := oracle.QueryNearest(p.make(k))
			if len(got) != len(want) {
				t.Fatalf("%s k=%d: QueryNearest returned %d results, want %d", p.name, k, len(got), len(want))
			}
			for i := range got {
				if got[i].Key != want[i].Key {
					t.Errorf("%s k=%d result %d: key = %v, want %v", p.name, k, i, got[i].Key, want[i].Key)
				}
			}
		}
	}
}

func TestQueryNearestMatchesBruteForce(t *testing.T) {
	sizes, err := NewPolicy(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	rnd := rand.New(rand.NewSource(2))
	const n = 200
	tr := New[int, float64](Quadratic[float64]{}, sizes, intEqual)
	oracle := NewExhaustive[int, float64](intEqual)
	for i := 0; i < n; i++ {
		p := bound.NewPoint([]float64{rnd.Float64() * 100, rnd.Float64() * 100})
		tr.Insert(i, p)
		oracle.Insert(i, p)
	}

	query := bound.NewPoint([]float64{50, 50})
	const k = 5
	got := tr.QueryNearest(Nearest[float64](query, k))
	want := oracle.QueryNearest(Nearest[float64](query, k))

	if len(got) != len(want) {
		t.Fatalf("QueryNearest returned %d results, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].Key != want[i].Key {
			t.Errorf("result %d: key = %v, want %v", i, got[i].Key, want[i].Key)
		}
	}
}

// checkInvariants re-derives every non-root page's cached bound from its
// children and verifies it matches, and that every leaf is reachable from
// the root exactly once.
func checkInvariants[V any, T constraints.Float](t *testing.T, tr *Tree[V, T]) {
	t.Helper()
	if tr.engine.empty() {
		return
	}
	a := tr.engine.a

	for i := range a.nodes {
		node := &a.nodes[i]
		if node.isLeaf {
			continue
		}
		for _, e := range node.entries {
			child := a.get(e.child)
			union := child.entries[0].bound.Clone()
			for _, ce := range child.entries[1:] {
				union.Stretch(ce.bound)
			}
			if !bound.Equals(union, e.bound) {
				t.Fatalf("node %d entry pointing at %d has stale bound: cached=%v actual=%v", i, e.child, e.bound, union)
			}
		}
	}

	leafVisits := make(map[int]int)
	visited := make(map[int]bool)
	var recurse func(int)
	recurse = func(n int) {
		visited[n] = true
		node := a.get(n)
		if node.isLeaf {
			leafVisits[n]++
			return
		}
		for _, e := range node.entries {
			recurse(e.child)
		}
	}
	recurse(a.root)
	for n, count := range leafVisits {
		if count != 1 {
			t.Fatalf("leaf %d visited %d times", n, count)
		}
	}
	for i := range a.nodes {
		if !visited[i] {
			t.Fatalf("node %d unreachable from root", i)
		}
	}
}
