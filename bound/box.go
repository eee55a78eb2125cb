// Package bound implements an axis-aligned bounding box fixed at a runtime
// dimension, together with the geometric predicates and distance metrics
// the rest of the module builds on.
package bound

import (
	"math"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
)

// Box is an axis-aligned bounding box over N = len(Min) dimensions. The zero
// value is not a valid box; use New or Reset.
type Box[T constraints.Float] struct {
	Min []T
	Max []T
}

// New builds a Box from the given min and max corners. The slices are
// retained, not copied; callers should not mutate them afterward.
func New[T constraints.Float](min, max []T) Box[T] {
	if len(min) != len(max) {
		panic("bound: min and max have different dimension")
	}
	return Box[T]{Min: min, Max: max}
}

// NewPoint builds a degenerate Box whose Min and Max both equal point.
func NewPoint[T constraints.Float](point []T) Box[T] {
	min := make([]T, len(point))
	max := make([]T, len(point))
	copy(min, point)
	copy(max, point)
	return Box[T]{Min: min, Max: max}
}

// Dim returns the number of dimensions.
func (b Box[T]) Dim() int {
	return len(b.Min)
}

// Length returns the extent of the box along dimension i.
func (b Box[T]) Length(i int) T {
	return b.Max[i] - b.Min[i]
}

// Center returns the midpoint coordinate along dimension i.
func (b Box[T]) Center(i int) T {
	return (b.Max[i] + b.Min[i]) / 2
}

// Area returns the product of the box's lengths along every dimension.
func (b Box[T]) Area() T {
	area := b.Length(0)
	for i := 1; i < b.Dim(); i++ {
		area *= b.Length(i)
	}
	return area
}

// LongestDimension returns the index of the longest dimension, ties broken
// toward the smaller index.
func (b Box[T]) LongestDimension() int {
	lengths := make([]float64, b.Dim())
	for i := range lengths {
		lengths[i] = float64(b.Length(i))
	}
	return floats.MaxIdx(lengths)
}

// Reset sets the box to the "negative volume" box such that a Stretch by any
// valid box yields exactly that box.
func (b *Box[T]) Reset() {
	for i := range b.Min {
		b.Min[i] = maxFinite[T]()
		b.Max[i] = lowestFinite[T]()
	}
}

// Stretch enlarges b, in place, to be the smallest box containing both b and
// other.
func (b *Box[T]) Stretch(other Box[T]) {
	if len(b.Min) == 0 {
		b.Min = make([]T, other.Dim())
		b.Max = make([]T, other.Dim())
		copy(b.Min, other.Min)
		copy(b.Max, other.Max)
		return
	}
	for i := range b.Min {
		if other.Min[i] < b.Min[i] {
			b.Min[i] = other.Min[i]
		}
		if other.Max[i] > b.Max[i] {
			b.Max[i] = other.Max[i]
		}
	}
}

// NextLarger nudges every coordinate one floating-point step outward.
func (b *Box[T]) NextLarger() {
	for i := range b.Min {
		b.Min[i] = T(math.Nextafter(float64(b.Min[i]), math.Inf(-1)))
		b.Max[i] = T(math.Nextafter(float64(b.Max[i]), math.Inf(1)))
	}
}

// NextSmaller nudges every coordinate one floating-point step inward.
func (b *Box[T]) NextSmaller() {
	for i := range b.Min {
		b.Min[i] = T(math.Nextafter(float64(b.Min[i]), math.Inf(1)))
		b.Max[i] = T(math.Nextafter(float64(b.Max[i]), math.Inf(-1)))
	}
}

// Clone returns an independent copy of b.
func (b Box[T]) Clone() Box[T] {
	min := make([]T, len(b.Min))
	max := make([]T, len(b.Max))
	copy(min, b.Min)
	copy(max, b.Max)
	return Box[T]{Min: min, Max: max}
}

// Less is a deterministic total order over boxes, comparing Min coordinates
// axis by axis. It is used to give RCB's output a stable ordering and as a
// sort key anywhere a value type needs one.
func Less[T constraints.Float](a, b Box[T]) bool {
	for i := 0; i < a.Dim(); i++ {
		if a.Min[i] < b.Min[i] {
			return true
		}
		if a.Min[i] > b.Min[i] {
			return false
		}
	}
	return false
}

// Disjoint reports whether a and b do not touch at any location.
func Disjoint[T constraints.Float](a, b Box[T]) bool {
	for i := 0; i < a.Dim(); i++ {
		if a.Max[i] < b.Min[i] || b.Max[i] < a.Min[i] {
			return true
		}
	}
	return false
}

// Intersects reports whether a and b touch or overlap (non-strict).
func Intersects[T constraints.Float](a, b Box[T]) bool {
	for i := 0; i < a.Dim(); i++ {
		if !(a.Min[i] <= b.Max[i] && a.Max[i] >= b.Min[i]) {
			return false
		}
	}
	return true
}

// Overlaps reports whether a and b overlap with positive area (strict).
func Overlaps[T constraints.Float](a, b Box[T]) bool {
	for i := 0; i < a.Dim(); i++ {
		if !(a.Min[i] < b.Max[i] && a.Max[i] > b.Min[i]) {
			return false
		}
	}
	return true
}

// Contains reports whether a fully contains b, touching permitted.
func Contains[T constraints.Float](a, b Box[T]) bool {
	for i := 0; i < a.Dim(); i++ {
		if !(a.Min[i] <= b.Min[i] && a.Max[i] >= b.Max[i]) {
			return false
		}
	}
	return true
}

// ContainsNonInclusive reports whether a contains b, strict on the max side
// only. This is the containment test RCB relies on to give a point lying
// exactly on a shared face between two adjacent cells a unique owner.
func ContainsNonInclusive[T constraints.Float](a, b Box[T]) bool {
	for i := 0; i < a.Dim(); i++ {
		if !(a.Min[i] <= b.Min[i] && a.Max[i] > b.Max[i]) {
			return false
		}
	}
	return true
}

// Covers reports whether a fully covers b, strict on both sides.
func Covers[T constraints.Float](a, b Box[T]) bool {
	for i := 0; i < a.Dim(); i++ {
		if !(a.Min[i] < b.Min[i] && a.Max[i] > b.Max[i]) {
			return false
		}
	}
	return true
}

// Equals reports whether a and b have identical coordinates.
func Equals[T constraints.Float](a, b Box[T]) bool {
	for i := 0; i < a.Dim(); i++ {
		if a.Min[i] != b.Min[i] || a.Max[i] != b.Max[i] {
			return false
		}
	}
	return true
}

// Union returns the smallest box containing both a and b.
func Union[T constraints.Float](a, b Box[T]) Box[T] {
	u := a.Clone()
	u.Stretch(b)
	return u
}

// IncreaseToHold returns the increase in a's area required so that a would
// also contain b.
func IncreaseToHold[T constraints.Float](a, b Box[T]) T {
	return Union(a, b).Area() - a.Area()
}

// Nearest returns the squared Euclidean distance between the nearest points
// of a and b. Boxes that touch or overlap along every axis have distance 0.
func Nearest[T constraints.Float](a, b Box[T]) T {
	var distSq T
	for i := 0; i < a.Dim(); i++ {
		bigger := maxT(T(0), b.Min[i]-a.Max[i])
		smaller := maxT(T(0), a.Min[i]-b.Max[i])
		d := maxT(bigger, smaller)
		distSq += d * d
	}
	return distSq
}

// Centroid returns the squared Euclidean distance between the centers of a
// and b.
func Centroid[T constraints.Float](a, b Box[T]) T {
	var distSq T
	for i := 0; i < a.Dim(); i++ {
		d := T(0.5) * (a.Max[i] + a.Min[i] - b.Max[i] - b.Min[i])
		distSq += d * d
	}
	return distSq
}

// Furthest returns the squared Euclidean distance between the furthest
// points of a and b. Axes along which one box fully contains the other
// contribute 0.
func Furthest[T constraints.Float](a, b Box[T]) T {
	var distSq T
	for i := 0; i < a.Dim(); i++ {
		if (a.Max[i] < b.Max[i]) != (b.Min[i] < a.Min[i]) {
			bigger := b.Max[i] - a.Min[i]
			smaller := b.Min[i] - a.Max[i]
			distSq += maxT(bigger*bigger, smaller*smaller)
		}
	}
	return distSq
}

func maxT[T constraints.Float](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func maxFinite[T constraints.Float]() T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return T(math.MaxFloat32)
	default:
		max64 := math.MaxFloat64
		return T(max64)
	}
}

func lowestFinite[T constraints.Float]() T {
	return -maxFinite[T]()
}
