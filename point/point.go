// Package point defines the coordinate contract shared by the spatial
// indexes and the generic distance kernels that operate on it.
//
// The whole engine is parameterized over a Scalar coordinate type; every
// algorithm is written against the narrow Point capability contract
// (dimension count plus coordinate-by-index access) and instantiated per
// concrete point type.
package point

import "math"

// Scalar is the coordinate type of a point. It is a type parameter of the
// whole system: trees, queries and results all agree on one Scalar.
type Scalar interface {
	~float32 | ~float64
}

// Point exposes a fixed number of coordinates by axis index.
//
// Implementations must be cheap to call: Coord sits in the innermost loop
// of every distance computation.
type Point[S Scalar] interface {
	// Dims returns the number of coordinates.
	Dims() int

	// Coord returns the coordinate on axis i, 0 <= i < Dims().
	Coord(i int) S
}

// Vec is a dense coordinate vector, the canonical Point implementation.
type Vec[S Scalar] []S

var _ Point[float32] = Vec[float32]{}

// Dims returns the number of coordinates.
func (v Vec[S]) Dims() int { return len(v) }

// Coord returns the coordinate on axis i.
func (v Vec[S]) Coord(i int) S { return v[i] }

// Clone returns a copy of v.
func (v Vec[S]) Clone() Vec[S] {
	out := make(Vec[S], len(v))
	copy(out, v)
	return out
}

// SqrDistance returns the squared Euclidean distance between a and b.
//
// When the two points disagree on dimensionality, only the overlapping
// prefix of axes is compared. This is intentional, documented behavior for
// mixed-dimension point types, not an error; callers that require equal
// dimensionality must validate it themselves (the kdgo facade does).
func SqrDistance[S Scalar](a, b Point[S]) S {
	d := a.Dims()
	if bd := b.Dims(); bd < d {
		d = bd
	}
	var sum S
	for i := 0; i < d; i++ {
		diff := a.Coord(i) - b.Coord(i)
		sum += diff * diff
	}
	return sum
}

// Distance returns the Euclidean distance between a and b.
// It follows the same prefix rule as SqrDistance.
func Distance[S Scalar](a, b Point[S]) S {
	return Sqrt(SqrDistance(a, b))
}

// SquaredL2 is the flat-slice form of SqrDistance, used on the hot path
// where coordinates live in contiguous storage. It applies the same
// overlapping-prefix rule.
func SquaredL2[S Scalar](a, b []S) S {
	d := len(a)
	if len(b) < d {
		d = len(b)
	}
	var sum S
	for i := 0; i < d; i++ {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// Sqrt returns the square root of x in the scalar type of x.
func Sqrt[S Scalar](x S) S {
	return S(math.Sqrt(float64(x)))
}

// Inf returns positive infinity in the scalar type.
func Inf[S Scalar]() S {
	return S(math.Inf(1))
}
