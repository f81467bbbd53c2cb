package kdtree

import (
	"slices"

	"github.com/hupe1980/kdgo/point"
)

// BuildOptions configures tree construction.
type BuildOptions struct {
	// LeafSize is the target number of primitives per leaf bucket.
	// Buckets may exceed it by one point on unbalanced counts.
	LeafSize int
}

// DefaultBuildOptions are the construction defaults.
var DefaultBuildOptions = BuildOptions{
	LeafSize: 8,
}

func applyBuildOptions(optFns []func(*BuildOptions)) BuildOptions {
	opts := DefaultBuildOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.LeafSize < 1 {
		opts.LeafSize = 1
	}
	return opts
}

// checkData validates the flat row-major layout and returns the point
// count.
func checkData[S point.Scalar](data []S, dims int) (int, error) {
	if dims <= 0 {
		return 0, ErrInvalidDims
	}
	if len(data)%dims != 0 {
		return 0, ErrRaggedData
	}
	return len(data) / dims, nil
}

// identityPerm returns [0, 1, ..., n-1].
func identityPerm(n int) []int32 {
	perm := make([]int32, n)
	for i := range perm {
		perm[i] = int32(i)
	}
	return perm
}

// widestAxis returns the axis with the greatest coordinate spread over
// perm[lo:hi], the classic split heuristic.
func widestAxis[S point.Scalar](data []S, dims int, perm []int32, lo, hi int) int32 {
	axis := int32(0)
	var best S
	best = -point.Inf[S]()
	for d := 0; d < dims; d++ {
		minV := point.Inf[S]()
		maxV := -point.Inf[S]()
		for i := lo; i < hi; i++ {
			v := data[int(perm[i])*dims+d]
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		if spread := maxV - minV; spread > best {
			best = spread
			axis = int32(d)
		}
	}
	return axis
}

// sortByAxis orders perm[lo:hi] by the given axis coordinate, breaking
// ties on the primitive id so builds are deterministic.
func sortByAxis[S point.Scalar](data []S, dims int, perm []int32, lo, hi int, axis int32) {
	sub := perm[lo:hi]
	slices.SortFunc(sub, func(a, b int32) int {
		av := data[int(a)*dims+int(axis)]
		bv := data[int(b)*dims+int(axis)]
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	})
}

// boundsOf computes the bounding box of all n points.
func boundsOf[S point.Scalar](data []S, n, dims int) Bounds[S] {
	b := NewBounds[S](dims)
	for i := 0; i < n; i++ {
		b.Extend(data[i*dims : (i+1)*dims])
	}
	return b
}
