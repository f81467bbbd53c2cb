package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/kdgo/point"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// NormFloat64 returns a standard-normal pseudo-random number.
func (r *RNG) NormFloat64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.NormFloat64()
}

// UniformPoints returns flat row-major coordinates for num points with
// values in [0, scale). A single backing array keeps the layout identical
// to what the tree builders consume.
func UniformPoints[S point.Scalar](r *RNG, num, dims int, scale S) []S {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]S, num*dims)
	for i := range data {
		data[i] = S(r.rand.Float64()) * scale
	}
	return data
}

// ClusteredPoints returns flat row-major coordinates for num points
// grouped around `clusters` random centroids with Gaussian noise of the
// given spread. Useful for exercising pruning on non-uniform data.
func ClusteredPoints[S point.Scalar](r *RNG, num, dims, clusters int, spread float64) []S {
	r.mu.Lock()
	defer r.mu.Unlock()

	centroids := make([]float64, clusters*dims)
	for i := range centroids {
		centroids[i] = r.rand.Float64() * 100
	}

	data := make([]S, num*dims)
	for i := 0; i < num; i++ {
		c := (i % clusters) * dims
		for j := 0; j < dims; j++ {
			data[i*dims+j] = S(centroids[c+j] + r.rand.NormFloat64()*spread)
		}
	}
	return data
}

// QueryPoint returns one random query with values in [-pad, scale+pad),
// so some queries land outside the data's bounding box.
func QueryPoint[S point.Scalar](r *RNG, dims int, scale, pad S) []S {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := make([]S, dims)
	span := scale + 2*pad
	for i := range q {
		q[i] = S(r.rand.Float64())*span - pad
	}
	return q
}

// BruteForceClosest scans every point for the exact nearest neighbor
// within the cutoff radius. It mirrors the engine's acceptance rule
// (strictly closer than the current best, best-so-far initialized to the
// squared cutoff) and returns -1 when nothing qualifies, so results are
// directly comparable to tree traversals.
func BruteForceClosest[S point.Scalar](data []S, dims int, q []S, cutoff S) (int32, S) {
	best := int32(-1)
	var cull S
	if cutoff <= 0 {
		cull = 0
	} else {
		cull = cutoff * cutoff
	}

	n := len(data) / dims
	for i := 0; i < n; i++ {
		d2 := point.SquaredL2(q, data[i*dims:(i+1)*dims])
		if d2 < cull {
			best = int32(i)
			cull = d2
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, cull
}
