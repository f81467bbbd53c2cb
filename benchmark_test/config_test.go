package benchmark_test

import (
	"testing"

	"github.com/hupe1980/kdgo"
	"github.com/hupe1980/kdgo/kdtree"
	"github.com/hupe1980/kdgo/testutil"
)

// ============================================================================
// Benchmark Configuration
// ============================================================================

// Standard dimensions used across benchmarks for consistency.
const (
	dimLow  = 2 // Maps, game worlds
	dimMid  = 3 // Point clouds, physics
	dimHigh = 8 // Feature spaces where KD trees still pay off
)

// Standard dataset sizes.
const (
	sizeSmall  = 10_000    // Quick iteration
	sizeMedium = 100_000   // Default CI
	sizeLarge  = 1_000_000 // Production-scale
)

// Seed for deterministic benchmarks - enables reproducible comparisons.
const benchSeed = 4711

var allStrategies = []kdtree.Strategy{
	kdtree.StrategyDenseStack,
	kdtree.StrategySpatialStack,
	kdtree.StrategyDenseStackFree,
	kdtree.StrategySpatialStackFree,
}

// ============================================================================
// Benchmark Helpers
// ============================================================================

// buildIndex creates an index over uniform points with a fresh seeded RNG.
func buildIndex(b *testing.B, numPoints, dims int, optFns ...kdgo.Option) (*kdgo.KDGo[float32], []float32) {
	b.Helper()

	rng := testutil.NewRNG(benchSeed)
	data := testutil.UniformPoints[float32](rng, numPoints, dims, 1000)

	db, err := kdgo.New(data, dims, optFns...)
	if err != nil {
		b.Fatal(err)
	}
	return db, data
}

// benchQueries returns a deterministic query workload. The pad keeps a
// share of queries slightly outside the data's bounding box.
func benchQueries(numQueries, dims int) [][]float32 {
	rng := testutil.NewRNG(benchSeed + 1)

	queries := make([][]float32, numQueries)
	for i := range queries {
		queries[i] = testutil.QueryPoint[float32](rng, dims, 1000, 50)
	}
	return queries
}
