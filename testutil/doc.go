// Package testutil provides testing utilities for kdgo.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random point sets and for computing
// exact nearest neighbors as ground truth.
//
// # Random Point Generation
//
//	rng := testutil.NewRNG(seed)
//	data := testutil.UniformPoints[float32](rng, 1000, 3, 100)
//
// # Exact Search (Ground Truth)
//
//	id, dist2 := testutil.BruteForceClosest(data, dims, query, cutoff)
package testutil
