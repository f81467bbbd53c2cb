// Package cache provides a byte-oriented block cache for immutable blob
// data.
package cache

import "context"

// Key addresses one fixed-size block of a named blob.
type Key struct {
	Path  string
	Block uint64
}

// BlockCache caches immutable blocks. Returned slices must be treated as
// read-only.
type BlockCache interface {
	// Get returns a cached block. ok is false on a miss.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a block. The cache retains b; callers must not mutate it.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
}
