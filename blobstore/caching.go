package blobstore

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/kdgo/internal/cache"
	"github.com/hupe1980/kdgo/resource"
)

const (
	// DefaultBlockSize is the cache block granularity.
	DefaultBlockSize = 64 << 10
	// DefaultCacheBytes is the cache capacity when none is configured.
	DefaultCacheBytes = 32 << 20

	// concurrentFills caps how many backend reads a single ReadAt issues
	// in parallel when it misses on several block runs.
	concurrentFills = 8
)

// CachingOptions configures a CachingStore.
type CachingOptions struct {
	// BlockSize is the granularity of cached reads. Defaults to
	// DefaultBlockSize.
	BlockSize int
	// CacheBytes is the cache capacity in bytes. Defaults to
	// DefaultCacheBytes.
	CacheBytes int64
	// Controller, when set, charges cached bytes against its memory
	// budget. Blocks the controller declines are served but not cached.
	Controller *resource.Controller
}

// CachingStore wraps another BlobStore with an in-memory block cache.
// It pays off when the backend is remote and reads revisit the same
// regions, such as snapshot headers and tree sections.
//
// The cache is kept coherent for writes issued through this store. Blobs
// rewritten directly on the inner store can serve stale blocks until
// Delete or Put is called for their name here.
type CachingStore struct {
	inner     BlobStore
	cache     *cache.LRU
	blockSize int
}

var _ BlobStore = (*CachingStore)(nil)

// NewCachingStore wraps inner with a block cache.
func NewCachingStore(inner BlobStore, opts CachingOptions) *CachingStore {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.CacheBytes <= 0 {
		opts.CacheBytes = DefaultCacheBytes
	}
	return &CachingStore{
		inner:     inner,
		cache:     cache.NewLRU(opts.CacheBytes, opts.Controller),
		blockSize: opts.BlockSize,
	}
}

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	inner, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{store: s, inner: inner, name: name, size: inner.Size()}, nil
}

func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingWritableBlob{WritableBlob: w, store: s, name: name}, nil
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.inner.Put(ctx, name, data); err != nil {
		return err
	}
	s.invalidatePath(name)
	return nil
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	if err := s.inner.Delete(ctx, name); err != nil {
		return err
	}
	s.invalidatePath(name)
	return nil
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns cache hit and miss counts.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}

func (s *CachingStore) invalidatePath(name string) {
	s.cache.Invalidate(func(k cache.Key) bool { return k.Path == name })
}

// cachingBlob satisfies reads block by block from the cache, fetching
// contiguous runs of missing blocks from the backend in single reads.
type cachingBlob struct {
	store *CachingStore
	inner Blob
	name  string
	size  int64
}

func (b *cachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= b.size {
		return 0, io.EOF
	}
	short := false
	if available := b.size - off; int64(len(p)) > available {
		p = p[:available]
		short = true
	}
	if len(p) == 0 {
		return 0, nil
	}

	bs := int64(b.store.blockSize)
	first := off / bs
	last := (off + int64(len(p)) - 1) / bs

	type run struct{ first, last int64 }
	var missing []run
	for blk := first; blk <= last; blk++ {
		data, ok := b.store.cache.Get(ctx, cache.Key{Path: b.name, Block: uint64(blk)})
		if ok {
			b.copyBlock(p, off, blk, data)
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].last == blk-1 {
			missing[n-1].last = blk
		} else {
			missing = append(missing, run{first: blk, last: blk})
		}
	}

	if len(missing) > 0 {
		// Runs cover disjoint regions of p, so fills can proceed in
		// parallel.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrentFills)
		for _, r := range missing {
			r := r
			g.Go(func() error {
				return b.fillRun(gctx, p, off, r.first, r.last)
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
	}

	if short {
		return len(p), io.EOF
	}
	return len(p), nil
}

// fillRun fetches blocks [first, last] from the backend in one read,
// caches each block, and copies the requested window into p.
func (b *cachingBlob) fillRun(ctx context.Context, p []byte, off, first, last int64) error {
	bs := int64(b.store.blockSize)
	start := first * bs
	end := (last + 1) * bs
	if end > b.size {
		end = b.size
	}
	buf := make([]byte, end-start)
	n, err := b.inner.ReadAt(ctx, buf, start)
	if n < len(buf) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("fill blocks %d..%d of %s: %w", first, last, b.name, err)
	}

	for blk := first; blk <= last; blk++ {
		bo := (blk - first) * bs
		be := bo + bs
		if be > int64(len(buf)) {
			be = int64(len(buf))
		}
		// Detach the block from the run buffer so a cached block does not
		// pin the whole fetch.
		block := append([]byte(nil), buf[bo:be]...)
		b.store.cache.Set(ctx, cache.Key{Path: b.name, Block: uint64(blk)}, block)
		b.copyBlock(p, off, blk, block)
	}
	return nil
}

// copyBlock copies the intersection of block blk with the window
// [off, off+len(p)) into p.
func (b *cachingBlob) copyBlock(p []byte, off, blk int64, data []byte) {
	blockStart := blk * int64(b.store.blockSize)
	from := off - blockStart
	if from < 0 {
		from = 0
	}
	to := off + int64(len(p)) - blockStart
	if to > int64(len(data)) {
		to = int64(len(data))
	}
	if from >= to {
		return
	}
	copy(p[blockStart+from-off:], data[from:to])
}

func (b *cachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if off < 0 || off > b.size {
		return nil, fmt.Errorf("range offset %d out of bounds", off)
	}
	return NewSectionReader(ctx, b, off, length), nil
}

func (b *cachingBlob) Size() int64 { return b.size }

func (b *cachingBlob) Close() error { return b.inner.Close() }

// invalidatingWritableBlob drops cached blocks for a name once a rewrite
// through Create commits.
type invalidatingWritableBlob struct {
	WritableBlob
	store *CachingStore
	name  string
}

func (w *invalidatingWritableBlob) Close() error {
	err := w.WritableBlob.Close()
	w.store.invalidatePath(w.name)
	return err
}
