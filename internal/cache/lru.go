package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/kdgo/resource"
)

// LRU is a byte-capacity-bounded BlockCache with least-recently-used
// eviction. When a resource.Controller is attached, cached bytes are
// accounted against its memory limit and entries the controller rejects
// are simply not cached.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

var _ BlockCache = (*LRU)(nil)

type entry struct {
	key   Key
	value []byte
}

// NewLRU creates an LRU cache holding at most capacity bytes of block
// payload. rc may be nil.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a cached block.
func (c *LRU) Get(_ context.Context, key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a block, evicting old entries to stay under capacity. Blocks
// larger than the whole capacity are not cached at all.
func (c *LRU) Set(_ context.Context, key Key, b []byte) {
	itemSize := int64(len(b))
	if itemSize > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		old := ent.Value.(*entry)
		oldSize := int64(len(old.value))
		if itemSize > oldSize && !c.tryReserve(itemSize-oldSize) {
			return
		}
		if itemSize < oldSize {
			c.release(oldSize - itemSize)
		}
		c.size += itemSize - oldSize
		old.value = b
		c.evictList.MoveToFront(ent)
		c.evict()
		return
	}

	if !c.tryReserve(itemSize) {
		return
	}
	c.size += itemSize
	c.items[key] = c.evictList.PushFront(&entry{key: key, value: b})
	c.evict()
}

// Invalidate removes entries matching the predicate.
func (c *LRU) Invalidate(predicate func(key Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, ent := range c.items {
		if predicate(key) {
			c.removeElement(ent)
		}
	}
}

// Stats returns hit and miss counts.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the cached payload bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// evict drops LRU entries until size fits capacity. Caller holds mu.
func (c *LRU) evict() {
	for c.size > c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			return
		}
		c.removeElement(ent)
	}
}

// removeElement unlinks an entry and returns its memory. Caller holds mu.
func (c *LRU) removeElement(ent *list.Element) {
	e := ent.Value.(*entry)
	c.evictList.Remove(ent)
	delete(c.items, e.key)
	c.size -= int64(len(e.value))
	c.release(int64(len(e.value)))
}

func (c *LRU) tryReserve(bytes int64) bool {
	return c.rc.TryAcquireMemory(bytes)
}

func (c *LRU) release(bytes int64) {
	c.rc.ReleaseMemory(bytes)
}
