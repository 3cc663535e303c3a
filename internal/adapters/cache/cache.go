// Package cache memoizes query results per dataset snapshot.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/okian/churnlens/pkg/metrics"
)

// Key identifies one cached result. Snapshot ties the entry to the dataset
// it was computed from; Hash is the structural hash of the query parameters.
type Key struct {
	Snapshot uuid.UUID
	Kind     string
	Hash     uint64
}

// Cache is a bounded query-result cache.
type Cache[V any] interface {
	// Get returns the cached value for key.
	Get(ctx context.Context, key Key) (V, bool)
	// Put stores value under key. A key from a newer snapshot drops every
	// entry of the previous one.
	Put(ctx context.Context, key Key, value V)
	// GetOrCompute returns the cached value or computes and stores it.
	GetOrCompute(ctx context.Context, key Key, compute func() (V, error)) (V, error)
	// Purge drops all entries.
	Purge()
	Size() int64
}

// node is one entry in the insertion-ordered list.
type node[V any] struct {
	key        Key
	value      V
	prev, next *node[V]
}

func (n *node[V]) reset() {
	var zero V
	n.key = Key{}
	n.value = zero
	n.prev = nil
	n.next = nil
}

// inMemoryCache evicts the oldest inserted entry once maxSize is reached.
// With maxSize <= 0 the cache is disabled and every lookup misses.
type inMemoryCache[V any] struct {
	mu       sync.Mutex
	entries  map[Key]*node[V]
	head     *node[V] // most recently inserted
	tail     *node[V] // oldest
	snapshot uuid.UUID
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// New creates an in-memory cache.
func New[V any](opts ...Option) Cache[V] {
	o := options{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}
	c := &inMemoryCache[V]{
		maxSize: o.maxSize,
		entries: make(map[Key]*node[V]),
	}
	c.nodePool = sync.Pool{
		New: func() interface{} {
			return &node[V]{}
		},
	}
	return c
}

func (c *inMemoryCache[V]) Get(ctx context.Context, key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		metrics.RecordCacheHit()
		return n.value, true
	}
	metrics.RecordCacheMiss()
	var zero V
	return zero, false
}

func (c *inMemoryCache[V]) Put(ctx context.Context, key Key, value V) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if key.Snapshot != c.snapshot {
		c.purgeLocked()
		c.snapshot = key.Snapshot
	}
	if n, ok := c.entries[key]; ok {
		n.value = value
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	n := c.nodePool.Get().(*node[V])
	n.key = key
	n.value = value
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
	c.entries[key] = n
	c.size.Add(1)
	metrics.UpdateCacheSize(len(c.entries))
}

func (c *inMemoryCache[V]) GetOrCompute(ctx context.Context, key Key, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	c.Put(ctx, key, v)
	return v, nil
}

func (c *inMemoryCache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()
}

func (c *inMemoryCache[V]) purgeLocked() {
	for n := c.head; n != nil; {
		next := n.next
		n.reset()
		c.nodePool.Put(n)
		n = next
	}
	clear(c.entries)
	c.head, c.tail = nil, nil
	c.size.Store(0)
	metrics.UpdateCacheSize(0)
}

// evictOldest removes the tail. Must be called with c.mu held.
func (c *inMemoryCache[V]) evictOldest() {
	n := c.tail
	if n == nil {
		return
	}
	c.tail = n.prev
	if c.tail != nil {
		c.tail.next = nil
	} else {
		c.head = nil
	}
	delete(c.entries, n.key)
	n.reset()
	c.nodePool.Put(n)
	c.size.Add(-1)
	metrics.RecordCacheEviction()
}

// Size returns the current number of entries.
func (c *inMemoryCache[V]) Size() int64 {
	return c.size.Load()
}
