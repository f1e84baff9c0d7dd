// ABOUTME: Thread-safe TTL cache for recognising Telegram updates that were already handled
// ABOUTME: Long polling can redeliver an update after a restart or a slow acknowledgement

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// entry stores when a key was marked and its position in the eviction order.
type entry[K comparable] struct {
	key      K
	markedAt time.Time
	element  *list.Element
}

// Cache is a thread-safe, TTL-based, size-limited set of seen keys.
// Entries are kept in a doubly-linked list in mark order for O(1) eviction.
type Cache[K comparable] struct {
	mu      sync.Mutex
	seen    map[K]*entry[K]
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a cache that forgets keys after ttl and holds at most maxSize keys.
// A background goroutine periodically drops expired entries until Close.
func New[K comparable](ttl time.Duration, maxSize int) *Cache[K] {
	if maxSize < 1 {
		maxSize = 1
	}
	c := &Cache[K]{
		seen:    make(map[K]*entry[K]),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Check reports whether key was marked within the TTL.
func (c *Cache[K]) Check(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.seen[key]
	return ok && c.now().Sub(e.markedAt) < c.ttl
}

// CheckAndMark atomically checks and marks key.
// It returns true if key is a duplicate, false if it is new and now marked.
func (c *Cache[K]) CheckAndMark(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.seen[key]; ok && c.now().Sub(e.markedAt) < c.ttl {
		return true
	}

	c.markLocked(key)
	return false
}

// Mark records key as seen, evicting the oldest key when full.
func (c *Cache[K]) Mark(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markLocked(key)
}

// Len returns the number of keys held, expired or not.
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// markLocked must be called with mu held.
func (c *Cache[K]) markLocked(key K) {
	now := c.now()

	if e, exists := c.seen[key]; exists {
		e.markedAt = now
		c.order.MoveToBack(e.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	e := &entry[K]{key: key, markedAt: now}
	e.element = c.order.PushBack(e)
	c.seen[key] = e
}

// evictOldest must be called with mu held.
func (c *Cache[K]) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	e, _ := front.Value.(*entry[K])
	c.order.Remove(front)
	delete(c.seen, e.key)
}

func (c *Cache[K]) cleanup() {
	interval := time.Minute
	if c.ttl > 0 && c.ttl < interval {
		interval = c.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

// runCleanup drops expired entries. Mark order equals age order, so it stops
// at the first live entry.
func (c *Cache[K]) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		e, _ := front.Value.(*entry[K])
		if now.Sub(e.markedAt) < c.ttl {
			return
		}
		c.order.Remove(front)
		delete(c.seen, e.key)
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Cache[K]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
