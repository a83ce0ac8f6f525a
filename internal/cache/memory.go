package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache holding at most capacity entries. An entry
// expires ttl after it was last written; with a ttl of 0 it stays until it
// is evicted or deleted. A full cache drops the entry read or written
// longest ago.
type Memory[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	recency  *list.List // front is the most recently used
	clock    func() time.Time
	stats    Stats
}

// Stats counts lookups and removals since the cache was built.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
	Expired   int
}

type memoryEntry[T any] struct {
	key      string
	value    T
	deadline time.Time // zero never expires
}

func (e *memoryEntry[T]) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

func NewMemory[T any](capacity int, ttl time.Duration) *Memory[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory[T]{
		capacity: capacity,
		ttl:      ttl,
		index:    make(map[string]*list.Element, capacity),
		recency:  list.New(),
		clock:    time.Now,
	}
}

func (c *Memory[T]) Get(_ context.Context, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.stats.Misses++
		var zero T
		return zero, false
	}
	e := el.Value.(*memoryEntry[T])
	if e.expired(c.clock()) {
		c.unlink(el)
		c.stats.Expired++
		c.stats.Misses++
		var zero T
		return zero, false
	}
	c.recency.MoveToFront(el)
	c.stats.Hits++
	return e.value, true
}

func (c *Memory[T]) Set(_ context.Context, key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &memoryEntry[T]{key: key, value: value}
	if c.ttl > 0 {
		e.deadline = c.clock().Add(c.ttl)
	}
	if el, ok := c.index[key]; ok {
		el.Value = e
		c.recency.MoveToFront(el)
		return
	}
	c.index[key] = c.recency.PushFront(e)
	for c.recency.Len() > c.capacity {
		c.unlink(c.recency.Back())
		c.stats.Evictions++
	}
}

func (c *Memory[T]) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.unlink(el)
	}
}

func (c *Memory[T]) unlink(el *list.Element) {
	delete(c.index, el.Value.(*memoryEntry[T]).key)
	c.recency.Remove(el)
}

// CleanExpired drops expired entries and reports how many it dropped.
func (c *Memory[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl <= 0 {
		return 0
	}

	now := c.clock()
	dropped := 0
	for el := c.recency.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*memoryEntry[T]).expired(now) {
			c.unlink(el)
			dropped++
		}
		el = prev
	}
	c.stats.Expired += dropped
	return dropped
}

// Len is the number of stored entries, expired ones included until they
// are cleaned or read.
func (c *Memory[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.Len()
}

func (c *Memory[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
