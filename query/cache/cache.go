// Package cache provides the bounded LRU that sessions use to keep
// prepared statements alive across executions. Entries carry an optional
// TTL and evictions flow through a callback so the owner can release the
// underlying resource.
package cache

import (
	"sync"
	"time"
)

// EvictFunc is called with every entry that leaves the cache, whether by
// capacity pressure, expiry, replacement, Remove, or Clear.
type EvictFunc func(key string, value any)

// Stats is a point-in-time snapshot of cache behavior.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	Capacity  int
	HitRate   float64
}

// LRU is a mutex-guarded LRU with TTL. The zero value is not usable;
// construct with New.
type LRU struct {
	mu       sync.Mutex
	entries  map[string]*node
	capacity int
	ttl      time.Duration
	onEvict  EvictFunc

	head *node
	tail *node

	hits      int64
	misses    int64
	evictions int64
}

type node struct {
	key       string
	value     any
	expiresAt time.Time
	prev      *node
	next      *node
}

// New builds a cache holding at most capacity entries. A ttl of zero
// disables expiry. onEvict may be nil.
func New(capacity int, ttl time.Duration, onEvict EvictFunc) *LRU {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU{
		entries:  make(map[string]*node, capacity),
		capacity: capacity,
		ttl:      ttl,
		onEvict:  onEvict,
	}
}

// Get returns the live entry for key and marks it most recently used.
// An expired entry is evicted and counts as a miss.
func (c *LRU) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !n.expiresAt.IsZero() && time.Now().After(n.expiresAt) {
		c.evict(n)
		c.misses++
		return nil, false
	}
	c.moveToFront(n)
	c.hits++
	return n.value, true
}

// Put inserts or replaces the entry for key. A replaced value is evicted
// through the callback; at capacity the least recently used entry goes.
func (c *LRU) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	if n, ok := c.entries[key]; ok {
		old := n.value
		n.value = value
		n.expiresAt = expiresAt
		c.moveToFront(n)
		if c.onEvict != nil && old != value {
			c.onEvict(key, old)
		}
		return
	}

	if len(c.entries) >= c.capacity && c.tail != nil {
		c.evict(c.tail)
	}

	n := &node{key: key, value: value, expiresAt: expiresAt}
	c.addToFront(n)
	c.entries[key] = n
}

// Remove evicts the entry for key if present.
func (c *LRU) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.entries[key]; ok {
		c.evict(n)
	}
}

// Clear evicts every entry.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.head != nil {
		c.evict(c.head)
	}
}

// Len returns the number of live entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot returns current statistics.
func (c *LRU) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
		Capacity:  c.capacity,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *LRU) evict(n *node) {
	c.unlink(n)
	delete(c.entries, n.key)
	c.evictions++
	if c.onEvict != nil {
		c.onEvict(n.key, n.value)
	}
}

func (c *LRU) addToFront(n *node) {
	if c.head == nil {
		c.head = n
		c.tail = n
		return
	}
	n.next = c.head
	c.head.prev = n
	c.head = n
}

func (c *LRU) moveToFront(n *node) {
	if n == c.head {
		return
	}
	c.unlink(n)
	n.prev = nil
	n.next = nil
	c.addToFront(n)
}

func (c *LRU) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
}
