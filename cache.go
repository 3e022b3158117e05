package rct

import (
	"container/list"
	"sync"
	"time"

	"github.com/Baumus/rctgolib/protocol"
)

// Cache is a bounded, insertion-ordered response cache keyed by register
// id. An entry is served only within the TTL window; expired entries are
// removed on access. When full, Put first purges expired entries, then
// evicts oldest-by-insertion until strictly below capacity.
//
// Each Connection owns one Cache. Entries are immutable once inserted:
// overwriting replaces the entry and moves it to the back of the
// insertion order.
type Cache struct {
	ttl time.Duration
	max int

	mu      sync.Mutex
	entries map[uint32]*list.Element
	order   *list.List // cacheEntry values, oldest insertion at front
}

type cacheEntry struct {
	id         uint32
	dg         protocol.Datagram
	insertedAt time.Time
}

func NewCache(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		ttl:     ttl,
		max:     maxSize,
		entries: make(map[uint32]*list.Element, maxSize),
		order:   list.New(),
	}
}

// Get returns the cached datagram for id and whether it was a fresh hit.
// An expired entry is removed before returning a miss.
func (c *Cache) Get(id uint32) (protocol.Datagram, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[id]
	if !ok {
		return protocol.Datagram{}, false
	}
	entry := elem.Value.(*cacheEntry)
	if time.Since(entry.insertedAt) > c.ttl {
		c.removeLocked(elem)
		return protocol.Datagram{}, false
	}
	return entry.dg, true
}

// Put inserts or replaces the entry for id.
func (c *Cache) Put(id uint32, dg protocol.Datagram) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[id]; ok {
		c.removeLocked(elem)
	}

	if c.order.Len() >= c.max {
		c.purgeExpiredLocked()
		for c.order.Len() >= c.max {
			c.removeLocked(c.order.Front())
		}
	}

	entry := &cacheEntry{id: id, dg: dg, insertedAt: time.Now()}
	c.entries[id] = c.order.PushBack(entry)
}

// Cleanup sweeps expired entries. Safe to call opportunistically.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeExpiredLocked()
}

// Len returns the number of entries currently stored.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// All entries share one TTL and the list is insertion-ordered, so the
// expired ones form a prefix.
func (c *Cache) purgeExpiredLocked() {
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if time.Since(elem.Value.(*cacheEntry).insertedAt) <= c.ttl {
			break
		}
		c.removeLocked(elem)
		elem = next
	}
}

func (c *Cache) removeLocked(elem *list.Element) {
	delete(c.entries, elem.Value.(*cacheEntry).id)
	c.order.Remove(elem)
}
