// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package cache provides the bounded LRU used to suppress retransmitted
// datagrams.
package cache

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DatagramKey identifies a datagram by sender and exact payload bytes.
func DatagramKey(source string, payload []byte) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(source)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(payload)
	return d.Sum64()
}

type lruEntry struct {
	key       uint64
	firstSeen time.Time
	expiresAt time.Time
	prev      *lruEntry
	next      *lruEntry
}

// LRUCache is a thread-safe LRU set with per-entry TTL. It remembers keys,
// not values: the only question it answers is "seen recently?".
//
// Expired entries are dropped lazily on access and by CleanupExpired.
// When full, the least recently seen key is evicted.
type LRUCache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	// OnEvict, when set, is called (with the lock held) for capacity evictions.
	OnEvict func()

	items map[uint64]*lruEntry

	// head.next is the most recently seen, tail.prev the least
	head *lruEntry
	tail *lruEntry

	hits   int64
	misses int64
}

// NewLRUCache creates a cache holding at most capacity keys for ttl each.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 4096
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	c := &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[uint64]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// SetClock replaces the time source. Intended for tests.
func (c *LRUCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// IsDuplicate reports whether key was seen within the TTL. A key that was
// not seen is recorded. A duplicate does not extend the original TTL, so a
// sender repeating the same payload forever is let through once per window.
func (c *LRUCache) IsDuplicate(key uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if entry, exists := c.items[key]; exists {
		if now.Before(entry.expiresAt) {
			c.moveToFront(entry)
			c.hits++
			return true
		}
		c.removeEntry(entry)
	}

	entry := &lruEntry{
		key:       key,
		firstSeen: now,
		expiresAt: now.Add(c.ttl),
	}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}

	c.misses++
	return false
}

// Contains reports whether key is present and live, without recording it.
func (c *LRUCache) Contains(key uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	return exists && c.now().Before(entry.expiresAt)
}

// FirstSeen returns when a live key was recorded.
func (c *LRUCache) FirstSeen(key uint64) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists || !c.now().Before(entry.expiresAt) {
		return time.Time{}, false
	}
	return entry.firstSeen, true
}

// Len returns the number of entries, including expired ones not yet dropped.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanupExpired removes expired entries and returns how many were removed.
func (c *LRUCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if !now.Before(entry.expiresAt) {
			c.removeEntry(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

// Stats returns duplicate hits, first sightings and current size.
func (c *LRUCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// Internal methods (must be called with lock held)

func (c *LRUCache) addToFront(entry *lruEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRUCache) moveToFront(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRUCache) removeEntry(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *LRUCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
	if c.OnEvict != nil {
		c.OnEvict()
	}
}
