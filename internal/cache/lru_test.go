// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClockedCache(capacity int, ttl time.Duration) (*LRUCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache(capacity, ttl)
	c.SetClock(clock.Now)
	return c, clock
}

func TestDatagramKey(t *testing.T) {
	t.Parallel()

	payload := []byte("Lat: 11.0\nLon: -74.8\nTime: 02/03/2026 12:00:00")
	base := DatagramKey("10.0.0.1:5000", payload)

	if DatagramKey("10.0.0.1:5000", append([]byte(nil), payload...)) != base {
		t.Error("same source and payload produced different keys")
	}
	if DatagramKey("10.0.0.2:5000", payload) == base {
		t.Error("different source produced the same key")
	}
	if DatagramKey("10.0.0.1:5000", append(payload, ' ')) == base {
		t.Error("different payload produced the same key")
	}
	// the separator keeps "a"+"bc" and "ab"+"c" apart
	if DatagramKey("a", []byte("bc")) == DatagramKey("ab", []byte("c")) {
		t.Error("source/payload boundary not encoded")
	}
}

func TestLRUCache_IsDuplicate(t *testing.T) {
	c, _ := newClockedCache(100, time.Minute)

	if c.IsDuplicate(1) {
		t.Error("First occurrence should not be duplicate")
	}
	if !c.IsDuplicate(1) {
		t.Error("Second occurrence should be duplicate")
	}
	if c.IsDuplicate(2) {
		t.Error("Different key should not be duplicate")
	}

	hits, misses, size := c.Stats()
	if hits != 1 || misses != 2 || size != 2 {
		t.Errorf("Stats() = (%d, %d, %d), want (1, 2, 2)", hits, misses, size)
	}
}

func TestLRUCache_TTLExpiration(t *testing.T) {
	c, clock := newClockedCache(10, 10*time.Second)

	c.IsDuplicate(7)
	clock.Advance(9 * time.Second)
	if !c.IsDuplicate(7) {
		t.Error("expected duplicate inside the window")
	}

	// a duplicate does not extend the window
	clock.Advance(time.Second)
	if c.Contains(7) {
		t.Error("entry should expire 10s after first sighting")
	}
	if c.IsDuplicate(7) {
		t.Error("expired key reported as duplicate")
	}
	if !c.Contains(7) {
		t.Error("expired key should be re-recorded")
	}
}

func TestLRUCache_FirstSeen(t *testing.T) {
	c, clock := newClockedCache(10, time.Minute)
	start := clock.Now()

	c.IsDuplicate(3)
	clock.Advance(5 * time.Second)
	c.IsDuplicate(3)

	got, ok := c.FirstSeen(3)
	if !ok || !got.Equal(start) {
		t.Errorf("FirstSeen = (%v, %v), want (%v, true)", got, ok, start)
	}
	if _, ok := c.FirstSeen(4); ok {
		t.Error("FirstSeen found unknown key")
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c, _ := newClockedCache(3, time.Minute)
	evicted := 0
	c.OnEvict = func() { evicted++ }

	c.IsDuplicate(1)
	c.IsDuplicate(2)
	c.IsDuplicate(3)

	// Touch 1 so that 2 is least recently seen
	c.IsDuplicate(1)
	c.IsDuplicate(4)

	if c.Contains(2) {
		t.Error("Expected 2 to be evicted")
	}
	for _, k := range []uint64{1, 3, 4} {
		if !c.Contains(k) {
			t.Errorf("Expected %d to be present", k)
		}
	}
	if evicted != 1 {
		t.Errorf("OnEvict called %d times, want 1", evicted)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	c, clock := newClockedCache(10, 50*time.Millisecond)

	c.IsDuplicate(1)
	c.IsDuplicate(2)
	c.IsDuplicate(3)
	clock.Advance(60 * time.Millisecond)
	c.IsDuplicate(4)

	if removed := c.CleanupExpired(); removed != 3 {
		t.Errorf("CleanupExpired() = %d, want 3", removed)
	}
	if c.Len() != 1 || !c.Contains(4) {
		t.Errorf("Len() = %d, want only key 4 left", c.Len())
	}
}

func TestLRUCache_Defaults(t *testing.T) {
	c := NewLRUCache(0, 0)
	if c.capacity != 4096 || c.ttl != 10*time.Second {
		t.Errorf("defaults = (%d, %v)", c.capacity, c.ttl)
	}
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache(1000, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := uint64((id + j) % 26)
				c.IsDuplicate(key)
				c.Contains(key)
				c.FirstSeen(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 26 {
		t.Errorf("Len() = %d, want 26", c.Len())
	}
}

func BenchmarkLRUCache_IsDuplicate(b *testing.B) {
	c := NewLRUCache(10000, time.Minute)
	payload := []byte("Lat: 11.0\nLon: -74.8\nTime: 02/03/2026 12:00:00")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.IsDuplicate(DatagramKey("10.0.0.1:5000", payload))
	}
}
