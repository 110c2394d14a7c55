// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package segment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/metrics"
	"github.com/tomtom215/roadpulse/internal/models"
)

// ErrCacheMiss is returned by Cache.Get for unknown or expired ids.
var ErrCacheMiss = errors.New("segment not cached")

// ErrCacheClosed is returned after Close.
var ErrCacheClosed = errors.New("segment cache closed")

// Cache stores SegmentDescriptors keyed by segment id. It is never a source
// of truth; a miss only means the id has not been resolved recently.
type Cache interface {
	Get(ctx context.Context, id string) (*models.SegmentDescriptor, error)
	Put(ctx context.Context, desc *models.SegmentDescriptor) error
}

// Cache names used as metric labels.
const (
	cacheMemory = "segment_memory"
	cacheBadger = "segment_badger"
)

// MemoryCache is an in-process LRU with expiry.
type MemoryCache struct {
	lru gcache.Cache
}

// NewMemoryCache returns an LRU holding at most size descriptors for ttl.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 1
	}
	lru := gcache.New(size).
		LRU().
		Expiration(ttl).
		EvictedFunc(func(_, _ interface{}) {
			metrics.CacheEvictions.WithLabelValues(cacheMemory).Inc()
		}).
		Build()
	return &MemoryCache{lru: lru}
}

func (c *MemoryCache) Get(_ context.Context, id string) (*models.SegmentDescriptor, error) {
	v, err := c.lru.Get(id)
	if err != nil {
		metrics.RecordCacheLookup(cacheMemory, false)
		if errors.Is(err, gcache.KeyNotFoundError) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	desc, ok := v.(models.SegmentDescriptor)
	if !ok {
		metrics.RecordCacheLookup(cacheMemory, false)
		return nil, ErrCacheMiss
	}
	metrics.RecordCacheLookup(cacheMemory, true)
	return &desc, nil
}

func (c *MemoryCache) Put(_ context.Context, desc *models.SegmentDescriptor) error {
	if desc == nil || desc.SegmentID == "" {
		return nil
	}
	return c.lru.Set(desc.SegmentID, *desc)
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len(true)
}

// BadgerCache persists descriptors so ids resolved before a restart can
// still be described.
type BadgerCache struct {
	db     *badger.DB
	prefix []byte
	ttl    time.Duration
	closed bool
	mu     sync.RWMutex
}

// OpenBadgerCache opens (or creates) a Badger directory at path.
func OpenBadgerCache(path string, ttl time.Duration) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for segments: %w", err)
	}
	return NewBadgerCache(db, ttl), nil
}

// NewBadgerCache wraps an open Badger database. Close closes db.
func NewBadgerCache(db *badger.DB, ttl time.Duration) *BadgerCache {
	return &BadgerCache{
		db:     db,
		prefix: []byte("segment:"),
		ttl:    ttl,
	}
}

func (c *BadgerCache) makeKey(id string) []byte {
	key := make([]byte, 0, len(c.prefix)+len(id))
	key = append(key, c.prefix...)
	return append(key, id...)
}

func (c *BadgerCache) Get(_ context.Context, id string) (*models.SegmentDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrCacheClosed
	}

	var desc models.SegmentDescriptor
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.makeKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &desc)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		metrics.RecordCacheLookup(cacheBadger, false)
		return nil, ErrCacheMiss
	}
	if err != nil {
		metrics.RecordCacheLookup(cacheBadger, false)
		return nil, fmt.Errorf("read segment %s: %w", id, err)
	}
	metrics.RecordCacheLookup(cacheBadger, true)
	return &desc, nil
}

func (c *BadgerCache) Put(_ context.Context, desc *models.SegmentDescriptor) error {
	if desc == nil || desc.SegmentID == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrCacheClosed
	}

	data, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("encode segment %s: %w", desc.SegmentID, err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(c.makeKey(desc.SegmentID), data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// TieredCache reads the memory tier first and falls back to Badger,
// promoting hits. Writes go to both tiers.
type TieredCache struct {
	memory *MemoryCache
	store  *BadgerCache
}

// NewTieredCache combines the two tiers. store may be nil.
func NewTieredCache(memory *MemoryCache, store *BadgerCache) *TieredCache {
	return &TieredCache{memory: memory, store: store}
}

func (c *TieredCache) Get(ctx context.Context, id string) (*models.SegmentDescriptor, error) {
	desc, err := c.memory.Get(ctx, id)
	if err == nil || c.store == nil {
		return desc, err
	}

	desc, err = c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if perr := c.memory.Put(ctx, desc); perr != nil {
		logging.Ctx(ctx).Debug().Err(perr).Str("segment_id", id).Msg("Failed to promote segment to memory cache")
	}
	return desc, nil
}

func (c *TieredCache) Put(ctx context.Context, desc *models.SegmentDescriptor) error {
	if err := c.memory.Put(ctx, desc); err != nil {
		return err
	}
	if c.store == nil {
		return nil
	}
	return c.store.Put(ctx, desc)
}

// Close closes the persistent tier.
func (c *TieredCache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
