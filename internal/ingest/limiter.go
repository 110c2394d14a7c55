// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package ingest

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SourceLimiter is a per-host token bucket. A nil *SourceLimiter allows
// everything.
type SourceLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewSourceLimiter allows perSecond packets per host with the given burst.
// It returns nil when perSecond is not positive.
func NewSourceLimiter(perSecond float64, burst int) *SourceLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &SourceLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether one more packet from host fits in its bucket.
func (l *SourceLimiter) Allow(host string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, exists := l.limiters[host]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[host] = entry
	}
	entry.lastAccess = now
	return entry.limiter.AllowN(now, 1)
}

// Sweep forgets hosts not seen for idle and returns how many were removed.
func (l *SourceLimiter) Sweep(idle time.Duration) int {
	if l == nil {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for host, entry := range l.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(l.limiters, host)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked hosts.
func (l *SourceLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
