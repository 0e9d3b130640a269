// Package cache provides a small in-memory TTL cache keyed by string.
package cache

import (
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/common"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTL is a concurrency-safe map whose entries expire ttl after they were
// stored. Expired entries are dropped lazily on read.
type TTL[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	clock   common.Clock
}

// New creates a cache with the given time-to-live. A nil clock uses the
// system clock.
func New[V any](ttl time.Duration, clock common.Clock) *TTL[V] {
	if clock == nil {
		clock = common.SystemClock
	}
	return &TTL[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the value stored under key if it is still fresh.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !common.IsFresh(c.clock.Now(), e.storedAt, c.ttl) {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.storedAt.Equal(e.storedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, storedAt: c.clock.Now()}
	c.mu.Unlock()
}

// Delete removes key.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTL returns the configured time-to-live.
func (c *TTL[V]) TTL() time.Duration {
	return c.ttl
}
