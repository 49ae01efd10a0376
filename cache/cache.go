// Package cache is the in-memory hot tier in front of the record store.
package cache

import (
	"sync"
	"time"

	"github.com/use-agent/orgscope/models"
)

// entry holds a cached record with its creation timestamp.
type entry struct {
	record    *models.CompanyRecord
	createdAt time.Time
}

// Cache is a bounded in-memory cache of company records keyed by page ID.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// New creates a Cache holding at most maxEntries records for ttl each.
// A background goroutine evicts expired entries every ttl/4 (at least once
// a minute); call Close to stop it.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	go c.cleanupLoop()
	return c
}

// Get returns the record for pageID if it is cached and younger than the TTL.
func (c *Cache) Get(pageID string) (*models.CompanyRecord, bool) {
	c.mu.RLock()
	e, ok := c.store[pageID]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.createdAt) > c.ttl {
		return nil, false
	}
	return e.record, true
}

// Set stores rec. If the cache is at capacity, a random entry is evicted to
// make room.
func (c *Cache) Set(rec *models.CompanyRecord) {
	if c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict one random entry if at capacity (map iteration is random in Go).
	if _, exists := c.store[rec.PageID]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[rec.PageID] = &entry{
		record:    rec,
		createdAt: c.now(),
	}
}

// Delete drops pageID from the cache.
func (c *Cache) Delete(pageID string) {
	c.mu.Lock()
	delete(c.store, pageID)
	c.mu.Unlock()
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) cleanupLoop() {
	interval := c.ttl / 4
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}
