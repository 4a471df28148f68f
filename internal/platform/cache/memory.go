package cache

import (
	"context"
	"sync"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
)

const defaultMaxEntries = 10000

type cachedSession struct {
	session  domain.Session
	cachedAt time.Time
}

// MemorySessionCache is a process-local SessionCache with a fixed TTL. When
// full, expired entries are swept and, failing that, the oldest entry is evicted.
type MemorySessionCache struct {
	mu         sync.RWMutex
	entries    map[string]cachedSession
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

var _ portsrepo.SessionCache = (*MemorySessionCache)(nil)

// NewMemorySessionCache creates a cache holding entries for ttl.
func NewMemorySessionCache(ttl time.Duration, maxEntries int) *MemorySessionCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemorySessionCache{
		entries:    make(map[string]cachedSession),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached entry, dropping it when it has outlived the TTL.
func (c *MemorySessionCache) Get(_ context.Context, sessionID string) (*domain.Session, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[sessionID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().Sub(entry.cachedAt) > c.ttl {
		c.mu.Lock()
		if current, still := c.entries[sessionID]; still && current.cachedAt.Equal(entry.cachedAt) {
			delete(c.entries, sessionID)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	s := entry.session
	return &s, true, nil
}

// Set stores the entry, evicting when the cache is full.
func (c *MemorySessionCache) Set(_ context.Context, session domain.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[session.SessionID]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[session.SessionID] = cachedSession{session: session, cachedAt: c.now()}
	return nil
}

// Add checks and stores under one lock, so it cannot overwrite a tombstone
// written by a concurrent Set.
func (c *MemorySessionCache) Add(_ context.Context, session domain.Session) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if entry, exists := c.entries[session.SessionID]; exists {
		if now.Sub(entry.cachedAt) <= c.ttl {
			return false, nil
		}
	} else if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[session.SessionID] = cachedSession{session: session, cachedAt: now}
	return true, nil
}

// Len reports the number of cached entries, expired or not.
func (c *MemorySessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemorySessionCache) evictLocked() {
	now := c.now()
	var oldestID string
	var oldest time.Time
	for id, e := range c.entries {
		if now.Sub(e.cachedAt) > c.ttl {
			delete(c.entries, id)
			continue
		}
		if oldestID == "" || e.cachedAt.Before(oldest) {
			oldestID, oldest = id, e.cachedAt
		}
	}
	if len(c.entries) >= c.maxEntries && oldestID != "" {
		delete(c.entries, oldestID)
	}
}
