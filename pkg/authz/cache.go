package authz

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheTTL is the freshness window after which a cached decision
// must be re-derived from the store.
const DefaultCacheTTL = 5 * time.Minute

// DefaultCacheSize bounds the in-memory cache. At one entry per
// (user, resource, action) this covers a large active tenant comfortably.
const DefaultCacheSize = 16384

// DecisionCache memoizes boolean decisions per user-scoped key. A cache must
// never serve an entry older than its TTL; expiry is checked lazily at read
// time. Platform-admin decisions bypass the cache entirely and are never
// stored.
type DecisionCache interface {
	// Get returns the cached decision and whether a live entry existed.
	Get(ctx context.Context, key string) (allowed bool, ok bool)

	// Set stores a decision with the current timestamp.
	Set(ctx context.Context, key string, allowed bool)

	// ClearUser removes every entry belonging to the given user.
	ClearUser(ctx context.Context, userID string)

	// Clear removes all entries unconditionally.
	Clear(ctx context.Context)

	// Len returns the number of live entries.
	Len(ctx context.Context) int
}

// PermissionKey builds the cache key for a (user, resource, action) check.
func PermissionKey(userID string, p Permission) string {
	return userID + "|perm|" + p.String()
}

// RouteKey builds the cache key for a (user, route) check.
func RouteKey(userID, path string) string {
	return userID + "|route|" + path
}

func userKeyPrefix(userID string) string {
	return userID + "|"
}

type cacheEntry struct {
	Allowed   bool
	CreatedAt time.Time
}

// MemoryCache is an in-process LRU decision cache. The LRU's own expiry acts
// as an eviction backstop; freshness is enforced at read time against the
// entry's created-at so TTL behavior is testable with a fake clock.
type MemoryCache struct {
	mu  sync.Mutex
	lru *lru.LRU[string, cacheEntry]
	ttl time.Duration
	now func() time.Time
}

// NewMemoryCache creates a memory cache with the given size and TTL.
// Non-positive arguments fall back to the defaults.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		lru: lru.NewLRU[string, cacheEntry](size, nil, ttl),
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns a live cached decision, removing the entry if it has expired.
func (c *MemoryCache) Get(ctx context.Context, key string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		return false, false
	}
	if c.now().Sub(entry.CreatedAt) >= c.ttl {
		c.lru.Remove(key)
		return false, false
	}
	return entry.Allowed, true
}

// Set stores a decision keyed by user scope.
func (c *MemoryCache) Set(ctx context.Context, key string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, cacheEntry{Allowed: allowed, CreatedAt: c.now()})
}

// ClearUser removes all entries for one user. Invoked after permission
// mutations affecting that user.
func (c *MemoryCache) ClearUser(ctx context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := userKeyPrefix(userID)
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}

// Clear removes every entry. Used on explicit clears and tenant switches.
func (c *MemoryCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the number of entries currently held.
func (c *MemoryCache) Len(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
