package broker

import (
	"sync"
	"time"
)

// CacheKey enumerates the typed object-cache slots an adapter may use.
type CacheKey string

const (
	KeyPositions       CacheKey = "POSITIONS"
	KeyAccount         CacheKey = "ACCOUNT"
	KeyUnsettled       CacheKey = "UNSETTLED"
	KeyOpenOrders      CacheKey = "OPEN_ORDERS"
	KeyDividends       CacheKey = "DIVIDENDS"
	KeyDividendsDetail CacheKey = "DIVIDENDS_DETAIL"
	KeyMisc            CacheKey = "MISC"
)

// DefaultObjectCacheTTL is the default freshness window for object-cache
// entries (spec §4.I).
const DefaultObjectCacheTTL = 3600 * time.Second

type objectEntry struct {
	value     any
	insertedAt time.Time
}

// ObjectCache is a keyed store of (CacheKey, qualifier) -> cached value
// with a per-entry fetcher and insertion timestamp (spec §4.I). One
// instance is owned per adapter; it is not shared across adapters.
type ObjectCache struct {
	mu    sync.Mutex
	store map[CacheKey]map[string]objectEntry
}

// NewObjectCache builds an empty ObjectCache.
func NewObjectCache() *ObjectCache {
	return &ObjectCache{store: make(map[CacheKey]map[string]objectEntry)}
}

// Get returns the cached value for (key, qualifier) if younger than maxAge,
// else calls fetch, stores the result, and returns it. qualifier may be ""
// for singleton slots like ACCOUNT.
func (c *ObjectCache) Get(key CacheKey, qualifier string, maxAge time.Duration, fetch func() (any, error)) (any, error) {
	if maxAge <= 0 {
		maxAge = DefaultObjectCacheTTL
	}

	c.mu.Lock()
	if byQual, ok := c.store[key]; ok {
		if e, ok := byQual[qualifier]; ok && time.Since(e.insertedAt) <= maxAge {
			c.mu.Unlock()
			return e.value, nil
		}
	}
	c.mu.Unlock()

	value, err := fetch()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.store[key] == nil {
		c.store[key] = make(map[string]objectEntry)
	}
	c.store[key][qualifier] = objectEntry{value: value, insertedAt: time.Now()}
	c.mu.Unlock()

	return value, nil
}

// ClearCache nullifies all non-kept entries. keep lists the CacheKeys whose
// entries should survive the clear.
func (c *ObjectCache) ClearCache(keep []CacheKey) {
	keepSet := make(map[CacheKey]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.store {
		if !keepSet[key] {
			delete(c.store, key)
		}
	}
}
