package directory

import (
	"context"
	"sync"
	"time"

	"github.com/lightninglabs/neutrino/cache"
	"github.com/lightninglabs/neutrino/cache/lru"
)

const (
	// DefaultCacheTTL is the window within which a cached nym summary is
	// served without a directory round trip.
	DefaultCacheTTL = time.Hour

	// DefaultMemCacheSize is the number of nym summaries the in-memory
	// cache holds before evicting the least recently used entry.
	DefaultMemCacheSize = 100
)

// NymSummary is a directory account summary keyed by payment code. It is an
// idempotent snapshot: concurrent fetchers racing to store one may safely
// let the last writer win.
type NymSummary struct {
	// NymID is the account's stable identifier.
	NymID string `json:"nymID"`

	// NymName is the account's human friendly name.
	NymName string `json:"nymName"`

	// Codes holds the payment codes linked to the account.
	Codes []NymCode `json:"codes"`

	// Followers and Following hold the identifiers of the account's
	// relation sets.
	Followers []string `json:"followers"`
	Following []string `json:"following"`

	// CapturedAt is the time the summary was fetched. Entries older than
	// the cache TTL are treated as stale.
	CapturedAt time.Time `json:"capturedAt"`
}

// Cache is the storage port for nym summaries. The cache is an accelerator
// only: its absence or failure must never change correctness, so
// implementations degrade to a miss instead of propagating errors from Get.
type Cache interface {
	// Get returns the summary stored for the given payment code, if any.
	// Staleness is not judged here; that is the reader's job.
	Get(code string) (*NymSummary, bool)

	// Put stores a summary under the given payment code, overwriting any
	// previous entry.
	Put(code string, summary *NymSummary) error

	// Clear removes every entry under the cache's namespace without
	// disturbing unrelated stored data.
	Clear() error
}

// CachedNym returns the directory account summary for the given payment
// code, serving it from the cache when a fresh entry exists and
// forceRefresh is false. On a miss (or forced refresh) the account is
// fetched, stored and returned. Fetch failures are returned as errors from
// the Status taxonomy; callers treating the cache as best-effort enrichment
// should degrade to "no account" on any error.
func (c *Client) CachedNym(ctx context.Context, code string,
	forceRefresh bool) (*NymSummary, error) {

	if c.cfg.Cache != nil && !forceRefresh {
		summary, ok := c.cfg.Cache.Get(code)
		if ok && c.now().Sub(summary.CapturedAt) < c.cfg.CacheTTL {
			log.Tracef("Nym cache hit for %s", code)
			return summary, nil
		}
	}

	res := c.Nym(ctx, code, false)
	if err := res.Err(); err != nil {
		return nil, err
	}

	summary := &NymSummary{
		NymID:      res.NymID,
		NymName:    res.NymName,
		Codes:      res.Codes,
		Followers:  refIDs(res.Followers),
		Following:  refIDs(res.Following),
		CapturedAt: c.now(),
	}

	if c.cfg.Cache != nil {
		if err := c.cfg.Cache.Put(code, summary); err != nil {
			// A failed cache write only costs a future fetch.
			log.Warnf("Unable to cache nym summary for %s: %v",
				code, err)
		}
	}

	return summary, nil
}

// ClearCache drops every cached nym summary.
func (c *Client) ClearCache() error {
	if c.cfg.Cache == nil {
		return nil
	}

	return c.cfg.Cache.Clear()
}

// now returns the current time from the configured clock.
func (c *Client) now() time.Time {
	return c.clock.Now()
}

// refIDs flattens a relation set to its nym identifiers.
func refIDs(refs []NymRef) []string {
	if len(refs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.NymID)
	}

	return ids
}

// memCacheEntry wraps a summary for storage in the LRU cache.
type memCacheEntry struct {
	summary *NymSummary
}

// Size returns the "size" of a cache entry. Summaries are counted per
// entry, not per byte.
func (e *memCacheEntry) Size() (uint64, error) {
	return 1, nil
}

// MemCache is an in-memory LRU implementation of the Cache interface.
type MemCache struct {
	mtx      sync.RWMutex
	capacity uint64
	entries  *lru.Cache[string, *memCacheEntry]
}

// A compile time check to ensure MemCache implements the Cache interface.
var _ Cache = (*MemCache)(nil)

// NewMemCache creates an in-memory nym cache holding up to capacity
// summaries. A zero capacity uses DefaultMemCacheSize.
func NewMemCache(capacity uint64) *MemCache {
	if capacity == 0 {
		capacity = DefaultMemCacheSize
	}

	return &MemCache{
		capacity: capacity,
		entries:  lru.NewCache[string, *memCacheEntry](capacity),
	}
}

// Get returns the summary stored for the given payment code, if any.
//
// NOTE: Part of the Cache interface.
func (m *MemCache) Get(code string) (*NymSummary, bool) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	entry, err := m.entries.Get(code)
	if err != nil {
		if err != cache.ErrElementNotFound {
			log.Debugf("Nym cache lookup for %s: %v", code, err)
		}

		return nil, false
	}

	return entry.summary, true
}

// Put stores a summary under the given payment code.
//
// NOTE: Part of the Cache interface.
func (m *MemCache) Put(code string, summary *NymSummary) error {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	_, err := m.entries.Put(code, &memCacheEntry{summary: summary})
	return err
}

// Clear removes all cached summaries.
//
// NOTE: Part of the Cache interface.
func (m *MemCache) Clear() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.entries = lru.NewCache[string, *memCacheEntry](m.capacity)
	return nil
}
