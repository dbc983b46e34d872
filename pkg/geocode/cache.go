package geocode

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/foodiepair/foodiepair-cli/internal/model"
	"github.com/foodiepair/foodiepair-cli/internal/store"
)

// DefaultCacheTTL bounds how long a lookup, match or not, is reused.
const DefaultCacheTTL = 30 * 24 * time.Hour

// Cache keeps lookups by address hash. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, error)
	Put(ctx context.Context, key string, r *Result) error
}

// cacheKey returns SHA-256 hex of the normalized address.
func cacheKey(address string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

type memoryEntry struct {
	result   Result
	cachedAt time.Time
}

// memoryCache is the in-process fallback used when no store is wired.
type memoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryCache returns an in-process cache whose entries expire after ttl.
// A ttl of zero or less keeps entries forever.
func NewMemoryCache(ttl time.Duration) Cache {
	return newMemoryCache(ttl, time.Now)
}

func newMemoryCache(ttl time.Duration, now func() time.Time) *memoryCache {
	return &memoryCache{ttl: ttl, now: now, entries: make(map[string]memoryEntry)}
}

func (c *memoryCache) Get(_ context.Context, key string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if c.ttl > 0 && c.now().Sub(e.cachedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, nil
	}
	r := e.result
	return &r, nil
}

func (c *memoryCache) Put(_ context.Context, key string, r *Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{result: *r, cachedAt: c.now()}
	return nil
}

// EntryStore persists geocode entries. store.Store satisfies it.
type EntryStore interface {
	GetGeocode(ctx context.Context, addressHash string, notBefore time.Time) (*model.GeocodeEntry, error)
	PutGeocode(ctx context.Context, e model.GeocodeEntry) error
}

type storeCache struct {
	st  EntryStore
	ttl time.Duration
	now func() time.Time
}

// NewStoreCache keeps lookups in the geocode_cache table so they survive
// restarts. Entries older than ttl are misses; a ttl of zero or less never
// expires them.
func NewStoreCache(st EntryStore, ttl time.Duration) Cache {
	return &storeCache{st: st, ttl: ttl, now: time.Now}
}

func (c *storeCache) Get(ctx context.Context, key string) (*Result, error) {
	var notBefore time.Time
	if c.ttl > 0 {
		notBefore = c.now().Add(-c.ttl)
	}
	e, err := c.st.GetGeocode(ctx, key, notBefore)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	keyPrefix := key
	if len(keyPrefix) > 12 {
		keyPrefix = keyPrefix[:12]
	}
	zap.L().Debug("geocode cache hit", zap.String("key", keyPrefix), zap.Bool("matched", e.Matched))
	return &Result{
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
		DisplayName: e.DisplayName,
		Source:      sourceNominatim,
		Quality:     e.Quality,
		Matched:     e.Matched,
	}, nil
}

func (c *storeCache) Put(ctx context.Context, key string, r *Result) error {
	return c.st.PutGeocode(ctx, model.GeocodeEntry{
		AddressHash: key,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		DisplayName: r.DisplayName,
		Quality:     r.Quality,
		Matched:     r.Matched,
		CachedAt:    c.now().UTC(),
	})
}
