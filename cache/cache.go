package cache

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homefeed_cache_hits_total",
		Help: "The total number of lookups answered from a live cache entry",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homefeed_cache_misses_total",
		Help: "The total number of lookups for keys with no cache entry",
	})

	cacheExpirations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homefeed_cache_expirations_total",
		Help: "The total number of lookups that found an entry past its TTL",
	})
)

// DefaultTTL is the cache duration used when no explicit TTL is configured.
const DefaultTTL = time.Hour

// Entry stores a value together with the time it was inserted.
type Entry[V any] struct {
	Value     V
	Timestamp time.Time
}

// Cache is a mutex-guarded in-memory map with per-cache TTL and lazy expiry.
// Expired entries are treated as absent but stay in the map until overwritten
// or removed; there is no background sweeper. Stored values are treated as
// immutable once inserted, so callers must not modify slices or maps they get
// back from Get.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]Entry[V]
	ttl     time.Duration
}

// New creates a cache whose entries expire after ttl. A non-positive ttl
// falls back to DefaultTTL.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[K, V]{
		entries: make(map[K]Entry[V]),
		ttl:     ttl,
	}
}

// Get returns the value for key if it is present and younger than the TTL.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V

	entry, ok := c.entries[key]
	if !ok {
		cacheMisses.Inc()
		log.WithFields(log.Fields{"key": key}).Debug("Cache miss")
		return zero, false
	}

	if time.Since(entry.Timestamp) >= c.ttl {
		cacheExpirations.Inc()
		log.WithFields(log.Fields{"key": key}).Debug("Cache expired")
		return zero, false
	}

	cacheHits.Inc()
	log.WithFields(log.Fields{"key": key}).Debug("Cache hit")
	return entry.Value, true
}

// Set unconditionally overwrites any existing entry for key.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry[V]{
		Value:     value,
		Timestamp: time.Now(),
	}

	log.WithFields(log.Fields{"key": key}).Debug("Cache updated")
}

// Remove deletes the entry for key. Removing an absent key is a no-op.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	log.WithFields(log.Fields{"key": key}).Debug("Cache entry removed")
}

// Clear deletes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]Entry[V])
	log.Debug("Cache cleared")
}
