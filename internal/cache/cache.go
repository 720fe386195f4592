// Package cache provides a thread-safe TTL store for resolved secret
// payloads.
package cache

import (
	"sync"
	"time"

	"github.com/trackauth/mlflow-secrets-auth/internal/observability"
)

// Entry represents a cached secret payload.
type Entry struct {
	// Payload is the resolved secret payload.
	Payload map[string]string

	// ExpiresAt is when the cache entry expires.
	ExpiresAt time.Time
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// SecretCache maps configuration fingerprints to secret payloads with
// per-entry TTLs. Expired entries are evicted lazily during the lookup
// that observes them; there is no background sweeper and no size cap,
// since the entry count is bounded by the number of distinct backend
// configurations.
type SecretCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates an empty SecretCache.
func New() *SecretCache {
	return &SecretCache{
		entries: make(map[string]*Entry),
	}
}

// Get retrieves the payload stored under key.
// Returns the payload and true if found and not expired, nil and false
// otherwise. An expired entry is deleted during the same lookup.
func (c *SecretCache) Get(key string) (map[string]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		observability.RecordCacheMiss()
		return nil, false
	}

	if entry.IsExpired() {
		delete(c.entries, key)
		observability.RecordCacheMiss()
		return nil, false
	}

	observability.RecordCacheHit()
	return copyPayload(entry.Payload), true
}

// Set stores payload under key with the given TTL, overwriting any
// existing entry. The payload is copied so later caller mutations
// cannot reach cached state.
func (c *SecretCache) Set(key string, payload map[string]string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry{
		Payload:   copyPayload(payload),
		ExpiresAt: time.Now().Add(ttl),
	}
}

// Delete removes the entry stored under key. Used for cache busting
// after a downstream authentication failure.
func (c *SecretCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Clear removes all entries from the cache.
func (c *SecretCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
}

// Size returns the number of entries in the cache, including entries
// that have expired but not yet been observed by a lookup.
func (c *SecretCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func copyPayload(payload map[string]string) map[string]string {
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
