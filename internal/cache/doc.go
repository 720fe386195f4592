// Package cache provides the in-memory TTL store for resolved secret
// payloads.
//
// The cache maps a configuration fingerprint (backend identity plus
// locator) to a flat secret payload. It supports:
//
//   - Per-entry TTL with lazy eviction during lookup
//   - Unconditional overwrite on Set
//   - Explicit Delete for cache busting after auth failures
//   - Payload copies on Set and Get so callers never share map state
//
// There is no background sweeper and no size bound: entries are keyed
// by backend configuration, so the population is a handful of entries
// per process.
//
// # Example Usage
//
//	c := cache.New()
//	key := cache.Fingerprint("vault", "https://vault:8200", "secret/mlflow")
//
//	c.Set(key, payload, 5*time.Minute)
//
//	if payload, ok := c.Get(key); ok {
//	    // use payload
//	}
//
// # Thread Safety
//
// All operations are safe for concurrent use from request goroutines.
package cache
