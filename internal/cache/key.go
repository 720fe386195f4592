package cache

import "strings"

// Fingerprint builds the cache key for one backend configuration from
// the backend name and its locator parts (address, path, secret name).
// Keys are readable composites so they can appear in debug logs;
// locators never contain secret material.
func Fingerprint(backend string, parts ...string) string {
	return backend + ":" + strings.Join(parts, ":")
}
