// Package cache provides the read cache used on the HTTP round-lookup path.
// Settled rounds are immutable, so they cache indefinitely within the TTL.
package cache

import "time"

// Cache is a simple TTL cache.
type Cache interface {
	// Get retrieves a value from the cache.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL. Returns false if the value was
	// dropped.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Close releases resources.
	Close()
}
