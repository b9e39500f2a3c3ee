// Package cache stores derived artifacts, such as decoded taxonomy
// snapshots, between command invocations.
//
// Three backends implement [Cache]: [FileCache] keeps entries under a local
// directory, [RedisCache] shares them through a Redis server, and
// [NullCache] stores nothing. Keys are built by a [Keyer] so every backend
// sees the same key space.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value stored under key. A missing or expired entry
	// is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the resources held by the backend.
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// SnapshotKey returns the key of the taxonomy snapshot decoded from
	// metadata whose content hash is metadataHash.
	SnapshotKey(metadataHash string, schema int) string
}

// DefaultKeyer builds unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SnapshotKey implements [Keyer].
func (DefaultKeyer) SnapshotKey(metadataHash string, schema int) string {
	return hashKey("snapshot", metadataHash, fmt.Sprintf("v%d", schema))
}
