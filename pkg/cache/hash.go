package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash returns the hex SHA-256 of data. Snapshots are stored under the
// Hash of the metadata bytes they were decoded from, so an edited metadata
// file never hits a stale snapshot.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey returns kind + ":" + the hash of parts. Parts are length-prefixed,
// so ("ab", "c") and ("a", "bc") give different keys.
func hashKey(kind string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s;", len(p), p)
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}
