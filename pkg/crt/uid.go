package crt

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewUID returns a fresh country-specific uid: 24 lowercase hex digits.
// Country-specific objects use this form instead of the hyphenated UUIDs
// of the reference metadata.
func NewUID() string {
	u := uuid.New()
	// Skip the version and variant bytes so every digit is random.
	b := make([]byte, 0, 12)
	b = append(b, u[0:6]...)
	b = append(b, u[10:16]...)
	return hex.EncodeToString(b)
}
