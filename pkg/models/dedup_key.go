package models

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// DedupKey derives the deterministic dedup-index key for a
// (entity, signal type, discriminator) tuple. Fields are NUL-separated so
// distinct tuples cannot collide by concatenation.
func DedupKey(entityID uuid.UUID, signalType, discriminator string) string {
	h := sha256.New()
	h.Write(entityID[:])
	h.Write([]byte{0})
	h.Write([]byte(signalType))
	h.Write([]byte{0})
	h.Write([]byte(discriminator))
	return hex.EncodeToString(h.Sum(nil))
}
