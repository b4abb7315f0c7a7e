package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken derives the cache key from a refresh-token value. Keys are
// hashed so a memory or redis dump never exposes usable token values.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
