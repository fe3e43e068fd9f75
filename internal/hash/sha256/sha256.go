// Package sha256 provides SHA-256 digests for published artifacts.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements tracker.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the lowercase hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Short trims a hex digest to n characters for display. Digests shorter than
// n are returned unchanged.
func Short(digest string, n int) string {
	if n <= 0 || len(digest) <= n {
		return digest
	}
	return digest[:n]
}
