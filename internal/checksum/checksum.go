// Package checksum fingerprints generated documents so unchanged content
// is never rewritten.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of content.
func Sum(content []byte) string {
	digest := sha256.Sum256(content)
	return hex.EncodeToString(digest[:])
}

// Matches reports whether content hashes to sum. An empty sum never
// matches.
func Matches(sum string, content []byte) bool {
	return sum != "" && sum == Sum(content)
}
