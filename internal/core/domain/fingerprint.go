package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHashLength is the length of a hex encoded content hash.
const ContentHashLength = sha256.Size * 2

// ContentHash fingerprints raw upload bytes. Filename, customer and upload time
// never contribute to the digest.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsContentHash accepts only the lowercase hex form ContentHash produces.
func IsContentHash(s string) bool {
	if len(s) != ContentHashLength {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
