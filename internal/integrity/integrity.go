// Package integrity computes and checks hashes of binary artifacts so
// tampering with stored originals or final composites is detectable.
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sum returns the canonical hash string for a blob.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Verify reports whether data still matches a previously recorded hash.
func Verify(data []byte, hash string) bool {
	if hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Sum(data)), []byte(hash)) == 1
}
