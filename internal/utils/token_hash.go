package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashToken generates a SHA256 hash of an opaque token (password reset
// links). Only the hash is persisted.
func HashToken(token string) string {
	hasher := sha256.New()
	hasher.Write([]byte(token))
	return hex.EncodeToString(hasher.Sum(nil))
}

// CompareTokenHash compares a plain token with its stored SHA256 hash in
// constant time. The `token` parameter is the raw token string, not a hash.
func CompareTokenHash(token string, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(storedHash)) == 1
}
