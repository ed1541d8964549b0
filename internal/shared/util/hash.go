package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashAccountKey maps an account ID to a stable hex prefix for object keys,
// so raw account IDs never appear in bucket paths.
func HashAccountKey(accountID string) string {
	sum := sha256.Sum256([]byte(accountID))
	return hex.EncodeToString(sum[:])
}
