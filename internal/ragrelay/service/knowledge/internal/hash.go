package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText returns the hex SHA-256 of value.
func HashText(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}
