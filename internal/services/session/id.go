package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// IDLength is the number of random bytes in a session ID.
const IDLength = 32

// GenerateID returns a cryptographically random, hex-encoded session ID.
func GenerateID() (string, error) {
	b := make([]byte, IDLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashID returns the SHA256 hex digest of a session ID, used when the ID
// has to appear in logs.
func HashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

func shortID(id string) string {
	h := HashID(id)
	return h[:12]
}
