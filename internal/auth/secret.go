package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Entropy of a refresh secret before encoding.
const refreshSecretBytes = 48

// NewRefreshSecret generates a URL-safe opaque refresh secret and its
// SHA-256 hex digest. Only the digest is ever persisted.
func NewRefreshSecret() (raw, hash string, err error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate refresh secret: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashSecret(raw), nil
}

// HashSecret returns the SHA-256 hex digest of a raw refresh secret.
// Lookups always go through the digest; raw secrets are never scanned.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
