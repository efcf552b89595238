// Package security implements API key generation and verification.
// Keys look like rim_<32 alphanumeric chars>; only the 12-character prefix
// and the SHA-256 hex digest of the full key are ever stored or logged.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	KeyPrefix = "rim_"
	// PrefixLength covers "rim_" plus the first 8 body characters and is
	// the indexed lookup column.
	PrefixLength = 12
	keyBodyLen   = 32
	minKeyLen    = 16
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateKey returns a fresh cleartext API key.
func GenerateKey() (string, error) {
	body := make([]byte, keyBodyLen)
	if _, err := rand.Read(body); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	for i, b := range body {
		body[i] = charset[int(b)%len(charset)]
	}
	return KeyPrefix + string(body), nil
}

// ValidFormat checks the shape of a presented key without touching storage.
func ValidFormat(key string) bool {
	if len(key) < minKeyLen {
		return false
	}
	if key[:len(KeyPrefix)] != KeyPrefix {
		return false
	}
	for i := len(KeyPrefix); i < len(key); i++ {
		c := key[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

// Prefix returns the indexed lookup prefix of a key.
func Prefix(key string) string {
	if len(key) < PrefixLength {
		return key
	}
	return key[:PrefixLength]
}

// Digest returns the hex SHA-256 of the full cleartext key.
func Digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// DigestEqual compares two hex digests in constant time.
func DigestEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
