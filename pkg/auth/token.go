package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// SessionIDPrefix identifies gateway session IDs
	SessionIDPrefix = "novo_"
	// SessionIDLength is the number of random bytes (32 bytes = 256 bits)
	SessionIDLength = 32
)

// TokenGenerator generates and validates opaque session IDs. The ID goes to
// the browser in a cookie; only its SHA-256 hash is used as the store key.
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateSessionID creates a new session ID and its store key.
// Format: novo_<base64url(32 random bytes)>
func (tg *TokenGenerator) GenerateSessionID() (id string, key string, err error) {
	randomBytes := make([]byte, SessionIDLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	id = SessionIDPrefix + base64.RawURLEncoding.EncodeToString(randomBytes)
	return id, tg.StoreKey(id), nil
}

// StoreKey computes the SHA256 hash of a session ID for lookup
func (tg *TokenGenerator) StoreKey(id string) string {
	hash := sha256.Sum256([]byte(id))
	return hex.EncodeToString(hash[:])
}

// ValidateSessionID checks if an ID has the correct format
func (tg *TokenGenerator) ValidateSessionID(id string) error {
	if !strings.HasPrefix(id, SessionIDPrefix) {
		return fmt.Errorf("session ID must start with %q", SessionIDPrefix)
	}

	encoded := strings.TrimPrefix(id, SessionIDPrefix)
	if len(encoded) == 0 {
		return fmt.Errorf("session ID is too short")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("invalid session ID encoding: %w", err)
	}
	if len(raw) != SessionIDLength {
		return fmt.Errorf("session ID has %d random bytes, want %d", len(raw), SessionIDLength)
	}

	return nil
}

// DisplayPrefix returns the first characters of an ID for logs.
func (tg *TokenGenerator) DisplayPrefix(id string) string {
	if !strings.HasPrefix(id, SessionIDPrefix) {
		return ""
	}

	encoded := strings.TrimPrefix(id, SessionIDPrefix)
	if len(encoded) >= 8 {
		return SessionIDPrefix + encoded[:8]
	}

	return id
}
