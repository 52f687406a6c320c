package settle

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Client seed length bounds enforced by the backend.
const (
	ClientSeedMinLength = 6
	ClientSeedMaxLength = 32
)

// NewClientSeed returns 16 random bytes as 32 hex characters.
func NewClientSeed() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("settle: client seed: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// ValidateClientSeed checks the seed length the backend accepts.
func ValidateClientSeed(seed string) error {
	if n := len(seed); n < ClientSeedMinLength || n > ClientSeedMaxLength {
		return &ValidationError{
			Field: "clientSeed",
			Message: fmt.Sprintf("client seed must be between %d and %d characters, got %d",
				ClientSeedMinLength, ClientSeedMaxLength, n),
		}
	}
	return nil
}
