package security

import (
	"github.com/matthewhartstonge/argon2"
)

// Hasher hashes short-lived secrets such as one-time codes so they never sit in the
// database in plain text.
type Hasher struct {
	config argon2.Config
}

// NewHasher returns a Hasher tuned for low-entropy secrets that expire within minutes.
func NewHasher() *Hasher {
	cfg := argon2.DefaultConfig()
	cfg.TimeCost = 1
	cfg.MemoryCost = 16 * 1024

	return &Hasher{config: cfg}
}

// Hash returns the encoded argon2id hash of secret.
func (h *Hasher) Hash(secret string) (string, error) {
	encoded, err := h.config.HashEncoded([]byte(secret))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// Verify reports whether secret matches the encoded hash.
func (h *Hasher) Verify(secret, encoded string) (bool, error) {
	return argon2.VerifyEncoded([]byte(secret), []byte(encoded))
}
