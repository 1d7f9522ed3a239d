package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// VerificationTokenLength is the number of random bytes in a verification secret.
	VerificationTokenLength = 32
	// VerificationTokenExpiry is how long a verification secret stays usable.
	VerificationTokenExpiry = 7 * time.Hour
)

// VerificationToken is a freshly issued verification secret. Raw is sent to
// the user exactly once; only Hash is persisted.
type VerificationToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

// TokenStatus is the outcome of validating a verification secret.
type TokenStatus int

const (
	TokenInvalid TokenStatus = iota
	TokenValid
	TokenExpired
)

// VerificationTokens issues and checks single-use email verification secrets.
type VerificationTokens struct {
	ttl time.Duration
	now func() time.Time
}

// NewVerificationTokens creates a token service with the default expiry.
func NewVerificationTokens() *VerificationTokens {
	return &VerificationTokens{ttl: VerificationTokenExpiry, now: time.Now}
}

// Issue generates a new secret, its storage hash and its expiry.
func (v *VerificationTokens) Issue() (VerificationToken, error) {
	buf := make([]byte, VerificationTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return VerificationToken{}, fmt.Errorf("generate verification token: %w", err)
	}
	raw := hex.EncodeToString(buf)
	return VerificationToken{
		Raw:       raw,
		Hash:      HashVerificationToken(raw),
		ExpiresAt: v.now().Add(v.ttl),
	}, nil
}

// Validate compares raw against the stored hash. A mismatch and a missing
// stored hash are both TokenInvalid.
func (v *VerificationTokens) Validate(raw, storedHash string, expiresAt time.Time) TokenStatus {
	if raw == "" || storedHash == "" {
		return TokenInvalid
	}
	computed := HashVerificationToken(raw)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) != 1 {
		return TokenInvalid
	}
	if v.Expired(expiresAt) {
		return TokenExpired
	}
	return TokenValid
}

// Expired reports whether an expiry instant has passed.
func (v *VerificationTokens) Expired(expiresAt time.Time) bool {
	return v.now().After(expiresAt)
}

// HashVerificationToken computes the hex SHA-256 of a raw secret.
func HashVerificationToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
