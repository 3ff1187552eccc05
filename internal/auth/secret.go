package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrSecretMismatch is returned when a presented enrollment secret does not
// match the configured hash.
var ErrSecretMismatch = errors.New("enrollment secret mismatch")

// HashSecret bcrypt-hashes an enrollment secret. Costs outside bcrypt's
// range fall back to bcrypt.DefaultCost. Operators run this once and put
// the result in AUTH_ENROLLMENT_SECRET_HASH.
func HashSecret(secret string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hash enrollment secret: %w", err)
	}
	return string(hashed), nil
}

// CompareSecret checks secret against hash. A mismatch yields
// ErrSecretMismatch; a hash that is not bcrypt yields a distinct error so
// misconfiguration is not reported as a wrong secret.
func CompareSecret(hash, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrSecretMismatch
	default:
		return fmt.Errorf("invalid enrollment secret hash: %w", err)
	}
}
