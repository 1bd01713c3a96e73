package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the minimum acceptable password length
	MinPasswordLength = 8

	// bcryptCost is the cost factor for bcrypt hashing
	bcryptCost = 12

	// placeholderBytes is the entropy behind an unusable password.
	placeholderBytes = 32
)

var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// Hasher produces a password hash. Guest identity creation takes one so tests
// can swap in a cheaper cost.
type Hasher func(password string) (string, error)

// HashPassword generates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	return hashWithCost(password, bcryptCost)
}

// NewHasher returns a Hasher using cost. Costs outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return func(password string) (string, error) {
		return hashWithCost(password, cost)
	}
}

func hashWithCost(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// UnusablePassword hashes a random secret that is discarded immediately.
// The result satisfies a NOT NULL password column while matching no
// password a caller could present.
func UnusablePassword(hash Hasher) (string, error) {
	if hash == nil {
		hash = HashPassword
	}

	secret := make([]byte, placeholderBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return hash(hex.EncodeToString(secret))
}
