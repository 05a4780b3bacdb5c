package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes, so longer passwords would silently collide.
const maxPasswordLength = 72

// ErrPasswordTooLong is returned when a password exceeds what bcrypt can hash.
var ErrPasswordTooLong = errors.New("password exceeds maximum length")

// dummyHash is compared against when a username does not exist,
// so unknown users cost the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bybo-timing-equalizer"), bcrypt.DefaultCost)

// HashPassword creates a salted bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	if len(password) > maxPasswordLength {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the stored hash.
// An empty hash runs a throwaway comparison and always fails.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
