// file: security/password.go

package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. Verification cost is deliberately asymmetric against
// brute force; these values must not change without a credential migration.
const (
	pbkdf2Iterations = 10000
	pbkdf2KeyLength  = 20
	saltLength       = 16
)

var (
	ErrPasswordEmpty    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password cannot exceed 128 characters")
)

// ValidatePasswordPolicy checks a plaintext password against the credential
// policy. It is exported so use cases can reject bad input before hashing.
func ValidatePasswordPolicy(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrPasswordEmpty
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if len(password) > 128 {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword derives a digest from the plaintext with a fresh random salt.
// Both values are base64-encoded for storage.
func HashPassword(password string) (hash string, salt string, err error) {
	if err := ValidatePasswordPolicy(password); err != nil {
		return "", "", err
	}

	saltBytes := make([]byte, saltLength)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", err
	}
	saltStr := base64.StdEncoding.EncodeToString(saltBytes)

	return derive(password, saltStr), saltStr, nil
}

// VerifyPassword recomputes the digest with the stored salt and compares in
// constant time. It returns false, never an error, on malformed input.
func VerifyPassword(password, hash, salt string) bool {
	if strings.TrimSpace(password) == "" || hash == "" || salt == "" {
		return false
	}
	computed := derive(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

func derive(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}
