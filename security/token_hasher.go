// file: security/token_hasher.go

package security

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

var ErrEmptyToken = errors.New("token cannot be empty")

// HashToken returns the deterministic one-way digest used to index refresh
// tokens at rest. The digest is unsalted on purpose: it is a lookup key, not
// a password hash, and the underlying secret carries 256 bits of entropy.
func HashToken(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrEmptyToken
	}
	sum := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}
