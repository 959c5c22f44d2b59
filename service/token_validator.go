// file: service/token_validator.go

package service

import (
	"go-identity-api/config"
	"go-identity-api/model"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator verifies inbound access tokens statelessly. It pins the
// signing algorithm to HS256, so algorithm-substitution and "none" tokens
// are rejected before signature verification.
type TokenValidator struct {
	signingKey []byte
	parser     *jwt.Parser
	now        func() time.Time
}

// NewTokenValidator fails fast on a missing or weak signing configuration.
func NewTokenValidator(cfg config.JWTConfig) (*TokenValidator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// jwt/v5 applies zero leeway unless one is configured; expiry checks
	// tolerate no clock skew.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
	)

	return &TokenValidator{
		signingKey: []byte(cfg.SigningKey),
		parser:     parser,
		now:        time.Now,
	}, nil
}

// Validate verifies the token's signature, issuer, audience, and expiry.
// It returns nil for anything malformed, expired, or mis-signed.
func (v *TokenValidator) Validate(tokenString string) *model.AppClaims {
	if strings.TrimSpace(tokenString) == "" {
		return nil
	}

	claims := &model.AppClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	return claims
}

// IsExpired parses the token without verifying its signature and reports
// whether it is past its expiry. Diagnostic use only (e.g. deciding whether
// to prompt a refresh); it must never gate an authorization decision.
func (v *TokenValidator) IsExpired(tokenString string) bool {
	if strings.TrimSpace(tokenString) == "" {
		return true
	}

	claims := &model.AppClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Before(v.now())
}
