package model

import "github.com/golang-jwt/jwt/v5"

// AppClaims is the signed payload of an access token.
type AppClaims struct {
	Email      string   `json:"email"`
	GivenName  string   `json:"given_name"`
	FamilyName string   `json:"family_name"`
	Roles      []string `json:"roles"`
	jwt.RegisteredClaims
}
