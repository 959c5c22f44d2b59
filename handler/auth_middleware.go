package handler

import (
	"context"
	"go-identity-api/common"
	"go-identity-api/service"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	AccountIDKey contextKey = "accountID"
	RolesKey     contextKey = "roles"
)

// AuthMiddleware authenticates requests through the token validator. The
// validator is constructed once with the signing configuration; nothing here
// reads ambient config at request time.
type AuthMiddleware struct {
	validator *service.TokenValidator
}

func NewAuthMiddleware(validator *service.TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil).Send(w)
			return
		}

		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
			common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil).Send(w)
			return
		}

		claims := m.validator.Validate(headerParts[1])
		if claims == nil {
			common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", nil).Send(w)
			return
		}

		accountID, err := uuid.Parse(claims.Subject)
		if err != nil {
			common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", nil).Send(w)
			return
		}

		ctx := context.WithValue(r.Context(), AccountIDKey, accountID)
		ctx = context.WithValue(ctx, RolesKey, claims.Roles)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows only requests whose token carries the Admin role.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roles, ok := r.Context().Value(RolesKey).([]string)
		if !ok || !hasRole(roles, "Admin") {
			common.NewAppError(http.StatusForbidden, "Access denied. Admin privileges required.", nil).Send(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func hasRole(roles []string, want string) bool {
	for _, role := range roles {
		if role == want {
			return true
		}
	}
	return false
}
