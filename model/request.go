// file: model/request.go

package model

// RegisterRequest defines the payload for creating a new account.
// It includes validation tags to ensure data integrity at the entry point.
type RegisterRequest struct {
	Email     string   `json:"email" validate:"required,email,max=254"`
	Password  string   `json:"password" validate:"required,min=8,max=128"`
	FirstName string   `json:"first_name" validate:"required,max=100"`
	LastName  string   `json:"last_name" validate:"required,max=100"`
	Roles     []string `json:"roles,omitempty"`
}

// LoginRequest defines the payload for account authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RevokeRequest carries the refresh token to revoke.
type RevokeRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AssignRolesRequest replaces an account's role set.
type AssignRolesRequest struct {
	AccountID string   `json:"account_id" validate:"required,uuid4"`
	Roles     []string `json:"roles" validate:"required,min=1,dive,required"`
}
