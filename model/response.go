package model

import "github.com/google/uuid"

// Response is the common envelope returned by every auth endpoint.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// AuthResponse is the payload returned by register, login, and refresh.
type AuthResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresInMinutes int       `json:"expires_in_minutes"`
	AccountID        uuid.UUID `json:"account_id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
}
