package handler

import (
	"encoding/json"
	"errors"
	"go-identity-api/common"
	"go-identity-api/model"
	"go-identity-api/security"
	"go-identity-api/service"
	"net/http"

	"github.com/google/uuid"
)

type AuthHandler struct {
	authService *service.AuthService
	roleService *service.RoleService
}

func NewAuthHandler(authService *service.AuthService, roleService *service.RoleService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		roleService: roleService,
	}
}

func writeResponse(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(model.Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Register godoc
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RegisterRequest true "Registration payload"
// @Success      201  {object}  model.Response
// @Router       /api/v1/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateAccount):
			return common.NewAppError(http.StatusConflict, "Email already registered", nil)
		case errors.Is(err, security.ErrPasswordEmpty),
			errors.Is(err, security.ErrPasswordTooShort),
			errors.Is(err, security.ErrPasswordTooLong):
			return common.NewAppError(http.StatusBadRequest, err.Error(), nil)
		default:
			return common.NewAppError(http.StatusInternalServerError, "An error occurred during registration", err)
		}
	}

	writeResponse(w, http.StatusCreated, "Registration successful", resp)
	return nil
}

// Login godoc
// @Summary      Authenticate with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.LoginRequest true "Login payload"
// @Success      200  {object}  model.Response
// @Router       /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return common.NewAppError(http.StatusUnauthorized, "Invalid credentials", nil)
		case errors.Is(err, service.ErrAccountInactive):
			return common.NewAppError(http.StatusUnauthorized, "Account is inactive", nil)
		case errors.Is(err, service.ErrAccountLocked):
			return common.NewAppError(http.StatusUnauthorized, "Account is locked. Please try again later.", nil)
		default:
			return common.NewAppError(http.StatusInternalServerError, "An error occurred during login", err)
		}
	}

	writeResponse(w, http.StatusOK, "Login successful", resp)
	return nil
}

// Refresh godoc
// @Summary      Exchange a refresh token for a new token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RefreshRequest true "Refresh payload"
// @Success      200  {object}  model.Response
// @Router       /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	resp, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenRequired):
			return common.NewAppError(http.StatusBadRequest, "Refresh token is required", nil)
		case errors.Is(err, service.ErrInvalidToken):
			return common.NewAppError(http.StatusUnauthorized, "Invalid refresh token", nil)
		case errors.Is(err, service.ErrTokenReused), errors.Is(err, service.ErrTokenExpired):
			// Reuse and expiry share a message so the response does not leak
			// which one occurred; server logs carry the distinction.
			return common.NewAppError(http.StatusUnauthorized, "Refresh token is no longer valid. Please log in again.", nil)
		case errors.Is(err, service.ErrAccountInactive):
			return common.NewAppError(http.StatusUnauthorized, "Account is inactive", nil)
		default:
			return common.NewAppError(http.StatusInternalServerError, "An error occurred during token refresh", err)
		}
	}

	writeResponse(w, http.StatusOK, "Token refreshed successfully", resp)
	return nil
}

// Revoke godoc
// @Summary      Revoke a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RevokeRequest true "Revoke payload"
// @Success      200  {object}  model.Response
// @Router       /api/v1/auth/revoke [post]
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RevokeRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	status, err := h.authService.Revoke(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenRequired) {
			return common.NewAppError(http.StatusBadRequest, "Refresh token is required", nil)
		}
		return common.NewAppError(http.StatusInternalServerError, "An error occurred during token revocation", err)
	}

	switch status {
	case service.RevokeStatusRevoked:
		writeResponse(w, http.StatusOK, "Token revoked successfully", nil)
	case service.RevokeStatusAlreadyRevoked:
		writeResponse(w, http.StatusOK, "Token already revoked", nil)
	default:
		writeResponse(w, http.StatusOK, "Token is not active", nil)
	}
	return nil
}

// AssignRoles godoc
// @Summary      Replace an account's role set
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.AssignRolesRequest true "Role assignment payload"
// @Success      200  {object}  model.Response
// @Security     BearerAuth
// @Router       /api/v1/auth/roles [post]
func (h *AuthHandler) AssignRoles(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.AssignRolesRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid account id", nil)
	}

	var actorID *uuid.UUID
	if id, ok := r.Context().Value(AccountIDKey).(uuid.UUID); ok {
		actorID = &id
	}

	if err := h.roleService.AssignRoles(r.Context(), accountID, req.Roles, actorID); err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			return common.NewAppError(http.StatusNotFound, "Account not found", nil)
		case errors.Is(err, service.ErrRoleNotFound):
			return common.NewAppError(http.StatusBadRequest, err.Error(), nil)
		default:
			return common.NewAppError(http.StatusInternalServerError, "An error occurred while assigning roles", err)
		}
	}

	writeResponse(w, http.StatusOK, "Roles assigned successfully", nil)
	return nil
}
