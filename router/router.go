package router

import (
	"go-identity-api/handler"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func NewRouter(authHandler *handler.AuthHandler, authMiddleware *handler.AuthMiddleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", handler.HealthCheck)
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	mux.Handle("/api/v1/auth/register", handler.ErrorHandlingMiddleware(authHandler.Register))
	mux.Handle("/api/v1/auth/login", handler.ErrorHandlingMiddleware(authHandler.Login))
	mux.Handle("/api/v1/auth/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	mux.Handle("/api/v1/auth/revoke", handler.ErrorHandlingMiddleware(authHandler.Revoke))

	mux.Handle("/api/v1/auth/roles", authMiddleware.Authenticate(
		authMiddleware.RequireAdmin(handler.ErrorHandlingMiddleware(authHandler.AssignRoles))))

	return mux
}
