// File: app/app.go
package app

import (
	"context"
	"fmt"
	"go-identity-api/config"
	"go-identity-api/db"
	"go-identity-api/handler"
	"go-identity-api/logger"
	"go-identity-api/repository"
	"go-identity-api/router"
	"go-identity-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	purgeInterval  = 24 * time.Hour
	purgeRetention = 30 * 24 * time.Hour
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	dbCfg := config.AppConfig.Database
	migrateConnStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbCfg.User, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.Name)
	if err := db.Migrate("file://db/migrations", migrateConnStr); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	// The role cache is an optimization; the service runs without it.
	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.WithError(err).Warn("Redis unavailable; role caching disabled")
		redisClient = nil
	}

	accountRepo := repository.NewAccountRepository(database)
	tokenRepo := repository.NewTokenRepository(database)
	auditRepo := repository.NewAuditRepository(database)

	roleService := service.NewRoleService(database, accountRepo, auditRepo, redisClient)

	tokenService, err := service.NewTokenService(database, config.AppConfig.JWT, tokenRepo, accountRepo, auditRepo, roleService)
	if err != nil {
		// A missing or weak signing key must crash the process rather than
		// run insecurely.
		logger.Log.Fatalf("Invalid token configuration: %v", err)
	}

	tokenValidator, err := service.NewTokenValidator(config.AppConfig.JWT)
	if err != nil {
		logger.Log.Fatalf("Invalid token configuration: %v", err)
	}

	authService := service.NewAuthService(database, accountRepo, auditRepo, tokenService, roleService)

	authHandler := handler.NewAuthHandler(authService, roleService)
	authMiddleware := handler.NewAuthMiddleware(tokenValidator)

	r := router.NewRouter(authHandler, authMiddleware)

	// --- Start the Server with Graceful Shutdown ---
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go runTokenReaper(reaperCtx, tokenService)

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}

// runTokenReaper periodically purges refresh tokens that are both revoked
// and long expired. Expiry itself is always evaluated at read time; this
// loop is storage hygiene only.
func runTokenReaper(ctx context.Context, tokenService *service.TokenService) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := tokenService.PurgeExpired(ctx, purgeRetention)
			if err != nil {
				logger.Log.WithError(err).Error("Failed to purge expired refresh tokens")
				continue
			}
			if purged > 0 {
				logger.Log.WithField("purged", purged).Info("Purged expired refresh tokens")
			}
		}
	}
}
