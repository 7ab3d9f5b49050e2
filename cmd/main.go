package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configs "github.com/famvault/auth-service/config"
	"github.com/famvault/auth-service/internal/handler"
	"github.com/famvault/auth-service/internal/middleware"
	"github.com/famvault/auth-service/internal/repository"
	"github.com/famvault/auth-service/internal/router"
	"github.com/famvault/auth-service/internal/service"
	"github.com/famvault/auth-service/pkg/database"
	"github.com/famvault/auth-service/pkg/logger"
	"github.com/famvault/auth-service/pkg/mailer"
	redisclient "github.com/famvault/auth-service/pkg/redis"
	"github.com/famvault/auth-service/pkg/storage"
	"go.uber.org/zap"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
	)

	db, err := database.NewPostgresDB(database.Config{
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.Name,
		SSLMode:         config.Database.SSLMode,
		MaxIdleConns:    config.Database.MaxIdleConns,
		MaxOpenConns:    config.Database.MaxOpenConns,
		ConnMaxLifetime: config.Database.ConnMaxLifetime,
		ConnMaxIdleTime: config.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	redisClient, err := redisclient.NewClient(config)
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	store, err := storage.NewStorage(config.Storage)
	if err != nil {
		logger.GetLogger().Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	oauthRepo := repository.NewOAuthAccountRepository(db)
	verificationRepo := repository.NewVerificationRequestRepository(db)
	profileRepo := repository.NewParentProfileRepository(db)
	resetStore := repository.NewResetTokenStore(redisClient)

	// Services
	passwordService, err := service.NewPasswordService()
	if err != nil {
		logger.GetLogger().Fatal("Failed to initialize password service", zap.Error(err))
	}
	tokenService := service.NewTokenService(config.JWT, userRepo, tokenRepo)
	oauthService := service.NewOAuthService(config.OAuth)
	smtpMailer := mailer.NewSMTPMailer(config.SMTP)
	authService := service.NewAuthService(
		config, db,
		userRepo, oauthRepo, verificationRepo, profileRepo, resetStore,
		passwordService, tokenService, oauthService,
		store, smtpMailer,
	)

	// Handlers and middleware
	validMw := middleware.NewValidationMiddleware()
	authMw := middleware.NewAuthMiddleware(tokenService, userRepo)
	authHandler := handler.NewAuthHandler(authService, validMw)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	engine := router.NewRouter(authHandler, healthHandler, validMw, authMw, config).SetupRoutes()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Periodic refresh token garbage collection
	go func() {
		ticker := time.NewTicker(config.JWT.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				if _, err := tokenService.CleanupExpiredTokens(rootCtx); err != nil {
					logger.GetLogger().Error("Token cleanup failed", zap.Error(err))
				}
			}
		}
	}()

	server := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.GetLogger().Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.GetLogger().Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().Error("Graceful shutdown failed", zap.Error(err))
	}

	logger.GetLogger().Info("Application stopped")
}
