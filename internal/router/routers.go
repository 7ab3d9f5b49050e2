package router

import (
	"time"

	"github.com/famvault/auth-service/config"
	"github.com/famvault/auth-service/internal/constants"
	"github.com/famvault/auth-service/internal/handler"
	"github.com/famvault/auth-service/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authHandler   *handler.AuthHandler
	healthHandler *handler.HealthHandler

	validMw *middleware.ValidationMiddleware
	authMw  *middleware.AuthMiddleware

	Config *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	health *handler.HealthHandler,
	validMw *middleware.ValidationMiddleware,
	authMw *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:   auth,
		healthHandler: health,
		validMw:       validMw,
		authMw:        authMw,
		Config:        cfg,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	if r.Config.App.Environment == constants.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.ContextMiddleware())
	router.Use(middleware.CORS())

	api := router.Group("/api")
	{
		api.GET("/health", r.healthHandler.HealthCheck)

		v1 := api.Group("/v1")
		{
			v1.Use(middleware.RateLimit(
				r.Config.RateLimit.Request,
				time.Duration(r.Config.RateLimit.Duration)*time.Second,
			))

			r.authRoutes(v1)
		}
	}

	return router
}
