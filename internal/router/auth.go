package router

import (
	"github.com/famvault/auth-service/internal/dto"
	"github.com/gin-gonic/gin"
)

func (r *Router) authRoutes(version *gin.RouterGroup) {
	auth := version.Group("/auth")
	{
		// Public routes
		auth.POST("/signup", r.authHandler.Signup)
		auth.POST("/login",
			r.validMw.ValidateJSON(func() any { return &dto.LoginRequest{} }),
			r.authHandler.Login)
		auth.POST("/oauth",
			r.validMw.ValidateJSON(func() any { return &dto.OAuthLoginRequest{} }),
			r.authHandler.OAuthLogin)
		auth.POST("/refresh",
			r.validMw.ValidateJSON(func() any { return &dto.RefreshTokenRequest{} }),
			r.authHandler.Refresh)
		auth.POST("/logout", r.authHandler.Logout)
		auth.POST("/forgot-password",
			r.validMw.ValidateJSON(func() any { return &dto.ForgotPasswordRequest{} }),
			r.authHandler.ForgotPassword)
		auth.POST("/reset-password",
			r.validMw.ValidateJSON(func() any { return &dto.ResetPasswordRequest{} }),
			r.authHandler.ResetPassword)

		// Protected routes
		protected := auth.Group("")
		protected.Use(r.authMw.RequireAuth())
		{
			protected.GET("/me", r.authHandler.Me)
			protected.POST("/change-password",
				r.validMw.ValidateJSON(func() any { return &dto.ChangePasswordRequest{} }),
				r.authHandler.ChangePassword)
		}
	}
}
