package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/famvault/auth-service/internal/constants"
	apperrors "github.com/famvault/auth-service/internal/errors"
	"github.com/famvault/auth-service/internal/repository"
	"github.com/famvault/auth-service/internal/service"
	ctxutil "github.com/famvault/auth-service/pkg/context"
	"github.com/famvault/auth-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	tokenService *service.TokenService
	userRepo     *repository.UserRepository
}

func NewAuthMiddleware(tokenService *service.TokenService, userRepo *repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		userRepo:     userRepo,
	}
}

// abortUnauthorized answers every rejection identically so the response
// does not reveal whether the token was missing, malformed, expired or
// tied to a deleted account.
func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		constants.BuildErrorResponse("UNAUTHORIZED", "unauthorized", nil))
}

// RequireAuth validates the bearer access token and loads the account
// behind it. A valid signature is not enough: the user row must still
// exist, so tokens minted before an account deletion stop working.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			logger.WarnWithContext(c.Request.Context(), "Missing bearer token").
				String("path", c.Request.URL.Path).
				Log()
			abortUnauthorized(c)
			return
		}

		claims, err := m.tokenService.VerifyAccessToken(raw)
		if err != nil {
			logger.WarnWithContext(c.Request.Context(), "Access token rejected").
				String("path", c.Request.URL.Path).
				Err(err).
				Log()
			abortUnauthorized(c)
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			abortUnauthorized(c)
			return
		}

		user, err := m.userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrUserNotFound) {
				logger.ErrorWithContext(c.Request.Context(), "User lookup failed during auth").
					Uint("user_id", userID).
					Err(err).
					Log()
			}
			abortUnauthorized(c)
			return
		}

		c.Set(constants.GinKeyUserID, user.ID)
		c.Set(constants.GinKeyUserEmail, user.Email)
		c.Set(constants.GinKeyUserRole, user.Role)

		ctx := ctxutil.WithUserID(c.Request.Context(), user.ID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole gates a route to the given roles. Must run after
// RequireAuth; a request with no attached identity is unauthorized, not
// forbidden.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(constants.GinKeyUserRole)
		if role == "" {
			abortUnauthorized(c)
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		logger.WarnWithContext(c.Request.Context(), "Role check failed").
			String("role", role).
			String("path", c.Request.URL.Path).
			Log()
		c.AbortWithStatusJSON(http.StatusForbidden,
			constants.BuildErrorResponse("FORBIDDEN", "insufficient role", nil))
	}
}

// OptionalAuth populates the user context when a valid token is present
// and passes through silently otherwise.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.Next()
			return
		}

		claims, err := m.tokenService.VerifyAccessToken(raw)
		if err != nil {
			c.Next()
			return
		}

		if userID, err := claims.UserID(); err == nil {
			c.Set(constants.GinKeyUserID, userID)
			c.Set(constants.GinKeyUserEmail, claims.Email)
			c.Set(constants.GinKeyUserRole, claims.Role)
			c.Request = c.Request.WithContext(ctxutil.WithUserID(c.Request.Context(), userID))
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader(constants.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
