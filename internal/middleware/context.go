package middleware

import (
	"time"

	"github.com/famvault/auth-service/internal/constants"
	ctxutil "github.com/famvault/auth-service/pkg/context"
	"github.com/famvault/auth-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultRequestTimeout = 30 * time.Second

// ContextMiddleware attaches request tracking information to the
// request context and logs the request boundaries. The request ID is
// taken from the X-Request-ID header when the caller supplies one, so
// upstream gateways can correlate their logs with ours.
func ContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := ctxutil.NewContext(c.Request.Context(), requestID, c.ClientIP(), c.Request.UserAgent())
		ctx, cancel := ctxutil.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Header(constants.HeaderXRequestID, requestID)

		logger.DebugWithContext(ctx, "Request started").
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			Log()

		c.Next()

		logger.InfoWithContext(ctx, "Request completed").
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			Int("status_code", c.Writer.Status()).
			Int("response_size", c.Writer.Size()).
			Duration(ctxutil.GetDuration(ctx)).
			Log()
	}
}
