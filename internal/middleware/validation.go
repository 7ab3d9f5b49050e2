package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/famvault/auth-service/internal/constants"
	"github.com/famvault/auth-service/pkg/logger"
	"github.com/famvault/auth-service/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// GinKeyValidatedRequest is where ValidateJSON stores the decoded and
// validated request for the handler to pick up.
const GinKeyValidatedRequest = "validated_request"

type ValidationMiddleware struct {
	validate *validator.Validate
}

func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{validate: validator.New()}
}

// ValidateJSON decodes the body into a fresh request from the factory,
// runs struct validation and aborts with a field-by-field details map on
// failure.
func (m *ValidationMiddleware) ValidateJSON(factory func() any) gin.HandlerFunc {
	return func(c *gin.Context) {
		var bodyBytes []byte
		if c.Request.Body != nil {
			var err error
			bodyBytes, err = io.ReadAll(c.Request.Body)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest,
					constants.BuildErrorResponse("VALIDATION_FAILED", "failed to read request body", nil))
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		request := factory()
		if err := json.Unmarshal(bodyBytes, request); err != nil {
			logger.DebugWithContext(c.Request.Context(), "Request body is not valid JSON").
				String("path", c.Request.URL.Path).
				Err(err).
				Log()
			c.AbortWithStatusJSON(http.StatusBadRequest,
				constants.BuildErrorResponse("VALIDATION_FAILED", "request body is not valid JSON", nil))
			return
		}

		if err := m.validate.Struct(request); err != nil {
			details := buildValidationDetails(err)
			logger.DebugWithContext(c.Request.Context(), "Request validation failed").
				String("path", c.Request.URL.Path).
				Any("details", details).
				Log()
			c.AbortWithStatusJSON(http.StatusBadRequest,
				constants.BuildErrorResponse("VALIDATION_FAILED", "request validation failed", details))
			return
		}

		c.Set(GinKeyValidatedRequest, request)
		c.Next()
	}
}

// Validate runs struct validation for handlers that bind the request
// themselves (multipart forms).
func (m *ValidationMiddleware) Validate(request any) map[string]string {
	if err := m.validate.Struct(request); err != nil {
		return buildValidationDetails(err)
	}
	return nil
}

func buildValidationDetails(err error) map[string]string {
	details := make(map[string]string)

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		details["request"] = err.Error()
		return details
	}

	for _, fieldErr := range validationErrors {
		if custom := validation.CustomMessage(fieldErr.Field()); custom != nil {
			if msg, ok := custom[fieldErr.Tag()]; ok {
				details[fieldErr.Field()] = msg
				continue
			}
		}
		details[fieldErr.Field()] = validation.DefaultMessage(fieldErr.Field(), fieldErr.Tag())
	}

	return details
}
