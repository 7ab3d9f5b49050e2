package handler

import (
	"io"
	"net/http"

	"github.com/famvault/auth-service/internal/constants"
	"github.com/famvault/auth-service/internal/dto"
	apperrors "github.com/famvault/auth-service/internal/errors"
	"github.com/famvault/auth-service/internal/middleware"
	"github.com/famvault/auth-service/internal/service"
	"github.com/famvault/auth-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *service.AuthService
	validMw     *middleware.ValidationMiddleware
}

func NewAuthHandler(authService *service.AuthService, validMw *middleware.ValidationMiddleware) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validMw:     validMw,
	}
}

// respondError maps a service error to the response envelope. The
// public code and message deliberately carry less detail than the
// internal error: every 401-class failure looks the same from outside.
func respondError(c *gin.Context, err error) {
	status := apperrors.ToHTTPStatus(err)
	code := apperrors.PublicCode(err)

	message := apperrors.GetErrorMessage(err)
	if status == http.StatusUnauthorized {
		message = "unauthorized"
	}
	if status == http.StatusInternalServerError {
		message = constants.MsgInternalError
	}

	c.JSON(status, constants.BuildErrorResponse(code, message, nil))
}

func validatedRequest[T any](c *gin.Context) *T {
	return c.MustGet(middleware.GinKeyValidatedRequest).(*T)
}

// Signup handles multipart registration. PARENT signups must attach an
// identity-document image under the "id_image" form file.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest,
			constants.BuildErrorResponse("VALIDATION_FAILED", "malformed form data", nil))
		return
	}

	if details := h.validMw.Validate(&req); details != nil {
		c.JSON(http.StatusBadRequest,
			constants.BuildErrorResponse("VALIDATION_FAILED", "request validation failed", details))
		return
	}

	idImage, err := h.readIDImage(c)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.authService.Signup(c.Request.Context(), &req, idImage)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, constants.BuildSuccessResponse(resp))
}

func (h *AuthHandler) readIDImage(c *gin.Context) (*service.IDImage, error) {
	fileHeader, err := c.FormFile("id_image")
	if err != nil {
		// Absent is fine here; the service decides whether the role
		// requires one.
		return nil, nil
	}

	if fileHeader.Size > constants.MaxIDImageSizeBytes {
		return nil, apperrors.ErrUnsupportedMedia
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxIDImageSizeBytes+1))
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if len(data) > constants.MaxIDImageSizeBytes {
		return nil, apperrors.ErrUnsupportedMedia
	}

	return &service.IDImage{
		Data:        data,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(constants.HeaderContentType),
	}, nil
}

func (h *AuthHandler) Login(c *gin.Context) {
	req := validatedRequest[dto.LoginRequest](c)

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(resp))
}

func (h *AuthHandler) OAuthLogin(c *gin.Context) {
	req := validatedRequest[dto.OAuthLoginRequest](c)

	resp, err := h.authService.OAuthLogin(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	// 200 either way; is_new_user in the body tells the client whether
	// the identity was just registered.
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(resp))
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	req := validatedRequest[dto.RefreshTokenRequest](c)

	resp, err := h.authService.Refresh(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(resp))
}

// Logout always answers success: revealing whether the presented token
// was live would hand an attacker a token oracle.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = dto.LogoutRequest{}
	}

	if err := h.authService.Logout(c.Request.Context(), &req); err != nil {
		logger.WarnWithContext(c.Request.Context(), "Logout revocation failed").
			Err(err).
			Log()
	}

	c.JSON(http.StatusOK, constants.BuildMessageResponse(constants.MsgLogoutSuccess))
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetUint(constants.GinKeyUserID)

	resp, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(resp))
}

// ForgotPassword answers identically whether or not the address is
// registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	req := validatedRequest[dto.ForgotPasswordRequest](c)

	if err := h.authService.ForgotPassword(c.Request.Context(), req); err != nil {
		logger.ErrorWithContext(c.Request.Context(), "Forgot password flow failed").
			Err(err).
			Log()
	}

	c.JSON(http.StatusOK, constants.BuildMessageResponse(constants.MsgForgotPassword))
}

// ResetPassword redeems the mailed token and signs the user in.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	req := validatedRequest[dto.ResetPasswordRequest](c)

	resp, err := h.authService.ResetPassword(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(resp))
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	req := validatedRequest[dto.ChangePasswordRequest](c)
	userID := c.GetUint(constants.GinKeyUserID)

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildMessageResponse(constants.MsgPasswordChange))
}
