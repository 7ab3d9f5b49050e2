package constants

// HTTP Header Names
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderUserAgent     = "User-Agent"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderXRealIP       = "X-Real-IP"
)

// HTTP Content Types
const (
	ContentTypeJSON      = "application/json"
	ContentTypeForm      = "application/x-www-form-urlencoded"
	ContentTypeMultipart = "multipart/form-data"
)

// Common HTTP Error Messages
const (
	MsgUnauthorized     = "Unauthorized"
	MsgForbidden        = "Access forbidden"
	MsgNotFound         = "Resource not found"
	MsgBadRequest       = "Invalid request"
	MsgInternalError    = "Internal server error"
	MsgConflict         = "Resource already exists"
	MsgUnsupportedMedia = "Unsupported media type"
)

// User-visible messages that must stay identical regardless of outcome.
// Logout and forgot-password never reveal token or account state.
const (
	MsgLogoutSuccess  = "Logged out successfully"
	MsgForgotPassword = "If that email address is registered, a reset link has been sent"
	MsgPasswordChange = "Password changed successfully"
)
