package constants

// Field Length Limits
const (
	MinPasswordLength = 8
	MaxPasswordLength = 100
	MinNameLength     = 2
	MaxNameLength     = 50
	MaxEmailLength    = 255
)

// Token Settings (defaults, overridable via config)
const (
	AccessTokenExpiry  = 15 * 60          // 15 minutes, in seconds
	RefreshTokenExpiry = 7 * 24 * 60 * 60 // 7 days, in seconds
)

// Upload limits
const (
	MaxIDImageSizeBytes = 10 * 1024 * 1024 // 10MB
)
