package constants

// Application Information
const (
	AppName    = "FamVault Auth Service"
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Default Application Settings
const (
	DefaultPort        = "8080"
	DefaultEnvironment = EnvDevelopment
)

// User Roles
const (
	RoleParent = "PARENT"
	RoleChild  = "CHILD"
)

// Verification Request Statuses
const (
	VerificationPending  = "PENDING"
	VerificationApproved = "APPROVED"
	VerificationRejected = "REJECTED"
)

// OAuth Providers
const (
	ProviderGoogle = "GOOGLE"
	ProviderApple  = "APPLE"
)

// Redis Key Prefixes
const (
	CacheKeyPrefix     = "famvault:"
	CacheKeyResetToken = CacheKeyPrefix + "pwdreset:"
)

// Storage folders
const (
	StorageFolderIDDocuments = "id-documents"
)

// Log Levels
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"
)
