package service

import (
	"testing"
	"time"

	"github.com/famvault/auth-service/config"
	"github.com/famvault/auth-service/internal/model"
	"github.com/famvault/auth-service/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openTestDB returns a fresh in-memory database with the full schema.
// Capped at one connection so every query sees the same memory store.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.OAuthAccount{},
		&model.VerificationRequest{},
		&model.ParentProfile{},
	))

	return db
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:          "test-secret",
		Issuer:          "famvault-auth",
		Audience:        "famvault-api",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      7 * 24 * time.Hour,
		RevokedTokenGC:  30 * 24 * time.Hour,
		CleanupInterval: 6 * time.Hour,
	}
}

func newTestTokenService(t *testing.T, db *gorm.DB) *TokenService {
	t.Helper()
	return NewTokenService(testJWTConfig(),
		repository.NewUserRepository(db),
		repository.NewRefreshTokenRepository(db))
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()

	hash := "$argon2id$v=19$m=65536,t=3,p=4$c29tZXNhbHRzb21lc2E$MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY"
	user := &model.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: &hash,
		Role:         "PARENT",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
