package database

import (
	"github.com/famvault/auth-service/internal/model"
	"gorm.io/gorm"
)

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.OAuthAccount{},
		&model.VerificationRequest{},
		&model.ParentProfile{},
	)
}
