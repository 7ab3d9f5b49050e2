package model

import (
	"time"
)

// OAuthAccount links a third-party identity to a local user.
// (provider, provider_id) identifies at most one user.
type OAuthAccount struct {
	ID         uint      `gorm:"column:id;primaryKey"`
	Provider   string    `gorm:"column:provider;not null;uniqueIndex:idx_oauth_provider_subject"`
	ProviderID string    `gorm:"column:provider_id;not null;uniqueIndex:idx_oauth_provider_subject"`
	UserID     uint      `gorm:"column:user_id;not null;index"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}
