package model

import (
	"time"
)

// RefreshToken is one issued refresh credential. ID equals the token_id
// claim embedded in the refresh JWT. TokenHash is a SHA-256 digest of the
// raw token; the raw value is never stored. A row is Active until either
// RevokedAt is set (rotation, logout, password change, admin action) or
// ExpiresAt passes. Both states are terminal.
type RefreshToken struct {
	ID        string     `gorm:"column:id;primaryKey"`
	UserID    uint       `gorm:"column:user_id;not null;index"`
	TokenHash string     `gorm:"column:token_hash;unique;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null;index"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

// Revoked reports whether the token has been explicitly revoked.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token is past its expiry at the given time.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
