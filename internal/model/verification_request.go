package model

import (
	"time"
)

// VerificationRequest records the identity-review state of a user.
// Created exactly once per signup, in the same transaction as the User.
// Status transitions (PENDING -> APPROVED/REJECTED) are performed by the
// admin-review collaborator, not by this service.
type VerificationRequest struct {
	ID         uint      `gorm:"column:id;primaryKey"`
	UserID     uint      `gorm:"column:user_id;not null;uniqueIndex"`
	Role       string    `gorm:"column:role;not null"`
	Status     string    `gorm:"column:status;not null;default:PENDING"`
	IDImageURL *string   `gorm:"column:id_image_url"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}
