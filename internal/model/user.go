package model

import (
	"gorm.io/gorm"
)

// User is the root identity row. PasswordHash is nil for OAuth-only
// accounts. The email unique index intentionally spans soft-deleted rows:
// once an address has been registered its slot is consumed for good, so a
// token minted for a deleted account can never resolve to a different
// person who re-registered the same address.
type User struct {
	gorm.Model
	Email        string  `gorm:"column:email;unique;not null"`
	Name         string  `gorm:"column:name;not null"`
	PasswordHash *string `gorm:"column:password_hash"`
	Role         string  `gorm:"column:role;not null;default:PARENT"`

	VerificationRequest *VerificationRequest `gorm:"constraint:OnDelete:CASCADE"`
	ParentProfile       *ParentProfile       `gorm:"constraint:OnDelete:CASCADE"`
}
