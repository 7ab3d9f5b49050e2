package model

import (
	"time"
)

// ParentProfile holds the household-finance baseline a PARENT provides at
// signup. Exists only for role=PARENT and is created in the same
// transaction as its User.
type ParentProfile struct {
	ID                uint     `gorm:"column:id;primaryKey"`
	UserID            uint     `gorm:"column:user_id;not null;uniqueIndex"`
	Country           string   `gorm:"column:country;not null"`
	NumberOfChildren  int      `gorm:"column:number_of_children;not null"`
	MonthlyIncomeBase float64  `gorm:"column:monthly_income_base;not null"`
	MonthlyRentBase   *float64 `gorm:"column:monthly_rent_base"`
	MonthlyLoansBase  *float64 `gorm:"column:monthly_loans_base"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}
