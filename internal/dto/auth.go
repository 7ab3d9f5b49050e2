package dto

import "time"

// SignupRequest arrives as multipart form data; the identity-document
// image is read separately from the form file "id_image".
type SignupRequest struct {
	Role     string `form:"role" validate:"required,oneof=PARENT CHILD"`
	Name     string `form:"name" validate:"required,min=2,max=50"`
	Email    string `form:"email" validate:"required,email,max=255"`
	Password string `form:"password" validate:"required,min=8,max=100"`

	// Parent-only household baseline
	Country           string   `form:"country" validate:"required_if=Role PARENT"`
	NumberOfChildren  int      `form:"number_of_children" validate:"omitempty,gte=0"`
	MonthlyIncomeBase float64  `form:"monthly_income_base" validate:"omitempty,gte=0"`
	MonthlyRentBase   *float64 `form:"monthly_rent_base" validate:"omitempty"`
	MonthlyLoansBase  *float64 `form:"monthly_loans_base" validate:"omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type OAuthLoginRequest struct {
	Provider string `json:"provider" validate:"required,oneof=GOOGLE APPLE google apple"`
	IDToken  string `json:"id_token" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type ParentProfileResponse struct {
	Country           string   `json:"country"`
	NumberOfChildren  int      `json:"number_of_children"`
	MonthlyIncomeBase float64  `json:"monthly_income_base"`
	MonthlyRentBase   *float64 `json:"monthly_rent_base,omitempty"`
	MonthlyLoansBase  *float64 `json:"monthly_loans_base,omitempty"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // access token expiry in seconds
}

type AuthResponse struct {
	User               UserResponse `json:"user"`
	VerificationStatus string       `json:"verification_status"`
	AccessToken        string       `json:"access_token"`
	RefreshToken       string       `json:"refresh_token"`
	ExpiresIn          int          `json:"expires_in"`
}

type OAuthResponse struct {
	AuthResponse
	IsNewUser bool `json:"is_new_user"`
}

type MeResponse struct {
	User               UserResponse           `json:"user"`
	VerificationStatus string                 `json:"verification_status"`
	ParentProfile      *ParentProfileResponse `json:"parent_profile,omitempty"`
}
