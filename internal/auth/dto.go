package auth

import (
	"github.com/Hazher89/oppdrag-app/internal/users"
)

// RegisterRequest captures the data needed to create a new account.
type RegisterRequest struct {
	Email         string  `json:"email" validate:"required,email"`
	Password      string  `json:"password" validate:"required,min=8"`
	Name          string  `json:"name" validate:"required,min=2,max=120"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,e164"`
	Role          string  `json:"role,omitempty" validate:"omitempty,oneof=driver admin"`
	CompanyID     string  `json:"company_id" validate:"required,min=1,max=64"`
	LicenseNumber *string `json:"license_number,omitempty"`
	VehicleID     *string `json:"vehicle_id,omitempty"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required"`
	DeviceToken *string `json:"device_token,omitempty"`
}

// LoginResponse contains the token and user produced by a successful login.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	User        *users.UserDTO `json:"user"`
}

// RegisterResponse returns the created user plus the minted token.
type RegisterResponse struct {
	AccessToken string         `json:"access_token"`
	User        *users.UserDTO `json:"user"`
}

// UpdateProfileRequest holds the fields a user may change on their own profile.
type UpdateProfileRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,e164"`
	LicenseNumber *string `json:"license_number,omitempty"`
	VehicleID     *string `json:"vehicle_id,omitempty"`
	ProfileImage  *string `json:"profile_image,omitempty" validate:"omitempty,url"`
}

// ChangePasswordRequest carries the credential rotation payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// VerifyEmailRequest carries the emailed verification code.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// ResendCodeRequest asks for a fresh verification code. Channel picks the
// delivery method and defaults to email.
type ResendCodeRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Channel string `json:"channel,omitempty" validate:"omitempty,oneof=email sms"`
}

// ForgotPasswordRequest starts the reset flow for the given account. Channel
// picks the delivery method and defaults to email.
type ForgotPasswordRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Channel string `json:"channel,omitempty" validate:"omitempty,oneof=email sms"`
}

// ResetPasswordRequest completes the reset flow with the emailed code.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// DeviceTokenRequest registers a push token for the acting user.
type DeviceTokenRequest struct {
	DeviceToken *string `json:"device_token" validate:"omitempty,max=512"`
}
