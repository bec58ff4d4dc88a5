package models

import (
	"time"

	dbtypes "github.com/Hazher89/oppdrag-app/pkg/db/types"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	"github.com/google/uuid"
)

// User represents the canonical identity entity for drivers and admins.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Name         string         `gorm:"column:name;not null"`
	Phone        *string        `gorm:"column:phone"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:'driver'"`
	CompanyID    string         `gorm:"column:company_id;not null;index"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`

	Permissions dbtypes.StringArray `gorm:"type:text[];column:permissions;not null;default:ARRAY[]::text[]"`

	LicenseNumber *string `gorm:"column:license_number"`
	VehicleID     *string `gorm:"column:vehicle_id"`
	ProfileImage  *string `gorm:"column:profile_image"`
	DeviceToken   *string `gorm:"column:device_token"`

	IsEmailVerified        bool       `gorm:"column:is_email_verified;not null;default:false"`
	VerificationCode       *string    `gorm:"column:verification_code"`
	VerificationCodeExpiry *time.Time `gorm:"column:verification_code_expiry"`
	ResetCode              *string    `gorm:"column:reset_code"`
	ResetCodeExpiry        *time.Time `gorm:"column:reset_code_expiry"`

	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// HasPermission reports whether the user carries the permission, directly or
// via an admin role.
func (u *User) HasPermission(p enums.Permission) bool {
	if u.Role.IsAdmin() {
		return true
	}
	return u.Permissions.Contains(string(p))
}
