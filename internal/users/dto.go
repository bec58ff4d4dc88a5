package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	dbtypes "github.com/Hazher89/oppdrag-app/pkg/db/types"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID              uuid.UUID      `json:"id"`
	Email           string         `json:"email"`
	Name            string         `json:"name"`
	Phone           *string        `json:"phone,omitempty"`
	Role            enums.UserRole `json:"role"`
	CompanyID       string         `json:"company_id"`
	IsActive        bool           `json:"is_active"`
	Permissions     []string       `json:"permissions"`
	LicenseNumber   *string        `json:"license_number,omitempty"`
	VehicleID       *string        `json:"vehicle_id,omitempty"`
	ProfileImage    *string        `json:"profile_image,omitempty"`
	IsEmailVerified bool           `json:"is_email_verified"`
	LastLoginAt     *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email         string
	PasswordHash  string
	Name          string
	Phone         *string
	Role          enums.UserRole
	CompanyID     string
	Permissions   []string
	LicenseNumber *string
	VehicleID     *string
	IsActive      *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Phone:           u.Phone,
		Role:            u.Role,
		CompanyID:       u.CompanyID,
		IsActive:        u.IsActive,
		Permissions:     append([]string(nil), []string(u.Permissions)...),
		LicenseNumber:   u.LicenseNumber,
		VehicleID:       u.VehicleID,
		ProfileImage:    u.ProfileImage,
		IsEmailVerified: u.IsEmailVerified,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	role := c.Role
	if role == "" {
		role = enums.UserRoleDriver
	}

	permissions := c.Permissions
	if permissions == nil {
		permissions = []string{}
	} else {
		permissions = append([]string(nil), permissions...)
	}

	return &models.User{
		Email:         c.Email,
		PasswordHash:  c.PasswordHash,
		Name:          c.Name,
		Phone:         c.Phone,
		Role:          role,
		CompanyID:     c.CompanyID,
		IsActive:      isActive,
		Permissions:   dbtypes.StringArray(permissions),
		LicenseNumber: c.LicenseNumber,
		VehicleID:     c.VehicleID,
	}
}
