package enums

import "fmt"

// UserRole represents the platform-level role of an account.
type UserRole string

const (
	UserRoleDriver     UserRole = "driver"
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "super_admin"
)

var validUserRoles = []UserRole{
	UserRoleDriver,
	UserRoleAdmin,
	UserRoleSuperAdmin,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role carries admin privileges.
func (r UserRole) IsAdmin() bool {
	return r == UserRoleAdmin || r == UserRoleSuperAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
