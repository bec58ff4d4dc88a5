package enums

import "fmt"

// Permission is a fine-grained capability granted to admin accounts.
type Permission string

const (
	PermissionCreateAssignments Permission = "create_assignments"
	PermissionEditAssignments   Permission = "edit_assignments"
	PermissionDeleteAssignments Permission = "delete_assignments"
	PermissionManageUsers       Permission = "manage_users"
	PermissionViewReports       Permission = "view_reports"
)

var validPermissions = []Permission{
	PermissionCreateAssignments,
	PermissionEditAssignments,
	PermissionDeleteAssignments,
	PermissionManageUsers,
	PermissionViewReports,
}

// String implements fmt.Stringer.
func (p Permission) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Permission.
func (p Permission) IsValid() bool {
	for _, candidate := range validPermissions {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePermission converts raw input into a Permission.
func ParsePermission(value string) (Permission, error) {
	for _, candidate := range validPermissions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission %q", value)
}

// ParsePermissions converts a raw list, rejecting the whole set on any bad entry.
func ParsePermissions(values []string) ([]Permission, error) {
	out := make([]Permission, 0, len(values))
	for _, value := range values {
		perm, err := ParsePermission(value)
		if err != nil {
			return nil, err
		}
		out = append(out, perm)
	}
	return out, nil
}

// PermissionStrings converts a permission list back to its raw string form.
func PermissionStrings(perms []Permission) []string {
	out := make([]string, 0, len(perms))
	for _, perm := range perms {
		out = append(out, string(perm))
	}
	return out
}
