package types

import (
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	"github.com/google/uuid"
)

// Actor is the authenticated principal resolved by the auth middleware and
// threaded through service calls for authorization decisions.
type Actor struct {
	ID          uuid.UUID
	Role        enums.UserRole
	CompanyID   string
	Permissions []string
	Name        string
}

// IsAdmin reports whether the actor holds an administrative role.
func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

// IsSuperAdmin reports whether the actor holds the super admin role.
func (a Actor) IsSuperAdmin() bool {
	return a.Role == enums.UserRoleSuperAdmin
}

// CanAccessCompany reports whether the actor may touch rows owned by the
// company. Super admins cross tenant boundaries.
func (a Actor) CanAccessCompany(companyID string) bool {
	return a.IsSuperAdmin() || a.CompanyID == companyID
}

// CompanyScope returns the company filter for list queries. Empty means
// unscoped and is only ever returned for super admins.
func (a Actor) CompanyScope() string {
	if a.IsSuperAdmin() {
		return ""
	}
	return a.CompanyID
}

// HasPermission reports whether the actor carries the permission. Only super
// admins hold every permission implicitly; regular admins need the grant.
func (a Actor) HasPermission(p enums.Permission) bool {
	if a.IsSuperAdmin() {
		return true
	}
	for _, held := range a.Permissions {
		if held == string(p) {
			return true
		}
	}
	return false
}
