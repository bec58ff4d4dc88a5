package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Hazher89/oppdrag-app/pkg/enums"
)

func TestActorHasPermission(t *testing.T) {
	cases := []struct {
		name        string
		role        enums.UserRole
		permissions []string
		permission  enums.Permission
		want        bool
	}{
		{"driver with grant", enums.UserRoleDriver, []string{"view_reports"}, enums.PermissionViewReports, true},
		{"driver without grant", enums.UserRoleDriver, nil, enums.PermissionViewReports, false},
		{"admin with grant", enums.UserRoleAdmin, []string{"manage_users"}, enums.PermissionManageUsers, true},
		{"admin without grant", enums.UserRoleAdmin, nil, enums.PermissionManageUsers, false},
		{"admin with other grant", enums.UserRoleAdmin, []string{"view_reports"}, enums.PermissionDeleteAssignments, false},
		{"super admin without grant", enums.UserRoleSuperAdmin, nil, enums.PermissionManageUsers, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actor := Actor{ID: uuid.New(), Role: tc.role, CompanyID: "acme", Permissions: tc.permissions}
			assert.Equal(t, tc.want, actor.HasPermission(tc.permission))
		})
	}
}

func TestActorCompanyScope(t *testing.T) {
	admin := Actor{ID: uuid.New(), Role: enums.UserRoleAdmin, CompanyID: "acme"}
	assert.Equal(t, "acme", admin.CompanyScope())
	assert.True(t, admin.CanAccessCompany("acme"))
	assert.False(t, admin.CanAccessCompany("other"))

	super := Actor{ID: uuid.New(), Role: enums.UserRoleSuperAdmin, CompanyID: "hq"}
	assert.Equal(t, "", super.CompanyScope())
	assert.True(t, super.CanAccessCompany("other"))
}
