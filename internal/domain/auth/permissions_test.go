package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleRanksAreOrdered(t *testing.T) {
	roles := Roles()
	assert.Len(t, roles, 8)
	for i := 1; i < len(roles); i++ {
		assert.Greater(t, roles[i-1].Rank, roles[i].Rank)
	}
	assert.Equal(t, 0, Rank("JANITOR"))
	assert.False(t, ValidRole(""))
}

func TestRoleGroups(t *testing.T) {
	assert.True(t, IsAdmin(RoleSuperAdmin))
	assert.False(t, IsAdmin(RoleDirector))
	assert.True(t, IsExecutive(RoleDirector))
	assert.True(t, IsHR(RoleHRManager))
	assert.False(t, IsHR(RoleDepartmentManager))
	assert.True(t, IsManager(RoleSupervisor))
	assert.False(t, IsManager(RoleSeniorEmployee))
}

func TestCanAssign(t *testing.T) {
	assert.True(t, CanAssign(RoleSuperAdmin, RoleSuperAdmin))
	assert.True(t, CanAssign(RoleDirector, RoleHRManager))
	assert.False(t, CanAssign(RoleDirector, RoleDirector))
	assert.False(t, CanAssign(RoleHRManager, "UNKNOWN"))
}

func TestRolePermissionsInherit(t *testing.T) {
	for _, role := range RoleNames() {
		assert.True(t, HasPermission(role, PermLeaveWrite), role)
	}
	assert.False(t, HasPermission(RoleIntern, PermFinanceWrite))
	assert.True(t, HasPermission(RoleEmployee, PermFinanceWrite))
	assert.True(t, HasPermission(RoleSupervisor, PermLeaveApprove))
	assert.False(t, HasPermission(RoleSupervisor, PermFinanceApprove))
	assert.True(t, HasPermission(RoleHRManager, PermFinanceApprove))
	assert.False(t, HasPermission(RoleHRManager, PermSystemAdmin))
	assert.True(t, HasPermission(RoleDirector, PermSystemAdmin))
	assert.True(t, HasPermission(RoleSuperAdmin, PermSystemAdmin))
}

func TestPermissionChecker(t *testing.T) {
	ok, err := PermissionChecker{}.HasPermission(context.Background(), RoleEmployee, PermAuditRead)
	assert.NoError(t, err)
	assert.False(t, ok)
}
