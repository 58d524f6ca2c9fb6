package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/auth"
)

type fakeStore struct {
	StoreAPI
	emails      map[string]bool
	created     []EmployeeInput
	hasStaff    bool
	deleted     bool
	superAdmins int
	users       map[string]User
	updated     map[string][2]string
}

func (f *fakeStore) EmailExists(_ context.Context, email string) (bool, error) {
	return f.emails[email], nil
}

func (f *fakeStore) CreateEmployeeWithUser(_ context.Context, in EmployeeInput, hash string) (string, error) {
	if err := auth.CheckPassword(hash, in.Password); in.Password != "" && err != nil {
		return "", err
	}
	f.created = append(f.created, in)
	return "emp-1", nil
}

func (f *fakeStore) DepartmentHasEmployees(context.Context, string) (bool, error) {
	return f.hasStaff, nil
}

func (f *fakeStore) DeleteDepartment(context.Context, string) (bool, error) {
	f.deleted = true
	return true, nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CountActiveWithRole(context.Context, string) (int, error) {
	return f.superAdmins, nil
}

func (f *fakeStore) UpdateUserAccess(_ context.Context, id, role, status string) (bool, error) {
	if f.updated == nil {
		f.updated = map[string][2]string{}
	}
	f.updated[id] = [2]string{role, status}
	return true, nil
}

func TestCreateEmployeeGeneratesPassword(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	res, err := svc.CreateEmployee(context.Background(), auth.UserContext{Role: auth.RoleHRManager}, EmployeeInput{
		Email: "new@example.com", FirstName: "New", LastName: "Hire",
	})
	require.NoError(t, err)
	assert.Equal(t, "emp-1", res.ID)
	assert.NotEmpty(t, res.TemporaryPassword)
	require.Len(t, store.created, 1)
	assert.Equal(t, auth.RoleEmployee, store.created[0].Role)
}

func TestCreateEmployeeRejectsHigherRole(t *testing.T) {
	svc := NewService(&fakeStore{})
	_, err := svc.CreateEmployee(context.Background(), auth.UserContext{Role: auth.RoleHRManager}, EmployeeInput{
		Email: "boss@example.com", Role: auth.RoleDirector,
	})
	assert.ErrorIs(t, err, ErrRoleNotAssignable)
}

func TestCreateEmployeeRejectsTakenEmail(t *testing.T) {
	svc := NewService(&fakeStore{emails: map[string]bool{"dup@example.com": true}})
	_, err := svc.CreateEmployee(context.Background(), auth.UserContext{Role: auth.RoleSuperAdmin}, EmployeeInput{
		Email: "dup@example.com",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestDeleteDepartmentRefusedWithEmployees(t *testing.T) {
	store := &fakeStore{hasStaff: true}
	err := NewService(store).DeleteDepartment(context.Background(), "d1")
	assert.ErrorIs(t, err, ErrDepartmentHasEmployees)
	assert.False(t, store.deleted)

	store.hasStaff = false
	require.NoError(t, NewService(store).DeleteDepartment(context.Background(), "d1"))
	assert.True(t, store.deleted)
}

func TestUpdateUserAccessProtectsLastSuperAdmin(t *testing.T) {
	store := &fakeStore{
		superAdmins: 1,
		users:       map[string]User{"u2": {ID: "u2", Role: auth.RoleSuperAdmin, Status: StatusActive}},
	}
	actor := auth.UserContext{UserID: "u1", Role: auth.RoleSuperAdmin}

	_, _, err := NewService(store).UpdateUserAccess(context.Background(), actor, "u2", auth.RoleDirector, "")
	assert.ErrorIs(t, err, ErrLastAdmin)

	store.superAdmins = 2
	before, after, err := NewService(store).UpdateUserAccess(context.Background(), actor, "u2", auth.RoleDirector, "")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleSuperAdmin, before.Role)
	assert.Equal(t, auth.RoleDirector, after.Role)
	assert.Equal(t, [2]string{auth.RoleDirector, StatusActive}, store.updated["u2"])
}

func TestManagerRoles(t *testing.T) {
	roles := ManagerRoles()
	assert.Contains(t, roles, auth.RoleSupervisor)
	assert.Contains(t, roles, auth.RoleSuperAdmin)
	assert.NotContains(t, roles, auth.RoleSeniorEmployee)
}
