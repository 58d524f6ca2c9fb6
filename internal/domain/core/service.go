package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"hrcrm/internal/domain/auth"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrLastAdmin     = errors.New("cannot demote or deactivate the last super admin")
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidStatus = errors.New("status must be ACTIVE or INACTIVE")
)

type StoreAPI interface {
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, int, error)
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	GetEmployeeByUserID(ctx context.Context, userID string) (*Employee, error)
	CreateEmployeeWithUser(ctx context.Context, in EmployeeInput, passwordHash string) (string, error)
	UpdateEmployee(ctx context.Context, emp Employee) error
	SetEmployeeStatus(ctx context.Context, id, status string) error
	SetAvatar(ctx context.Context, id string, data []byte, contentType string) error
	Avatar(ctx context.Context, id string) ([]byte, string, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	ListDepartments(ctx context.Context) ([]Department, error)
	GetDepartment(ctx context.Context, id string) (Department, error)
	DepartmentRoster(ctx context.Context, id string) ([]RosterEntry, error)
	CreateDepartment(ctx context.Context, dep Department) (string, error)
	UpdateDepartment(ctx context.Context, id string, dep Department) (bool, error)
	DepartmentHasEmployees(ctx context.Context, id string) (bool, error)
	DeleteDepartment(ctx context.Context, id string) (bool, error)
	SetDepartmentManagers(ctx context.Context, id string, userIDs []string) error

	ListJobTitles(ctx context.Context) ([]JobTitle, error)
	CreateJobTitle(ctx context.Context, name, departmentID string) (string, error)
	DeleteJobTitle(ctx context.Context, id string) (bool, error)
	ListManagers(ctx context.Context, roles []string, departmentID string) ([]Manager, error)

	ListUsers(ctx context.Context, search string, limit, offset int) ([]User, int, error)
	GetUser(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, email, name, passwordHash, role string) (string, error)
	UpdateUserAccess(ctx context.Context, id, role, status string) (bool, error)
	CountActiveWithRole(ctx context.Context, role string) (int, error)
}

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) ListEmployees(ctx context.Context, user auth.UserContext, filter EmployeeFilter) ([]Employee, int, error) {
	list, total, err := s.Store.ListEmployees(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	FilterEmployees(list, user)
	return list, total, nil
}

func (s *Service) GetEmployee(ctx context.Context, user auth.UserContext, id string) (*Employee, error) {
	emp, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	FilterEmployeeFields(emp, user)
	return emp, nil
}

// CreateResult carries the one-time password when the caller did not supply one.
type CreateResult struct {
	ID                string `json:"id"`
	TemporaryPassword string `json:"temporaryPassword,omitempty"`
}

func (s *Service) CreateEmployee(ctx context.Context, actor auth.UserContext, in EmployeeInput) (CreateResult, error) {
	if in.Role == "" {
		in.Role = auth.RoleEmployee
	}
	if !auth.ValidRole(in.Role) {
		return CreateResult{}, ErrInvalidRole
	}
	if !auth.CanAssign(actor.Role, in.Role) {
		return CreateResult{}, ErrRoleNotAssignable
	}
	exists, err := s.Store.EmailExists(ctx, in.Email)
	if err != nil {
		return CreateResult{}, err
	}
	if exists {
		return CreateResult{}, ErrEmailTaken
	}

	result := CreateResult{}
	password := in.Password
	if password == "" {
		if password, err = auth.GeneratePassword(14); err != nil {
			return CreateResult{}, err
		}
		result.TemporaryPassword = password
	} else if err := auth.ValidatePassword(password); err != nil {
		return CreateResult{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return CreateResult{}, err
	}
	id, err := s.Store.CreateEmployeeWithUser(ctx, in, hash)
	if err != nil {
		return CreateResult{}, err
	}
	result.ID = id
	return result, nil
}

// UpdateEmployee applies patch and returns the before and after records for auditing.
func (s *Service) UpdateEmployee(ctx context.Context, actor auth.UserContext, id string, patch EmployeePatch) (*Employee, *Employee, error) {
	current, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	before := *current
	if patch.Role != nil && *patch.Role != current.Role {
		if !auth.ValidRole(*patch.Role) {
			return nil, nil, ErrInvalidRole
		}
		if !auth.CanAssign(actor.Role, *patch.Role) || !auth.CanAssign(actor.Role, current.Role) {
			return nil, nil, ErrRoleNotAssignable
		}
	}
	ApplyPatch(current, patch)
	if err := s.Store.UpdateEmployee(ctx, *current); err != nil {
		return nil, nil, err
	}
	return &before, current, nil
}

func (s *Service) DeactivateEmployee(ctx context.Context, actor auth.UserContext, id string) error {
	emp, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return err
	}
	if emp.UserID == actor.UserID {
		return ErrForbidden
	}
	if emp.Role == auth.RoleSuperAdmin {
		if err := s.ensureAnotherSuperAdmin(ctx); err != nil {
			return err
		}
	}
	return s.Store.SetEmployeeStatus(ctx, id, StatusInactive)
}

func (s *Service) UploadAvatar(ctx context.Context, actor auth.UserContext, id string, raw []byte) error {
	emp, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return err
	}
	if emp.UserID != actor.UserID && !actor.IsHR() {
		return ErrForbidden
	}
	thumb, err := ProcessAvatar(raw)
	if err != nil {
		return err
	}
	return s.Store.SetAvatar(ctx, id, thumb, "image/png")
}

func (s *Service) Avatar(ctx context.Context, id string) ([]byte, string, error) {
	return s.Store.Avatar(ctx, id)
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.Store.ListDepartments(ctx)
}

type DepartmentDetail struct {
	Department
	Roster []RosterEntry `json:"employees"`
}

func (s *Service) GetDepartment(ctx context.Context, id string) (DepartmentDetail, error) {
	dep, err := s.Store.GetDepartment(ctx, id)
	if err != nil {
		return DepartmentDetail{}, err
	}
	roster, err := s.Store.DepartmentRoster(ctx, id)
	if err != nil {
		return DepartmentDetail{}, err
	}
	return DepartmentDetail{Department: dep, Roster: roster}, nil
}

func (s *Service) CreateDepartment(ctx context.Context, dep Department) (string, error) {
	code, err := NormalizeDepartmentCode(dep.Code)
	if err != nil {
		return "", err
	}
	dep.Code = code
	dep.Name = strings.TrimSpace(dep.Name)
	return s.Store.CreateDepartment(ctx, dep)
}

func (s *Service) UpdateDepartment(ctx context.Context, id string, dep Department) error {
	code, err := NormalizeDepartmentCode(dep.Code)
	if err != nil {
		return err
	}
	dep.Code = code
	dep.Name = strings.TrimSpace(dep.Name)
	ok, err := s.Store.UpdateDepartment(ctx, id, dep)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	busy, err := s.Store.DepartmentHasEmployees(ctx, id)
	if err != nil {
		return err
	}
	if busy {
		return ErrDepartmentHasEmployees
	}
	ok, err := s.Store.DeleteDepartment(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// AssignManagers replaces the department's managers. Every user must hold a
// managerial role.
func (s *Service) AssignManagers(ctx context.Context, id string, userIDs []string) error {
	if _, err := s.Store.GetDepartment(ctx, id); err != nil {
		return err
	}
	for _, userID := range userIDs {
		u, err := s.Store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if auth.Rank(u.Role) < auth.Rank(auth.RoleSupervisor) {
			return fmt.Errorf("%w: %s is not a manager", ErrInvalidRole, u.Email)
		}
	}
	return s.Store.SetDepartmentManagers(ctx, id, userIDs)
}

func (s *Service) ListJobTitles(ctx context.Context) ([]JobTitle, error) {
	return s.Store.ListJobTitles(ctx)
}

func (s *Service) CreateJobTitle(ctx context.Context, name, departmentID string) (string, error) {
	return s.Store.CreateJobTitle(ctx, strings.TrimSpace(name), departmentID)
}

func (s *Service) DeleteJobTitle(ctx context.Context, id string) error {
	ok, err := s.Store.DeleteJobTitle(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// ManagerRoles lists the roles ranked at or above SUPERVISOR.
func ManagerRoles() []string {
	var out []string
	floor := auth.Rank(auth.RoleSupervisor)
	for _, r := range auth.Roles() {
		if r.Rank >= floor {
			out = append(out, r.Name)
		}
	}
	return out
}

func (s *Service) ListManagers(ctx context.Context, departmentID string) ([]Manager, error) {
	return s.Store.ListManagers(ctx, ManagerRoles(), departmentID)
}

func (s *Service) ListUsers(ctx context.Context, search string, limit, offset int) ([]User, int, error) {
	return s.Store.ListUsers(ctx, search, limit, offset)
}

type UserInput struct {
	Email    string
	Name     string
	Role     string
	Password string
}

func (s *Service) CreateUser(ctx context.Context, actor auth.UserContext, in UserInput) (CreateResult, error) {
	if !auth.ValidRole(in.Role) {
		return CreateResult{}, ErrInvalidRole
	}
	if !auth.CanAssign(actor.Role, in.Role) {
		return CreateResult{}, ErrRoleNotAssignable
	}
	exists, err := s.Store.EmailExists(ctx, in.Email)
	if err != nil {
		return CreateResult{}, err
	}
	if exists {
		return CreateResult{}, ErrEmailTaken
	}
	result := CreateResult{}
	password := in.Password
	if password == "" {
		if password, err = auth.GeneratePassword(14); err != nil {
			return CreateResult{}, err
		}
		result.TemporaryPassword = password
	} else if err := auth.ValidatePassword(password); err != nil {
		return CreateResult{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return CreateResult{}, err
	}
	id, err := s.Store.CreateUser(ctx, in.Email, in.Name, hash, in.Role)
	if err != nil {
		return CreateResult{}, err
	}
	result.ID = id
	return result, nil
}

// UpdateUserAccess changes role and status, refusing to strip the last active SUPER_ADMIN.
func (s *Service) UpdateUserAccess(ctx context.Context, actor auth.UserContext, id, role, status string) (User, User, error) {
	current, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return User{}, User{}, err
	}
	if role == "" {
		role = current.Role
	}
	if status == "" {
		status = current.Status
	}
	if !auth.ValidRole(role) {
		return User{}, User{}, ErrInvalidRole
	}
	if status != StatusActive && status != StatusInactive {
		return User{}, User{}, ErrInvalidStatus
	}
	if role != current.Role && (!auth.CanAssign(actor.Role, role) || !auth.CanAssign(actor.Role, current.Role)) {
		return User{}, User{}, ErrRoleNotAssignable
	}
	if id == actor.UserID && status == StatusInactive {
		return User{}, User{}, ErrForbidden
	}
	demoting := current.Role == auth.RoleSuperAdmin && current.Status == StatusActive &&
		(role != auth.RoleSuperAdmin || status != StatusActive)
	if demoting {
		if err := s.ensureAnotherSuperAdmin(ctx); err != nil {
			return User{}, User{}, err
		}
	}
	ok, err := s.Store.UpdateUserAccess(ctx, id, role, status)
	if err != nil {
		return User{}, User{}, err
	}
	if !ok {
		return User{}, User{}, ErrNotFound
	}
	after := current
	after.Role = role
	after.Status = status
	slog.Info("user access updated", "user_id", id, "role", role, "status", status)
	return current, after, nil
}

func (s *Service) ensureAnotherSuperAdmin(ctx context.Context) error {
	n, err := s.Store.CountActiveWithRole(ctx, auth.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}
