package corehandler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrcrm/internal/domain/audit"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/core"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
	"hrcrm/internal/transport/http/shared"
)

const maxAvatarBytes = 5 << 20

type Handler struct {
	Service *core.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *core.Service, perms middleware.PermissionStore, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)
	write := middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)
	org := middleware.RequirePermission(auth.PermOrgWrite, h.Perms)

	r.Route("/employees", func(r chi.Router) {
		r.With(read).Get("/", h.handleListEmployees)
		r.With(write).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGetEmployee)
			r.With(write).Put("/", h.handleUpdateEmployee)
			r.With(write).Delete("/", h.handleDeactivateEmployee)
			r.With(read).Get("/avatar", h.handleGetAvatar)
			r.With(read).Post("/avatar", h.handleUploadAvatar)
		})
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(read).Get("/", h.handleListDepartments)
		r.With(org).Post("/", h.handleCreateDepartment)
		r.With(read).Get("/{departmentID}", h.handleGetDepartment)
		r.With(org).Put("/{departmentID}", h.handleUpdateDepartment)
		r.With(org).Delete("/{departmentID}", h.handleDeleteDepartment)
		r.With(org).Put("/{departmentID}/managers", h.handleAssignManagers)
	})
	r.Route("/job-titles", func(r chi.Router) {
		r.With(read).Get("/", h.handleListJobTitles)
		r.With(org).Post("/", h.handleCreateJobTitle)
		r.With(org).Delete("/{jobTitleID}", h.handleDeleteJobTitle)
	})
	r.With(read).Get("/roles", h.handleListRoles)
	r.With(read).Get("/managers", h.handleListManagers)
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entity, id string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, action, entity, id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "entity", entity, "action", action, "err", err)
	}
}

// fail maps domain errors onto the response envelope.
func fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, core.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "not found", requestID)
	case errors.Is(err, core.ErrEmailTaken), errors.Is(err, core.ErrDepartmentCodeTaken), shared.IsUniqueViolation(err):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	case errors.Is(err, core.ErrDepartmentHasEmployees):
		api.Fail(w, http.StatusConflict, "department_not_empty", "department still has employees assigned", requestID)
	case errors.Is(err, core.ErrInvalidDepartmentCode), errors.Is(err, core.ErrInvalidAvatar),
		errors.Is(err, core.ErrInvalidRole), errors.Is(err, core.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, core.ErrRoleNotAssignable), errors.Is(err, core.ErrForbidden), errors.Is(err, core.ErrLastAdmin):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	default:
		slog.Error(message, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

type employeePayload struct {
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Role         string   `json:"role"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Title        string   `json:"title"`
	DepartmentID string   `json:"departmentId"`
	Salary       *float64 `json:"salary"`
	HireDate     string   `json:"hireDate"`
	ManagerID    string   `json:"managerId"`
	Phone        string   `json:"phone"`
}

type employeePatchPayload struct {
	FirstName    *string  `json:"firstName"`
	LastName     *string  `json:"lastName"`
	Title        *string  `json:"title"`
	DepartmentID *string  `json:"departmentId"`
	Salary       *float64 `json:"salary"`
	HireDate     *string  `json:"hireDate"`
	ManagerID    *string  `json:"managerId"`
	Phone        *string  `json:"phone"`
	Role         *string  `json:"role"`
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	q := r.URL.Query()
	list, total, err := h.Service.ListEmployees(r.Context(), user, core.EmployeeFilter{
		Search:       strings.TrimSpace(q.Get("search")),
		DepartmentID: q.Get("departmentId"),
		Status:       strings.ToUpper(q.Get("status")),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		fail(w, r, err, "employee_list_failed", "failed to list employees")
		return
	}
	api.Success(w, map[string]any{"employees": list, "total": total, "limit": page.Limit, "offset": page.Offset}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	emp, err := h.Service.GetEmployee(r.Context(), user, chi.URLParam(r, "employeeID"))
	if err != nil {
		fail(w, r, err, "employee_get_failed", "failed to load employee")
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload employeePayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Required("firstName", payload.FirstName, "is required")
	v.Required("lastName", payload.LastName, "is required")
	if payload.Role != "" && !auth.ValidRole(payload.Role) {
		v.Add("role", "must be one of "+strings.Join(auth.RoleNames(), ", "))
	}
	if payload.Salary != nil && *payload.Salary < 0 {
		v.Add("salary", "must be zero or greater")
	}
	var hire *time.Time
	if payload.HireDate != "" {
		if d, ok := v.Date("hireDate", payload.HireDate); ok {
			hire = &d
		}
	}
	if v.Reject(w, requestID) {
		return
	}

	result, err := h.Service.CreateEmployee(r.Context(), user, core.EmployeeInput{
		Email:        payload.Email,
		Password:     payload.Password,
		Role:         payload.Role,
		FirstName:    strings.TrimSpace(payload.FirstName),
		LastName:     strings.TrimSpace(payload.LastName),
		Title:        strings.TrimSpace(payload.Title),
		DepartmentID: payload.DepartmentID,
		Salary:       payload.Salary,
		HireDate:     hire,
		ManagerID:    payload.ManagerID,
		Phone:        strings.TrimSpace(payload.Phone),
	})
	if err != nil {
		fail(w, r, err, "employee_create_failed", "failed to create employee")
		return
	}
	h.record(r, user, audit.ActionCreate, "employee", result.ID, nil, map[string]string{"email": payload.Email, "role": payload.Role})
	api.Created(w, result, requestID)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload employeePatchPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	patch := core.EmployeePatch{
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Title:        payload.Title,
		DepartmentID: payload.DepartmentID,
		Salary:       payload.Salary,
		ManagerID:    payload.ManagerID,
		Phone:        payload.Phone,
		Role:         payload.Role,
	}
	if payload.FirstName != nil && strings.TrimSpace(*payload.FirstName) == "" {
		v.Add("firstName", "must not be empty")
	}
	if payload.LastName != nil && strings.TrimSpace(*payload.LastName) == "" {
		v.Add("lastName", "must not be empty")
	}
	if payload.Salary != nil && *payload.Salary < 0 {
		v.Add("salary", "must be zero or greater")
	}
	if payload.HireDate != nil {
		if d, ok := v.Date("hireDate", *payload.HireDate); ok {
			patch.HireDate = &d
		}
	}
	if v.Reject(w, requestID) {
		return
	}

	before, after, err := h.Service.UpdateEmployee(r.Context(), user, chi.URLParam(r, "employeeID"), patch)
	if err != nil {
		fail(w, r, err, "employee_update_failed", "failed to update employee")
		return
	}
	h.record(r, user, audit.ActionUpdate, "employee", after.ID, before, after)
	core.FilterEmployeeFields(after, user)
	api.Success(w, after, requestID)
}

func (h *Handler) handleDeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "employeeID")
	if err := h.Service.DeactivateEmployee(r.Context(), user, id); err != nil {
		fail(w, r, err, "employee_deactivate_failed", "failed to deactivate employee")
		return
	}
	h.record(r, user, audit.ActionDelete, "employee", id, nil, map[string]string{"status": core.StatusInactive})
	api.Success(w, map[string]string{"id": id, "status": core.StatusInactive}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes+1024)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "avatar must be sent as multipart form field 'avatar' under 5MB", requestID)
		return
	}
	file, _, err := r.FormFile("avatar")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "avatar file is required", requestID)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes+1))
	if err != nil || len(data) > maxAvatarBytes {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "avatar must be under 5MB", requestID)
		return
	}
	id := chi.URLParam(r, "employeeID")
	if err := h.Service.UploadAvatar(r.Context(), user, id, data); err != nil {
		fail(w, r, err, "avatar_upload_failed", "failed to store avatar")
		return
	}
	api.Success(w, map[string]bool{"hasAvatar": true}, requestID)
}

func (h *Handler) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.Service.Avatar(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		fail(w, r, err, "avatar_failed", "failed to load avatar")
		return
	}
	if len(data) == 0 {
		api.Fail(w, http.StatusNotFound, "not_found", "employee has no avatar", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

type departmentPayload struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Budget      float64 `json:"budget"`
	Location    string  `json:"location"`
}

func (p departmentPayload) validate(v *shared.Validator) core.Department {
	v.Required("name", p.Name, "is required")
	v.Required("code", p.Code, "is required")
	if p.Budget < 0 {
		v.Add("budget", "must be zero or greater")
	}
	return core.Department{
		Name:        strings.TrimSpace(p.Name),
		Code:        p.Code,
		Description: strings.TrimSpace(p.Description),
		Budget:      p.Budget,
		Location:    strings.TrimSpace(p.Location),
	}
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListDepartments(r.Context())
	if err != nil {
		fail(w, r, err, "department_list_failed", "failed to list departments")
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	dep, err := h.Service.GetDepartment(r.Context(), chi.URLParam(r, "departmentID"))
	if err != nil {
		fail(w, r, err, "department_get_failed", "failed to load department")
		return
	}
	api.Success(w, dep, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload departmentPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	dep := payload.validate(v)
	if v.Reject(w, requestID) {
		return
	}
	id, err := h.Service.CreateDepartment(r.Context(), dep)
	if err != nil {
		fail(w, r, err, "department_create_failed", "failed to create department")
		return
	}
	h.record(r, user, audit.ActionCreate, "department", id, nil, dep)
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload departmentPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	dep := payload.validate(v)
	if v.Reject(w, requestID) {
		return
	}
	id := chi.URLParam(r, "departmentID")
	if err := h.Service.UpdateDepartment(r.Context(), id, dep); err != nil {
		fail(w, r, err, "department_update_failed", "failed to update department")
		return
	}
	h.record(r, user, audit.ActionUpdate, "department", id, nil, dep)
	api.Success(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "departmentID")
	if err := h.Service.DeleteDepartment(r.Context(), id); err != nil {
		fail(w, r, err, "department_delete_failed", "failed to delete department")
		return
	}
	h.record(r, user, audit.ActionDelete, "department", id, nil, nil)
	api.Success(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAssignManagers(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		ManagerIDs []string `json:"managerIds"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	id := chi.URLParam(r, "departmentID")
	if err := h.Service.AssignManagers(r.Context(), id, payload.ManagerIDs); err != nil {
		fail(w, r, err, "department_managers_failed", "failed to assign managers")
		return
	}
	h.record(r, user, audit.ActionUpdate, "department_managers", id, nil, payload.ManagerIDs)
	api.Success(w, map[string]any{"id": id, "managerIds": payload.ManagerIDs}, requestID)
}

func (h *Handler) handleListJobTitles(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListJobTitles(r.Context())
	if err != nil {
		fail(w, r, err, "job_title_list_failed", "failed to list job titles")
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateJobTitle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		Name         string `json:"name"`
		DepartmentID string `json:"departmentId"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	if v.Reject(w, requestID) {
		return
	}
	id, err := h.Service.CreateJobTitle(r.Context(), strings.TrimSpace(payload.Name), payload.DepartmentID)
	if err != nil {
		fail(w, r, err, "job_title_create_failed", "failed to create job title")
		return
	}
	h.record(r, user, audit.ActionCreate, "job_title", id, nil, payload)
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleDeleteJobTitle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "jobTitleID")
	if err := h.Service.DeleteJobTitle(r.Context(), id); err != nil {
		fail(w, r, err, "job_title_delete_failed", "failed to delete job title")
		return
	}
	h.record(r, user, audit.ActionDelete, "job_title", id, nil, nil)
	api.Success(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	api.Success(w, auth.Roles(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListManagers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListManagers(r.Context(), r.URL.Query().Get("departmentId"))
	if err != nil {
		fail(w, r, err, "manager_list_failed", "failed to list managers")
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}
