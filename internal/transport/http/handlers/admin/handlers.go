package adminhandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrcrm/internal/domain/admin"
	"hrcrm/internal/domain/audit"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/core"
	"hrcrm/internal/platform/jobs"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
	"hrcrm/internal/transport/http/shared"
)

type Handler struct {
	Service *admin.Service
	Core    *core.Service
	Jobs    *jobs.Service
	Audit   audit.Recorder
}

func NewHandler(service *admin.Service, coreSvc *core.Service, jobsSvc *jobs.Service, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Core: coreSvc, Jobs: jobsSvc, Audit: recorder}
}

// RegisterRoutes mounts the maintenance endpoints. The caller wraps r in the
// SUPER_ADMIN/DIRECTOR role check.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/cascade-delete", h.handleCascadePreview)
	r.Post("/cascade-delete", h.handleCascadeDelete)
	r.Get("/fix-orphaned-users", h.handleOrphanedUsers)
	r.Post("/fix-orphaned-users", h.handleFixOrphanedUsers)
	r.Get("/fix-employee-ids", h.handleEmployeeIDIssues)
	r.Post("/fix-employee-ids", h.handleFixEmployeeIDs)
	r.Get("/system-health", h.handleHealth)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.handleListUsers)
		r.Post("/", h.handleCreateUser)
		r.Patch("/{userID}", h.handleUpdateUser)
	})
	r.Route("/credentials", func(r chi.Router) {
		r.Get("/", h.handleListCredentials)
		r.Post("/", h.handleIssueCredential)
		r.Get("/{credentialID}", h.handleGetCredential)
		r.Post("/{credentialID}/revoke", h.handleRevokeCredential)
	})
	r.Get("/jobs", h.handleListJobs)
	r.Post("/jobs/{jobType}", h.handleTriggerJob)
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entity, id string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, action, entity, id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "entity", entity, "action", action, "err", err)
	}
}

func fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, admin.ErrUserMissing), errors.Is(err, core.ErrInvalidRole), errors.Is(err, core.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, admin.ErrSelfDelete), errors.Is(err, admin.ErrLastAdmin),
		errors.Is(err, core.ErrLastAdmin), errors.Is(err, core.ErrRoleNotAssignable), errors.Is(err, core.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, core.ErrEmailTaken), shared.IsUniqueViolation(err):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	case errors.Is(err, admin.ErrNotFound), errors.Is(err, core.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "not found", requestID)
	case errors.Is(err, jobs.ErrUnknownJob):
		api.Fail(w, http.StatusNotFound, "unknown_job", err.Error(), requestID)
	default:
		slog.Error(message, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

type userRef struct {
	UserID string `json:"userId"`
}

func (h *Handler) handleCascadePreview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.Service.CascadePreview(r.Context(), strings.TrimSpace(r.URL.Query().Get("userId")))
	if err != nil {
		fail(w, r, err, "cascade_preview_failed", "failed to count related records")
		return
	}
	api.Success(w, preview, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCascadeDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload userRef
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	removed, err := h.Service.CascadeDelete(r.Context(), user, strings.TrimSpace(payload.UserID))
	if err != nil {
		fail(w, r, err, "cascade_delete_failed", "failed to delete user")
		return
	}
	h.record(r, user, audit.ActionDelete, "user", removed.UserID, removed, nil)
	api.Success(w, removed, requestID)
}

func (h *Handler) handleOrphanedUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.OrphanedUsers(r.Context())
	if err != nil {
		fail(w, r, err, "orphan_scan_failed", "failed to scan for orphaned users")
		return
	}
	api.Success(w, map[string]any{"users": list, "count": len(list)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleFixOrphanedUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	fixed, err := h.Service.FixOrphanedUsers(r.Context())
	if err != nil {
		fail(w, r, err, "orphan_fix_failed", "failed to create employee records")
		return
	}
	h.record(r, user, audit.ActionRepair, "employee", "orphaned-users", nil, fixed)
	api.Success(w, map[string]any{"fixed": fixed, "count": len(fixed)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEmployeeIDIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := h.Service.EmployeeIDIssues(r.Context())
	if err != nil {
		fail(w, r, err, "employee_id_scan_failed", "failed to scan employee ids")
		return
	}
	api.Success(w, map[string]any{"issues": issues, "count": len(issues)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleFixEmployeeIDs(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	fixed, err := h.Service.FixEmployeeIDs(r.Context())
	if err != nil {
		fail(w, r, err, "employee_id_fix_failed", "failed to renumber employee ids")
		return
	}
	h.record(r, user, audit.ActionRepair, "employee", "employee-ids", nil, fixed)
	api.Success(w, map[string]any{"fixed": fixed, "count": len(fixed)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.Service.Health(r.Context())
	status := http.StatusOK
	if health.Status == admin.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	api.WriteJSON(w, status, api.Envelope{Success: status == http.StatusOK, Data: health, RequestID: middleware.GetRequestID(r.Context())})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 200)
	users, total, err := h.Core.ListUsers(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")), page.Limit, page.Offset)
	if err != nil {
		fail(w, r, err, "user_list_failed", "failed to list users")
		return
	}
	api.Success(w, map[string]any{"users": users, "total": total, "limit": page.Limit, "offset": page.Offset}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Role     string `json:"role"`
		Password string `json:"password"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Required("name", payload.Name, "is required")
	v.Enum("role", payload.Role, auth.RoleNames(), "must be one of "+strings.Join(auth.RoleNames(), ", "))
	v.Required("role", payload.Role, "is required")
	if payload.Password != "" && len(payload.Password) < 8 {
		v.Add("password", "must be at least 8 characters")
	}
	if v.Reject(w, requestID) {
		return
	}
	result, err := h.Core.CreateUser(r.Context(), user, core.UserInput{
		Email:    payload.Email,
		Name:     strings.TrimSpace(payload.Name),
		Role:     strings.ToUpper(payload.Role),
		Password: payload.Password,
	})
	if err != nil {
		fail(w, r, err, "user_create_failed", "failed to create user")
		return
	}
	h.record(r, user, audit.ActionCreate, "user", result.ID, nil, map[string]string{"email": payload.Email, "role": payload.Role})
	api.Created(w, result, requestID)
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		Role   string `json:"role"`
		Status string `json:"status"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	before, after, err := h.Core.UpdateUserAccess(r.Context(), user, chi.URLParam(r, "userID"),
		strings.ToUpper(strings.TrimSpace(payload.Role)), strings.ToUpper(strings.TrimSpace(payload.Status)))
	if err != nil {
		fail(w, r, err, "user_update_failed", "failed to update user")
		return
	}
	h.record(r, user, audit.ActionUpdate, "user", after.ID, before, after)
	api.Success(w, after, requestID)
}

func (h *Handler) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.Service.Credentials(r.Context(), strings.TrimSpace(r.URL.Query().Get("userId")))
	if err != nil {
		fail(w, r, err, "credential_list_failed", "failed to list credentials")
		return
	}
	api.Success(w, creds, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	cred, err := h.Service.Credential(r.Context(), chi.URLParam(r, "credentialID"))
	if err != nil {
		fail(w, r, err, "credential_get_failed", "failed to load credential")
		return
	}
	api.Success(w, cred, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload userRef
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	cred, err := h.Service.IssueCredential(r.Context(), user, strings.TrimSpace(payload.UserID))
	if err != nil {
		fail(w, r, err, "credential_issue_failed", "failed to issue credential")
		return
	}
	h.record(r, user, audit.ActionCreate, "temporary_credential", cred.ID, nil, map[string]any{"userId": cred.UserID, "expiresAt": cred.ExpiresAt})
	api.Created(w, cred, requestID)
}

func (h *Handler) handleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	cred, err := h.Service.RevokeCredential(r.Context(), chi.URLParam(r, "credentialID"))
	if err != nil {
		fail(w, r, err, "credential_revoke_failed", "failed to revoke credential")
		return
	}
	h.record(r, user, audit.ActionRevoke, "temporary_credential", cred.ID, nil, map[string]string{"status": cred.Status})
	api.Success(w, cred, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Jobs.ListRuns(r.Context(), r.URL.Query().Get("type"), shared.QueryInt(r, "limit", 50))
	if err != nil {
		fail(w, r, err, "job_list_failed", "failed to list job runs")
		return
	}
	api.Success(w, map[string]any{"types": h.Jobs.Types(), "runs": runs}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	jobType := chi.URLParam(r, "jobType")
	details, err := h.Jobs.Trigger(r.Context(), jobType)
	if err != nil {
		fail(w, r, err, "job_failed", "job run failed")
		return
	}
	h.record(r, user, audit.ActionTrigger, "job", jobType, nil, details)
	api.Success(w, map[string]any{"jobType": jobType, "details": details}, middleware.GetRequestID(r.Context()))
}
