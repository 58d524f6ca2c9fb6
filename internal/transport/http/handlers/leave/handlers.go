package leavehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrcrm/internal/domain/audit"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/leave"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
	"hrcrm/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *leave.Service, perms middleware.PermissionStore, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermLeaveRead, h.Perms)
	write := middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)

	r.Route("/leave-requests", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/", h.handleCreate)
		r.With(read).Get("/{requestID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Patch("/{requestID}", h.handleDecide)
		r.With(write).Delete("/{requestID}", h.handleDelete)
	})
	r.With(read).Get("/leave-calendar", h.handleCalendar)
	r.With(read).Get("/leave-calendar/conflicts", h.handleConflicts)
	r.With(read).Get("/leave-balance/enhanced", h.handleBalance)
	r.With(middleware.RequirePermission(auth.PermLeaveEntitlements, h.Perms)).Put("/leave-balance/entitlements", h.handleSetEntitlement)
	r.Route("/holidays", func(r chi.Router) {
		r.With(read).Get("/", h.handleListHolidays)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Post("/", h.handleCreateHoliday)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Delete("/{holidayID}", h.handleDeleteHoliday)
	})
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
	case errors.Is(err, leave.ErrEndBeforeStart):
		api.Fail(w, http.StatusBadRequest, "validation_error", leave.MsgEndBeforeStart, requestID)
	case errors.Is(err, leave.ErrInvalidType), errors.Is(err, leave.ErrNoWorkingDays), errors.Is(err, leave.ErrInvalidDecision):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, leave.ErrOverlap):
		api.Fail(w, http.StatusConflict, "leave_overlap", err.Error(), requestID)
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to act on this leave request", requestID)
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", requestID)
	default:
		slog.Error(message, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

// subject resolves whose data the caller asked for; only managers and HR may look at others.
func subject(r *http.Request, user auth.UserContext) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("userId"))
	if id == "" || id == user.UserID {
		return user.UserID, true
	}
	return id, user.IsManager() || user.IsHR()
}

func yearParam(r *http.Request) int {
	return shared.QueryInt(r, "year", time.Now().Year())
}

type createPayload struct {
	LeaveType string `json:"leaveType"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload createPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	payload.LeaveType = strings.ToUpper(strings.TrimSpace(payload.LeaveType))

	v := shared.NewValidator()
	v.Required("leaveType", payload.LeaveType, "is required")
	if payload.LeaveType != "" {
		v.Enum("leaveType", payload.LeaveType, leave.Types(), "must be one of "+strings.Join(leave.Types(), ", "))
	}
	start, startOK := v.Date("startDate", payload.StartDate)
	end, endOK := v.Date("endDate", payload.EndDate)
	if v.Reject(w, requestID) {
		return
	}
	if startOK && endOK && end.Before(start) {
		api.Fail(w, http.StatusBadRequest, "validation_error", leave.MsgEndBeforeStart, requestID)
		return
	}

	result, err := h.Service.Create(r.Context(), leave.CreateInput{
		UserID:    user.UserID,
		LeaveType: payload.LeaveType,
		StartDate: start,
		EndDate:   end,
		Reason:    payload.Reason,
	})
	if err != nil {
		fail(w, r, err, "leave_create_failed", "failed to create leave request")
		return
	}
	h.record(r, user, audit.ActionCreate, "leave_request", result.Request.ID, nil, result.Request)
	api.Created(w, result, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	list, total, err := h.Service.List(r.Context(), user, status, page.Limit, page.Offset)
	if err != nil {
		fail(w, r, err, "leave_list_failed", "failed to list leave requests")
		return
	}
	api.Success(w, map[string]any{"requests": list, "total": total, "limit": page.Limit, "offset": page.Offset}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	req, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		fail(w, r, err, "leave_get_failed", "failed to load leave request")
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		Status     string `json:"status"`
		AdminNotes string `json:"adminNotes"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	status := strings.ToUpper(strings.TrimSpace(payload.Status))
	v := shared.NewValidator()
	v.Enum("status", status, []string{leave.StatusApproved, leave.StatusRejected}, "must be APPROVED or REJECTED")
	if v.Reject(w, requestID) {
		return
	}
	before, after, err := h.Service.Decide(r.Context(), user, chi.URLParam(r, "requestID"), status, payload.AdminNotes)
	if err != nil {
		fail(w, r, err, "leave_decide_failed", "failed to update leave request")
		return
	}
	action := audit.ActionApprove
	if status == leave.StatusRejected {
		action = audit.ActionReject
	}
	h.record(r, user, action, "leave_request", after.ID, before, after)
	api.Success(w, after, requestID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "requestID")
	if err := h.Service.Delete(r.Context(), user, id); err != nil {
		fail(w, r, err, "leave_delete_failed", "failed to delete leave request")
		return
	}
	h.record(r, user, audit.ActionDelete, "leave_request", id, nil, nil)
	api.Success(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleConflicts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	userID, allowed := subject(r, user)
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to check conflicts for this employee", requestID)
		return
	}
	q := r.URL.Query()
	v := shared.NewValidator()
	start, startOK := v.Date("startDate", q.Get("startDate"))
	end, endOK := v.Date("endDate", q.Get("endDate"))
	if v.Reject(w, requestID) {
		return
	}
	if startOK && endOK && end.Before(start) {
		api.Fail(w, http.StatusBadRequest, "validation_error", leave.MsgEndBeforeStart, requestID)
		return
	}
	conflicts, err := h.Service.Conflicts(r.Context(), userID, strings.ToUpper(q.Get("leaveType")), start, end)
	if err != nil {
		fail(w, r, err, "leave_conflicts_failed", "failed to check leave conflicts")
		return
	}
	api.Success(w, map[string]any{
		"conflicts":       conflicts,
		"hasHighSeverity": leave.HasHighSeverity(conflicts),
	}, requestID)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	userID, allowed := subject(r, user)
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this balance", middleware.GetRequestID(r.Context()))
		return
	}
	year := yearParam(r)
	balances, err := h.Service.Balance(r.Context(), userID, year)
	if err != nil {
		fail(w, r, err, "leave_balance_failed", "failed to load leave balance")
		return
	}
	api.Success(w, map[string]any{"userId": userID, "year": year, "balances": balances}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetEntitlement(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		UserID    string  `json:"userId"`
		LeaveType string  `json:"leaveType"`
		Year      int     `json:"year"`
		Allowance float64 `json:"allowance"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	payload.LeaveType = strings.ToUpper(strings.TrimSpace(payload.LeaveType))
	v := shared.NewValidator()
	v.Required("userId", payload.UserID, "is required")
	v.Required("leaveType", payload.LeaveType, "is required")
	if payload.Year < 2000 || payload.Year > 2100 {
		v.Add("year", "must be a valid year")
	}
	if payload.Allowance < 0 {
		v.Add("allowance", "must be zero or greater")
	}
	if v.Reject(w, requestID) {
		return
	}
	if err := h.Service.SetEntitlement(r.Context(), payload.UserID, payload.LeaveType, payload.Year, payload.Allowance); err != nil {
		fail(w, r, err, "leave_entitlement_failed", "failed to update entitlement")
		return
	}
	h.record(r, user, audit.ActionUpdate, "leave_entitlement", payload.UserID, nil, payload)
	api.Success(w, payload, requestID)
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	v := shared.NewValidator()
	if raw := q.Get("from"); raw != "" {
		if d, ok := v.Date("from", raw); ok {
			from = d
		}
	}
	if raw := q.Get("to"); raw != "" {
		if d, ok := v.Date("to", raw); ok {
			to = d
		}
	}
	if v.Reject(w, requestID) {
		return
	}
	entries, err := h.Service.Calendar(r.Context(), from, to, q.Get("departmentId"))
	if err != nil {
		fail(w, r, err, "leave_calendar_failed", "failed to load leave calendar")
		return
	}
	api.Success(w, entries, requestID)
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Service.Holidays(r.Context(), yearParam(r))
	if err != nil {
		fail(w, r, err, "holiday_list_failed", "failed to list holidays")
		return
	}
	api.Success(w, holidays, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		Date string `json:"date"`
		Name string `json:"name"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	date, _ := v.Date("date", payload.Date)
	if v.Reject(w, requestID) {
		return
	}
	id, err := h.Service.CreateHoliday(r.Context(), date, payload.Name)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			api.Fail(w, http.StatusConflict, "conflict", "a holiday already exists on "+payload.Date, requestID)
			return
		}
		fail(w, r, err, "holiday_create_failed", "failed to create holiday")
		return
	}
	h.record(r, user, audit.ActionCreate, "holiday", id, nil, payload)
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "holidayID")
	if err := h.Service.DeleteHoliday(r.Context(), id); err != nil {
		fail(w, r, err, "holiday_delete_failed", "failed to delete holiday")
		return
	}
	h.record(r, user, audit.ActionDelete, "holiday", id, nil, nil)
	api.Success(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}
