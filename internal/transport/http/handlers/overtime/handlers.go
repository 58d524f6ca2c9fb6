package overtimehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrcrm/internal/domain/audit"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/overtime"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
	"hrcrm/internal/transport/http/shared"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	Service *overtime.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *overtime.Service, perms middleware.PermissionStore, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermOvertimeRead, h.Perms)
	r.Route("/overtime", func(r chi.Router) {
		r.With(read).Get("/", h.handleReport)
		r.With(read).Get("/export", h.handleExport)
		r.With(middleware.RequirePermission(auth.PermOvertimeWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermOvertimeApprove, h.Perms)).Patch("/{entryID}", h.handleDecide)
	})
}

func fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, overtime.ErrInvalidTime), errors.Is(err, overtime.ErrZeroDuration),
		errors.Is(err, overtime.ErrInvalidCategory), errors.Is(err, overtime.ErrInvalidDecision),
		errors.Is(err, overtime.ErrInvalidPeriod):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, overtime.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, overtime.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to act on this overtime entry", requestID)
	case errors.Is(err, overtime.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "overtime entry not found", requestID)
	default:
		slog.Error(message, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

// period reads month/year, defaulting to the current month.
func period(r *http.Request) (int, int) {
	now := time.Now()
	return shared.QueryInt(r, "month", int(now.Month())), shared.QueryInt(r, "year", now.Year())
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	month, year := period(r)
	report, err := h.Service.Report(r.Context(), user, month, year)
	if err != nil {
		fail(w, r, err, "overtime_report_failed", "failed to build overtime report")
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	month, year := period(r)
	data, filename, err := h.Service.Export(r.Context(), user, month, year)
	if err != nil {
		fail(w, r, err, "overtime_export_failed", "failed to export overtime")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		UserID      string `json:"userId"`
		Date        string `json:"date"`
		StartTime   string `json:"startTime"`
		EndTime     string `json:"endTime"`
		Category    string `json:"category"`
		Description string `json:"description"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	day, _ := v.Date("date", payload.Date)
	v.Required("startTime", payload.StartTime, "is required")
	v.Required("endTime", payload.EndTime, "is required")
	if v.Reject(w, requestID) {
		return
	}
	entry, err := h.Service.Create(r.Context(), user, overtime.EntryInput{
		UserID:      strings.TrimSpace(payload.UserID),
		Date:        day,
		StartTime:   strings.TrimSpace(payload.StartTime),
		EndTime:     strings.TrimSpace(payload.EndTime),
		Category:    strings.ToUpper(strings.TrimSpace(payload.Category)),
		Description: payload.Description,
	})
	if err != nil {
		fail(w, r, err, "overtime_create_failed", "failed to record overtime")
		return
	}
	api.Created(w, entry, requestID)
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		Status string `json:"status"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	status := strings.ToUpper(strings.TrimSpace(payload.Status))
	before, after, err := h.Service.Decide(r.Context(), user, chi.URLParam(r, "entryID"), status)
	if err != nil {
		fail(w, r, err, "overtime_decide_failed", "failed to update overtime entry")
		return
	}
	if h.Audit != nil {
		action := audit.ActionApprove
		if status == overtime.StatusRejected {
			action = audit.ActionReject
		}
		if err := h.Audit.Record(r.Context(), user.UserID, action, "overtime_entry", after.ID, requestID, shared.ClientIP(r), before, after); err != nil {
			slog.Warn("audit record failed", "entity", "overtime_entry", "err", err)
		}
	}
	api.Success(w, after, requestID)
}
