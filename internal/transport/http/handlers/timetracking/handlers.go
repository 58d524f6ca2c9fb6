package timetrackinghandler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrcrm/internal/domain/audit"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/timetracking"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
	"hrcrm/internal/transport/http/shared"
)

const maxImportBytes = 5 << 20

type Handler struct {
	Service *timetracking.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *timetracking.Service, perms middleware.PermissionStore, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermTimeRead, h.Perms)
	write := middleware.RequirePermission(auth.PermTimeWrite, h.Perms)
	manage := middleware.RequirePermission(auth.PermTimeManage, h.Perms)

	r.Route("/time-tracking", func(r chi.Router) {
		r.With(write).Post("/clock-in", h.handleClockIn)
		r.With(write).Post("/break-start", h.handleBreakStart)
		r.With(write).Post("/break-end", h.handleBreakEnd)
		r.With(write).Post("/clock-out", h.handleClockOut)
		r.With(read).Get("/current", h.handleCurrent)
		r.With(read).Get("/entries", h.handleEntries)
		r.With(read).Get("/stats", h.handleStats)
		r.With(manage).Post("/absent", h.handleAbsent)
		r.With(manage).Post("/import", h.handleImport)
	})
}

func fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, timetracking.ErrAlreadyClockedIn), errors.Is(err, timetracking.ErrBreakActive),
		errors.Is(err, timetracking.ErrBreakTaken), errors.Is(err, timetracking.ErrAlreadyRecorded):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, timetracking.ErrNoActiveEntry), errors.Is(err, timetracking.ErrNoBreak):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, timetracking.ErrEmptySheet), errors.Is(err, timetracking.ErrMissingColumns), errors.Is(err, timetracking.ErrUnreadable):
		api.Fail(w, http.StatusBadRequest, "invalid_sheet", err.Error(), requestID)
	case errors.Is(err, timetracking.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view these entries", requestID)
	case errors.Is(err, timetracking.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "time entry not found", requestID)
	default:
		slog.Error(message, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

type clockPayload struct {
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

// decodeOptional accepts an empty body for the clock endpoints.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return shared.DecodeJSON(w, r, dst, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleClockIn(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload clockPayload
	if !decodeOptional(w, r, &payload) {
		return
	}
	entry, err := h.Service.ClockIn(r.Context(), user.UserID, payload.Location, payload.Notes)
	if err != nil {
		fail(w, r, err, "clock_in_failed", "failed to clock in")
		return
	}
	api.Created(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBreakStart(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	entry, err := h.Service.BreakStart(r.Context(), user.UserID)
	if err != nil {
		fail(w, r, err, "break_start_failed", "failed to start break")
		return
	}
	api.Success(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBreakEnd(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	entry, err := h.Service.BreakEnd(r.Context(), user.UserID)
	if err != nil {
		fail(w, r, err, "break_end_failed", "failed to end break")
		return
	}
	api.Success(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleClockOut(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload clockPayload
	if !decodeOptional(w, r, &payload) {
		return
	}
	entry, err := h.Service.ClockOut(r.Context(), user.UserID, payload.Location, payload.Notes)
	if err != nil {
		fail(w, r, err, "clock_out_failed", "failed to clock out")
		return
	}
	api.Success(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	entry, err := h.Service.Current(r.Context(), user.UserID)
	if err != nil {
		fail(w, r, err, "current_entry_failed", "failed to load current entry")
		return
	}
	api.Success(w, map[string]any{"entry": entry, "clockedIn": entry != nil}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEntries(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 500)
	filter := timetracking.EntryFilter{UserID: q.Get("userId"), Limit: page.Limit, Offset: page.Offset}
	v := shared.NewValidator()
	if raw := q.Get("from"); raw != "" {
		filter.From, _ = v.Date("from", raw)
	}
	if raw := q.Get("to"); raw != "" {
		if to, ok := v.Date("to", raw); ok {
			filter.To = to.AddDate(0, 0, 1)
		}
	}
	v.DateOrder("from", filter.From, "to", filter.To)
	if v.Reject(w, requestID) {
		return
	}
	entries, total, err := h.Service.Entries(r.Context(), user, filter)
	if err != nil {
		fail(w, r, err, "entries_failed", "failed to list time entries")
		return
	}
	api.Success(w, map[string]any{"entries": entries, "total": total, "limit": page.Limit, "offset": page.Offset}, requestID)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = user.UserID
	}
	if userID != user.UserID && !user.IsManager() {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view these stats", middleware.GetRequestID(r.Context()))
		return
	}
	stats, err := h.Service.Stats(r.Context(), userID)
	if err != nil {
		fail(w, r, err, "stats_failed", "failed to compute time stats")
		return
	}
	api.Success(w, stats, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAbsent(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		UserID string `json:"userId"`
		Date   string `json:"date"`
		Notes  string `json:"notes"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Required("userId", payload.UserID, "is required")
	day, _ := v.Date("date", payload.Date)
	if v.Reject(w, requestID) {
		return
	}
	entry, err := h.Service.MarkAbsent(r.Context(), payload.UserID, day, payload.Notes)
	if err != nil {
		fail(w, r, err, "mark_absent_failed", "failed to mark absence")
		return
	}
	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), user.UserID, audit.ActionCreate, "time_entry", entry.ID, requestID, shared.ClientIP(r), nil, entry); err != nil {
			slog.Warn("audit record failed", "entity", "time_entry", "err", err)
		}
	}
	api.Created(w, entry, requestID)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes+1024)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "upload the sheet as multipart form field 'file' under 5MB", requestID)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "file is required", requestID)
		return
	}
	defer file.Close()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "file must be .xlsx or .xls", requestID)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "failed to read upload", requestID)
		return
	}
	started := time.Now()
	result, err := h.Service.Import(r.Context(), header.Filename, data)
	if err != nil {
		fail(w, r, err, "import_failed", "failed to import time entries")
		return
	}
	slog.Info("time entries imported", "file", header.Filename, "imported", result.Imported, "skipped", result.Skipped, "duration", time.Since(started))
	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), user.UserID, audit.ActionCreate, "time_import", header.Filename, requestID, shared.ClientIP(r), nil, result); err != nil {
			slog.Warn("audit record failed", "entity", "time_import", "err", err)
		}
	}
	api.Success(w, result, requestID)
}
