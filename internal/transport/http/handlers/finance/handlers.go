package financehandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrcrm/internal/domain/audit"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/finance"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
	"hrcrm/internal/transport/http/shared"
)

type Handler struct {
	Service *finance.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *finance.Service, perms middleware.PermissionStore, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermFinanceRead, h.Perms)
	write := middleware.RequirePermission(auth.PermFinanceWrite, h.Perms)
	approve := middleware.RequirePermission(auth.PermFinanceApprove, h.Perms)

	r.Route("/finance", func(r chi.Router) {
		r.Route("/expenses", func(r chi.Router) {
			r.With(read).Get("/", h.handleList)
			r.With(write).Post("/", h.handleCreate)
			r.With(read).Get("/report", h.handleReport)
			r.With(read).Get("/{expenseID}", h.handleGet)
			r.With(write).Put("/{expenseID}", h.handleUpdate)
			r.With(write).Delete("/{expenseID}", h.handleDelete)
			r.With(approve).Patch("/{expenseID}", h.handleDecide)
		})
		r.With(approve).Get("/analytics", h.handleAnalytics)
	})
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, id string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, action, "expense", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "entity", "expense", "action", action, "err", err)
	}
}

func fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, finance.ErrRequiredFields):
		api.Fail(w, http.StatusBadRequest, "validation_error", finance.MsgRequiredFields, requestID)
	case errors.Is(err, finance.ErrInvalidDecision):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, finance.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, finance.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to act on this expense", requestID)
	case errors.Is(err, finance.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "expense not found", requestID)
	default:
		slog.Error(message, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

type expensePayload struct {
	ExpenseDate   string  `json:"expenseDate"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
	DepartmentID  string  `json:"departmentId"`
	ReceiptRef    string  `json:"receiptRef"`
	Notes         string  `json:"notes"`
}

// input converts the payload; required fields are checked by the domain so the
// client always gets the same message.
func (p expensePayload) input(w http.ResponseWriter, requestID string) (finance.ExpenseInput, bool) {
	in := finance.ExpenseInput{
		Category:      p.Category,
		Description:   p.Description,
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		DepartmentID:  strings.TrimSpace(p.DepartmentID),
		ReceiptRef:    strings.TrimSpace(p.ReceiptRef),
		Notes:         strings.TrimSpace(p.Notes),
	}
	if p.ExpenseDate != "" {
		v := shared.NewValidator()
		in.ExpenseDate, _ = v.Date("expenseDate", p.ExpenseDate)
		if v.Reject(w, requestID) {
			return finance.ExpenseInput{}, false
		}
	}
	return in, true
}

func filterFrom(w http.ResponseWriter, r *http.Request) (finance.Filter, bool) {
	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 500)
	f := finance.Filter{
		Status:       strings.ToUpper(strings.TrimSpace(q.Get("status"))),
		Category:     strings.TrimSpace(q.Get("category")),
		DepartmentID: q.Get("departmentId"),
		CreatedBy:    q.Get("createdBy"),
		Limit:        page.Limit,
		Offset:       page.Offset,
	}
	v := shared.NewValidator()
	if raw := q.Get("from"); raw != "" {
		f.From, _ = v.Date("from", raw)
	}
	if raw := q.Get("to"); raw != "" {
		f.To, _ = v.Date("to", raw)
	}
	v.DateOrder("from", f.From, "to", f.To)
	return f, !v.Reject(w, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	f, ok := filterFrom(w, r)
	if !ok {
		return
	}
	list, total, err := h.Service.List(r.Context(), user, f)
	if err != nil {
		fail(w, r, err, "expense_list_failed", "failed to list expenses")
		return
	}
	api.Success(w, map[string]any{"expenses": list, "total": total, "limit": f.Limit, "offset": f.Offset}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	e, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "expenseID"))
	if err != nil {
		fail(w, r, err, "expense_get_failed", "failed to load expense")
		return
	}
	api.Success(w, e, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload expensePayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	in, ok := payload.input(w, requestID)
	if !ok {
		return
	}
	e, err := h.Service.Create(r.Context(), user, in)
	if err != nil {
		fail(w, r, err, "expense_create_failed", "failed to create expense")
		return
	}
	h.record(r, user, audit.ActionCreate, e.ID, nil, e)
	api.Created(w, e, requestID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload expensePayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	in, ok := payload.input(w, requestID)
	if !ok {
		return
	}
	before, after, err := h.Service.Update(r.Context(), user, chi.URLParam(r, "expenseID"), in)
	if err != nil {
		fail(w, r, err, "expense_update_failed", "failed to update expense")
		return
	}
	h.record(r, user, audit.ActionUpdate, after.ID, before, after)
	api.Success(w, after, requestID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	before, err := h.Service.Delete(r.Context(), user, chi.URLParam(r, "expenseID"))
	if err != nil {
		fail(w, r, err, "expense_delete_failed", "failed to delete expense")
		return
	}
	h.record(r, user, audit.ActionDelete, before.ID, before, nil)
	api.Success(w, map[string]string{"id": before.ID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	status := strings.ToUpper(strings.TrimSpace(payload.Status))
	before, after, err := h.Service.Decide(r.Context(), user, chi.URLParam(r, "expenseID"), status, payload.Notes)
	if err != nil {
		fail(w, r, err, "expense_decide_failed", "failed to update expense")
		return
	}
	action := audit.ActionApprove
	if status == finance.StatusRejected {
		action = audit.ActionReject
	}
	h.record(r, user, action, after.ID, before, after)
	api.Success(w, after, requestID)
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	year := shared.QueryInt(r, "year", time.Now().Year())
	out, err := h.Service.Analytics(r.Context(), year)
	if err != nil {
		fail(w, r, err, "finance_analytics_failed", "failed to compute analytics")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	f, ok := filterFrom(w, r)
	if !ok {
		return
	}
	data, err := h.Service.Report(r.Context(), user, f)
	if err != nil {
		fail(w, r, err, "expense_report_failed", "failed to build expense report")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="expenses-%s.pdf"`, time.Now().UTC().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
