package crmhandler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrcrm/internal/domain/audit"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/crm"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
	"hrcrm/internal/transport/http/shared"
)

const confirmEndpoint = "crm.payments.confirm"

type Handler struct {
	Service *crm.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *crm.Service, perms middleware.PermissionStore, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermCRMRead, h.Perms)
	r.Route("/crm", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCRMWrite, h.Perms)).Post("/payments/confirm", h.handleConfirm)
		r.With(read).Get("/receipts", h.handleListReceipts)
		r.With(read).Get("/receipts/{receiptID}", h.handleGetReceipt)
		r.With(read).Get("/receipts/{receiptID}/html", h.handleReceiptHTML)
		r.With(read).Get("/receipts/{receiptID}/pdf", h.handleReceiptPDF)
	})
}

func fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, crm.ErrInvalidPayment):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, crm.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "receipt not found", requestID)
	case errors.Is(err, crm.ErrIdempotencyConflict):
		api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), requestID)
	default:
		slog.Error(message, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "failed to read request body", requestID)
		return
	}
	var key *crm.IdempotencyKey
	if k := middleware.IdempotencyKey(r); k != "" {
		key = &crm.IdempotencyKey{UserID: user.UserID, Endpoint: confirmEndpoint, Key: k, RequestHash: middleware.RequestHash(raw)}
	}

	r.Body = io.NopCloser(bytes.NewReader(raw))
	var in crm.PaymentInput
	if !shared.DecodeJSON(w, r, &in, requestID) {
		return
	}
	receipt, replayed, err := h.Service.ConfirmPayment(r.Context(), user.UserID, in, key)
	if err != nil {
		fail(w, r, err, "payment_confirm_failed", "failed to confirm payment")
		return
	}
	if replayed {
		w.Header().Set("Idempotent-Replay", "true")
		api.Created(w, receipt, requestID)
		return
	}
	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), user.UserID, audit.ActionCreate, "payment", receipt.Payment.ID, requestID, shared.ClientIP(r), nil, receipt); err != nil {
			slog.Warn("audit record failed", "entity", "payment", "err", err)
		}
	}
	api.Created(w, receipt, requestID)
}

func (h *Handler) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)
	f := crm.ReceiptFilter{Search: strings.TrimSpace(q.Get("search")), Limit: page.Limit, Offset: page.Offset}
	v := shared.NewValidator()
	if raw := q.Get("from"); raw != "" {
		f.From, _ = v.Date("from", raw)
	}
	if raw := q.Get("to"); raw != "" {
		f.To, _ = v.Date("to", raw)
	}
	v.DateOrder("from", f.From, "to", f.To)
	if v.Reject(w, requestID) {
		return
	}
	list, total, err := h.Service.Receipts(r.Context(), f)
	if err != nil {
		fail(w, r, err, "receipt_list_failed", "failed to list receipts")
		return
	}
	api.Success(w, map[string]any{"receipts": list, "total": total, "limit": page.Limit, "offset": page.Offset}, requestID)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) (crm.Receipt, bool) {
	receipt, err := h.Service.Receipt(r.Context(), chi.URLParam(r, "receiptID"))
	if err != nil {
		fail(w, r, err, "receipt_get_failed", "failed to load receipt")
		return crm.Receipt{}, false
	}
	return receipt, true
}

func (h *Handler) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, ok := h.receipt(w, r)
	if !ok {
		return
	}
	api.Success(w, receipt, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReceiptHTML(w http.ResponseWriter, r *http.Request) {
	receipt, ok := h.receipt(w, r)
	if !ok {
		return
	}
	body, err := crm.RenderHTML(receipt)
	if err != nil {
		fail(w, r, err, "receipt_render_failed", "failed to render receipt")
		return
	}
	attach(w, "text/html; charset=utf-8", crm.ReceiptFilename(receipt, "html"), body)
}

func (h *Handler) handleReceiptPDF(w http.ResponseWriter, r *http.Request) {
	receipt, ok := h.receipt(w, r)
	if !ok {
		return
	}
	body, err := crm.RenderPDF(receipt)
	if err != nil {
		fail(w, r, err, "receipt_render_failed", "failed to render receipt")
		return
	}
	attach(w, "application/pdf", crm.ReceiptFilename(receipt, "pdf"), body)
}

func attach(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
