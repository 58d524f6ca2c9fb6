package recruitmenthandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrcrm/internal/domain/audit"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/recruitment"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
	"hrcrm/internal/transport/http/shared"
)

type Handler struct {
	Service *recruitment.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *recruitment.Service, perms middleware.PermissionStore, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermRecruitmentRead, h.Perms)
	write := middleware.RequirePermission(auth.PermRecruitmentWrite, h.Perms)

	r.Route("/recruitment", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.With(read).Get("/", h.handleListPostings)
			r.With(write).Post("/", h.handleCreatePosting)
			r.With(read).Get("/{postingID}", h.handleGetPosting)
			r.With(write).Patch("/{postingID}/status", h.handleSetPostingStatus)
			r.With(read).Post("/{postingID}/applications", h.handleApply)
			r.With(write).Get("/{postingID}/applications", h.handleListApplications)
		})
		r.With(write).Get("/applications", h.handleListApplications)
		r.With(write).Patch("/applications/{applicationID}/status", h.handleAdvance)
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
	case errors.Is(err, recruitment.ErrTitleRequired), errors.Is(err, recruitment.ErrInvalidCandidate):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, recruitment.ErrInvalidTransition), errors.Is(err, recruitment.ErrPostingNotOpen):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, recruitment.ErrDuplicate):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	case errors.Is(err, recruitment.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "not found", requestID)
	default:
		slog.Error(message, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func statusParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
}

func (h *Handler) handleListPostings(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Postings(r.Context(), statusParam(r))
	if err != nil {
		fail(w, r, err, "posting_list_failed", "failed to list job postings")
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetPosting(w http.ResponseWriter, r *http.Request) {
	posting, err := h.Service.Posting(r.Context(), chi.URLParam(r, "postingID"))
	if err != nil {
		fail(w, r, err, "posting_get_failed", "failed to load job posting")
		return
	}
	api.Success(w, posting, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreatePosting(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var in recruitment.PostingInput
	if !shared.DecodeJSON(w, r, &in, requestID) {
		return
	}
	posting, err := h.Service.CreatePosting(r.Context(), user.UserID, in)
	if err != nil {
		fail(w, r, err, "posting_create_failed", "failed to create job posting")
		return
	}
	h.record(r, user, audit.ActionCreate, "job_posting", posting.ID, nil, posting)
	api.Created(w, posting, requestID)
}

type statusPayload struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *Handler) handleSetPostingStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload statusPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	before, after, err := h.Service.SetPostingStatus(r.Context(), chi.URLParam(r, "postingID"), strings.ToUpper(strings.TrimSpace(payload.Status)))
	if err != nil {
		fail(w, r, err, "posting_status_failed", "failed to update job posting")
		return
	}
	h.record(r, user, audit.ActionUpdate, "job_posting", after.ID, before, after)
	api.Success(w, after, requestID)
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var in recruitment.ApplicationInput
	if !shared.DecodeJSON(w, r, &in, requestID) {
		return
	}
	app, err := h.Service.Apply(r.Context(), chi.URLParam(r, "postingID"), in)
	if err != nil {
		fail(w, r, err, "application_create_failed", "failed to submit application")
		return
	}
	h.record(r, user, audit.ActionCreate, "application", app.ID, nil, app)
	api.Created(w, app, requestID)
}

func (h *Handler) handleListApplications(w http.ResponseWriter, r *http.Request) {
	postingID := chi.URLParam(r, "postingID")
	if postingID == "" {
		postingID = r.URL.Query().Get("postingId")
	}
	list, err := h.Service.Applications(r.Context(), postingID, statusParam(r))
	if err != nil {
		fail(w, r, err, "application_list_failed", "failed to list applications")
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload statusPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	before, after, err := h.Service.Advance(r.Context(), chi.URLParam(r, "applicationID"), strings.ToUpper(strings.TrimSpace(payload.Status)), payload.Notes)
	if err != nil {
		fail(w, r, err, "application_advance_failed", "failed to update application")
		return
	}
	h.record(r, user, audit.ActionUpdate, "application", after.ID, before, after)
	api.Success(w, after, requestID)
}
