package performancehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/performance"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
	"hrcrm/internal/transport/http/shared"
)

type Handler struct {
	Service *performance.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *performance.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermPerformanceRead, h.Perms)
	write := middleware.RequirePermission(auth.PermPerformanceWrite, h.Perms)
	review := middleware.RequirePermission(auth.PermPerformanceReview, h.Perms)

	r.Route("/performance", func(r chi.Router) {
		r.With(read).Get("/summary", h.handleSummary)
		r.Route("/reviews", func(r chi.Router) {
			r.With(read).Get("/", h.handleListReviews)
			r.With(review).Post("/", h.handleCreateReview)
			r.With(read).Get("/{reviewID}", h.handleGetReview)
			r.With(review).Post("/{reviewID}/submit", h.handleSubmitReview)
			r.With(write).Post("/{reviewID}/complete", h.handleCompleteReview)
		})
		r.Route("/goals", func(r chi.Router) {
			r.With(read).Get("/", h.handleListGoals)
			r.With(write).Post("/", h.handleCreateGoal)
			r.With(write).Patch("/{goalID}/progress", h.handleUpdateProgress)
			r.With(write).Post("/{goalID}/cancel", h.handleCancelGoal)
		})
	})
}

func fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, performance.ErrInvalidRating), errors.Is(err, performance.ErrInvalidInput),
		errors.Is(err, performance.ErrInvalidGoal), errors.Is(err, performance.ErrInvalidProgress):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, performance.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, performance.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to act on this record", requestID)
	case errors.Is(err, performance.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "not found", requestID)
	default:
		slog.Error(message, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func filterFrom(r *http.Request) performance.Filter {
	q := r.URL.Query()
	return performance.Filter{UserID: q.Get("userId"), Status: strings.ToUpper(strings.TrimSpace(q.Get("status")))}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	summary, err := h.Service.Summary(r.Context(), user, r.URL.Query().Get("userId"))
	if err != nil {
		fail(w, r, err, "performance_summary_failed", "failed to build performance summary")
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	list, err := h.Service.Reviews(r.Context(), user, filterFrom(r))
	if err != nil {
		fail(w, r, err, "review_list_failed", "failed to list reviews")
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetReview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	review, err := h.Service.Review(r.Context(), user, chi.URLParam(r, "reviewID"))
	if err != nil {
		fail(w, r, err, "review_get_failed", "failed to load review")
		return
	}
	api.Success(w, review, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var in performance.ReviewInput
	if !shared.DecodeJSON(w, r, &in, requestID) {
		return
	}
	review, err := h.Service.CreateReview(r.Context(), user, in)
	if err != nil {
		fail(w, r, err, "review_create_failed", "failed to create review")
		return
	}
	api.Created(w, review, requestID)
}

func (h *Handler) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var sub performance.Submission
	if !shared.DecodeJSON(w, r, &sub, requestID) {
		return
	}
	review, err := h.Service.SubmitReview(r.Context(), user, chi.URLParam(r, "reviewID"), sub)
	if err != nil {
		fail(w, r, err, "review_submit_failed", "failed to submit review")
		return
	}
	api.Success(w, review, requestID)
}

func (h *Handler) handleCompleteReview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	review, err := h.Service.CompleteReview(r.Context(), user, chi.URLParam(r, "reviewID"))
	if err != nil {
		fail(w, r, err, "review_complete_failed", "failed to complete review")
		return
	}
	api.Success(w, review, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListGoals(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	list, err := h.Service.Goals(r.Context(), user, filterFrom(r))
	if err != nil {
		fail(w, r, err, "goal_list_failed", "failed to list goals")
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		UserID      string `json:"userId"`
		Title       string `json:"title"`
		Description string `json:"description"`
		DueDate     string `json:"dueDate"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	in := performance.GoalInput{UserID: payload.UserID, Title: payload.Title, Description: payload.Description}
	if payload.DueDate != "" {
		v := shared.NewValidator()
		if due, ok := v.Date("dueDate", payload.DueDate); ok {
			in.DueDate = &due
		}
		if v.Reject(w, requestID) {
			return
		}
	}
	goal, err := h.Service.CreateGoal(r.Context(), user, in)
	if err != nil {
		fail(w, r, err, "goal_create_failed", "failed to create goal")
		return
	}
	api.Created(w, goal, requestID)
}

func (h *Handler) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload struct {
		Progress *int `json:"progress"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	if payload.Progress == nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", "progress is required", requestID)
		return
	}
	goal, err := h.Service.UpdateProgress(r.Context(), user, chi.URLParam(r, "goalID"), *payload.Progress)
	if err != nil {
		fail(w, r, err, "goal_update_failed", "failed to update goal")
		return
	}
	api.Success(w, goal, requestID)
}

func (h *Handler) handleCancelGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	goal, err := h.Service.CancelGoal(r.Context(), user, chi.URLParam(r, "goalID"))
	if err != nil {
		fail(w, r, err, "goal_cancel_failed", "failed to cancel goal")
		return
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}
