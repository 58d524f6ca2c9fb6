package documentshandler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrcrm/internal/domain/audit"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/documents"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
	"hrcrm/internal/transport/http/shared"
)

type Handler struct {
	Service *documents.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *documents.Service, perms middleware.PermissionStore, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermDocumentsRead, h.Perms)
	write := middleware.RequirePermission(auth.PermDocumentsWrite, h.Perms)
	r.Route("/documents", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/", h.handleUpload)
		r.With(read).Get("/{documentID}/download", h.handleDownload)
		r.With(write).Post("/{documentID}/archive", h.handleArchive)
		r.With(write).Delete("/{documentID}", h.handleDelete)
	})
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action string, doc documents.Document) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, action, "document", doc.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, doc); err != nil {
		slog.Warn("audit record failed", "entity", "document", "action", action, "err", err)
	}
}

func fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, documents.ErrTooLarge):
		api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", err.Error(), requestID)
	case errors.Is(err, documents.ErrUnsupportedType), errors.Is(err, documents.ErrEmptyFile), errors.Is(err, documents.ErrTitleRequired):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, documents.ErrAlreadyArchived):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, documents.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to manage documents for this user", requestID)
	case errors.Is(err, documents.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "document not found", requestID)
	default:
		slog.Error(message, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)
	list, total, err := h.Service.List(r.Context(), user, documents.Filter{
		UserID:   q.Get("userId"),
		Category: strings.ToUpper(strings.TrimSpace(q.Get("category"))),
		Status:   strings.ToUpper(strings.TrimSpace(q.Get("status"))),
		Search:   strings.TrimSpace(q.Get("search")),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		fail(w, r, err, "document_list_failed", "failed to list documents")
		return
	}
	api.Success(w, map[string]any{"documents": list, "total": total, "limit": page.Limit, "offset": page.Offset}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, documents.MaxFileSize+64<<10)
	if err := r.ParseMultipartForm(documents.MaxFileSize); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "upload must be multipart with a 'file' field under 10MB", requestID)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "file is required", requestID)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, documents.MaxFileSize+1))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "failed to read upload", requestID)
		return
	}
	doc, err := h.Service.Upload(r.Context(), user, documents.Upload{
		UserID:   r.FormValue("userId"),
		Title:    r.FormValue("title"),
		Category: r.FormValue("category"),
		FileName: header.Filename,
		Data:     data,
	})
	if err != nil {
		fail(w, r, err, "document_upload_failed", "failed to store document")
		return
	}
	h.record(r, user, audit.ActionCreate, doc)
	api.Created(w, doc, requestID)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	doc, data, err := h.Service.Download(r.Context(), user, chi.URLParam(r, "documentID"))
	if err != nil {
		fail(w, r, err, "document_download_failed", "failed to load document")
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	doc, err := h.Service.Archive(r.Context(), user, chi.URLParam(r, "documentID"))
	if err != nil {
		fail(w, r, err, "document_archive_failed", "failed to archive document")
		return
	}
	h.record(r, user, audit.ActionUpdate, doc)
	api.Success(w, doc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	doc, err := h.Service.Delete(r.Context(), user, chi.URLParam(r, "documentID"))
	if err != nil {
		fail(w, r, err, "document_delete_failed", "failed to delete document")
		return
	}
	h.record(r, user, audit.ActionDelete, doc)
	api.Success(w, map[string]string{"id": doc.ID}, middleware.GetRequestID(r.Context()))
}
