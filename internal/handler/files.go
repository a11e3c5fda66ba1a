package handler

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/workdoc/workdoc/internal/access"
	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/service"
)

// FileHandler streams rendered reports and uploaded screenshots.
type FileHandler struct {
	svc    *service.SubmissionService
	logger *slog.Logger
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(svc *service.SubmissionService, logger *slog.Logger) *FileHandler {
	return &FileHandler{svc: svc, logger: logger}
}

// Download streams a rendered report to its owner or an admin.
// GET /api/download/{filename}
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "filename")
	if err != nil {
		writeServiceError(w, r, h.logger, fmt.Errorf("document not found: %w", model.ErrNotFound), "Failed to download document")
		return
	}
	doc, err := h.svc.OpenDocument(r.Context(), access.FromContext(r.Context()), name)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to download document")
		return
	}
	defer doc.Body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, doc.Body); err != nil {
		h.logger.Warn("download interrupted", "file", name, "error", err)
	}
}

// Upload streams an uploaded screenshot.
// GET /api/uploads/{filename}
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "filename")
	if err != nil {
		writeServiceError(w, r, h.logger, fmt.Errorf("file not found: %w", model.ErrNotFound), "Failed to read file")
		return
	}
	body, err := h.svc.OpenUpload(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to read file")
		return
	}
	defer body.Close()

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("upload stream interrupted", "file", name, "error", err)
	}
}

// pathParam returns the decoded value of a route parameter. chi matches
// against RawPath when the request carries one, leaving escapes in place.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}
