package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/workdoc/workdoc/internal/access"
	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/render"
	"github.com/workdoc/workdoc/internal/service"
)

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// SubmissionHandler serves report submission, listing, deletion, and mail.
type SubmissionHandler struct {
	svc    *service.SubmissionService
	logger *slog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(svc *service.SubmissionService, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, logger: logger}
}

// Submit renders a work summary. The body is either JSON or a multipart form
// with an optional "screenshot" file field.
// POST /api/submit
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	form, shot, err := parseSubmission(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to read submission")
		return
	}

	sub, err := h.svc.Submit(r.Context(), access.FromContext(r.Context()), form, shot)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to generate document")
		return
	}
	writeJSON(w, http.StatusOK, model.SubmitResponse{
		Success:      true,
		Message:      "Document generated successfully",
		DocumentURL:  h.svc.DocumentURL(sub.DocumentPath),
		SubmissionID: sub.ID,
	})
}

func parseSubmission(r *http.Request) (render.Form, *service.Upload, error) {
	var form render.Form
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := readJSON(r, &form); err != nil {
			return form, nil, fmt.Errorf("invalid request body: %w", model.ErrValidation)
		}
		return form, nil, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, nil, fmt.Errorf("request body too large: %w", model.ErrValidation)
		}
		return form, nil, fmt.Errorf("invalid multipart form: %w", model.ErrValidation)
	}
	defer r.MultipartForm.RemoveAll()

	form = render.Form{
		InternName:       r.FormValue("internName"),
		Date:             r.FormValue("date"),
		TaskTitle:        r.FormValue("taskTitle"),
		CompanyName:      r.FormValue("companyName"),
		Introduction:     r.FormValue("introduction"),
		TopicsCovered:    render.Topics(r.MultipartForm.Value["topicsCovered"]),
		PracticeExamples: r.FormValue("practiceExamples"),
	}

	file, header, err := r.FormFile("screenshot")
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil, nil
	}
	if err != nil {
		return form, nil, fmt.Errorf("invalid screenshot: %w", model.ErrValidation)
	}
	defer file.Close()

	// One byte past the limit is enough to reject an oversized upload.
	data, err := io.ReadAll(io.LimitReader(file, service.MaxScreenshotBytes+1))
	if err != nil {
		return form, nil, fmt.Errorf("read screenshot: %w", err)
	}
	return form, &service.Upload{Filename: header.Filename, Data: data}, nil
}

// List returns the caller's submissions, or all of them for admins.
// GET /api/submissions
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.ListFor(r.Context(), access.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch submissions")
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// Delete removes a submission and its files. Admin only.
// DELETE /api/submissions/{id}
func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), access.FromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to delete submission")
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Success: true, Message: "Submission deleted successfully"})
}

type sendEmailRequest struct {
	SubmissionID string `json:"submissionId"`
	ManagerEmail string `json:"managerEmail"`
}

// SendEmail mails a rendered report to a manager.
// POST /api/send-email
func (h *SubmissionHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.svc.SendEmail(r.Context(), access.FromContext(r.Context()), req.SubmissionID, req.ManagerEmail)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to send email")
		return
	}
	writeJSON(w, http.StatusOK, model.EmailResponse{
		Success: true,
		Message: "Email sent successfully to " + receipt.Recipient,
		EmailID: strings.Trim(receipt.MessageID, "<>"),
	})
}
