package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/workdoc/workdoc/internal/access"
	"github.com/workdoc/workdoc/internal/blob"
	"github.com/workdoc/workdoc/internal/events"
	"github.com/workdoc/workdoc/internal/metrics"
	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/notify"
	"github.com/workdoc/workdoc/internal/render"
	"github.com/workdoc/workdoc/internal/store"
)

// MaxScreenshotBytes is the largest accepted screenshot upload.
const MaxScreenshotBytes = 5 << 20

// maxNameAttempts bounds how often Submit looks for a free document name.
const maxNameAttempts = 5

// DownloadPath is the URL prefix under which rendered documents are served.
const DownloadPath = "/api/download/"

// Upload is an uploaded screenshot.
type Upload struct {
	Filename string
	Data     []byte
}

// Document is an opened rendered report. The caller must close Body.
type Document struct {
	Submission  *model.Submission
	Body        io.ReadCloser
	ContentType string
}

// SubmissionDeps wires the collaborators of a SubmissionService.
type SubmissionDeps struct {
	Store        *store.Store
	Renderer     *render.Renderer
	Documents    blob.Store
	Uploads      blob.Store
	Mailer       *notify.Mailer
	Events       events.Broker
	Metrics      metrics.Recorder
	Logger       *slog.Logger
	ManagerEmail string
	BaseURL      string
}

// SubmissionService runs the submission lifecycle: render, store, list,
// download, mail, and delete.
type SubmissionService struct {
	store        *store.Store
	renderer     *render.Renderer
	docs         blob.Store
	uploads      blob.Store
	mailer       *notify.Mailer
	events       events.Broker
	metrics      metrics.Recorder
	logger       *slog.Logger
	managerEmail string
	baseURL      string
	now          func() time.Time
}

// NewSubmissionService creates the service. Events and Metrics may be nil.
func NewSubmissionService(d SubmissionDeps) *SubmissionService {
	s := &SubmissionService{
		store:        d.Store,
		renderer:     d.Renderer,
		docs:         d.Documents,
		uploads:      d.Uploads,
		mailer:       d.Mailer,
		events:       d.Events,
		metrics:      d.Metrics,
		logger:       d.Logger,
		managerEmail: strings.TrimSpace(d.ManagerEmail),
		baseURL:      strings.TrimRight(d.BaseURL, "/"),
		now:          time.Now,
	}
	if s.renderer == nil {
		s.renderer = &render.Renderer{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// DocumentURL returns the download URL of a rendered document. The key is
// escaped as a single path segment.
func (s *SubmissionService) DocumentURL(key string) string {
	return s.baseURL + DownloadPath + url.PathEscape(key)
}

// Submit renders form for the principal, stores the report and the optional
// screenshot, and records the submission.
func (s *SubmissionService) Submit(ctx context.Context, p *access.Principal, form render.Form, shot *Upload) (*model.Submission, error) {
	if err := access.Evaluate(p, access.RequireRole(model.RoleIntern)); err != nil {
		return nil, err
	}
	owner, err := s.store.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}

	f, err := form.Normalize()
	if err != nil {
		s.metrics.RecordSubmission(metrics.ResultInvalid)
		return nil, err
	}

	now := s.now()
	var screenshot string
	if shot != nil && len(shot.Data) > 0 {
		screenshot, err = s.saveScreenshot(ctx, shot, now)
		if err != nil {
			if errors.Is(err, model.ErrValidation) {
				s.metrics.RecordSubmission(metrics.ResultInvalid)
			} else {
				s.metrics.RecordSubmission(metrics.ResultError)
			}
			return nil, err
		}
	}

	art, err := s.storeReport(ctx, f, now)
	if err != nil {
		s.metrics.RecordSubmission(metrics.ResultError)
		if screenshot != "" {
			s.removeFile(ctx, s.uploads, screenshot, "screenshot")
		}
		return nil, err
	}

	sub := &model.Submission{
		UserID:           owner.ID,
		UserEmail:        owner.Email,
		UserName:         owner.FullName(),
		InternName:       f.InternName,
		Date:             f.Date,
		TaskTitle:        f.TaskTitle,
		CompanyName:      f.CompanyName,
		Introduction:     f.Introduction,
		TopicsCovered:    []string(f.TopicsCovered),
		PracticeExamples: f.PracticeExamples,
		Screenshot:       screenshot,
		DocumentPath:     art.Filename,
		CreatedAt:        now.UTC(),
	}
	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		s.metrics.RecordSubmission(metrics.ResultError)
		s.removeFile(ctx, s.docs, art.Filename, "document")
		if screenshot != "" {
			s.removeFile(ctx, s.uploads, screenshot, "screenshot")
		}
		return nil, err
	}
	s.metrics.RecordSubmission(metrics.ResultOK)

	s.publish(ctx, events.Event{
		Type:         events.TypeSubmissionCreated,
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		InternName:   sub.InternName,
	})
	s.logger.Info("submission created",
		"submission_id", sub.ID,
		"user_id", sub.UserID,
		"document", sub.DocumentPath,
	)
	return sub, nil
}

// storeReport renders f and stores the artifact under a name no other
// submission holds. Names carry the render time in milliseconds, so on a
// clash the time is moved forward one millisecond and the report is drawn
// again.
func (s *SubmissionService) storeReport(ctx context.Context, f render.Form, now time.Time) (*render.Artifact, error) {
	stamp := now
	for attempt := 1; ; attempt++ {
		start := time.Now()
		art, err := s.renderer.Render(f, stamp)
		if err != nil {
			return nil, fmt.Errorf("render report: %w", err)
		}
		s.metrics.RecordRender(time.Since(start))

		err = s.docs.Create(ctx, art.Filename, art.Data, art.ContentType)
		if err == nil {
			return art, nil
		}
		if !blob.IsExists(err) || attempt == maxNameAttempts {
			return nil, fmt.Errorf("store report: %w", err)
		}
		s.logger.Debug("document name taken, retrying", "document", art.Filename)
		stamp = stamp.Add(time.Millisecond)
	}
}

// saveScreenshot sniffs and stores an uploaded image under
// <epoch-ms>-<random><ext>.
func (s *SubmissionService) saveScreenshot(ctx context.Context, up *Upload, now time.Time) (string, error) {
	if len(up.Data) > MaxScreenshotBytes {
		return "", fmt.Errorf("screenshot exceeds %d MB: %w", MaxScreenshotBytes>>20, model.ErrValidation)
	}
	ctype := http.DetectContentType(up.Data)
	if !strings.HasPrefix(ctype, "image/") {
		return "", fmt.Errorf("only image files are allowed: %w", model.ErrValidation)
	}

	var suffix [8]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", fmt.Errorf("generate upload name: %w", err)
	}
	key := fmt.Sprintf("%d-%s%s", now.UnixMilli(), hex.EncodeToString(suffix[:]), uploadExt(up.Filename, ctype))
	if err := s.uploads.Put(ctx, key, up.Data, ctype); err != nil {
		return "", fmt.Errorf("store screenshot: %w", err)
	}
	return key, nil
}

func uploadExt(name, ctype string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		return ext
	}
	switch ctype {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ""
	}
}

// ListFor returns every submission for admins and the principal's own
// submissions otherwise, newest first.
func (s *SubmissionService) ListFor(ctx context.Context, p *access.Principal) ([]model.Submission, error) {
	if err := access.Evaluate(p, access.RequireAuthenticated()); err != nil {
		return nil, err
	}
	if p.IsAdmin() {
		return s.store.ListSubmissions(ctx)
	}
	return s.store.ListSubmissionsByUser(ctx, p.UserID)
}

// Get returns one submission.
func (s *SubmissionService) Get(ctx context.Context, id string) (*model.Submission, error) {
	return s.store.GetSubmission(ctx, id)
}

// Delete removes a submission and, best effort, its report and screenshot.
// Only admins may delete.
func (s *SubmissionService) Delete(ctx context.Context, p *access.Principal, id string) error {
	if err := access.Evaluate(p, access.RequireRole(model.RoleAdmin)); err != nil {
		return err
	}
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return err
	}

	s.removeFile(ctx, s.docs, sub.DocumentPath, "document")
	if sub.Screenshot != "" {
		s.removeFile(ctx, s.uploads, sub.Screenshot, "screenshot")
	}

	if err := s.store.DeleteSubmission(ctx, id); err != nil {
		return err
	}
	s.metrics.RecordDeletion()
	s.publish(ctx, events.Event{
		Type:         events.TypeSubmissionDeleted,
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		InternName:   sub.InternName,
	})
	s.logger.Info("submission deleted", "submission_id", id, "deleted_by", p.UserID)
	return nil
}

func (s *SubmissionService) removeFile(ctx context.Context, bs blob.Store, key, kind string) {
	if err := bs.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete "+kind, "key", key, "error", err)
	}
}

// OpenDocument opens the rendered report named filename for the owner of the
// submission or an admin, and marks the submission downloaded.
func (s *SubmissionService) OpenDocument(ctx context.Context, p *access.Principal, filename string) (*Document, error) {
	if err := access.Evaluate(p, access.RequireAuthenticated()); err != nil {
		return nil, err
	}
	if err := blob.ValidateKey(filename); err != nil {
		return nil, fmt.Errorf("document not found: %w", model.ErrNotFound)
	}
	sub, err := s.store.GetSubmissionByDocument(ctx, filename)
	if err != nil {
		return nil, err
	}
	if err := access.Evaluate(p, access.RequireSelfOrAdmin(sub.UserID)); err != nil {
		return nil, err
	}

	body, err := s.docs.Open(ctx, filename)
	if err != nil {
		return nil, err
	}
	s.advance(ctx, sub, model.StatusDownloaded)
	s.metrics.RecordDownload()
	return &Document{Submission: sub, Body: body, ContentType: render.ContentType}, nil
}

// OpenUpload opens an uploaded screenshot.
func (s *SubmissionService) OpenUpload(ctx context.Context, filename string) (io.ReadCloser, error) {
	if err := blob.ValidateKey(filename); err != nil {
		return nil, fmt.Errorf("file not found: %w", model.ErrNotFound)
	}
	return s.uploads.Open(ctx, filename)
}

// SendEmail mails the report of submission id to recipient, or to the
// configured manager address when recipient is empty. Admins and the
// submission's owner may send.
func (s *SubmissionService) SendEmail(ctx context.Context, p *access.Principal, id, recipient string) (*notify.Receipt, error) {
	if err := access.Evaluate(p, access.RequireAuthenticated()); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("submissionId is required: %w", model.ErrValidation)
	}
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Evaluate(p, access.RequireSelfOrAdmin(sub.UserID)); err != nil {
		return nil, err
	}

	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		recipient = s.managerEmail
	}
	if recipient == "" {
		return nil, fmt.Errorf("recipient email is required: %w", model.ErrValidation)
	}
	if !emailPattern.MatchString(recipient) {
		return nil, fmt.Errorf("please enter a valid email: %w", model.ErrValidation)
	}
	if s.mailer == nil {
		return nil, fmt.Errorf("mail is not configured: %w", model.ErrDelivery)
	}

	receipt, err := s.mailer.SendWithAttachment(ctx, recipient, sub)
	if err != nil {
		s.metrics.RecordEmail(metrics.ResultError)
		return nil, err
	}
	s.metrics.RecordEmail(metrics.ResultOK)
	s.advance(ctx, sub, model.StatusEmailed)
	s.publish(ctx, events.Event{
		Type:         events.TypeSubmissionEmailed,
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		InternName:   sub.InternName,
	})
	s.logger.Info("report emailed", "submission_id", sub.ID, "message_id", receipt.MessageID)
	return receipt, nil
}

// advance moves sub forward to next. Failures are logged; the operation
// that triggered the transition has already succeeded.
func (s *SubmissionService) advance(ctx context.Context, sub *model.Submission, next model.Status) {
	changed, err := s.store.AdvanceSubmissionStatus(ctx, sub.ID, next)
	if err != nil {
		s.logger.Warn("failed to update submission status", "submission_id", sub.ID, "status", next, "error", err)
		return
	}
	if changed {
		sub.Status = next
	}
}

func (s *SubmissionService) publish(ctx context.Context, ev events.Event) {
	if s.events == nil {
		return
	}
	ev.At = s.now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", "type", ev.Type, "error", err)
	}
}
