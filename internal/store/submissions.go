package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/workdoc/workdoc/internal/model"
)

// submissionRow maps 1:1 to the submissions table. Topics are stored as a
// JSON array in topics_json.
type submissionRow struct {
	ID               string    `db:"id"`
	UserID           string    `db:"user_id"`
	UserEmail        string    `db:"user_email"`
	UserName         string    `db:"user_name"`
	InternName       string    `db:"intern_name"`
	ReportDate       string    `db:"report_date"`
	TaskTitle        string    `db:"task_title"`
	CompanyName      string    `db:"company_name"`
	Introduction     string    `db:"introduction"`
	TopicsJSON       string    `db:"topics_json"`
	PracticeExamples string    `db:"practice_examples"`
	Screenshot       string    `db:"screenshot"`
	DocumentPath     string    `db:"document_path"`
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// ownedSubmissionRow adds the joined owner columns of admin listings.
type ownedSubmissionRow struct {
	submissionRow
	OwnerID        sql.NullString `db:"owner_id"`
	OwnerEmail     sql.NullString `db:"owner_email"`
	OwnerFirstName sql.NullString `db:"owner_first_name"`
	OwnerLastName  sql.NullString `db:"owner_last_name"`
}

const submissionColumns = `s.id, s.user_id, s.user_email, s.user_name, s.intern_name, s.report_date,
	s.task_title, s.company_name, s.introduction, s.topics_json, s.practice_examples,
	s.screenshot, s.document_path, s.status, s.created_at, s.updated_at`

func submissionRowFromModel(sub *model.Submission) (submissionRow, error) {
	topics, err := json.Marshal(sub.TopicsCovered)
	if err != nil {
		return submissionRow{}, fmt.Errorf("encode topics: %w", err)
	}
	return submissionRow{
		ID:               sub.ID,
		UserID:           sub.UserID,
		UserEmail:        sub.UserEmail,
		UserName:         sub.UserName,
		InternName:       sub.InternName,
		ReportDate:       sub.Date,
		TaskTitle:        sub.TaskTitle,
		CompanyName:      sub.CompanyName,
		Introduction:     sub.Introduction,
		TopicsJSON:       string(topics),
		PracticeExamples: sub.PracticeExamples,
		Screenshot:       sub.Screenshot,
		DocumentPath:     sub.DocumentPath,
		Status:           string(sub.Status),
		CreatedAt:        sub.CreatedAt,
		UpdatedAt:        sub.UpdatedAt,
	}, nil
}

func (r submissionRow) toModel() (*model.Submission, error) {
	var topics []string
	if err := json.Unmarshal([]byte(r.TopicsJSON), &topics); err != nil {
		return nil, fmt.Errorf("decode topics of submission %s: %w", r.ID, err)
	}
	status, err := model.ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("submission %s: %w", r.ID, err)
	}
	return &model.Submission{
		ID:               r.ID,
		UserID:           r.UserID,
		UserEmail:        r.UserEmail,
		UserName:         r.UserName,
		InternName:       r.InternName,
		Date:             r.ReportDate,
		TaskTitle:        r.TaskTitle,
		CompanyName:      r.CompanyName,
		Introduction:     r.Introduction,
		TopicsCovered:    topics,
		PracticeExamples: r.PracticeExamples,
		Screenshot:       r.Screenshot,
		DocumentPath:     r.DocumentPath,
		Status:           status,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

// CreateSubmission inserts sub with status generated. The document path must
// already be set. The ID and a zero CreatedAt are populated on sub, and
// UpdatedAt starts equal to CreatedAt.
func (s *Store) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	if sub.DocumentPath == "" {
		return fmt.Errorf("document path is required: %w", model.ErrValidation)
	}
	if sub.ID == "" {
		sub.ID = uuid.Must(uuid.NewV7()).String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	sub.Status = model.StatusGenerated
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.CreatedAt

	row, err := submissionRowFromModel(sub)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO submissions (id, user_id, user_email, user_name, intern_name, report_date,
			task_title, company_name, introduction, topics_json, practice_examples,
			screenshot, document_path, status, created_at, updated_at)
		VALUES (:id, :user_id, :user_email, :user_name, :intern_name, :report_date,
			:task_title, :company_name, :introduction, :topics_json, :practice_examples,
			:screenshot, :document_path, :status, :created_at, :updated_at)`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("document %s: %w", sub.DocumentPath, model.ErrConflict)
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// GetSubmission returns the submission with the given id.
func (s *Store) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	var row submissionRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+submissionColumns+` FROM submissions s WHERE s.id = ?`), id)
	if err != nil {
		return nil, notFound(err, "submission")
	}
	return row.toModel()
}

// GetSubmissionByDocument returns the submission whose rendered artifact is
// stored under key.
func (s *Store) GetSubmissionByDocument(ctx context.Context, key string) (*model.Submission, error) {
	var row submissionRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+submissionColumns+` FROM submissions s WHERE s.document_path = ?`), key)
	if err != nil {
		return nil, notFound(err, "submission")
	}
	return row.toModel()
}

// ListSubmissions returns every submission with its owner, newest first.
func (s *Store) ListSubmissions(ctx context.Context) ([]model.Submission, error) {
	var rows []ownedSubmissionRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+submissionColumns+`,
			u.id AS owner_id, u.email AS owner_email, u.first_name AS owner_first_name, u.last_name AS owner_last_name
		FROM submissions s
		LEFT JOIN users u ON u.id = s.user_id
		ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	out := make([]model.Submission, 0, len(rows))
	for _, r := range rows {
		sub, err := r.submissionRow.toModel()
		if err != nil {
			return nil, err
		}
		if r.OwnerID.Valid {
			sub.Owner = &model.Owner{
				ID:        r.OwnerID.String,
				Email:     r.OwnerEmail.String,
				FirstName: r.OwnerFirstName.String,
				LastName:  r.OwnerLastName.String,
			}
		}
		out = append(out, *sub)
	}
	return out, nil
}

// ListSubmissionsByUser returns the submissions owned by userID, newest first.
func (s *Store) ListSubmissionsByUser(ctx context.Context, userID string) ([]model.Submission, error) {
	var rows []submissionRow
	err := s.db.SelectContext(ctx, &rows,
		s.q(`SELECT `+submissionColumns+` FROM submissions s WHERE s.user_id = ? ORDER BY s.created_at DESC, s.id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	out := make([]model.Submission, 0, len(rows))
	for _, r := range rows {
		sub, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, nil
}

// AdvanceSubmissionStatus moves the submission to next if that is a forward
// transition. It reports whether the stored status changed; a backward or
// repeated transition is a no-op.
func (s *Store) AdvanceSubmissionStatus(ctx context.Context, id string, next model.Status) (bool, error) {
	if !next.Valid() {
		return false, fmt.Errorf("status %q: %w", next, model.ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	if err := tx.GetContext(ctx, &current, s.q(`SELECT status FROM submissions WHERE id = ?`), id); err != nil {
		return false, notFound(err, "submission")
	}
	if !model.Status(current).CanAdvanceTo(next) {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, s.q(`UPDATE submissions SET status = ?, updated_at = ? WHERE id = ?`),
		string(next), time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// DeleteSubmission removes the submission row.
func (s *Store) DeleteSubmission(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM submissions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return requireRow(res, "submission")
}

// CountSubmissions returns the number of stored submissions per status.
func (s *Store) CountSubmissions(ctx context.Context) (map[model.Status]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS n FROM submissions GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	out := make(map[model.Status]int, len(rows))
	for _, r := range rows {
		out[model.Status(r.Status)] = r.Count
	}
	return out, nil
}
