package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/workdoc/workdoc/internal/model"
)

const userColumns = `id, email, password_hash, role, first_name, last_name, is_active, last_login_at, created_at, updated_at`

const insertUser = `INSERT INTO users (` + userColumns + `)
	VALUES (:id, :email, :password_hash, :role, :first_name, :last_name, :is_active, :last_login_at, :created_at, :updated_at)`

// firstAdminMarker is the primary key of the bootstrap row claimed by the
// first-admin transaction. A second claim fails on the primary key.
const firstAdminMarker = "first_admin"

func prepareUser(u *model.User) {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = uuid.Must(uuid.NewV7()).String()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
}

// CreateUser inserts a new user. The ID and timestamps are populated on u.
// A duplicate email returns model.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	prepareUser(u)
	if _, err := s.db.NamedExecContext(ctx, insertUser, u); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", u.Email, model.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// CreateFirstAdmin inserts u as an admin in one transaction that fails with
// model.ErrForbidden when any admin already exists or the bootstrap marker
// was already claimed.
func (s *Store) CreateFirstAdmin(ctx context.Context, u *model.User) error {
	u.Role = model.RoleAdmin
	prepareUser(u)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var admins int
	if err := tx.GetContext(ctx, &admins, s.q(`SELECT COUNT(*) FROM users WHERE role = ?`), model.RoleAdmin); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return fmt.Errorf("admin already exists: %w", model.ErrForbidden)
	}

	if _, err := tx.NamedExecContext(ctx, insertUser, u); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", u.Email, model.ErrConflict)
		}
		return fmt.Errorf("insert admin: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO bootstrap (name, user_id, created_at) VALUES (?, ?, ?)`),
		firstAdminMarker, u.ID, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("admin already exists: %w", model.ErrForbidden)
		}
		return fmt.Errorf("claim bootstrap marker: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetUserByID returns the user with the given id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// GetUserByEmail looks up a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// HasAnyAdmin reports whether at least one admin account exists, active or not.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, s.q(`SELECT COUNT(*) FROM users WHERE role = ?`), model.RoleAdmin); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// UpdateUserLastLogin records a successful sign-in.
func (s *Store) UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`), at, at, id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return requireRow(res, "user")
}

// SetUserActive enables or disables sign-in for the user with the given email.
func (s *Store) SetUserActive(ctx context.Context, email string, active bool) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET is_active = ?, updated_at = ? WHERE email = ?`),
		active, time.Now().UTC(), email)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res, "user")
}
