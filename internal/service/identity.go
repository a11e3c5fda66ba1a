package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/store"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// ErrInvalidCredentials is returned by Authenticate for an unknown email, an
// inactive account, or a wrong password alike.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", model.ErrUnauthorized)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// IdentityService owns user accounts and password verification.
type IdentityService struct {
	store      *store.Store
	bcryptCost int
	logger     *slog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// NewIdentityService creates an identity service. A cost outside bcrypt's
// range falls back to bcrypt.DefaultCost.
func NewIdentityService(s *store.Store, bcryptCost int, logger *slog.Logger) *IdentityService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &IdentityService{store: s, bcryptCost: bcryptCost, logger: logger}
}

func (in RegisterInput) normalize() (RegisterInput, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	var missing []string
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if in.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if in.LastName == "" {
		missing = append(missing, "lastName")
	}
	if len(missing) > 0 {
		return in, fmt.Errorf("missing required fields: %s: %w", strings.Join(missing, ", "), model.ErrValidation)
	}
	if !emailPattern.MatchString(in.Email) {
		return in, fmt.Errorf("please enter a valid email: %w", model.ErrValidation)
	}
	if len(in.Password) < MinPasswordLength {
		return in, fmt.Errorf("password must be at least %d characters: %w", MinPasswordLength, model.ErrValidation)
	}
	return in, nil
}

func (s *IdentityService) newUser(in RegisterInput, role model.Role) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &model.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
	}, nil
}

func (s *IdentityService) checkEmailFree(ctx context.Context, email string) error {
	_, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("user with this email already exists: %w", model.ErrConflict)
	case errors.Is(err, model.ErrNotFound):
		return nil
	default:
		return err
	}
}

// Register creates an intern account.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}

	u, err := s.newUser(in, model.RoleIntern)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, fmt.Errorf("user with this email already exists: %w", model.ErrConflict)
		}
		return nil, err
	}
	return u, nil
}

// CreateFirstAdmin creates the initial admin account. It fails with
// model.ErrConflict when the email is taken and model.ErrForbidden once any
// admin exists.
func (s *IdentityService) CreateFirstAdmin(ctx context.Context, in RegisterInput) (*model.User, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}

	u, err := s.newUser(in, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateFirstAdmin(ctx, u); err != nil {
		switch {
		case errors.Is(err, model.ErrForbidden):
			return nil, fmt.Errorf("admin user already exists, use regular registration: %w", model.ErrForbidden)
		case errors.Is(err, model.ErrConflict):
			return nil, fmt.Errorf("user with this email already exists: %w", model.ErrConflict)
		}
		return nil, err
	}
	return u, nil
}

// Authenticate verifies an email and password pair.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", model.ErrValidation)
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		// Spend the same time as a real comparison.
		bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *IdentityService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("workdoc-dummy-password"), s.bcryptCost)
	})
	return s.dummyHash
}

// TouchLastLogin records a sign-in. Failures are logged and never returned.
func (s *IdentityService) TouchLastLogin(ctx context.Context, u *model.User) {
	now := time.Now().UTC()
	if err := s.store.UpdateUserLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn("update last login failed", "user_id", u.ID, "error", err)
		return
	}
	u.LastLoginAt = &now
}

// GetUser returns the user with the given id.
func (s *IdentityService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// ListUsers returns every account.
func (s *IdentityService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.store.ListUsers(ctx)
}

// DeactivateUser disables sign-in for the account with email.
func (s *IdentityService) DeactivateUser(ctx context.Context, email string) error {
	return s.setActive(ctx, email, false)
}

// ActivateUser re-enables sign-in for the account with email.
func (s *IdentityService) ActivateUser(ctx context.Context, email string) error {
	return s.setActive(ctx, email, true)
}

func (s *IdentityService) setActive(ctx context.Context, email string, active bool) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email is required: %w", model.ErrValidation)
	}
	return s.store.SetUserActive(ctx, email, active)
}
