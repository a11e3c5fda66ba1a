package service

import (
	"context"
	"errors"
	"testing"

	"github.com/workdoc/workdoc/internal/model"
)

func annInput() RegisterInput {
	return RegisterInput{Email: "a@x.com", Password: "secret1", FirstName: "Ann", LastName: "Lee"}
}

func TestRegister(t *testing.T) {
	ids, _ := newTestIdentity(t)
	ctx := context.Background()

	in := annInput()
	in.Email = "  A@X.com "
	in.FirstName = " Ann "
	u, err := ids.Register(ctx, in)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "a@x.com" {
		t.Errorf("Email: got %q, want %q", u.Email, "a@x.com")
	}
	if u.FirstName != "Ann" {
		t.Errorf("FirstName: got %q, want %q", u.FirstName, "Ann")
	}
	if u.Role != model.RoleIntern {
		t.Errorf("Role: got %v, want intern", u.Role)
	}
	if u.PasswordHash == "" || u.PasswordHash == "secret1" {
		t.Error("password must be stored hashed")
	}
	if !u.IsActive {
		t.Error("new accounts must be active")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ids, _ := newTestIdentity(t)
	ctx := context.Background()

	if _, err := ids.Register(ctx, annInput()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	in := annInput()
	in.Email = " A@x.COM"
	_, err := ids.Register(ctx, in)
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ids, _ := newTestIdentity(t)
	ctx := context.Background()

	tests := []struct {
		name string
		edit func(*RegisterInput)
	}{
		{"missing email", func(in *RegisterInput) { in.Email = "" }},
		{"missing password", func(in *RegisterInput) { in.Password = "" }},
		{"blank first name", func(in *RegisterInput) { in.FirstName = "   " }},
		{"missing last name", func(in *RegisterInput) { in.LastName = "" }},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"short password", func(in *RegisterInput) { in.Password = "12345" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := annInput()
			tt.edit(&in)
			if _, err := ids.Register(ctx, in); !errors.Is(err, model.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateFirstAdminOnce(t *testing.T) {
	ids, _ := newTestIdentity(t)
	ctx := context.Background()

	admin, err := ids.CreateFirstAdmin(ctx, RegisterInput{
		Email: "boss@x.com", Password: "secret1", FirstName: "Bo", LastName: "Ss",
	})
	if err != nil {
		t.Fatalf("CreateFirstAdmin: %v", err)
	}
	if admin.Role != model.RoleAdmin {
		t.Errorf("Role: got %v, want admin", admin.Role)
	}

	// Deactivating the first admin does not reopen the bootstrap path.
	if err := ids.DeactivateUser(ctx, "boss@x.com"); err != nil {
		t.Fatalf("DeactivateUser: %v", err)
	}
	_, err = ids.CreateFirstAdmin(ctx, RegisterInput{
		Email: "second@x.com", Password: "secret1", FirstName: "Se", LastName: "Cond",
	})
	if !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateFirstAdminEmailTaken(t *testing.T) {
	ids, _ := newTestIdentity(t)
	ctx := context.Background()

	if _, err := ids.Register(ctx, annInput()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := ids.CreateFirstAdmin(ctx, annInput()); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	ids, _ := newTestIdentity(t)
	ctx := context.Background()

	if _, err := ids.Register(ctx, annInput()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, err := ids.Authenticate(ctx, " A@X.COM ", "secret1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Email != "a@x.com" {
		t.Errorf("Email: got %q", u.Email)
	}

	if _, err := ids.Authenticate(ctx, "a@x.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := ids.Authenticate(ctx, "nobody@x.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := ids.Authenticate(ctx, "", ""); !errors.Is(err, model.ErrValidation) {
		t.Errorf("empty input: expected ErrValidation, got %v", err)
	}

	if err := ids.DeactivateUser(ctx, "a@x.com"); err != nil {
		t.Fatalf("DeactivateUser: %v", err)
	}
	_, err = ids.Authenticate(ctx, "a@x.com", "secret1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("inactive: expected ErrInvalidCredentials, got %v", err)
	}
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Error("credential errors should wrap ErrUnauthorized")
	}

	if err := ids.ActivateUser(ctx, "a@x.com"); err != nil {
		t.Fatalf("ActivateUser: %v", err)
	}
	if _, err := ids.Authenticate(ctx, "a@x.com", "secret1"); err != nil {
		t.Errorf("reactivated: %v", err)
	}
}

func TestTouchLastLogin(t *testing.T) {
	ids, _ := newTestIdentity(t)
	ctx := context.Background()

	u, err := ids.Register(ctx, annInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	ids.TouchLastLogin(ctx, u)
	if u.LastLoginAt == nil {
		t.Fatal("LastLoginAt not set on user")
	}

	got, err := ids.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.LastLoginAt == nil {
		t.Error("LastLoginAt not persisted")
	}
}

func TestTouchLastLoginUnknownUserDoesNotPanic(t *testing.T) {
	ids, _ := newTestIdentity(t)
	u := &model.User{ID: "missing"}
	ids.TouchLastLogin(context.Background(), u)
	if u.LastLoginAt != nil {
		t.Error("LastLoginAt should stay nil when the update fails")
	}
}

func TestDeactivateUnknownUser(t *testing.T) {
	ids, _ := newTestIdentity(t)
	if err := ids.DeactivateUser(context.Background(), "ghost@x.com"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
