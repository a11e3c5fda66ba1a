package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/workdoc/workdoc/internal/access"
	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(context.Background(), "", "") // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestIdentity(t *testing.T) (*IdentityService, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	return NewIdentityService(s, bcrypt.MinCost, discardLogger()), s
}

func principalOf(u *model.User) *access.Principal {
	return &access.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}
