package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/workdoc/workdoc/internal/model"
)

func testUser() *model.User {
	return &model.User{ID: "0190c0de-0000-7000-8000-000000000001", Email: "a@x.com", Role: model.RoleIntern}
}

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuthService("test-secret-key-for-jwt", time.Hour)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return now }

	token, err := auth.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := auth.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != testUser().ID {
		t.Errorf("UserID: got %q, want %q", claims.UserID, testUser().ID)
	}
	if claims.Role != model.RoleIntern {
		t.Errorf("Role: got %v, want intern", claims.Role)
	}
	if !claims.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt: got %v, want %v", claims.ExpiresAt, now.Add(time.Hour))
	}
}

func TestTokenExpired(t *testing.T) {
	auth := NewAuthService("test-secret-key-for-jwt", time.Hour)
	issued := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }

	token, err := auth.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	auth.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = auth.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Error("expired token error should wrap ErrUnauthorized")
	}
}

func TestTokenInvalid(t *testing.T) {
	auth := NewAuthService("test-secret-key-for-jwt", time.Hour)

	_, err := auth.Verify("garbage.token.here")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenTampered(t *testing.T) {
	auth := NewAuthService("test-secret-key-for-jwt", time.Hour)
	token, err := auth.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := NewAuthService("another-secret", time.Hour)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: expected ErrInvalidToken, got %v", err)
	}

	parts := strings.Split(token, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := auth.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("bad signature: expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenRejectsUnknownRole(t *testing.T) {
	secret := "test-secret-key-for-jwt"
	auth := NewAuthService(secret, time.Hour)

	claims := jwtClaims{
		UserID: "u1",
		Role:   "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	auth := NewAuthService("test-secret-key-for-jwt", time.Hour)

	claims := jwtClaims{
		UserID: "u1",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
