package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/workdoc/workdoc/internal/access"
	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/service"
)

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if respID == "" {
		t.Error("expected X-Request-ID in response header")
	}
	// UUID v7 format check: 36 chars with dashes
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id != clientID {
			t.Errorf("expected context ID %q, got %q", clientID, id)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if respID != clientID {
		t.Errorf("expected response X-Request-ID %q, got %q", clientID, respID)
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	id := GetRequestID(context.Background())
	if id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

func TestRequestIDReplacesInvalidClientID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("expected a generated ID, got %q", got)
	}
}

// ---------------------------------------------------------------------------
// Authenticate middleware tests
// ---------------------------------------------------------------------------

type stubVerifier struct {
	claims *service.Claims
	err    error
}

func (s stubVerifier) Verify(string) (*service.Claims, error) {
	return s.claims, s.err
}

type stubUsers map[string]*model.User

func (s stubUsers) GetUser(_ context.Context, id string) (*model.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", model.ErrNotFound)
	}
	return u, nil
}

type brokenUsers struct{}

func (brokenUsers) GetUser(context.Context, string) (*model.User, error) {
	return nil, errors.New("database is locked")
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error.Code != rr.Code {
		t.Errorf("error.code = %d, want %d", resp.Error.Code, rr.Code)
	}
	return resp.Error.Message
}

func TestAuthenticate(t *testing.T) {
	users := stubUsers{
		"u1": {ID: "u1", Email: "a@x.com", Role: model.RoleIntern, IsActive: true},
		"u2": {ID: "u2", Email: "b@x.com", Role: model.RoleIntern, IsActive: false},
	}
	claims := func(id string) *service.Claims { return &service.Claims{UserID: id, Role: model.RoleIntern} }

	tests := []struct {
		name     string
		header   string
		verifier stubVerifier
		status   int
		message  string
	}{
		{"no header", "", stubVerifier{}, http.StatusUnauthorized, "Access denied. No token provided."},
		{"wrong scheme", "Basic abc", stubVerifier{}, http.StatusUnauthorized, "Access denied. No token provided."},
		{"empty bearer", "Bearer  ", stubVerifier{}, http.StatusUnauthorized, "Access denied. No token provided."},
		{"invalid", "Bearer t", stubVerifier{err: service.ErrInvalidToken}, http.StatusUnauthorized, "Invalid token."},
		{"expired", "Bearer t", stubVerifier{err: service.ErrTokenExpired}, http.StatusUnauthorized, "Token expired."},
		{"unknown user", "Bearer t", stubVerifier{claims: claims("nobody")}, http.StatusUnauthorized, "Invalid token or user not found."},
		{"deactivated", "Bearer t", stubVerifier{claims: claims("u2")}, http.StatusUnauthorized, "Account is deactivated."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := Authenticate(tt.verifier, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if called {
				t.Error("next handler should not run")
			}
			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			if got := errorMessage(t, rr); got != tt.message {
				t.Errorf("message = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestAuthenticateAttachesPrincipal(t *testing.T) {
	users := stubUsers{"u1": {ID: "u1", Email: "a@x.com", Role: model.RoleAdmin, IsActive: true}}
	verifier := stubVerifier{claims: &service.Claims{UserID: "u1", Role: model.RoleIntern}}

	var got *access.Principal
	h := Authenticate(verifier, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = access.FromContext(r.Context())
	}))
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got == nil {
		t.Fatal("expected principal in context")
	}
	// The stored role wins over the role in the token
	if got.UserID != "u1" || got.Email != "a@x.com" || got.Role != model.RoleAdmin {
		t.Errorf("principal = %+v", got)
	}
}

func TestAuthenticateUserLookupFailure(t *testing.T) {
	verifier := stubVerifier{claims: &service.Claims{UserID: "u1"}}
	h := Authenticate(verifier, brokenUsers{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

func TestAuthenticateWithRealTokens(t *testing.T) {
	tokens := service.NewAuthService("middleware-test-secret", time.Hour)
	u := &model.User{ID: "u1", Email: "a@x.com", Role: model.RoleIntern, IsActive: true}
	token, err := tokens.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	called := false
	h := Authenticate(tokens, stubUsers{"u1": u})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("expected next handler to run with a valid token")
	}
}

// ---------------------------------------------------------------------------
// Require middleware tests
// ---------------------------------------------------------------------------

func withPrincipal(p *access.Principal) *http.Request {
	req := httptest.NewRequest("GET", "/test", nil)
	if p != nil {
		req = req.WithContext(access.WithPrincipal(req.Context(), p))
	}
	return req
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name      string
		principal *access.Principal
		status    int
	}{
		{"admin allowed", &access.Principal{UserID: "a", Role: model.RoleAdmin}, http.StatusOK},
		{"intern forbidden", &access.Principal{UserID: "i", Role: model.RoleIntern}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Require(access.RequireRole(model.RoleAdmin))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, withPrincipal(tt.principal))

			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				if got := errorMessage(t, rr); got != "Access denied. Insufficient permissions." {
					t.Errorf("message = %q", got)
				}
			}
		})
	}
}

func TestRequireSelfOrAdmin(t *testing.T) {
	h := Require(access.RequireSelfOrAdmin("owner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tc := range []struct {
		p    *access.Principal
		want int
	}{
		{&access.Principal{UserID: "owner", Role: model.RoleIntern}, http.StatusOK},
		{&access.Principal{UserID: "other", Role: model.RoleIntern}, http.StatusForbidden},
		{&access.Principal{UserID: "boss", Role: model.RoleAdmin}, http.StatusOK},
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, withPrincipal(tc.p))
		if rr.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.p.UserID, rr.Code, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// RateLimit middleware tests
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	h := RateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests {
			if got := errorMessage(t, rr); got != "Too many requests, please try again later." {
				t.Errorf("message = %q", got)
			}
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// A different client is counted separately
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "10.0.0.2:4000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rr.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 50; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("POST", "/login", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
	}
}

// ---------------------------------------------------------------------------
// Logger middleware tests
// ---------------------------------------------------------------------------

type httpObservation struct {
	method string
	status int
}

type recordingHTTP struct {
	seen []httpObservation
}

func (r *recordingHTTP) RecordHTTP(method string, status int, _ time.Duration) {
	r.seen = append(r.seen, httpObservation{method, status})
}

func TestLoggerRecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	rec := &recordingHTTP{}

	h := RequestID(Logger(logger, rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	})))
	req := httptest.NewRequest("DELETE", "/api/submissions/x", nil)
	req.Header.Set("X-Request-ID", "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(rec.seen) != 1 || rec.seen[0] != (httpObservation{"DELETE", http.StatusNotFound}) {
		t.Errorf("recorded = %+v", rec.seen)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if entry["request_id"] != "req-42" || entry["path"] != "/api/submissions/x" {
		t.Errorf("entry = %v", entry)
	}
	if entry["bytes"] != float64(4) {
		t.Errorf("bytes = %v, want 4", entry["bytes"])
	}
}

func TestLoggerWithoutRecorder(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := Logger(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}
