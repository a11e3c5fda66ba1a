package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/workdoc/workdoc/internal/model"
)

// ---------------------------------------------------------------------------
// classifyError tests
// ---------------------------------------------------------------------------

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "validation",
			err:     fmt.Errorf("taskTitle is required: %w", model.ErrValidation),
			status:  http.StatusBadRequest,
			message: "TaskTitle is required",
		},
		{
			name:    "conflict",
			err:     fmt.Errorf("user with this email already exists: %w", model.ErrConflict),
			status:  http.StatusConflict,
			message: "User with this email already exists",
		},
		{
			name:    "unauthorized",
			err:     fmt.Errorf("invalid credentials: %w", model.ErrUnauthorized),
			status:  http.StatusUnauthorized,
			message: "Invalid credentials",
		},
		{
			name:    "forbidden",
			err:     fmt.Errorf("access denied: %w", model.ErrForbidden),
			status:  http.StatusForbidden,
			message: "Access denied",
		},
		{
			name:    "not found from store",
			err:     fmt.Errorf("submission: %w", model.ErrNotFound),
			status:  http.StatusNotFound,
			message: "Submission not found",
		},
		{
			name:    "not found already phrased",
			err:     fmt.Errorf("document not found: %w", model.ErrNotFound),
			status:  http.StatusNotFound,
			message: "Document not found",
		},
		{
			name:    "delivery hidden",
			err:     fmt.Errorf("send to a@x.com: %w: %w", model.ErrDelivery, errors.New("dial tcp: refused")),
			status:  http.StatusInternalServerError,
			message: "Failed to send email",
		},
		{
			name:    "unexpected hidden",
			err:     errors.New("database is locked"),
			status:  http.StatusInternalServerError,
			message: "Failed to send email",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := classifyError(tt.err, "Failed to send email")
			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if msg != tt.message {
				t.Errorf("message = %q, want %q", msg, tt.message)
			}
		})
	}
}

func TestClassifyErrorPrefersFirstKind(t *testing.T) {
	err := fmt.Errorf("load owner: %w", fmt.Errorf("user: %w", model.ErrNotFound))
	status, msg := classifyError(err, "fallback")
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if msg != "Load owner: user not found" {
		t.Errorf("message = %q", msg)
	}
}

// ---------------------------------------------------------------------------
// writeError tests
// ---------------------------------------------------------------------------

func TestWriteError(t *testing.T) {
	t.Run("writes JSON error response", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeError(w, http.StatusBadRequest, "Invalid input")

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		body := w.Body.String()
		if !strings.Contains(body, `"code":400`) {
			t.Errorf("expected code 400 in body: %s", body)
		}
		if !strings.Contains(body, `"message":"Invalid input"`) {
			t.Errorf("expected message in body: %s", body)
		}
	})

	t.Run("includes context", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeError(w, http.StatusBadRequest, "Invalid input", map[string]interface{}{"field": "date"})

		if !strings.Contains(w.Body.String(), `"context":{"field":"date"}`) {
			t.Errorf("expected context in body: %s", w.Body.String())
		}
	})
}

func TestWriteServiceErrorLogsServerFailures(t *testing.T) {
	var logged strings.Builder
	logger := newBufferLogger(&logged)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/send-email", nil)
	writeServiceError(w, r, logger, errors.New("smtp exploded"), "Failed to send email")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "smtp exploded") {
		t.Error("internal error text leaked to the client")
	}
	if !strings.Contains(logged.String(), "smtp exploded") {
		t.Errorf("expected error in log, got %q", logged.String())
	}

	logged.Reset()
	w = httptest.NewRecorder()
	writeServiceError(w, r, logger, fmt.Errorf("bad: %w", model.ErrValidation), "Failed")
	if logged.Len() != 0 {
		t.Errorf("client errors should not be logged, got %q", logged.String())
	}
}

// ---------------------------------------------------------------------------
// writeJSON tests
// ---------------------------------------------------------------------------

func TestWriteJSON(t *testing.T) {
	t.Run("writes JSON with correct content type", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeJSON(w, http.StatusOK, map[string]string{"hello": "world"})

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		body := w.Body.String()
		if !strings.Contains(body, `"hello":"world"`) {
			t.Errorf("expected JSON body, got: %s", body)
		}
	})
}
