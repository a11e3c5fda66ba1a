package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/server/middleware"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// errorKinds maps error sentinels to HTTP status codes, most specific first.
var errorKinds = []struct {
	err    error
	status int
}{
	{model.ErrValidation, http.StatusBadRequest},
	{model.ErrConflict, http.StatusConflict},
	{model.ErrUnauthorized, http.StatusUnauthorized},
	{model.ErrForbidden, http.StatusForbidden},
	{model.ErrNotFound, http.StatusNotFound},
}

// classifyError maps err to an HTTP status and a message that is safe to
// show the caller. Delivery and unexpected failures get the generic fallback.
func classifyError(err error, fallback string) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, publicMessage(err, k.err)
		}
	}
	return http.StatusInternalServerError, fallback
}

// publicMessage strips the sentinel suffix from err's text and capitalizes
// the rest.
func publicMessage(err, kind error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+kind.Error())
	if kind == model.ErrNotFound && !strings.Contains(msg, "not found") {
		msg += " not found"
	}
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

// writeServiceError writes err using classifyError. Server-side failures are
// logged with the request id.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	status, msg := classifyError(err, fallback)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback,
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
			"path", r.URL.Path,
		)
	}
	writeError(w, status, msg)
}
