package handler

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIHandler serves the API description. The document is marshaled once.
type OpenAPIHandler struct {
	body []byte
	err  error
}

// NewOpenAPIHandler creates a new OpenAPIHandler for doc.
func NewOpenAPIHandler(doc *openapi3.T) *OpenAPIHandler {
	body, err := json.Marshal(doc)
	return &OpenAPIHandler{body: body, err: err}
}

// ServeSpec returns the OpenAPI document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	if h.err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build API description")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(h.body)
}
