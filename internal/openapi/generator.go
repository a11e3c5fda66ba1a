// Package openapi builds the OpenAPI 3.1 description of the workdoc HTTP API.
package openapi

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// access levels for an operation
const (
	public = iota
	authenticated
	internOnly
	adminOnly
)

type route struct {
	method   string
	path     string
	id       string
	summary  string
	tag      string
	access   int
	request  string // component name of the JSON body
	status   string
	response string // component name, "[]Name" for arrays, "" for a binary body
	params   []*openapi3.Parameter
}

func pathParam(name string) []*openapi3.Parameter {
	return []*openapi3.Parameter{openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema())}
}

var routes = []route{
	{method: http.MethodPost, path: "/api/auth/register", id: "register", summary: "Register an intern account", tag: "auth",
		request: "RegisterRequest", status: "201", response: "AuthResponse"},
	{method: http.MethodPost, path: "/api/auth/login", id: "login", summary: "Log in", tag: "auth",
		request: "LoginRequest", status: "200", response: "AuthResponse"},
	{method: http.MethodPost, path: "/api/auth/create-first-admin", id: "createFirstAdmin", summary: "Create the first administrator", tag: "auth",
		request: "RegisterRequest", status: "201", response: "AuthResponse"},
	{method: http.MethodGet, path: "/api/auth/profile", id: "getProfile", summary: "Current user profile", tag: "auth",
		access: authenticated, status: "200", response: "AuthResponse"},
	{method: http.MethodPost, path: "/api/auth/logout", id: "logout", summary: "Log out", tag: "auth",
		access: authenticated, status: "200", response: "MessageResponse"},

	{method: http.MethodPost, path: "/api/submit", id: "submit", summary: "Submit a daily report and render it", tag: "submissions",
		access: internOnly, request: "SubmissionForm", status: "200", response: "SubmitResponse"},
	{method: http.MethodGet, path: "/api/submissions", id: "listSubmissions", summary: "List submissions visible to the caller", tag: "submissions",
		access: authenticated, status: "200", response: "[]Submission"},
	{method: http.MethodDelete, path: "/api/submissions/{id}", id: "deleteSubmission", summary: "Delete a submission and its files", tag: "submissions",
		access: adminOnly, status: "200", response: "MessageResponse", params: pathParam("id")},
	{method: http.MethodPost, path: "/api/send-email", id: "sendEmail", summary: "Mail a rendered report", tag: "submissions",
		access: authenticated, request: "SendEmailRequest", status: "200", response: "EmailResponse"},

	{method: http.MethodGet, path: "/api/download/{filename}", id: "downloadDocument", summary: "Download a rendered report", tag: "files",
		access: authenticated, status: "200", params: pathParam("filename")},
	{method: http.MethodGet, path: "/api/uploads/{filename}", id: "getUpload", summary: "Fetch an uploaded screenshot", tag: "files",
		status: "200", params: pathParam("filename")},

	{method: http.MethodPost, path: "/api/admin/register", id: "registerClient", summary: "Register for submission events", tag: "admin",
		access: adminOnly, status: "200", response: "ClientResponse"},
	{method: http.MethodPost, path: "/api/admin/unregister", id: "unregisterClient", summary: "Stop receiving submission events", tag: "admin",
		access: adminOnly, status: "200", response: "ClientResponse"},
	{method: http.MethodGet, path: "/api/admin/events", id: "drainEvents", summary: "Drain queued submission events", tag: "admin",
		access: adminOnly, status: "200", response: "EventsResponse"},
	{method: http.MethodGet, path: "/api/admin/users", id: "listUsers", summary: "List user accounts", tag: "admin",
		access: adminOnly, status: "200", response: "[]User"},
	{method: http.MethodPost, path: "/api/admin/users/deactivate", id: "deactivateUser", summary: "Deactivate a user", tag: "admin",
		access: adminOnly, request: "EmailRequest", status: "200", response: "MessageResponse"},
	{method: http.MethodPost, path: "/api/admin/users/activate", id: "activateUser", summary: "Reactivate a user", tag: "admin",
		access: adminOnly, request: "EmailRequest", status: "200", response: "MessageResponse"},
	{method: http.MethodGet, path: "/api/admin/stats", id: "stats", summary: "User and submission counts", tag: "admin",
		access: adminOnly, status: "200", response: "Stats"},
}

// Generate returns the API description served at /openapi.json.
func Generate(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Workdoc API",
			Description: "Daily work-summary reports for interns: submission, PDF rendering, download, and email delivery.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
		Tags: openapi3.Tags{
			{Name: "auth", Description: "Accounts and sessions"},
			{Name: "submissions", Description: "Daily reports"},
			{Name: "files", Description: "Rendered reports and uploads"},
			{Name: "admin", Description: "Administration and submission events"},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = componentSchemas()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"bearerAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		},
	}
	doc.Components = &components

	doc.Paths = openapi3.NewPaths()
	for _, rt := range routes {
		addOperation(doc, rt)
	}
	addProbes(doc)
	return doc
}

func addOperation(doc *openapi3.T, rt route) {
	op := &openapi3.Operation{
		OperationID: rt.id,
		Summary:     rt.summary,
		Tags:        []string{rt.tag},
	}
	for _, p := range rt.params {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: p})
	}
	if rt.access != public {
		op.Security = &openapi3.SecurityRequirements{{"bearerAuth": {}}}
	}

	if rt.request != "" {
		content := openapi3.NewContentWithJSONSchemaRef(ref(rt.request))
		if rt.id == "submit" {
			content["multipart/form-data"] = openapi3.NewMediaType().WithSchemaRef(ref("SubmissionMultipartForm"))
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithRequired(true).WithContent(content),
		}
	}

	var success *openapi3.Response
	switch {
	case rt.response == "":
		success = openapi3.NewResponse().
			WithDescription("File contents").
			WithContent(openapi3.Content{"application/octet-stream": openapi3.NewMediaType().
				WithSchema(openapi3.NewStringSchema().WithFormat("binary"))})
	case rt.response[0] == '[':
		success = openapi3.NewResponse().
			WithDescription(rt.summary).
			WithJSONSchema(arrayOf(ref(rt.response[2:])))
	default:
		success = openapi3.NewResponse().
			WithDescription(rt.summary).
			WithJSONSchemaRef(ref(rt.response))
	}
	op.Responses = newResponses(rt.status, success, errorStatuses(rt)...)

	item := doc.Paths.Value(rt.path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(rt.path, item)
	}
	item.SetOperation(rt.method, op)
}

func errorStatuses(rt route) []string {
	var codes []string
	if rt.request != "" {
		codes = append(codes, "400")
	}
	switch rt.access {
	case public:
		if rt.id == "login" {
			codes = append(codes, "401", "403")
		}
	case authenticated:
		codes = append(codes, "401")
	default:
		codes = append(codes, "401", "403")
	}
	if len(rt.params) > 0 || rt.id == "sendEmail" {
		codes = append(codes, "404")
	}
	if rt.id == "sendEmail" {
		codes = append(codes, "502")
	}
	if rt.access == public && rt.method == http.MethodPost {
		codes = append(codes, "429")
	}
	return append(codes, "500")
}

var statusText = map[string]string{
	"400": "Bad request",
	"401": "Unauthorized",
	"403": "Forbidden",
	"404": "Not found",
	"429": "Too many requests",
	"500": "Internal server error",
	"502": "Mail delivery failed",
}

// newResponses builds a response set with the success response and the
// listed error statuses, all of which share the ErrorResponse body.
func newResponses(status string, success *openapi3.Response, errorCodes ...string) *openapi3.Responses {
	responses := openapi3.NewResponses()
	responses.Delete("default")
	responses.Set(status, &openapi3.ResponseRef{Value: success})

	errorRef := ref("ErrorResponse")
	for _, code := range errorCodes {
		desc := statusText[code]
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

func addProbes(doc *openapi3.T) {
	status := openapi3.NewObjectSchema().WithProperty("status", openapi3.NewStringSchema())
	for _, p := range []struct{ path, id, summary string }{
		{"/healthz", "healthz", "Liveness probe"},
		{"/readyz", "readyz", "Readiness probe, checks the database"},
	} {
		op := &openapi3.Operation{
			OperationID: p.id,
			Summary:     p.summary,
			Tags:        []string{"system"},
			Responses: newResponses("200",
				openapi3.NewResponse().WithDescription("OK").WithJSONSchema(status)),
		}
		if p.id == "readyz" {
			unavailable := "Database unavailable"
			op.Responses.Set("503", &openapi3.ResponseRef{Value: &openapi3.Response{
				Description: &unavailable,
				Content:     openapi3.NewContentWithJSONSchema(status),
			}})
		}
		doc.Paths.Set(p.path, &openapi3.PathItem{Get: op})
	}

	metrics := &openapi3.Operation{
		OperationID: "metrics",
		Summary:     "Prometheus metrics",
		Tags:        []string{"system"},
		Responses: newResponses("200", openapi3.NewResponse().
			WithDescription("Metrics in the Prometheus text format").
			WithContent(openapi3.Content{"text/plain": openapi3.NewMediaType().WithSchema(openapi3.NewStringSchema())})),
	}
	doc.Paths.Set("/metrics", &openapi3.PathItem{Get: metrics})
}
