package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/workdoc/workdoc/internal/model"
)

const (
	submissionsURI        = "workdoc://submissions"
	submissionURIPrefix   = "workdoc://submission/"
	submissionURITemplate = submissionURIPrefix + "{id}"
)

// registerResources registers the submission listing and the per-submission
// template.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			submissionsURI,
			"Submissions",
			mcp.WithResourceDescription("All submissions, newest first, with owner details"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleSubmissionsResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			submissionURITemplate,
			"Submission",
			mcp.WithTemplateDescription("A single submission by id"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleSubmissionResource,
	)
}

func (s *MCPServer) handleSubmissionsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	subs, err := s.store.ListSubmissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return jsonContents(request.Params.URI, subs)
}

func (s *MCPServer) handleSubmissionResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	id := strings.TrimPrefix(request.Params.URI, submissionURIPrefix)
	if id == "" || id == request.Params.URI {
		return nil, fmt.Errorf("invalid submission URI %q", request.Params.URI)
	}
	sub, err := s.store.GetSubmission(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("submission %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return jsonContents(request.Params.URI, sub)
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
