package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/workdoc/workdoc/internal/model"
)

const (
	defaultListLimit = 25
	maxListLimit     = 500
)

// registerTools registers all workdoc MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("workdoc_list_submissions",
			mcp.WithDescription(
				"List daily work-summary submissions, newest first. Optionally filter by "+
					"the submitting user's email or by status. Returns the form fields, the "+
					"rendered document name, and the delivery status of each submission.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("userEmail",
				mcp.Description("Only submissions made by this account"),
			),
			mcp.WithString("status",
				mcp.Description("Only submissions in this status"),
				mcp.Enum(string(model.StatusGenerated), string(model.StatusDownloaded), string(model.StatusEmailed)),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of submissions to return (default 25, max 500)"),
			),
		),
		s.handleListSubmissions,
	)

	srv.AddTool(
		mcp.NewTool("workdoc_get_submission",
			mcp.WithDescription("Get one submission by id, including its topics and owner."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Submission id"),
			),
		),
		s.handleGetSubmission,
	)

	srv.AddTool(
		mcp.NewTool("workdoc_stats",
			mcp.WithDescription("Count user accounts and submissions, with submissions broken down by status."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleStats,
	)

	srv.AddTool(
		mcp.NewTool("workdoc_list_users",
			mcp.WithDescription("List user accounts with their role and whether they can sign in."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListUsers,
	)
}

// handleListSubmissions returns submissions matching the optional filters.
func (s *MCPServer) handleListSubmissions(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	status := optionalString(request, "status")
	if status != "" {
		if _, err := model.ParseStatus(status); err != nil {
			return toolError("Invalid status %q: use generated, downloaded, or emailed", status)
		}
	}
	limit := clamp(optionalInt(request, "limit", defaultListLimit), 1, maxListLimit)

	var (
		subs []model.Submission
		err  error
	)
	if email := strings.ToLower(strings.TrimSpace(optionalString(request, "userEmail"))); email != "" {
		u, uerr := s.store.GetUserByEmail(ctx, email)
		if errors.Is(uerr, model.ErrNotFound) {
			return toolError("No user with email %q", email)
		}
		if uerr != nil {
			return toolError("Failed to look up user: %v", uerr)
		}
		subs, err = s.store.ListSubmissionsByUser(ctx, u.ID)
	} else {
		subs, err = s.store.ListSubmissions(ctx)
	}
	if err != nil {
		return toolError("Failed to list submissions: %v", err)
	}

	out := make([]model.Submission, 0, len(subs))
	for _, sub := range subs {
		if status != "" && string(sub.Status) != status {
			continue
		}
		out = append(out, sub)
		if len(out) == limit {
			break
		}
	}
	return successJSON(out)
}

// handleGetSubmission returns one submission.
func (s *MCPServer) handleGetSubmission(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireString(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	sub, err := s.store.GetSubmission(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return toolError("Submission %q not found", id)
	}
	if err != nil {
		return toolError("Failed to get submission: %v", err)
	}
	return successJSON(sub)
}

type statsResult struct {
	Users       int                  `json:"users"`
	Submissions int                  `json:"submissions"`
	ByStatus    map[model.Status]int `json:"byStatus"`
}

func (s *MCPServer) stats(ctx context.Context) (*statsResult, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	res := &statsResult{Users: len(users), ByStatus: counts}
	for _, n := range counts {
		res.Submissions += n
	}
	return res, nil
}

// handleStats returns account and submission counts.
func (s *MCPServer) handleStats(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	res, err := s.stats(ctx)
	if err != nil {
		return toolError("Failed to compute stats: %v", err)
	}
	return successJSON(res)
}

// handleListUsers returns account profiles. Password hashes never leave the
// store layer.
func (s *MCPServer) handleListUsers(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return toolError("Failed to list users: %v", err)
	}
	out := make([]model.Profile, len(users))
	for i := range users {
		out[i] = users[i].Profile()
	}
	return successJSON(out)
}
