package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/store"
)

type fixture struct {
	srv    *MCPServer
	store  *store.Store
	ann    *model.User
	bob    *model.User
	annSub *model.Submission
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.NewStore(ctx, "", "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{store: st}
	f.ann = addUser(t, st, "ann@x.com", "Ann")
	f.bob = addUser(t, st, "bob@x.com", "Bob")
	f.annSub = addSubmission(t, st, f.ann, "ann_2024-01-10.pdf")
	addSubmission(t, st, f.bob, "bob_2024-01-10.pdf")
	if _, err := st.AdvanceSubmissionStatus(ctx, f.annSub.ID, model.StatusEmailed); err != nil {
		t.Fatalf("AdvanceSubmissionStatus: %v", err)
	}

	f.srv = NewMCPServer(st, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func addUser(t *testing.T, st *store.Store, email, first string) *model.User {
	t.Helper()
	u := &model.User{
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Role:         model.RoleIntern,
		FirstName:    first,
		LastName:     "Lee",
		IsActive:     true,
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func addSubmission(t *testing.T, st *store.Store, owner *model.User, doc string) *model.Submission {
	t.Helper()
	sub := &model.Submission{
		UserID:           owner.ID,
		UserEmail:        owner.Email,
		UserName:         owner.FullName(),
		InternName:       owner.FullName(),
		Date:             "2024-01-10",
		TaskTitle:        "Onboarding",
		CompanyName:      "Acme",
		Introduction:     "Day one.",
		TopicsCovered:    []string{"Git basics"},
		PracticeExamples: "Opened a PR.",
		DocumentPath:     doc,
	}
	if err := st.CreateSubmission(context.Background(), sub); err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	return sub
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v interface{}) {
	t.Helper()
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func TestToolsRegistered(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{
		"workdoc_list_submissions",
		"workdoc_get_submission",
		"workdoc_stats",
		"workdoc_list_users",
	} {
		tool := f.srv.Server().GetTool(name)
		if tool == nil {
			t.Errorf("tool %q not registered", name)
			continue
		}
		if tool.Tool.Annotations.ReadOnlyHint == nil || !*tool.Tool.Annotations.ReadOnlyHint {
			t.Errorf("tool %q should be read-only", name)
		}
	}
	if n := len(f.srv.Server().ListTools()); n != 4 {
		t.Errorf("registered %d tools, want 4", n)
	}
}

func TestListSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var all []model.Submission
	res, err := f.srv.handleListSubmissions(ctx, callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	decodeResult(t, res, &all)
	if len(all) != 2 {
		t.Errorf("got %d submissions, want 2", len(all))
	}

	var mine []model.Submission
	res, _ = f.srv.handleListSubmissions(ctx, callRequest(map[string]any{"userEmail": " ANN@x.com "}))
	decodeResult(t, res, &mine)
	if len(mine) != 1 || mine[0].UserID != f.ann.ID {
		t.Errorf("filter by email returned %+v", mine)
	}

	var emailed []model.Submission
	res, _ = f.srv.handleListSubmissions(ctx, callRequest(map[string]any{"status": "emailed"}))
	decodeResult(t, res, &emailed)
	if len(emailed) != 1 || emailed[0].ID != f.annSub.ID {
		t.Errorf("filter by status returned %+v", emailed)
	}

	var limited []model.Submission
	res, _ = f.srv.handleListSubmissions(ctx, callRequest(map[string]any{"limit": float64(1)}))
	decodeResult(t, res, &limited)
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d", len(limited))
	}
}

func TestListSubmissionsErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.srv.handleListSubmissions(ctx, callRequest(map[string]any{"status": "archived"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "Invalid status") {
		t.Errorf("expected invalid status error, got %+v", res)
	}

	res, _ = f.srv.handleListSubmissions(ctx, callRequest(map[string]any{"userEmail": "nobody@x.com"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "No user") {
		t.Errorf("expected unknown user error, got %+v", res)
	}
}

func TestGetSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var sub model.Submission
	res, err := f.srv.handleGetSubmission(ctx, callRequest(map[string]any{"id": f.annSub.ID}))
	if err != nil {
		t.Fatal(err)
	}
	decodeResult(t, res, &sub)
	if sub.DocumentPath != "ann_2024-01-10.pdf" || sub.Status != model.StatusEmailed {
		t.Errorf("got %+v", sub)
	}

	res, _ = f.srv.handleGetSubmission(ctx, callRequest(map[string]any{"id": "missing"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Errorf("expected not found, got %+v", res)
	}

	res, _ = f.srv.handleGetSubmission(ctx, callRequest(nil))
	if !res.IsError {
		t.Error("expected error for missing id")
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	var stats statsResult
	res, err := f.srv.handleStats(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	decodeResult(t, res, &stats)
	if stats.Users != 2 || stats.Submissions != 2 {
		t.Errorf("got users=%d submissions=%d", stats.Users, stats.Submissions)
	}
	if stats.ByStatus[model.StatusEmailed] != 1 || stats.ByStatus[model.StatusGenerated] != 1 {
		t.Errorf("byStatus = %v", stats.ByStatus)
	}
}

func TestListUsersOmitsPasswordHash(t *testing.T) {
	f := newFixture(t)

	res, err := f.srv.handleListUsers(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if strings.Contains(text, "$2a$") || strings.Contains(strings.ToLower(text), "password") {
		t.Errorf("password material leaked: %s", text)
	}
	var users []model.Profile
	decodeResult(t, res, &users)
	if len(users) != 2 {
		t.Errorf("got %d users, want 2", len(users))
	}
}

func TestSubmissionResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := mcp.ReadResourceRequest{}
	req.Params.URI = submissionsURI
	contents, err := f.srv.handleSubmissionsResource(ctx, req)
	if err != nil {
		t.Fatalf("submissions resource: %v", err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.MIMEType != "application/json" {
		t.Fatalf("unexpected contents %+v", contents)
	}
	var subs []model.Submission
	if err := json.Unmarshal([]byte(tc.Text), &subs); err != nil || len(subs) != 2 {
		t.Errorf("decoded %d submissions, err %v", len(subs), err)
	}

	req.Params.URI = submissionURIPrefix + f.annSub.ID
	contents, err = f.srv.handleSubmissionResource(ctx, req)
	if err != nil {
		t.Fatalf("submission resource: %v", err)
	}
	if tc := contents[0].(mcp.TextResourceContents); !strings.Contains(tc.Text, f.annSub.ID) {
		t.Errorf("resource text missing id: %s", tc.Text)
	}

	req.Params.URI = submissionURIPrefix + "missing"
	if _, err := f.srv.handleSubmissionResource(ctx, req); err == nil {
		t.Error("expected error for unknown submission")
	}
}
