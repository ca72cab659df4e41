// Package mcp exposes the review dashboard operations as MCP tools so that
// coding agents can query reviews and start embeddings.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/codeassure/internal/client"
	"github.com/joescharf/codeassure/internal/embedding"
	"github.com/joescharf/codeassure/internal/filter"
	"github.com/joescharf/codeassure/internal/models"
)

// API is the backend surface used by the tools.
type API interface {
	ListReviews(ctx context.Context) ([]*models.Review, error)
	GetReview(ctx context.Context, id int64) (*models.Review, error)
	TriggerReview(ctx context.Context, repo string, pr int) (*models.ReviewAck, error)
	EmbeddingStatus(ctx context.Context, repo string) (*models.EmbeddingStatus, error)
}

// Server wraps the API client and embedding tracker as MCP tools.
type Server struct {
	api     API
	tracker *embedding.Tracker
	version string
}

// NewServer creates the MCP server wrapper.
func NewServer(api API, tracker *embedding.Tracker, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{api: api, tracker: tracker, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("codeassure", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.getReviewTool())
	srv.AddTool(s.triggerReviewTool())
	srv.AddTool(s.reviewStatsTool())
	srv.AddTool(s.embedRepositoryTool())
	srv.AddTool(s.embeddingStatusTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// apiErrorText renders backend errors; auth failures get a login hint.
func apiErrorText(action string, err error) string {
	if client.IsAuthError(err) {
		return fmt.Sprintf("%s: not authenticated (run 'codeassure login'): %v", action, err)
	}
	return fmt.Sprintf("%s: %v", action, err)
}

// codeassure_list_reviews
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("codeassure_list_reviews",
		mcp.WithDescription("List pull request reviews, newest first as returned by the backend. Optional search matches repository name, PR number or summary; severity narrows to high, medium or low."),
		mcp.WithString("search", mcp.Description("Case-insensitive text to match")),
		mcp.WithString("severity", mcp.Description("Severity filter"), mcp.Enum("all", "high", "medium", "low")),
	)
	return tool, s.handleListReviews
}

type reviewOut struct {
	ID        int64  `json:"id"`
	Repo      string `json:"repo"`
	PRNumber  int    `json:"pr_number"`
	PRURL     string `json:"pr_url"`
	Severity  string `json:"severity"`
	Summary   string `json:"summary"`
	Issues    int    `json:"issues"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sev, err := models.ParseSeverityFilter(request.GetString("severity", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state := models.FilterState{Search: request.GetString("search", ""), Severity: sev}

	reviews, err := s.api.ListReviews(ctx)
	if err != nil {
		return mcp.NewToolResultError(apiErrorText("failed to list reviews", err)), nil
	}

	visible := filter.Apply(reviews, state)
	out := make([]reviewOut, 0, len(visible))
	for _, r := range visible {
		o := reviewOut{
			ID:       r.ID,
			Repo:     r.RepoName,
			PRNumber: r.PRNumber,
			PRURL:    r.PRURL,
			Severity: string(r.Severity),
			Summary:  r.Summary,
			Issues:   len(r.Issues),
		}
		if !r.CreatedAt.IsZero() {
			o.CreatedAt = r.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, o)
	}
	return jsonResult(out)
}

// codeassure_get_review
func (s *Server) getReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("codeassure_get_review",
		mcp.WithDescription("Get one review with all its issues, suggestions and code examples."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Review ID")),
	)
	return tool, s.handleGetReview
}

func (s *Server) handleGetReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil || id <= 0 {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	review, err := s.api.GetReview(ctx, int64(id))
	if err != nil {
		if client.IsNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("review not found: %d", id)), nil
		}
		return mcp.NewToolResultError(apiErrorText("failed to get review", err)), nil
	}
	return jsonResult(review)
}

// codeassure_trigger_review
func (s *Server) triggerReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("codeassure_trigger_review",
		mcp.WithDescription("Queue an AI review of a pull request. The review appears in the list once the backend finishes."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository in owner/repo form")),
		mcp.WithNumber("pr_number", mcp.Required(), mcp.Description("Pull request number")),
	)
	return tool, s.handleTriggerReview
}

func (s *Server) handleTriggerReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	pr, err := request.RequireInt("pr_number")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: pr_number"), nil
	}

	ack, err := s.api.TriggerReview(ctx, repo, pr)
	if err != nil {
		return mcp.NewToolResultError(apiErrorText("failed to trigger review", err)), nil
	}
	return jsonResult(ack)
}

// codeassure_review_stats
func (s *Server) reviewStatsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("codeassure_review_stats",
		mcp.WithDescription("Headline counts over all reviews: total, critical (high severity), clean (no issues) and total issues found."),
	)
	return tool, s.handleReviewStats
}

func (s *Server) handleReviewStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reviews, err := s.api.ListReviews(ctx)
	if err != nil {
		return mcp.NewToolResultError(apiErrorText("failed to list reviews", err)), nil
	}
	return jsonResult(filter.Summarize(reviews))
}

// codeassure_embed_repository
func (s *Server) embedRepositoryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("codeassure_embed_repository",
		mcp.WithDescription("Start indexing a repository for context-aware reviews. Returns the tracked job; a repository already processing is not restarted."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository in owner/repo form")),
	)
	return tool, s.handleEmbedRepository
}

func (s *Server) handleEmbedRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}

	job, started, err := s.tracker.Start(ctx, repo)
	if err != nil {
		return mcp.NewToolResultError(apiErrorText("failed to start embedding", err)), nil
	}
	return jsonResult(struct {
		Started bool                `json:"started"`
		Job     models.EmbeddingJob `json:"job"`
	}{started, job})
}

// codeassure_embedding_status
func (s *Server) embeddingStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("codeassure_embedding_status",
		mcp.WithDescription("Check whether a repository has been embedded. Includes the locally tracked job when one was started in this session."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository in owner/repo form")),
	)
	return tool, s.handleEmbeddingStatus
}

func (s *Server) handleEmbeddingStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	if err := models.ValidateRepo(repo); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type statusOut struct {
		Repo   string                  `json:"repo"`
		Remote *models.EmbeddingStatus `json:"remote"`
		Job    *models.EmbeddingJob    `json:"job,omitempty"`
	}
	out := statusOut{Repo: repo}

	if _, ok := s.tracker.Job(repo); ok {
		job, err := s.tracker.Check(ctx, repo)
		if err != nil && !errors.Is(err, embedding.ErrUnknownJob) {
			return mcp.NewToolResultError(apiErrorText("failed to check embedding", err)), nil
		}
		out.Job = &job
	}

	st, err := s.api.EmbeddingStatus(ctx, repo)
	if err != nil {
		return mcp.NewToolResultError(apiErrorText("failed to get embedding status", err)), nil
	}
	out.Remote = st
	return jsonResult(out)
}
