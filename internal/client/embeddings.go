package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/joescharf/codeassure/internal/models"
)

// EmbedRepository starts asynchronous indexing of repo.
func (c *Client) EmbedRepository(ctx context.Context, repo string) (*models.EmbeddingAck, error) {
	if err := models.ValidateRepo(repo); err != nil {
		return nil, err
	}
	var ack models.EmbeddingAck
	if err := c.do(ctx, http.MethodPost, "/api/embeddings/embed-repository", url.Values{"repo": {repo}}, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// EmbeddingStatus reports whether repo has been indexed.
func (c *Client) EmbeddingStatus(ctx context.Context, repo string) (*models.EmbeddingStatus, error) {
	var st models.EmbeddingStatus
	if err := c.do(ctx, http.MethodGet, "/api/embeddings/embedding-status", url.Values{"repo": {repo}}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
