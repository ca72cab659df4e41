package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/joescharf/codeassure/internal/models"
)

type reviewsEnvelope struct {
	Reviews json.RawMessage `json:"reviews"`
	Count   int             `json:"count"`
}

// ListReviews fetches the full review collection. A missing or malformed
// "reviews" field yields an empty list; individual records that fail to
// decode are skipped.
func (c *Client) ListReviews(ctx context.Context) ([]*models.Review, error) {
	var env reviewsEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/reviews/", nil, &env); err != nil {
		return nil, err
	}
	return c.decodeReviews(env.Reviews), nil
}

func (c *Client) decodeReviews(raw json.RawMessage) []*models.Review {
	reviews := []*models.Review{}
	if len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return reviews
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		c.logger.Warn("reviews field is not a list", "error", err)
		return reviews
	}

	for i, elem := range elems {
		if string(bytes.TrimSpace(elem)) == "null" {
			c.logger.Warn("skipping null review", "index", i)
			continue
		}
		var r models.Review
		if err := json.Unmarshal(elem, &r); err != nil {
			c.logger.Warn("skipping malformed review", "index", i, "error", err)
			continue
		}
		reviews = append(reviews, &r)
	}
	return reviews
}

// GetReview fetches a single review.
func (c *Client) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	var r models.Review
	if err := c.do(ctx, http.MethodGet, "/api/reviews/"+strconv.FormatInt(id, 10), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// TriggerReview asks the service to review repo#pr asynchronously.
func (c *Client) TriggerReview(ctx context.Context, repo string, pr int) (*models.ReviewAck, error) {
	if err := models.ValidateRepo(repo); err != nil {
		return nil, err
	}
	if pr <= 0 {
		return nil, fmt.Errorf("invalid pull request number %d", pr)
	}
	params := url.Values{}
	params.Set("repo", repo)
	params.Set("pr_number", strconv.Itoa(pr))

	var ack models.ReviewAck
	if err := c.do(ctx, http.MethodPost, "/api/test/manual-review", params, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Health reports which backend integrations are configured.
type Health struct {
	GroqConfigured   bool `json:"groq_configured"`
	GitHubConfigured bool `json:"github_configured"`
}

// Health calls the backend's configuration check.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/api/test/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
