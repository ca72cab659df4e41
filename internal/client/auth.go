package client

import (
	"context"
	"net/http"

	"github.com/joescharf/codeassure/internal/models"
)

// LoginURL is where the browser starts the OAuth handoff.
func (c *Client) LoginURL() string {
	u := *c.baseURL
	u.Path = u.Path + "/api/auth/login"
	u.RawQuery = ""
	return u.String()
}

// CurrentUser returns the profile for the session token. Without a token no
// request is made.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	if c.tokens.Token() == "" {
		return nil, ErrNoToken
	}
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
