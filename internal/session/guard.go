package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joescharf/codeassure/internal/logging"
	"github.com/joescharf/codeassure/internal/models"
)

// Route names a view of the dashboard.
type Route string

const (
	RouteLogin        Route = "/login"
	RouteCallback     Route = "/auth/callback"
	RouteDashboard    Route = "/"
	RouteRepositories Route = "/repositories"
	RouteSettings     Route = "/settings"
)

// Public reports whether r is reachable without a session.
func (r Route) Public() bool {
	return r == RouteLogin || r == RouteCallback
}

// Decision is the guard's verdict: either allow, or go to Redirect.
type Decision struct {
	Allow    bool
	Redirect Route
}

// Allowed is the permissive decision.
var Allowed = Decision{Allow: true}

// RedirectTo builds a redirect decision.
func RedirectTo(r Route) Decision { return Decision{Redirect: r} }

// UserFetcher looks up the profile behind the current token.
type UserFetcher interface {
	CurrentUser(ctx context.Context) (*models.User, error)
}

// Guard admits routes based on the session.
type Guard struct {
	session *Session
	logger  *slog.Logger
}

// NewGuard creates a Guard for s.
func NewGuard(s *Session) *Guard {
	return &Guard{session: s, logger: logging.With("component", "guard")}
}

// Session returns the guarded session.
func (g *Guard) Session() *Session { return g.session }

// Admit allows public routes always and protected routes only with a token.
func (g *Guard) Admit(r Route) Decision {
	if r.Public() || g.session.IsAuthenticated() {
		return Allowed
	}
	return RedirectTo(RouteLogin)
}

// ErrSessionInvalid is returned by Verify after the session was evicted.
var ErrSessionInvalid = errors.New("session invalid")

// Verify fetches the current user. Any failure evicts the session and
// redirects to the login entry point; this is the only automatic eviction.
func (g *Guard) Verify(ctx context.Context, users UserFetcher) (*models.User, Decision, error) {
	if !g.session.IsAuthenticated() {
		return nil, RedirectTo(RouteLogin), ErrSessionInvalid
	}

	user, err := users.CurrentUser(ctx)
	if err != nil {
		g.logger.Warn("current user check failed, clearing session", "error", err)
		if clearErr := g.session.Clear(ctx); clearErr != nil {
			g.logger.Error("clear session", "error", clearErr)
		}
		return nil, RedirectTo(RouteLogin), errors.Join(ErrSessionInvalid, err)
	}
	return user, Allowed, nil
}
