package session

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
)

// HandleCallback completes the OAuth handoff: the token query parameter is
// persisted and the viewer goes to the dashboard; without one, back to login.
func HandleCallback(ctx context.Context, s *Session, query url.Values) (Route, error) {
	tok := strings.TrimSpace(query.Get("token"))
	if tok == "" {
		return RouteLogin, nil
	}
	if err := s.SetToken(ctx, tok); err != nil {
		return RouteLogin, err
	}
	return RouteDashboard, nil
}

// CallbackResult is delivered once per callback request.
type CallbackResult struct {
	Route Route
	Err   error
}

// CallbackServer receives the browser redirect at /auth/callback.
type CallbackServer struct {
	session *Session
	results chan CallbackResult
}

// NewCallbackServer creates a handler storing tokens into s.
func NewCallbackServer(s *Session) *CallbackServer {
	return &CallbackServer{session: s, results: make(chan CallbackResult, 1)}
}

// Results yields the outcome of each callback.
func (c *CallbackServer) Results() <-chan CallbackResult { return c.results }

// Handler returns the HTTP routes of the callback listener.
func (c *CallbackServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+string(RouteCallback), c.callback)
	return mux
}

func (c *CallbackServer) callback(w http.ResponseWriter, r *http.Request) {
	route, err := HandleCallback(r.Context(), c.session, r.URL.Query())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	switch {
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "<p>Login failed: %s</p>", html.EscapeString(err.Error()))
	case route == RouteDashboard:
		fmt.Fprint(w, "<p>Logged in to CodeAssure. You can close this window.</p>")
	default:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "<p>No token received. Run <code>codeassure login</code> again.</p>")
	}

	select {
	case c.results <- CallbackResult{Route: route, Err: err}:
	default:
	}
}
