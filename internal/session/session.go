// Package session owns the persisted bearer token and decides which routes
// a viewer may enter.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joescharf/codeassure/internal/store"
)

// TokenKey is the fixed storage key of the bearer token.
const TokenKey = "auth_token"

// Session is the process-wide credential. It is written by the login
// callback, logout and the guard, and read by every outbound request.
type Session struct {
	store store.Store

	mu    sync.RWMutex
	token string
}

// Load reads the persisted token (if any) from st.
func Load(ctx context.Context, st store.Store) (*Session, error) {
	s := &Session{store: st}
	tok, err := st.Get(ctx, TokenKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load session: %w", err)
	}
	s.token = tok
	return s, nil
}

// Token returns the current token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a non-empty token is present.
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// SetToken persists tok and makes it current.
func (s *Session) SetToken(ctx context.Context, tok string) error {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return errors.New("empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(ctx, TokenKey, tok); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.token = tok
	return nil
}

// Clear removes the token from memory and storage. The in-memory token is
// dropped even if storage fails.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if err := s.store.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Logout clears the session after confirm returns true. It reports whether
// the session was cleared.
func (s *Session) Logout(ctx context.Context, confirm func() bool) (bool, error) {
	if confirm != nil && !confirm() {
		return false, nil
	}
	if err := s.Clear(ctx); err != nil {
		return true, err
	}
	return true, nil
}
