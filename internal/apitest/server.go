// Package apitest is an in-process stand-in for the CodeAssure backend,
// used by tests across the module.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/joescharf/codeassure/internal/models"
)

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
}

// Server serves the review, auth and embedding endpoints from memory.
// Behaviour is changed between calls with the Set*/Fail* methods.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	validToken    string
	user          models.User
	reviews       []*models.Review
	rawReviews    json.RawMessage
	reviewsStatus int
	meStatus      int
	embedStatus   int
	statusErr     int
	embedded      map[string]models.EmbeddingStatus

	requests      []Request
	manualReviews []string
	embedRequests []string
	statusChecks  map[string]int
}

// NewServer starts a fake backend accepting validToken and closes it when
// the test ends.
func NewServer(t *testing.T, validToken string) *Server {
	t.Helper()
	s := &Server{
		validToken:   validToken,
		user:         models.User{ID: 1, Username: "octocat", AvatarURL: "https://avatars.example/octocat", GitHubID: 583231},
		embedded:     map[string]models.EmbeddingStatus{},
		statusChecks: map[string]int{},
	}
	s.Server = httptest.NewServer(s.Router())
	t.Cleanup(s.Close)
	return s
}

// Router returns the handler for the fake API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/reviews/{$}", s.listReviews)
	mux.HandleFunc("GET /api/reviews/{id}", s.getReview)
	mux.HandleFunc("POST /api/test/manual-review", s.manualReview)
	mux.HandleFunc("GET /api/test/health", s.health)
	mux.HandleFunc("GET /api/auth/me", s.me)
	mux.HandleFunc("POST /api/embeddings/embed-repository", s.embedRepository)
	mux.HandleFunc("GET /api/embeddings/embedding-status", s.embeddingStatus)

	return s.record(mux)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// --- Setters ---

// SetReviews replaces the collection returned by the list endpoint.
func (s *Server) SetReviews(reviews ...*models.Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews = reviews
	s.rawReviews = nil
}

// SetRawReviews makes the list endpoint return raw as its "reviews" field.
func (s *Server) SetRawReviews(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawReviews = json.RawMessage(raw)
}

// FailReviews makes the list endpoint answer with status (0 restores 200).
func (s *Server) FailReviews(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviewsStatus = status
}

// FailMe makes /api/auth/me answer with status (0 restores normal checks).
func (s *Server) FailMe(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meStatus = status
}

// FailEmbed makes the embed endpoint answer with status.
func (s *Server) FailEmbed(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedStatus = status
}

// FailStatus makes the embedding status endpoint answer with status.
func (s *Server) FailStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusErr = status
}

// SetEmbedded sets the status reported for repo.
func (s *Server) SetEmbedded(repo string, st models.EmbeddingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedded[repo] = st
}

// --- Inspection ---

// Requests returns a copy of all recorded calls.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CountRequests counts recorded calls to method+path.
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// ManualReviews returns "repo#pr" for each accepted manual review.
func (s *Server) ManualReviews() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.manualReviews...)
}

// EmbedRequests returns the repos passed to the embed endpoint.
func (s *Server) EmbedRequests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.embedRequests...)
}

// StatusChecks returns how often repo's status was queried.
func (s *Server) StatusChecks(repo string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusChecks[repo]
}

// --- Handlers ---

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reviewsStatus != 0 {
		writeDetail(w, s.reviewsStatus, "reviews unavailable")
		return
	}
	if s.rawReviews != nil {
		writeJSON(w, http.StatusOK, map[string]any{"reviews": s.rawReviews})
		return
	}
	reviews := s.reviews
	if reviews == nil {
		reviews = []*models.Review{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews, "count": len(reviews)})
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid review id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rv := range s.reviews {
		if rv != nil && rv.ID == id {
			writeJSON(w, http.StatusOK, rv)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Review not found")
}

func (s *Server) manualReview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	repo := q.Get("repo")
	pr, err := strconv.Atoi(q.Get("pr_number"))
	if repo == "" || err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "repo and pr_number are required")
		return
	}

	s.mu.Lock()
	s.manualReviews = append(s.manualReviews, fmt.Sprintf("%s#%d", repo, pr))
	s.mu.Unlock()

	prURL := fmt.Sprintf("https://github.com/%s/pull/%d", repo, pr)
	writeJSON(w, http.StatusOK, models.ReviewAck{
		Status:  "processing",
		Message: fmt.Sprintf("Analyzing %s#%d", repo, pr),
		PRURL:   prURL,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"groq_configured": true, "github_configured": true})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meStatus != 0 {
		writeDetail(w, s.meStatus, "user lookup failed")
		return
	}
	if tok := r.URL.Query().Get("token"); tok == "" || tok != s.validToken {
		writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, s.user)
}

func (s *Server) embedRepository(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embedStatus != 0 {
		writeDetail(w, s.embedStatus, "embedding unavailable")
		return
	}
	s.embedRequests = append(s.embedRequests, repo)
	writeJSON(w, http.StatusOK, models.EmbeddingAck{
		Status:  "processing",
		Message: "Embedding repository: " + repo,
	})
}

func (s *Server) embeddingStatus(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.statusChecks[repo]++
	if s.statusErr != 0 {
		writeDetail(w, s.statusErr, "status unavailable")
		return
	}
	st, ok := s.embedded[repo]
	if !ok {
		st = models.EmbeddingStatus{Embedded: false}
	}
	writeJSON(w, http.StatusOK, st)
}
