// Package filter derives the visible review subset from a fetched
// collection and the user's search/severity selection.
package filter

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/joescharf/codeassure/internal/models"
)

// Apply returns the reviews matching state, in input order. It never panics:
// a record whose evaluation fails is excluded, and a failure of the whole
// pass yields an empty result.
func Apply(reviews []*models.Review, state models.FilterState) (out []*models.Review) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("review filter failed", "panic", r)
			out = []*models.Review{}
		}
	}()

	query := state.Query()
	out = make([]*models.Review, 0, len(reviews))
	for _, r := range reviews {
		if r == nil {
			continue
		}
		if query != "" && !safeMatch(r, query, matchesText) {
			continue
		}
		if state.SeverityActive() && !safeMatch(r, string(state.Severity), matchesSeverity) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// safeMatch evaluates one predicate, treating a panic as "no match".
func safeMatch(r *models.Review, arg string, pred func(*models.Review, string) bool) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			slog.Warn("review filter evaluation failed", "review_id", r.ID, "panic", p)
			ok = false
		}
	}()
	return pred(r, arg)
}

func matchesText(r *models.Review, query string) bool {
	if strings.Contains(strings.ToLower(r.RepoName), query) {
		return true
	}
	if r.PRNumber > 0 && strings.Contains(strconv.Itoa(r.PRNumber), query) {
		return true
	}
	return strings.Contains(strings.ToLower(r.Summary), query)
}

func matchesSeverity(r *models.Review, severity string) bool {
	return string(r.Severity) == severity
}
