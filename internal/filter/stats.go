package filter

import "github.com/joescharf/codeassure/internal/models"

// Stats are the headline counters shown above the review list.
type Stats struct {
	Total       int `json:"total"`
	Critical    int `json:"critical"`
	Clean       int `json:"clean"`
	IssuesFound int `json:"issues_found"`
}

// Summarize counts over the full (unfiltered) collection.
func Summarize(reviews []*models.Review) Stats {
	var s Stats
	for _, r := range reviews {
		if r == nil {
			continue
		}
		s.Total++
		if r.Severity == models.SeverityHigh {
			s.Critical++
		}
		if len(r.Issues) == 0 {
			s.Clean++
		}
		s.IssuesFound += len(r.Issues)
	}
	return s
}
