package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity is the coarse priority of a review.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Known reports whether s is one of high, medium or low.
func (s Severity) Known() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Review is a stored AI assessment of one pull request. Reviews are never
// mutated after decoding; a refresh replaces the whole collection.
type Review struct {
	ID        int64     `json:"id"`
	RepoName  string    `json:"repo_name"`
	PRNumber  int       `json:"pr_number"`
	PRURL     string    `json:"pr_url"`
	Severity  Severity  `json:"severity"`
	Summary   string    `json:"summary"`
	Issues    []Issue   `json:"issues"`
	Status    string    `json:"status,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

// Ref returns the "owner/repo#123" form used in listings.
func (r *Review) Ref() string {
	if r.PRNumber <= 0 {
		return r.RepoName
	}
	return fmt.Sprintf("%s#%d", r.RepoName, r.PRNumber)
}

// ReviewAck is the acknowledgement returned when a manual review is queued.
type ReviewAck struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	PRURL   string `json:"pr_url"`
}

// Timestamp decodes both RFC 3339 and the backend's naive ISO timestamps.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
