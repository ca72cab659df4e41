package models

import (
	"fmt"
	"strings"
)

// SeverityFilter selects reviews by severity. SeverityAll disables it.
type SeverityFilter string

const (
	SeverityAll      SeverityFilter = "all"
	SeverityOnlyHigh SeverityFilter = SeverityFilter(SeverityHigh)
	SeverityOnlyMed  SeverityFilter = SeverityFilter(SeverityMedium)
	SeverityOnlyLow  SeverityFilter = SeverityFilter(SeverityLow)
)

// SeverityFilters lists the selector values in display order.
var SeverityFilters = []SeverityFilter{SeverityAll, SeverityOnlyHigh, SeverityOnlyMed, SeverityOnlyLow}

// ParseSeverityFilter accepts all, high, medium or low (any case).
// An empty string means all.
func ParseSeverityFilter(s string) (SeverityFilter, error) {
	v := SeverityFilter(strings.ToLower(strings.TrimSpace(s)))
	if v == "" {
		return SeverityAll, nil
	}
	for _, f := range SeverityFilters {
		if v == f {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid severity %q (want all, high, medium or low)", s)
}

// Next cycles to the following selector, wrapping after low.
func (f SeverityFilter) Next() SeverityFilter {
	for i, v := range SeverityFilters {
		if v == f {
			return SeverityFilters[(i+1)%len(SeverityFilters)]
		}
	}
	return SeverityAll
}

// FilterState is the transient, client-only search and severity selection.
type FilterState struct {
	Search   string
	Severity SeverityFilter
}

// Query returns the trimmed, lower-cased search text.
func (f FilterState) Query() string {
	return strings.ToLower(strings.TrimSpace(f.Search))
}

// SeverityActive reports whether the severity selector narrows results.
func (f FilterState) SeverityActive() bool {
	return f.Severity != "" && f.Severity != SeverityAll
}

// Active reports whether any filter applies.
func (f FilterState) Active() bool {
	return f.Query() != "" || f.SeverityActive()
}
