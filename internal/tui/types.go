package tui

import (
	"context"

	"github.com/atotto/clipboard"

	"github.com/joescharf/codeassure/internal/filter"
	"github.com/joescharf/codeassure/internal/models"
	"github.com/joescharf/codeassure/internal/refresh"
)

type viewKind int

const (
	viewList viewKind = iota
	viewDetail
)

// Source is the view-model the TUI renders. *dashboard.Dashboard
// satisfies it.
type Source interface {
	User() *models.User
	Snapshot() refresh.Snapshot
	Updates() <-chan struct{}
	Visible() []*models.Review
	Stats() filter.Stats
	Filter() models.FilterState
	SetSearch(string)
	SetSeverity(models.SeverityFilter)
	ClearFilters()
	Refresh(ctx context.Context) error
	TriggerReview(ctx context.Context, repo string, pr int) (*models.ReviewAck, error)
}

// updateMsg is delivered whenever the source signals new state.
type updateMsg struct{}

type refreshResultMsg struct {
	err error
}

type triggerResultMsg struct {
	ref string
	err error
}

type clipboardResultMsg struct {
	err error
}

// ClipboardWriter abstracts clipboard access for testing.
type ClipboardWriter interface {
	WriteText(text string) error
}

type realClipboard struct{}

func (r *realClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// Option configures the TUI model.
type Option func(*model)

// WithClipboard replaces the system clipboard.
func WithClipboard(c ClipboardWriter) Option {
	return func(m *model) { m.clipboard = c }
}
