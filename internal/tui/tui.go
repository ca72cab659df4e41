// Package tui is the interactive review dashboard.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "125", Dark: "205"})

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "246"})

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "153", Dark: "24"})

	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}).Bold(true)
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "136", Dark: "226"})
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "46"})

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}).Bold(true)
	flashStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "46"})

	statLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "246"})
	statValueStyle = lipgloss.NewStyle().Bold(true)

	codeStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "250", Dark: "238"}).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "246"})
)

type model struct {
	ctx       context.Context
	src       Source
	clipboard ClipboardWriter

	view     viewKind
	search   textinput.Model
	typing   bool
	trigger  textinput.Model
	entering bool // trigger prompt focused
	selected int
	detail   int // selected issue in detail view
	current  int64

	width  int
	height int

	flash    string
	flashErr bool
}

func newModel(ctx context.Context, src Source, opts ...Option) model {
	ti := textinput.New()
	ti.Placeholder = "search repo, PR number or summary"
	ti.Prompt = "/ "
	ti.CharLimit = 200
	ti.SetValue(src.Filter().Search)

	tr := textinput.New()
	tr.Placeholder = "owner/repo#123"
	tr.Prompt = "review PR: "
	tr.CharLimit = 200

	m := model{
		ctx:       ctx,
		src:       src,
		clipboard: &realClipboard{},
		search:    ti,
		trigger:   tr,
		width:     100,
		height:    30,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Run shows the dashboard until the user quits or ctx is done.
func Run(ctx context.Context, src Source, opts ...Option) error {
	p := tea.NewProgram(newModel(ctx, src, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tea.WindowSize(),
		waitForUpdate(m.ctx, m.src.Updates()),
	)
}

func waitForUpdate(ctx context.Context, ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ch:
			return updateMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m model) refresh() tea.Cmd {
	src, ctx := m.src, m.ctx
	return func() tea.Msg {
		return refreshResultMsg{err: src.Refresh(ctx)}
	}
}

func (m model) triggerReview(repo string, pr int) tea.Cmd {
	src, ctx := m.src, m.ctx
	ref := fmt.Sprintf("%s#%d", repo, pr)
	return func() tea.Msg {
		_, err := src.TriggerReview(ctx, repo, pr)
		return triggerResultMsg{ref: ref, err: err}
	}
}

func (m model) copyText(text string) tea.Cmd {
	cb := m.clipboard
	return func() tea.Msg {
		return clipboardResultMsg{err: cb.WriteText(text)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case updateMsg:
		m.clampSelection()
		return m, waitForUpdate(m.ctx, m.src.Updates())
	case refreshResultMsg:
		if msg.err != nil {
			m.setFlash("Refresh failed: "+msg.err.Error(), true)
		} else {
			m.setFlash("Refreshed", false)
		}
		m.clampSelection()
		return m, nil
	case triggerResultMsg:
		if msg.err != nil {
			m.setFlash("Review request failed: "+msg.err.Error(), true)
		} else {
			m.setFlash("Review requested for "+msg.ref+", the list refreshes shortly", false)
		}
		return m, nil
	case clipboardResultMsg:
		if msg.err != nil {
			m.setFlash("Copy failed: "+msg.err.Error(), true)
		} else {
			m.setFlash("Copied to clipboard", false)
		}
		return m, nil
	}
	return m, nil
}

func (m *model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

func (m *model) clampSelection() {
	n := len(m.src.Visible())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}
