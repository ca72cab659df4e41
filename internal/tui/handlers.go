package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joescharf/codeassure/internal/models"
)

func (m model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.typing {
		return m.handleSearchKey(msg)
	}
	if m.entering {
		return m.handleTriggerKey(msg)
	}
	if m.view == viewDetail {
		return m.handleDetailKey(msg)
	}
	return m.handleListKey(msg)
}

func (m model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "tab":
		m.typing = false
		m.search.Blur()
		return m, nil
	case "esc":
		m.typing = false
		m.search.Blur()
		m.search.SetValue("")
		m.src.SetSearch("")
		m.clampSelection()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.src.SetSearch(m.search.Value())
	m.selected = 0
	return m, cmd
}

func (m model) handleTriggerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.entering = false
		m.trigger.Blur()
		return m, nil
	case "enter":
		repo, pr, err := parseTarget(m.trigger.Value())
		if err != nil {
			m.setFlash(err.Error(), true)
			return m, nil
		}
		m.entering = false
		m.trigger.Blur()
		m.setFlash(fmt.Sprintf("Requesting review of %s#%d...", repo, pr), false)
		return m, m.triggerReview(repo, pr)
	}

	var cmd tea.Cmd
	m.trigger, cmd = m.trigger.Update(msg)
	return m, cmd
}

// parseTarget reads "owner/repo#123" or "owner/repo 123".
func parseTarget(s string) (string, int, error) {
	s = strings.TrimSpace(s)
	sep := strings.LastIndexAny(s, "# ")
	if sep < 0 {
		return "", 0, fmt.Errorf("enter owner/repo#123")
	}
	repo := strings.TrimSpace(s[:sep])
	if err := models.ValidateRepo(repo); err != nil {
		return "", 0, err
	}
	pr, err := strconv.Atoi(strings.TrimSpace(s[sep+1:]))
	if err != nil || pr <= 0 {
		return "", 0, fmt.Errorf("invalid pull request number %q", s[sep+1:])
	}
	return repo, pr, nil
}

func (m model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.typing = true
		return m, m.search.Focus()
	case "s":
		f := m.src.Filter()
		m.src.SetSeverity(f.Severity.Next())
		m.selected = 0
		return m, nil
	case "esc":
		m.src.ClearFilters()
		m.search.SetValue("")
		m.selected = 0
		return m, nil
	case "r":
		m.setFlash("Refreshing...", false)
		return m, m.refresh()
	case "t":
		m.entering = true
		m.trigger.SetValue("")
		return m, m.trigger.Focus()
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down", "j":
		if m.selected < len(m.src.Visible())-1 {
			m.selected++
		}
		return m, nil
	case "home", "g":
		m.selected = 0
		return m, nil
	case "end", "G":
		m.selected = max(len(m.src.Visible())-1, 0)
		return m, nil
	case "enter":
		visible := m.src.Visible()
		if m.selected < len(visible) {
			m.view = viewDetail
			m.current = visible[m.selected].ID
			m.detail = 0
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	review := m.currentReview()
	switch msg.String() {
	case "q", "esc", "backspace":
		m.view = viewList
		return m, nil
	case "r":
		m.setFlash("Refreshing...", false)
		return m, m.refresh()
	case "up", "k":
		if m.detail > 0 {
			m.detail--
		}
		return m, nil
	case "down", "j":
		if review != nil && m.detail < len(review.Issues)-1 {
			m.detail++
		}
		return m, nil
	case "c", "y":
		if review == nil || m.detail >= len(review.Issues) {
			m.setFlash("No issue selected", true)
			return m, nil
		}
		ex := review.Issues[m.detail].CodeExample
		if ex.IsZero() {
			m.setFlash("Issue has no code example", true)
			return m, nil
		}
		return m, m.copyText(ex.CopyText())
	}
	return m, nil
}

// currentReview looks up the opened review in the latest snapshot, so the
// detail view follows refreshes and closes gracefully if it disappears.
func (m model) currentReview() *models.Review {
	for _, r := range m.src.Snapshot().Reviews {
		if r != nil && r.ID == m.current {
			return r
		}
	}
	return nil
}
