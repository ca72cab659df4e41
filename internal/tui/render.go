package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/codeassure/internal/models"
	"github.com/joescharf/codeassure/internal/output"
)

func (m model) View() string {
	if m.view == viewDetail {
		return m.renderDetail()
	}
	return m.renderList()
}

func severityBadge(s models.Severity) string {
	label := strings.ToUpper(string(s))
	switch s {
	case models.SeverityHigh:
		return highStyle.Render(label)
	case models.SeverityMedium:
		return mediumStyle.Render(label)
	case models.SeverityLow:
		return lowStyle.Render(label)
	default:
		if label == "" {
			label = "-"
		}
		return statusStyle.Render(label)
	}
}

func (m model) renderHeader(b *strings.Builder) {
	title := titleStyle.Render("CodeAssure")
	if u := m.src.User(); u != nil {
		title += statusStyle.Render("  @" + u.Username)
	}
	b.WriteString(title + "\n\n")
}

func (m model) renderStats(b *strings.Builder) {
	st := m.src.Stats()
	stat := func(label string, v int) string {
		return statLabelStyle.Render(label+" ") + statValueStyle.Render(fmt.Sprint(v))
	}
	b.WriteString(strings.Join([]string{
		stat("Total", st.Total),
		stat("Critical", st.Critical),
		stat("Clean", st.Clean),
		stat("Issues", st.IssuesFound),
	}, "   "))
	b.WriteString("\n\n")
}

func (m model) renderStatus(b *strings.Builder) {
	snap := m.src.Snapshot()
	switch {
	case m.flash != "" && m.flashErr:
		b.WriteString(errorStyle.Render(m.flash))
	case snap.Err != nil:
		msg := "Failed to load reviews: " + snap.Err.Error() + " (press r to retry)"
		b.WriteString(errorStyle.Render(msg))
	case m.flash != "":
		b.WriteString(flashStyle.Render(m.flash))
	case !snap.Loaded:
		b.WriteString(statusStyle.Render("Loading reviews..."))
	default:
		line := "Updated " + snap.UpdatedAt.Format("15:04:05")
		if snap.Fetching {
			line += "  (refreshing)"
		}
		b.WriteString(statusStyle.Render(line))
	}
	b.WriteString("\n")
}

func (m model) renderList() string {
	var b strings.Builder
	m.renderHeader(&b)
	m.renderStats(&b)

	f := m.src.Filter()
	b.WriteString(m.search.View())
	sev := string(f.Severity)
	if sev == "" {
		sev = string(models.SeverityAll)
	}
	b.WriteString("   " + statLabelStyle.Render("severity: ") + sev + "\n")
	if m.entering {
		b.WriteString(m.trigger.View() + "\n")
	}
	b.WriteString("\n")

	snap := m.src.Snapshot()
	visible := m.src.Visible()

	switch {
	case !snap.Loaded && snap.Err == nil:
		// status line covers it
	case len(snap.Reviews) == 0:
		b.WriteString(statusStyle.Render("No reviews yet. Press t to request one.") + "\n")
	case len(visible) == 0:
		b.WriteString(statusStyle.Render("No reviews match your filters. Press esc to clear.") + "\n")
	default:
		m.renderRows(&b, visible)
	}

	b.WriteString("\n")
	m.renderStatus(&b)
	b.WriteString(helpStyle.Render("↑/↓ move  enter open  / search  s severity  esc clear  t review PR  r refresh  q quit"))
	return b.String()
}

func (m model) renderRows(b *strings.Builder, visible []*models.Review) {
	// Header, stats, search, status and help take about 10 lines.
	rows := max(m.height-10, 3)
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	end := min(start+rows, len(visible))

	refWidth := 0
	for _, r := range visible[start:end] {
		refWidth = max(refWidth, lipgloss.Width(r.Ref()))
	}
	summaryWidth := max(m.width-refWidth-30, 20)

	for i := start; i < end; i++ {
		r := visible[i]
		issues := fmt.Sprintf("%d issues", len(r.Issues))
		if len(r.Issues) == 1 {
			issues = "1 issue"
		}
		created := "-"
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format("Jan 02 15:04")
		}
		line := fmt.Sprintf("%-*s  %s  %-*s  %9s  %s",
			refWidth, r.Ref(),
			lipgloss.PlaceHorizontal(6, lipgloss.Left, severityBadge(r.Severity)),
			summaryWidth, output.Truncate(r.Summary, summaryWidth),
			issues, created)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if len(visible) > end-start {
		b.WriteString(statusStyle.Render(fmt.Sprintf("%d of %d", m.selected+1, len(visible))) + "\n")
	}
}

func (m model) renderDetail() string {
	var b strings.Builder
	m.renderHeader(&b)

	r := m.currentReview()
	if r == nil {
		b.WriteString(statusStyle.Render("This review is no longer available.") + "\n\n")
		b.WriteString(helpStyle.Render("esc back  q back"))
		return b.String()
	}

	b.WriteString(titleStyle.Render(r.Ref()) + "  " + severityBadge(r.Severity) + "\n")
	if r.PRURL != "" {
		b.WriteString(statusStyle.Render(r.PRURL) + "\n")
	}
	if !r.CreatedAt.IsZero() {
		b.WriteString(statusStyle.Render("Reviewed "+r.CreatedAt.Format("2006-01-02 15:04")) + "\n")
	}
	b.WriteString("\n" + lipgloss.NewStyle().Width(max(m.width-2, 20)).Render(r.Summary) + "\n\n")

	if len(r.Issues) == 0 {
		b.WriteString(lowStyle.Render("No issues found.") + "\n")
	}
	for i, issue := range r.Issues {
		m.renderIssue(&b, i, issue)
	}

	b.WriteString("\n")
	m.renderStatus(&b)
	b.WriteString(helpStyle.Render("↑/↓ select issue  c copy code example  r refresh  esc back"))
	return b.String()
}

func (m model) renderIssue(b *strings.Builder, i int, issue models.Issue) {
	label := output.IssueTypeColor(string(issue.Type), issue.Type.Label())
	head := fmt.Sprintf("%d. [%s]", i+1, label)
	if loc := issue.Location(); loc != "" {
		head += " " + loc
	}
	if i == m.detail {
		head = selectedStyle.Render(head)
	}
	b.WriteString(head + "\n")

	width := max(m.width-6, 20)
	body := lipgloss.NewStyle().Width(width).PaddingLeft(3)
	if issue.Description != "" {
		b.WriteString(body.Render(issue.Description) + "\n")
	}
	if issue.Suggestion != "" {
		b.WriteString(body.Render("Suggestion: "+issue.Suggestion) + "\n")
	}

	ex := issue.CodeExample
	switch ex.Kind {
	case models.CodeExampleSnippet:
		b.WriteString(indent(codeStyle.Render(ex.Snippet), 3) + "\n")
	case models.CodeExampleDiff:
		b.WriteString(indent(statusStyle.Render("Before:"), 3) + "\n")
		b.WriteString(indent(codeStyle.Render(ex.Before), 3) + "\n")
		b.WriteString(indent(statusStyle.Render("After:"), 3) + "\n")
		b.WriteString(indent(codeStyle.Render(ex.After), 3) + "\n")
	}
	b.WriteString("\n")
}

func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}
