package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/codeassure/internal/filter"
	"github.com/joescharf/codeassure/internal/models"
	"github.com/joescharf/codeassure/internal/refresh"
)

type fakeSource struct {
	mu         sync.Mutex
	snap       refresh.Snapshot
	state      models.FilterState
	refreshErr error
	refreshes  int
	triggerErr error
	triggered  []string
	updates    chan struct{}
}

func newFakeSource(reviews ...*models.Review) *fakeSource {
	return &fakeSource{
		snap:    refresh.Snapshot{Reviews: reviews, Loaded: true, UpdatedAt: time.Now()},
		state:   models.FilterState{Severity: models.SeverityAll},
		updates: make(chan struct{}, 1),
	}
}

func (f *fakeSource) User() *models.User { return &models.User{Username: "octocat"} }

func (f *fakeSource) Snapshot() refresh.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) Updates() <-chan struct{} { return f.updates }

func (f *fakeSource) Visible() []*models.Review {
	return filter.Apply(f.Snapshot().Reviews, f.Filter())
}

func (f *fakeSource) Stats() filter.Stats { return filter.Summarize(f.Snapshot().Reviews) }

func (f *fakeSource) Filter() models.FilterState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSource) SetSearch(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Search = s
}

func (f *fakeSource) SetSeverity(s models.SeverityFilter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Severity = s
}

func (f *fakeSource) ClearFilters() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = models.FilterState{Severity: models.SeverityAll}
}

func (f *fakeSource) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.refreshErr
}

func (f *fakeSource) TriggerReview(_ context.Context, repo string, pr int) (*models.ReviewAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.triggerErr != nil {
		return nil, f.triggerErr
	}
	f.triggered = append(f.triggered, fmt.Sprintf("%s#%d", repo, pr))
	return &models.ReviewAck{Status: "processing"}, nil
}

type mockClipboard struct {
	lastText string
	err      error
}

func (m *mockClipboard) WriteText(text string) error {
	if m.err != nil {
		return m.err
	}
	m.lastText = text
	return nil
}

func sample() []*models.Review {
	line := 10
	return []*models.Review{
		{ID: 1, RepoName: "acme/api", PRNumber: 12, Severity: models.SeverityHigh, Summary: "SQL injection in login handler",
			Issues: []models.Issue{
				{Type: models.IssueTypeSecurity, File: "auth.py", Line: &line, Description: "Unsanitised input",
					CodeExample: models.Diff("query(f\"{x}\")", "query(\"?\", x)")},
				{Type: models.IssueTypeStyle, Description: "Long function"},
			}},
		{ID: 2, RepoName: "acme/web", PRNumber: 7, Severity: models.SeverityLow, Summary: "Tidy CSS"},
		{ID: 3, RepoName: "acme/api", PRNumber: 13, Severity: models.SeverityMedium, Summary: "N+1 query",
			Issues: []models.Issue{{Type: models.IssueTypePerformance, CodeExample: models.Snippet("prefetch_related('x')")}}},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m model, keys ...string) model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(model)
	}
	return m
}

func run(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(model)
}

func TestView_ListShowsStatsAndRows(t *testing.T) {
	m := newModel(context.Background(), newFakeSource(sample()...))
	view := m.View()

	assert.Contains(t, view, "@octocat")
	assert.Contains(t, view, "Total")
	assert.Contains(t, view, "acme/api#12")
	assert.Contains(t, view, "acme/web#7")
	assert.Contains(t, view, "2 issues")
}

func TestSearch_TypingFilters(t *testing.T) {
	src := newFakeSource(sample()...)
	m := newModel(context.Background(), src)

	m = press(t, m, "/")
	assert.True(t, m.typing)
	m = press(t, m, "w", "e", "b")
	assert.Equal(t, "web", src.Filter().Search)
	assert.Len(t, src.Visible(), 1)

	m = press(t, m, "enter")
	assert.False(t, m.typing)
	assert.Equal(t, "web", src.Filter().Search)
}

func TestSearch_EscWhileTypingClears(t *testing.T) {
	src := newFakeSource(sample()...)
	m := newModel(context.Background(), src)

	m = press(t, m, "/", "x", "esc")
	assert.False(t, m.typing)
	assert.Empty(t, src.Filter().Search)
}

func TestSeverityCycleAndClear(t *testing.T) {
	src := newFakeSource(sample()...)
	m := newModel(context.Background(), src)

	m = press(t, m, "s")
	assert.Equal(t, models.SeverityOnlyHigh, src.Filter().Severity)
	m = press(t, m, "s")
	assert.Equal(t, models.SeverityOnlyMed, src.Filter().Severity)

	m = press(t, m, "/", "z", "z", "z", "enter")
	assert.Contains(t, m.View(), "No reviews match your filters")

	m = press(t, m, "esc")
	assert.False(t, src.Filter().Active())
	assert.Empty(t, m.search.Value())
}

func TestEmptyCollection(t *testing.T) {
	m := newModel(context.Background(), newFakeSource())
	assert.Contains(t, m.View(), "No reviews yet")
}

func TestLoadingAndError(t *testing.T) {
	src := newFakeSource()
	src.snap = refresh.Snapshot{Fetching: true}
	m := newModel(context.Background(), src)
	assert.Contains(t, m.View(), "Loading reviews")

	src.snap = refresh.Snapshot{Reviews: sample(), Loaded: true, Err: errors.New("connection refused")}
	view := m.View()
	assert.Contains(t, view, "connection refused")
	assert.Contains(t, view, "press r to retry")
	assert.Contains(t, view, "acme/api#12", "last good data stays visible")
}

func TestRefreshKey(t *testing.T) {
	src := newFakeSource(sample()...)
	src.refreshErr = errors.New("timeout")
	m := newModel(context.Background(), src)

	next, cmd := m.Update(key("r"))
	m = run(t, next.(model), cmd)

	assert.Equal(t, 1, src.refreshes)
	assert.True(t, m.flashErr)
	assert.Contains(t, m.View(), "Refresh failed: timeout")
}

func TestNavigationAndDetail(t *testing.T) {
	m := newModel(context.Background(), newFakeSource(sample()...))

	m = press(t, m, "down", "down", "down")
	assert.Equal(t, 2, m.selected)
	m = press(t, m, "up")
	assert.Equal(t, 1, m.selected)
	m = press(t, m, "up", "up")
	assert.Equal(t, 0, m.selected)

	m = press(t, m, "enter")
	require.Equal(t, viewDetail, m.view)
	view := m.View()
	assert.Contains(t, view, "acme/api#12")
	assert.Contains(t, view, "SECURITY")
	assert.Contains(t, view, "auth.py:10")
	assert.Contains(t, view, "Before:")

	m = press(t, m, "esc")
	assert.Equal(t, viewList, m.view)
}

func TestCopyCodeExample(t *testing.T) {
	cb := &mockClipboard{}
	m := newModel(context.Background(), newFakeSource(sample()...), WithClipboard(cb))

	m = press(t, m, "down", "down", "enter")
	next, cmd := m.Update(key("c"))
	m = run(t, next.(model), cmd)

	assert.Equal(t, "prefetch_related('x')", cb.lastText)
	assert.Contains(t, m.View(), "Copied to clipboard")
}

func TestCopyDiffAsJSON(t *testing.T) {
	cb := &mockClipboard{}
	m := newModel(context.Background(), newFakeSource(sample()...), WithClipboard(cb))

	m = press(t, m, "enter")
	next, cmd := m.Update(key("c"))
	run(t, next.(model), cmd)

	assert.True(t, strings.Contains(cb.lastText, `"before"`))
	assert.True(t, strings.Contains(cb.lastText, `"after"`))
}

func TestCopyWithoutExample(t *testing.T) {
	cb := &mockClipboard{}
	m := newModel(context.Background(), newFakeSource(sample()...), WithClipboard(cb))

	m = press(t, m, "enter", "down")
	next, cmd := m.Update(key("c"))
	assert.Nil(t, cmd)
	assert.Contains(t, next.(model).View(), "no code example")
	assert.Empty(t, cb.lastText)
}

func TestDetailFollowsRemoval(t *testing.T) {
	src := newFakeSource(sample()...)
	m := newModel(context.Background(), src)
	m = press(t, m, "enter")

	src.mu.Lock()
	src.snap.Reviews = sample()[1:]
	src.mu.Unlock()

	assert.Contains(t, m.View(), "no longer available")
}

func TestUpdateMsgClampsSelection(t *testing.T) {
	src := newFakeSource(sample()...)
	m := newModel(context.Background(), src)
	m = press(t, m, "down", "down")

	src.mu.Lock()
	src.snap.Reviews = sample()[:1]
	src.mu.Unlock()

	next, cmd := m.Update(updateMsg{})
	assert.NotNil(t, cmd)
	assert.Equal(t, 0, next.(model).selected)
}

func TestQuit(t *testing.T) {
	m := newModel(context.Background(), newFakeSource(sample()...))
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(key("ctrl+c"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTriggerReview_Prompt(t *testing.T) {
	src := newFakeSource(sample()...)
	m := newModel(context.Background(), src)

	m = press(t, m, "t")
	assert.True(t, m.entering)
	assert.Contains(t, m.View(), "review PR:")

	for _, r := range "acme/api#42" {
		m = press(t, m, string(r))
	}
	assert.Empty(t, src.Filter().Search, "typing into the prompt does not search")

	next, cmd := m.Update(key("enter"))
	m = next.(model)
	assert.False(t, m.entering)
	m = run(t, m, cmd)

	assert.Equal(t, []string{"acme/api#42"}, src.triggered)
	assert.Contains(t, m.View(), "Review requested for acme/api#42")
}

func TestTriggerReview_InvalidInputStaysOpen(t *testing.T) {
	src := newFakeSource(sample()...)
	m := newModel(context.Background(), src)

	m = press(t, m, "t", "a", "c", "m", "e", "enter")
	assert.True(t, m.entering)
	assert.True(t, m.flashErr)
	assert.Empty(t, src.triggered)

	m = press(t, m, "esc")
	assert.False(t, m.entering)
	assert.Empty(t, src.triggered)
}

func TestTriggerReview_Failure(t *testing.T) {
	src := newFakeSource(sample()...)
	src.triggerErr = errors.New("server down")
	m := newModel(context.Background(), src)

	m = press(t, m, "t", "a", "/", "b", " ", "3")
	next, cmd := m.Update(key("enter"))
	m = run(t, next.(model), cmd)

	assert.True(t, m.flashErr)
	assert.Contains(t, m.View(), "server down")
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in   string
		repo string
		pr   int
		ok   bool
	}{
		{"acme/api#42", "acme/api", 42, true},
		{" acme/api 7 ", "acme/api", 7, true},
		{"acme/api", "", 0, false},
		{"acme#3", "", 0, false},
		{"acme/api#0", "", 0, false},
		{"acme/api#x", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			repo, pr, err := parseTarget(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.repo, repo)
			assert.Equal(t, tt.pr, pr)
		})
	}
}

func TestWaitForUpdate_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := waitForUpdate(ctx, make(chan struct{}))

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	cancel()

	select {
	case msg := <-done:
		assert.Nil(t, msg)
	case <-time.After(time.Second):
		t.Fatal("update wait did not return after cancel")
	}
}
