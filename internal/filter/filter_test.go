package filter

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/codeassure/internal/models"
)

func sampleReviews() []*models.Review {
	return []*models.Review{
		{ID: 1, RepoName: "facebook/react", PRNumber: 28339, Severity: models.SeverityHigh, Summary: "Null deref risk"},
		{ID: 2, RepoName: "vuejs/core", PRNumber: 10, Severity: models.SeverityLow, Summary: "style nit"},
	}
}

func ids(reviews []*models.Review) []int64 {
	out := make([]int64, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, r.ID)
	}
	return out
}

func TestApply_Scenario(t *testing.T) {
	reviews := sampleReviews()

	tests := []struct {
		name  string
		state models.FilterState
		want  []int64
	}{
		{"repo match", models.FilterState{Search: "react", Severity: models.SeverityAll}, []int64{1}},
		{"pr number match", models.FilterState{Search: "10", Severity: models.SeverityAll}, []int64{2}},
		{"severity only", models.FilterState{Severity: models.SeverityOnlyLow}, []int64{2}},
		{"summary case-insensitive", models.FilterState{Search: "  NULL DEREF "}, []int64{1}},
		{"text and severity compose", models.FilterState{Search: "react", Severity: models.SeverityOnlyLow}, []int64{}},
		{"no match", models.FilterState{Search: "angular"}, []int64{}},
		{"whitespace search ignored", models.FilterState{Search: "   ", Severity: models.SeverityAll}, []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(reviews, tt.state)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApply_IdentityWithoutFilters(t *testing.T) {
	reviews := sampleReviews()

	got := Apply(reviews, models.FilterState{Search: "", Severity: models.SeverityAll})
	require.Len(t, got, len(reviews))
	for i := range reviews {
		assert.Same(t, reviews[i], got[i])
	}

	// Zero-value state behaves like "all".
	assert.Equal(t, reviews, Apply(reviews, models.FilterState{}))
}

func TestApply_PreservesOrderAndIdentity(t *testing.T) {
	reviews := randomReviews(rand.New(rand.NewSource(42)), 200)
	states := []models.FilterState{
		{Search: "a"},
		{Search: "1", Severity: models.SeverityOnlyHigh},
		{Severity: models.SeverityOnlyMed},
		{Search: "fix"},
		{Search: "zzz-nothing"},
	}

	for _, st := range states {
		got := Apply(reviews, st)
		assertSubsequence(t, reviews, got)
		if st.SeverityActive() {
			for _, r := range got {
				assert.Equal(t, string(st.Severity), string(r.Severity))
			}
		}
	}
}

func TestApply_MalformedRecordsExcluded(t *testing.T) {
	reviews := []*models.Review{
		nil,
		{ID: 7},
		{ID: 8, RepoName: "acme/widgets", Severity: "critical"},
		nil,
	}

	assert.Equal(t, []int64{7, 8}, ids(Apply(reviews, models.FilterState{})))
	assert.Equal(t, []int64{8}, ids(Apply(reviews, models.FilterState{Search: "acme"})))
	assert.Empty(t, Apply(reviews, models.FilterState{Severity: models.SeverityOnlyHigh}))
}

func TestApply_MissingPRNumberDoesNotMatchZero(t *testing.T) {
	reviews := []*models.Review{{ID: 1, RepoName: "a/b"}}
	assert.Empty(t, Apply(reviews, models.FilterState{Search: "0"}))
}

func TestApply_NilInput(t *testing.T) {
	got := Apply(nil, models.FilterState{Search: "x"})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSafeMatch_PanicFailsClosed(t *testing.T) {
	r := &models.Review{ID: 1}
	ok := safeMatch(r, "x", func(*models.Review, string) bool { panic("boom") })
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	reviews := append(sampleReviews(), &models.Review{
		ID:       3,
		RepoName: "golang/go",
		Severity: models.SeverityHigh,
		Issues:   []models.Issue{{Type: models.IssueTypeBug}, {Type: "maintainability"}},
	}, nil)

	s := Summarize(reviews)
	assert.Equal(t, Stats{Total: 3, Critical: 2, Clean: 2, IssuesFound: 2}, s)
}

func assertSubsequence(t *testing.T, all, sub []*models.Review) {
	t.Helper()
	j := 0
	for _, r := range all {
		if j < len(sub) && sub[j] == r {
			j++
		}
	}
	assert.Equal(t, len(sub), j, "filtered result must be an ordered subsequence of the input")
}

func randomReviews(rng *rand.Rand, n int) []*models.Review {
	sev := []models.Severity{models.SeverityHigh, models.SeverityMedium, models.SeverityLow}
	words := []string{"fix", "race", "null", "leak", "style", "auth"}
	out := make([]*models.Review, n)
	for i := range out {
		out[i] = &models.Review{
			ID:       int64(i + 1),
			RepoName: fmt.Sprintf("owner%d/repo%c", rng.Intn(20), 'a'+rune(rng.Intn(26))),
			PRNumber: rng.Intn(5000),
			Severity: sev[rng.Intn(len(sev))],
			Summary:  words[rng.Intn(len(words))] + " " + words[rng.Intn(len(words))],
		}
	}
	return out
}
