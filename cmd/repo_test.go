package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/codeassure/internal/git"
)

type fakeGit struct {
	remote string
	err    error
}

func (f fakeGit) RepoRoot(string) (string, error)      { return "/src/api", nil }
func (f fakeGit) CurrentBranch(string) (string, error) { return "fix/login", nil }
func (f fakeGit) RemoteURL(string) (string, error)     { return f.remote, f.err }

type fakeGH struct {
	pr  *git.PullRequest
	err error
}

func (f fakeGH) CurrentPR(string) (*git.PullRequest, error) { return f.pr, f.err }

func withCheckout(t *testing.T, g git.Client, gh git.GitHubClient) {
	t.Helper()
	origGit, origGH, origWD := gitClient, ghClient, workDir
	gitClient, ghClient = g, gh
	workDir = func() string { return "/src/api" }
	t.Cleanup(func() { gitClient, ghClient, workDir = origGit, origGH, origWD })
}

func TestResolveTriggerTarget(t *testing.T) {
	testEnv(t)
	captureUI(t)
	withCheckout(t,
		fakeGit{remote: "git@github.com:acme/api.git"},
		fakeGH{pr: &git.PullRequest{Number: 42, Title: "Fix login"}},
	)

	tests := []struct {
		name     string
		args     []string
		wantRepo string
		wantPR   string
	}{
		{"explicit", []string{"acme/web", "7"}, "acme/web", "7"},
		{"pr only", []string{"9"}, "acme/api", "9"},
		{"repo only", []string{"acme/web"}, "acme/web", "42"},
		{"nothing", nil, "acme/api", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, pr, err := resolveTriggerTarget(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRepo, repo)
			assert.Equal(t, tt.wantPR, pr)
		})
	}
}

func TestResolveTriggerTarget_NoRemote(t *testing.T) {
	testEnv(t)
	captureUI(t)
	withCheckout(t, fakeGit{err: git.ErrNoRemote}, fakeGH{})

	_, _, err := resolveTriggerTarget([]string{"3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no origin remote")
}

func TestResolveTriggerTarget_NoPullRequest(t *testing.T) {
	testEnv(t)
	captureUI(t)
	withCheckout(t, fakeGit{remote: "https://github.com/acme/api"}, fakeGH{err: errors.New("no pull requests found")})

	_, _, err := resolveTriggerTarget(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass the PR number")
}

func TestTriggerCommand_UsesCheckout(t *testing.T) {
	testEnv(t)
	captureUI(t)
	srv := withServer(t, testToken)
	withCheckout(t, fakeGit{remote: "git@github.com:acme/api.git"}, fakeGH{pr: &git.PullRequest{Number: 5}})

	reviewsTriggerCmd.SetContext(context.Background())
	require.NoError(t, reviewsTriggerCmd.RunE(reviewsTriggerCmd, nil))
	assert.Equal(t, []string{"acme/api#5"}, srv.ManualReviews())
}
