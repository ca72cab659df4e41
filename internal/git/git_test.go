package git

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a git repo in dir with a user config so commits work on CI.
func initTestRepo(t *testing.T, dir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	cmds := [][]string{
		{"git", "-C", dir, "init"},
		{"git", "-C", dir, "config", "user.email", "test@test.com"},
		{"git", "-C", dir, "config", "user.name", "Test"},
	}
	for _, args := range cmds {
		require.NoError(t, exec.Command(args[0], args[1:]...).Run())
	}
}

func TestExtractOwnerRepo(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"git@github.com:octocat/hello-world.git", "octocat/hello-world"},
		{"git@github.com:octocat/hello-world", "octocat/hello-world"},
		{"https://github.com/octocat/hello-world.git", "octocat/hello-world"},
		{"https://github.com/octocat/hello-world", "octocat/hello-world"},
		{"https://github.com/octocat/hello-world/", "octocat/hello-world"},
		{"ssh://git@github.com/octocat/hello-world.git", "octocat/hello-world"},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			got, err := ExtractOwnerRepo(tt.remote)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractOwnerRepo_Invalid(t *testing.T) {
	for _, remote := range []string{"not-a-url", "", "https://github.com/octocat", "git@github.com", "https://host/a/b/c"} {
		_, err := ExtractOwnerRepo(remote)
		assert.Error(t, err, remote)
	}
}

type fakeClient struct {
	remote string
	err    error
}

func (f fakeClient) RepoRoot(string) (string, error)      { return "/src", nil }
func (f fakeClient) CurrentBranch(string) (string, error) { return "main", nil }
func (f fakeClient) RemoteURL(string) (string, error)     { return f.remote, f.err }

func TestRepo(t *testing.T) {
	repo, err := Repo(fakeClient{remote: "git@github.com:acme/api.git"}, ".")
	require.NoError(t, err)
	assert.Equal(t, "acme/api", repo)

	_, err = Repo(fakeClient{err: ErrNoRemote}, ".")
	assert.ErrorIs(t, err, ErrNoRemote)
}

func TestRealClient_RemoteURL(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	c := NewClient()

	_, err := c.RemoteURL(dir)
	assert.ErrorIs(t, err, ErrNoRemote)

	require.NoError(t, exec.Command("git", "-C", dir, "remote", "add", "origin", "https://github.com/acme/api.git").Run())
	repo, err := Repo(c, dir)
	require.NoError(t, err)
	assert.Equal(t, "acme/api", repo)
}

func TestRealClient_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	_, err := NewClient().RemoteURL(t.TempDir())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRemote)
}

func TestCurrentBranch(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	require.NoError(t, exec.Command("git", "-C", dir, "commit", "--allow-empty", "-m", "init").Run())
	require.NoError(t, exec.Command("git", "-C", dir, "checkout", "-b", "feature/x").Run())

	branch, err := NewClient().CurrentBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "feature/x", branch)
}

func TestParsePullRequest(t *testing.T) {
	pr, err := parsePullRequest(`{"number":42,"title":"Fix login","state":"OPEN","headRefName":"fix/login","url":"https://github.com/acme/api/pull/42"}`)
	require.NoError(t, err)
	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "fix/login", pr.Branch)

	_, err = parsePullRequest(`{"title":"no number"}`)
	assert.Error(t, err)
	_, err = parsePullRequest(`not json`)
	assert.Error(t, err)
}
