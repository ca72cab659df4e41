package git

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// PullRequest represents a GitHub pull request.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	Branch string `json:"headRefName"`
	URL    string `json:"url"`
}

// GitHubClient wraps the gh CLI for pull request metadata.
type GitHubClient interface {
	// CurrentPR returns the pull request of the branch checked out at path.
	CurrentPR(path string) (*PullRequest, error)
}

// RealGitHubClient implements GitHubClient using the gh CLI.
type RealGitHubClient struct{}

// NewGitHubClient returns a new RealGitHubClient.
func NewGitHubClient() *RealGitHubClient {
	return &RealGitHubClient{}
}

func ghCmd(dir string, args ...string) (string, error) {
	cmd := exec.Command("gh", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("gh %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("gh %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealGitHubClient) CurrentPR(path string) (*PullRequest, error) {
	out, err := ghCmd(path, "pr", "view", "--json", "number,title,state,headRefName,url")
	if err != nil {
		return nil, err
	}
	return parsePullRequest(out)
}

func parsePullRequest(out string) (*PullRequest, error) {
	var pr PullRequest
	if err := json.Unmarshal([]byte(out), &pr); err != nil {
		return nil, fmt.Errorf("parse PR: %w", err)
	}
	if pr.Number <= 0 {
		return nil, fmt.Errorf("parse PR: missing number")
	}
	return &pr, nil
}
