// Package git finds the GitHub repository and pull request of a local
// checkout, so commands can default their owner/repo arguments.
package git

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoRemote is returned when the checkout has no origin remote.
var ErrNoRemote = errors.New("no origin remote")

// Client defines the git operations used to locate a checkout.
type Client interface {
	RepoRoot(path string) (string, error)
	CurrentBranch(path string) (string, error)
	RemoteURL(path string) (string, error)
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) RepoRoot(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--show-toplevel")
}

func (c *RealClient) CurrentBranch(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--abbrev-ref", "HEAD")
}

// RemoteURL returns the origin URL, or ErrNoRemote.
func (c *RealClient) RemoteURL(path string) (string, error) {
	if _, err := c.RepoRoot(path); err != nil {
		return "", err
	}
	out, err := gitCmd(path, "remote", "get-url", "origin")
	if err != nil || out == "" {
		return "", ErrNoRemote
	}
	return out, nil
}

// Repo returns the "owner/repo" name of the checkout at path.
func Repo(c Client, path string) (string, error) {
	remote, err := c.RemoteURL(path)
	if err != nil {
		return "", err
	}
	return ExtractOwnerRepo(remote)
}

// ExtractOwnerRepo parses a GitHub remote URL and returns "owner/repo".
func ExtractOwnerRepo(remoteURL string) (string, error) {
	remoteURL = strings.TrimSpace(remoteURL)

	var path string
	switch {
	// git@github.com:owner/repo.git
	case strings.HasPrefix(remoteURL, "git@"):
		_, p, ok := strings.Cut(remoteURL, ":")
		if !ok {
			return "", fmt.Errorf("cannot parse SSH remote: %s", remoteURL)
		}
		path = p
	// ssh://git@github.com/owner/repo.git, https://github.com/owner/repo
	case strings.Contains(remoteURL, "://"):
		_, rest, _ := strings.Cut(remoteURL, "://")
		_, p, ok := strings.Cut(rest, "/")
		if !ok {
			return "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
		}
		path = p
	default:
		return "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
	}

	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")
	owner, repo, ok := strings.Cut(path, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
	}
	return owner + "/" + repo, nil
}
