package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joescharf/codeassure/internal/git"
)

// Replaceable in tests.
var (
	gitClient git.Client       = git.NewClient()
	ghClient  git.GitHubClient = git.NewGitHubClient()
	workDir                    = func() string {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		return wd
	}
)

// currentRepo returns owner/repo of the checkout in the working directory.
func currentRepo() (string, error) {
	repo, err := git.Repo(gitClient, workDir())
	if errors.Is(err, git.ErrNoRemote) {
		return "", fmt.Errorf("no owner/repo given and the current checkout has no origin remote")
	}
	if err != nil {
		return "", fmt.Errorf("no owner/repo given: %w", err)
	}
	ui.VerboseLog("using repository %s", repo)
	return repo, nil
}
