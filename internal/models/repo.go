package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRepo is returned for names not in owner/repo form.
var ErrInvalidRepo = errors.New("invalid repository name")

// ValidateRepo checks that name is "owner/repo" with both parts present.
func ValidateRepo(name string) error {
	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidRepo, name)
	}
	owner, repo, ok := strings.Cut(name, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return fmt.Errorf("%w: %q (expected owner/repo)", ErrInvalidRepo, name)
	}
	return nil
}
