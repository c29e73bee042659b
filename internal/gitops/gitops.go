package gitops

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// Unknown is recorded when no commit can be resolved.
const Unknown = "unknown"

// HeadCommit returns the commit hash checked out in the repository that
// contains dir, or Unknown if dir is not inside a git repository.
func HeadCommit(dir string) string {
	hash, err := ResolveHead(dir)
	if err != nil {
		return Unknown
	}
	return hash
}

// ResolveHead is HeadCommit with the failure reported.
func ResolveHead(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}
