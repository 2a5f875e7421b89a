package revision

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// Resolves the revision by reading HEAD from the git repository containing
// Dir, without invoking a git executable.
type Repository struct {
	Dir string
}

// Returns the first 7 characters of the commit hash HEAD points at.
//
// Unlike "git rev-parse --short", the abbreviation is not extended when it is
// ambiguous within the repository.
func (r *Repository) Resolve(ctx context.Context) (string, error) {
	repo, err := git.PlainOpenWithOptions(r.Dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrResolve, r.Dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("%w: HEAD: %w", ErrResolve, err)
	}

	hash := head.Hash().String()
	if len(hash) < shortLength {
		return "", fmt.Errorf("%w: %w", ErrResolve, ErrEmptyRevision)
	}
	return hash[:shortLength], nil
}
