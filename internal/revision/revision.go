package revision

import (
	"context"
	"fmt"

	"github.com/prod9/fxbuild/internal/config"
)

// Length of abbreviated commit hashes, matching git's default abbreviation.
const shortLength = 7

// Resolves the current revision identifier.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Returns the resolver for the given source, rooted at dir.
func New(source config.RevisionSource, dir string) (Resolver, error) {
	switch source {
	case config.RevisionGit:
		return NewCommand(dir), nil
	case config.RevisionRepository:
		return &Repository{Dir: dir}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
}

// A fixed revision.
type Static string

// Returns the fixed value, failing if it is empty.
func (s Static) Resolve(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrEmptyRevision
	}
	return string(s), nil
}
