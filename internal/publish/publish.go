package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Tag that always points at the most recent build.
const LatestTag = "latest"

// Wraps every failed run of [Publish]. Callers test for it with errors.Is;
// the individual push errors are joined beneath it.
var ErrPublish = errors.New("publish failed")

// Pushes an image under a reference. Satisfied by engine artifacts.
type Pusher interface {
	Publish(ctx context.Context, ref string) (string, error)
}

// Returns the references an image is published under: the moving latest tag
// followed by the immutable revision tag.
func Tags(repository, revision string) []string {
	return []string{
		repository + ":" + LatestTag,
		repository + ":" + revision,
	}
}

// Pushes the image under every reference concurrently.
//
// Every push runs to completion even when another fails; pushes that already
// succeeded are not rolled back. The returned slice holds the published
// address of each reference in input order, empty for failed pushes. The
// error joins every failure.
func Publish(ctx context.Context, p Pusher, refs []string) ([]string, error) {
	published := make([]string, len(refs))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	// Failures are collected rather than returned to the group, so that no
	// push is abandoned because a sibling failed.
	for i, ref := range refs {
		g.Go(func() error {
			addr, err := p.Publish(ctx, ref)
			if err != nil {
				slog.Error("push failed", "ref", ref, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", ref, err))
				mu.Unlock()
				return nil
			}
			slog.Info("pushed", "ref", ref, "address", addr)
			published[i] = addr
			return nil
		})
	}
	_ = g.Wait() // Always nil: errors are in errs.

	if len(errs) > 0 {
		return published, fmt.Errorf("%w: %w", ErrPublish, errors.Join(errs...))
	}
	return published, nil
}
