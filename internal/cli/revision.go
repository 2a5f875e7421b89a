package cli

import (
	"context"
	"fmt"

	"github.com/prod9/fxbuild/internal/config"
	"github.com/prod9/fxbuild/internal/pipeline"
	"github.com/prod9/fxbuild/internal/revision"
)

// Represents the 'fxbuild revision' command.
type RevisionCmd struct{}

// Prints the resolved revision.
func (c *RevisionCmd) Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	resolver, err := revision.New(cfg.RevisionSource, cfg.ContextDir)
	if err != nil {
		return err
	}

	rev, err := pipeline.Resolve(ctx, resolver, cfg.ExecuteTimeout)
	if err != nil {
		return err
	}

	fmt.Println(rev)
	return nil
}
