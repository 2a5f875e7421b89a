package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prod9/fxbuild/internal/config"
	"github.com/prod9/fxbuild/internal/pipeline"
	"github.com/prod9/fxbuild/internal/revision"
)

// Represents the 'fxbuild publish' command.
type PublishCmd struct{}

// Builds the image once and pushes it under the latest and revision tags.
// Each published address is printed on its own line.
func (c *PublishCmd) Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	resolver, err := revision.New(cfg.RevisionSource, cfg.ContextDir)
	if err != nil {
		return err
	}

	slog.Info("publishing",
		"image", cfg.Image,
		"platform", cfg.Platform,
		"engine", cfg.Engine,
	)

	res, err := pipeline.Run(ctx, pipeline.Options{
		Config:   cfg,
		Resolver: resolver,
		Open:     engineOpener(cfg),
	})
	if err != nil {
		return err
	}

	for _, addr := range res.Published {
		fmt.Println(addr)
	}
	return nil
}
