package cli

import (
	"context"
	"os"

	"github.com/prod9/fxbuild/internal/config"
	"github.com/prod9/fxbuild/internal/pipeline"
	"github.com/prod9/fxbuild/internal/plan"
	"github.com/prod9/fxbuild/internal/revision"
	"gopkg.in/yaml.v3"
)

// Represents the 'fxbuild plan' command.
type PlanCmd struct {
	Revision string `short:"r" help:"Use this revision instead of resolving it." placeholder:"REV"`
}

// Prints the build plan as YAML.
func (c *PlanCmd) Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var resolver revision.Resolver = revision.Static(c.Revision)
	if c.Revision == "" {
		if resolver, err = revision.New(cfg.RevisionSource, cfg.ContextDir); err != nil {
			return err
		}
	}

	rev, err := pipeline.Resolve(ctx, resolver, cfg.ExecuteTimeout)
	if err != nil {
		return err
	}

	p, err := plan.New(plan.Options{Platform: cfg.Platform, Revision: rev})
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}
