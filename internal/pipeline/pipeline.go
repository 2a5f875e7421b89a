package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prod9/fxbuild/internal/buildctx"
	"github.com/prod9/fxbuild/internal/config"
	"github.com/prod9/fxbuild/internal/engine"
	"github.com/prod9/fxbuild/internal/paths"
	"github.com/prod9/fxbuild/internal/plan"
	"github.com/prod9/fxbuild/internal/publish"
	"github.com/prod9/fxbuild/internal/revision"
)

// Opens the build engine for a run.
type Opener func(ctx context.Context) (engine.Engine, error)

// Inputs to a run.
type Options struct {
	Config   config.Config     // Validated configuration.
	Resolver revision.Resolver // Source of the revision tag.
	Open     Opener            // Opens the engine once local preparation succeeded.
}

// Outcome of a successful run.
type Result struct {
	Revision  string   // Resolved revision identifier.
	Refs      []string // Tags the image was pushed under.
	Published []string // Registry addresses reported for each tag.
}

// Executes a run: revision, context, plan, build, optional export, publish.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config

	rev, err := Resolve(ctx, opts.Resolver, cfg.ExecuteTimeout)
	if err != nil {
		return nil, err
	}
	slog.Info("resolved revision", "revision", rev)

	bc, err := buildctx.Stage(cfg.ContextDir, cfg.Excludes)
	if err != nil {
		return nil, err
	}
	slog.Info("staged build context", "root", bc.Root(), "files", len(bc.Files()))

	p, err := plan.New(plan.Options{Platform: cfg.Platform, Revision: rev})
	if err != nil {
		return nil, err
	}

	slog.Info("planned build", "stages", p.Order(), "target", p.Target(), "platform", p.Platform())

	eng, err := opts.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			slog.Warn("failed to close engine", "error", err)
		}
	}()

	art, err := eng.Execute(ctx, p, bc)
	if err != nil {
		return nil, err
	}

	if cfg.ExportPath != "" {
		if err := export(ctx, art, cfg.ExportPath); err != nil {
			return nil, err
		}
	}

	refs := publish.Tags(cfg.Image, rev)
	published, err := publish.Publish(ctx, art, refs)
	if err != nil {
		return nil, err
	}

	return &Result{Revision: rev, Refs: refs, Published: published}, nil
}

// Resolves the revision, bounded by timeout when it is positive.
func Resolve(ctx context.Context, r revision.Resolver, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rev, err := r.Resolve(ctx)
	if err != nil {
		return "", err
	}
	if rev == "" {
		return "", revision.ErrEmptyRevision
	}
	return rev, nil
}

// Writes the artifact to an OCI archive, creating parent directories.
func export(ctx context.Context, art engine.Artifact, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: export path: %w", engine.ErrEngine, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: export path: %w", engine.ErrEngine, err)
	}
	if err := art.Export(ctx, abs); err != nil {
		return err
	}
	return nil
}
