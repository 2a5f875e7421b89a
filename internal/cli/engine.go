package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prod9/fxbuild/internal"
	"github.com/prod9/fxbuild/internal/config"
	"github.com/prod9/fxbuild/internal/engine"
	"github.com/prod9/fxbuild/internal/engine/ctrdengine"
	"github.com/prod9/fxbuild/internal/engine/daggerengine"
	"github.com/prod9/fxbuild/internal/paths"
	"github.com/prod9/fxbuild/internal/pipeline"
	"github.com/prod9/fxbuild/internal/runtime"
)

// Returns an opener for the engine the configuration selects.
func engineOpener(cfg config.Config) pipeline.Opener {
	return func(ctx context.Context) (engine.Engine, error) {
		slog.Debug("opening engine", "engine", cfg.Engine)

		switch cfg.Engine {
		case config.EngineDagger:
			eng, err := daggerengine.New(ctx, daggerengine.Options{
				LogOutput:      engineOutput(),
				ExecuteTimeout: cfg.ExecuteTimeout,
				Registry:       cfg.Registry,
			})
			if err != nil {
				return nil, err
			}
			return eng, nil

		case config.EngineContainerd:
			creds, err := registryCredentials(cfg.Registry)
			if err != nil {
				return nil, err
			}
			eng, err := ctrdengine.New(ctrdengine.Options{
				Address:        cfg.Containerd.Address,
				Namespace:      cfg.Containerd.Namespace,
				Snapshotter:    cfg.Containerd.Snapshotter,
				Credentials:    creds,
				LogOutput:      engineOutput(),
				ExecuteTimeout: cfg.ExecuteTimeout,
			})
			if err != nil {
				return nil, err
			}
			return eng, nil

		default:
			return nil, fmt.Errorf("%w: unknown engine %q", engine.ErrEngine, cfg.Engine)
		}
	}
}

// Explicit credentials win; otherwise those saved by "docker login" apply.
func registryCredentials(reg config.Registry) (runtime.Credentials, error) {
	if reg.HasCredentials() {
		return runtime.StaticCredentials(reg.Username, reg.Password), nil
	}
	return runtime.DockerConfigCredentials(paths.DockerConfigDir())
}

// Engine progress goes to stderr unless quiet.
func engineOutput() io.Writer {
	if internal.IsQuiet() {
		return io.Discard
	}
	return os.Stderr
}
