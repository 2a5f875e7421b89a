package daggerengine

import (
	"context"
	"fmt"
	"log/slog"

	"dagger.io/dagger"
	"github.com/distribution/reference"
	"github.com/prod9/fxbuild/internal/engine"
)

// A synchronized Dagger container.
type Artifact struct {
	engine *Engine
	ctr    *dagger.Container
}

// Publishes the container under ref.
//
// When explicit registry credentials are configured they are attached for
// the registry host of ref; otherwise the engine's own credentials apply.
func (a *Artifact) Publish(ctx context.Context, ref string) (string, error) {
	ctr := a.ctr

	if creds := a.engine.opts.Registry; creds.HasCredentials() {
		host, err := registryHost(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", engine.ErrPush, ref, err)
		}
		secret := a.engine.client.SetSecret(passwordSecret, creds.Password)
		ctr = ctr.WithRegistryAuth(host, creds.Username, secret)
	}

	slog.Debug("publishing", "ref", ref)

	addr, err := ctr.Publish(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", engine.ErrPush, ref, err)
	}
	return addr, nil
}

// Writes the container to an OCI archive on the host.
func (a *Artifact) Export(ctx context.Context, path string) error {
	if _, err := a.ctr.Export(ctx, path); err != nil {
		return fmt.Errorf("%w: export %s: %w", engine.ErrEngine, path, err)
	}
	slog.Info("image exported", "path", path)
	return nil
}

// Returns the registry host of an image reference, "docker.io" for
// unqualified references.
func registryHost(ref string) (string, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return "", err
	}
	return reference.Domain(named), nil
}
