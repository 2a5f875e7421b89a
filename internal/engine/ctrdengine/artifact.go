package ctrdengine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prod9/fxbuild/internal/engine"
	"github.com/prod9/fxbuild/internal/runtime"
)

// An image committed to containerd.
type Artifact struct {
	rt    *runtime.Runtime
	image runtime.Image
}

// Pushes the committed image under ref and returns ref pinned to the
// image's digest.
func (a *Artifact) Publish(ctx context.Context, ref string) (string, error) {
	slog.Debug("publishing", "ref", ref, "digest", a.image.Target.Digest)

	if err := a.rt.Push(ctx, a.image, ref); err != nil {
		return "", fmt.Errorf("%w: %w", engine.ErrPush, err)
	}
	return ref + "@" + a.image.Target.Digest.String(), nil
}

// Writes the committed image to an OCI archive at path.
func (a *Artifact) Export(ctx context.Context, path string) error {
	if err := a.rt.Export(ctx, a.image, path); err != nil {
		return fmt.Errorf("%w: export %s: %w", engine.ErrEngine, path, err)
	}
	return nil
}
