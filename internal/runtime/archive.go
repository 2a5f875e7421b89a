package runtime

import (
	"context"
	"log/slog"
	"os"

	"github.com/containerd/containerd/v2/core/images/archive"
	"github.com/containerd/platforms"
)

// Writes a committed image to an OCI tar archive at path.
//
// The image name is attached as the OCI reference annotation on the archive
// entry. Only content for the image's platform is included.
func (rt *Runtime) Export(ctx context.Context, img Image, path string) error {
	p, err := platforms.Parse(img.Platform)
	if err != nil {
		return wrapRuntime(err)
	}

	f, err := os.Create(path)
	if err != nil {
		return wrapRuntime(err)
	}
	defer f.Close()

	if err := rt.client.Export(ctx, f,
		archive.WithManifest(img.Target, img.Name),
		archive.WithPlatform(platforms.Only(p)),
	); err != nil {
		return wrapRuntime(err)
	}

	slog.Info("image exported", "path", path)
	return nil
}
