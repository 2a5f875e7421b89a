package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/remotes"
	"github.com/containerd/platforms"
	"github.com/distribution/reference"
)

const (

	// Default snapshotter for container filesystems.
	DefaultSnapshotter = "overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Configures a [Runtime].
type Option func(*Runtime)

// Selects the snapshotter used to unpack images and create containers.
// Rootless daemons typically need "fuse-overlayfs".
func WithSnapshotter(name string) Option {
	return func(rt *Runtime) {
		if name != "" {
			rt.snapshotter = name
		}
	}
}

// Sets the credentials used for registry pulls and pushes. Without it,
// registries are accessed anonymously.
func WithCredentials(creds Credentials) Option {
	return func(rt *Runtime) {
		rt.creds = creds
	}
}

// Manages the containerd client and provides image and container operations.
type Runtime struct {
	client      *containerd.Client // Containerd client for managing containers and images.
	snapshotter string             // Snapshotter for unpacked layers and container snapshots.
	creds       Credentials        // Registry credentials, nil for anonymous access.
	resolver    remotes.Resolver   // Registry resolver shared by pulls and pushes.

	mu     sync.Mutex
	pulled map[string]bool // Image names already pulled and unpacked, keyed with platform.
}

// Creates a runtime connected to the containerd socket at the given address.
//
// The namespace scopes all containerd operations to a single tenant. The
// runtime must be closed when no longer needed.
func New(address, namespace string, opts ...Option) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, wrapRuntime(err)
	}

	rt := &Runtime{
		client:      client,
		snapshotter: DefaultSnapshotter,
		pulled:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.resolver = newResolver(rt.creds)

	return rt, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Pulls an image for the target platform and unpacks it into the
// snapshotter. Returns the normalized image name.
//
// Short references such as "alpine:edge" are normalized to their fully
// qualified form. Each name is pulled at most once per runtime and platform.
func (rt *Runtime) Pull(ctx context.Context, ref, platform string) (string, error) {
	name, err := normalizeRef(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPull, err)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	key := name + "@" + platform
	if rt.pulled[key] {
		return name, nil
	}

	slog.Info("pulling image", "image", name, "platform", platform)

	if _, err := rt.client.Pull(ctx, name,
		containerd.WithPlatform(platform),
		containerd.WithResolver(rt.resolver),
	); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrPull, name, err)
	}

	if err := rt.unpackImage(ctx, name, platform); err != nil {
		return "", fmt.Errorf("%w: unpack %s: %w", ErrPull, name, err)
	}

	rt.pulled[key] = true
	return name, nil
}

// Pulls an image and starts a container from it.
//
// A container is created with a fresh snapshot, and a long-running task
// (sleep infinity) is started so that subsequent exec calls have a running
// process to attach to. Any existing container with the same ID is removed
// before the new one is created. Building for a platform other than the host
// requires QEMU / binfmt_misc support in the kernel.
func (rt *Runtime) StartContainer(ctx context.Context, ref, id, platform string) (*Container, error) {
	name, err := rt.Pull(ctx, ref, platform)
	if err != nil {
		return nil, err
	}

	c := &Container{
		client:      rt.client,
		id:          id,
		platform:    platform,
		snapshotter: rt.snapshotter,
	}

	c.removeStale(ctx)

	image, err := rt.resolveImage(ctx, name, platform)
	if err != nil {
		return nil, wrapRuntime(err)
	}

	ctr, err := c.create(ctx, image)
	if err != nil {
		return nil, wrapRuntime(err)
	}

	if err := c.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return nil, wrapRuntime(err)
	}

	slog.Debug("container started", "id", id, "image", name, "platform", platform)

	return c, nil
}

// Pushes a committed image to the registry under ref.
//
// Only content for the image's platform is pushed.
func (rt *Runtime) Push(ctx context.Context, img Image, ref string) error {
	name, err := normalizeRef(ref)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPush, err)
	}

	slog.Debug("pushing image", "ref", name, "digest", img.Target.Digest)

	if err := rt.client.Push(ctx, name, img.Target,
		containerd.WithResolver(rt.resolver),
		containerd.WithPlatform(img.Platform),
	); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPush, name, err)
	}
	return nil
}

// Unpacks the image layers for the target platform into the snapshotter.
func (rt *Runtime) unpackImage(ctx context.Context, name, platform string) error {
	image, err := rt.resolveImage(ctx, name, platform)
	if err != nil {
		return err
	}

	return image.Unpack(ctx, rt.snapshotter)
}

// Looks up an image and selects the manifest for the given platform.
//
// Multi-platform images contain manifests for multiple architectures. This
// method selects one, so that subsequent operations target the correct
// architecture.
func (rt *Runtime) resolveImage(ctx context.Context, name, platform string) (containerd.Image, error) {
	p, err := platforms.Parse(platform)
	if err != nil {
		return nil, err
	}

	img, err := rt.client.ImageService().Get(ctx, name)
	if err != nil {
		return nil, err
	}

	return containerd.NewImageWithPlatform(rt.client, img, platforms.Only(p)), nil
}

// Returns the fully qualified form of an image reference, adding the
// "latest" tag when neither a tag nor a digest is present.
//
// For example, "alpine:edge" becomes "docker.io/library/alpine:edge".
func normalizeRef(ref string) (string, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return "", err
	}
	return reference.TagNameOnly(named).String(), nil
}
