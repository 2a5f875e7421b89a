package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/containerd/containerd/v2/core/containers"
	"github.com/containerd/containerd/v2/core/content"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/containerd/v2/pkg/rootfs"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Image configuration applied on commit.
type ImageConfig struct {
	Labels     map[string]string // Merged into the base image's labels.
	Env        []string          // "KEY=value" entries merged into the base image's environment.
	WorkingDir string            // Replaces the working directory when set.
	Cmd        []string          // Replaces the default command when set.
}

// Applies the configuration on top of an OCI image config.
func (ic ImageConfig) apply(config *ocispec.ImageConfig) {
	if len(ic.Labels) > 0 {
		if config.Labels == nil {
			config.Labels = make(map[string]string, len(ic.Labels))
		}
		maps.Copy(config.Labels, ic.Labels)
	}
	if len(ic.Env) > 0 {
		config.Env = mergeEnv(config.Env, ic.Env)
	}
	if ic.WorkingDir != "" {
		config.WorkingDir = ic.WorkingDir
	}
	if len(ic.Cmd) > 0 {
		config.Cmd = slices.Clone(ic.Cmd)
	}
}

// A committed image stored in containerd.
type Image struct {
	Name     string             // Image record name.
	Target   ocispec.Descriptor // Root descriptor (manifest or single-entry index).
	Platform string             // OCI platform the image was built for.
}

// Commits the container's filesystem changes as a new image.
//
// The diff between the container's snapshot and its parent is stored as one
// new layer on top of the base image, and cfg is applied to the image
// config. The mutated manifest, config, and index are written to the
// content store and recorded under name, replacing any earlier record with
// the same name. A content lease protects the new blobs until the record
// references them. The container's task should be stopped first.
func (c *Container) Commit(ctx context.Context, name string, cfg ImageConfig) (Image, error) {
	loaded, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return Image{}, wrapRuntime(err)
	}

	info, err := loaded.Info(ctx)
	if err != nil {
		return Image{}, wrapRuntime(err)
	}

	ctx, done, err := c.client.WithLease(ctx)
	if err != nil {
		return Image{}, wrapRuntime(err)
	}
	defer done(context.Background())

	layer, diffID, err := c.snapshotDiff(ctx, info)
	if err != nil {
		return Image{}, wrapRuntime(err)
	}

	target, err := c.buildTarget(ctx, info.Image, func(manifest *ocispec.Manifest, config *ocispec.Image) {
		manifest.Layers = append(manifest.Layers, layer)
		config.RootFS.DiffIDs = append(config.RootFS.DiffIDs, diffID)
		cfg.apply(&config.Config)
	})
	if err != nil {
		return Image{}, wrapRuntime(err)
	}

	if err := c.storeImage(ctx, name, target); err != nil {
		return Image{}, wrapRuntime(err)
	}

	slog.Info("image committed", "name", name, "digest", target.Digest)
	return Image{Name: name, Target: target, Platform: c.platform}, nil
}

// Creates or updates the image record pointing at target.
func (c *Container) storeImage(ctx context.Context, name string, target ocispec.Descriptor) error {
	is := c.client.ImageService()

	img := images.Image{
		Name:   name,
		Target: target,
	}

	if _, err := is.Create(ctx, img); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return err
		}
		if _, err := is.Update(ctx, img, "target"); err != nil {
			return err
		}
	}
	return nil
}

// Computes the diff between the container's snapshot and its parent, returning
// the layer descriptor and its diff ID.
func (c *Container) snapshotDiff(ctx context.Context, info containers.Container) (ocispec.Descriptor, digest.Digest, error) {
	layer, err := rootfs.CreateDiff(ctx,
		info.SnapshotKey,
		c.client.SnapshotService(info.Snapshotter),
		c.client.DiffService(),
	)
	if err != nil {
		return ocispec.Descriptor{}, "", err
	}

	diffID, err := images.GetDiffID(ctx, c.client.ContentStore(), layer)
	if err != nil {
		return ocispec.Descriptor{}, "", err
	}

	return layer, diffID, nil
}

// Builds the root descriptor of the committed image by applying a mutation
// to the base image's manifest and config.
//
// The base image record is never modified, so later runs always start from
// the clean image pulled from the registry.
func (c *Container) buildTarget(ctx context.Context, baseName string, mutate func(*ocispec.Manifest, *ocispec.Image)) (ocispec.Descriptor, error) {
	img, err := c.client.ImageService().Get(ctx, baseName)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	target, index, err := c.resolveManifestDescriptor(ctx, img.Target, baseName)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	newManifest, err := c.mutateManifest(ctx, target, baseName, mutate)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	if index == nil {
		return newManifest, nil
	}

	// Entries for other platforms are dropped: only the target platform's
	// layers were fetched.
	index.Manifests = []ocispec.Descriptor{newManifest}
	return c.writeBlob(ctx, img.Target.MediaType, index, baseName+"-index", content.WithLabels(indexGCLabels(*index)))
}

// Resolves the image root descriptor to a platform-specific manifest.
//
// If the root is an index, the manifest matching the container's platform
// is returned along with the index. Some registries serve index entries
// without platform metadata; those are probed by reading the image config,
// the same fallback containerd uses internally.
func (c *Container) resolveManifestDescriptor(ctx context.Context, root ocispec.Descriptor, imageName string) (ocispec.Descriptor, *ocispec.Index, error) {
	if !images.IsIndexType(root.MediaType) {
		return root, nil, nil
	}

	idx, err := c.readIndex(ctx, root)
	if err != nil {
		return ocispec.Descriptor{}, nil, err
	}

	p, err := platforms.Parse(c.platform)
	if err != nil {
		return ocispec.Descriptor{}, nil, err
	}

	if i, ok := c.matchManifest(ctx, idx, platforms.OnlyStrict(p)); ok {
		return idx.Manifests[i], &idx, nil
	}

	if len(idx.Manifests) == 0 {
		return ocispec.Descriptor{}, nil, fmt.Errorf("%w: %s", ErrEmptyIndex, imageName)
	}
	return idx.Manifests[0], &idx, nil
}

// Searches the index for a manifest matching the given platform.
//
// Descriptors with an explicit platform field are checked first, then
// descriptors without one are probed through their image config.
func (c *Container) matchManifest(ctx context.Context, idx ocispec.Index, matcher platforms.MatchComparer) (int, bool) {
	for i, m := range idx.Manifests {
		if m.Platform != nil && matcher.Match(*m.Platform) {
			return i, true
		}
	}
	for i, m := range idx.Manifests {
		if m.Platform != nil || !images.IsManifestType(m.MediaType) {
			continue
		}
		if p, ok := c.configPlatform(ctx, m); ok && matcher.Match(p) {
			return i, true
		}
	}
	return 0, false
}

// Returns the platform declared in the config of the manifest desc refers
// to, or false when it cannot be read.
func (c *Container) configPlatform(ctx context.Context, desc ocispec.Descriptor) (ocispec.Platform, bool) {
	manifest, err := c.readManifest(ctx, desc)
	if err != nil {
		return ocispec.Platform{}, false
	}
	config, err := c.readConfig(ctx, manifest.Config)
	if err != nil {
		return ocispec.Platform{}, false
	}
	return ocispec.Platform{
		OS:           config.OS,
		Architecture: config.Architecture,
		Variant:      config.Variant,
	}, true
}

// Reads the manifest and config, applies the mutation, and writes the
// updated blobs back to the content store.
func (c *Container) mutateManifest(ctx context.Context, target ocispec.Descriptor, imageName string, mutate func(*ocispec.Manifest, *ocispec.Image)) (ocispec.Descriptor, error) {
	manifest, err := c.readManifest(ctx, target)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	config, err := c.readConfig(ctx, manifest.Config)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	mutate(&manifest, &config)

	newConfig, err := c.writeBlob(ctx, manifest.Config.MediaType, config, imageName+"-config")
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	manifest.Config = newConfig

	return c.writeBlob(ctx, target.MediaType, manifest, imageName+"-manifest", content.WithLabels(manifestGCLabels(manifest)))
}

// Loads an OCI manifest from the content store.
func (c *Container) readManifest(ctx context.Context, desc ocispec.Descriptor) (ocispec.Manifest, error) {
	var m ocispec.Manifest
	return m, c.readJSON(ctx, desc, &m)
}

// Loads an OCI image index from the content store.
func (c *Container) readIndex(ctx context.Context, desc ocispec.Descriptor) (ocispec.Index, error) {
	var idx ocispec.Index
	return idx, c.readJSON(ctx, desc, &idx)
}

// Loads an OCI image config from the content store.
func (c *Container) readConfig(ctx context.Context, desc ocispec.Descriptor) (ocispec.Image, error) {
	var img ocispec.Image
	return img, c.readJSON(ctx, desc, &img)
}

// Reads a blob and decodes it as JSON into v.
func (c *Container) readJSON(ctx context.Context, desc ocispec.Descriptor, v any) error {
	b, err := content.ReadBlob(ctx, c.client.ContentStore(), desc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Serializes a value and writes it to the content store, returning the
// descriptor that references the stored blob.
func (c *Container) writeBlob(ctx context.Context, mediaType string, v any, ref string, opts ...content.Opt) (ocispec.Descriptor, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	desc := ocispec.Descriptor{
		MediaType: mediaType,
		Digest:    digest.FromBytes(b),
		Size:      int64(len(b)),
	}
	if err := content.WriteBlob(ctx, c.client.ContentStore(), ref, bytes.NewReader(b), desc, opts...); err != nil {
		return ocispec.Descriptor{}, err
	}
	return desc, nil
}

// Computes containerd GC reference labels for a manifest's children.
//
// These labels allow containerd's garbage collector to trace reachability
// from the manifest blob to its config and layer blobs.
func manifestGCLabels(m ocispec.Manifest) map[string]string {
	labels := map[string]string{
		"containerd.io/gc.ref.content.config": m.Config.Digest.String(),
	}
	for i, layer := range m.Layers {
		key := fmt.Sprintf("containerd.io/gc.ref.content.l.%d", i)
		labels[key] = layer.Digest.String()
	}
	return labels
}

// Computes containerd GC reference labels for an index's children.
func indexGCLabels(idx ocispec.Index) map[string]string {
	labels := make(map[string]string, len(idx.Manifests))
	for i, m := range idx.Manifests {
		key := fmt.Sprintf("containerd.io/gc.ref.content.m.%d", i)
		labels[key] = m.Digest.String()
	}
	return labels
}

// Deletes a committed image record. Content no longer referenced by any
// record is left to containerd's garbage collector.
func (rt *Runtime) RemoveImage(ctx context.Context, name string) error {
	if err := rt.client.ImageService().Delete(ctx, name); err != nil && !errdefs.IsNotFound(err) {
		return wrapRuntime(err)
	}
	return nil
}
