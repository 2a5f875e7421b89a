// Manages build containers backed by containerd.
//
// A [Runtime] connects to a containerd daemon, pulls base images from
// registries, and starts containers with fresh snapshots. Each [Container]
// wraps a long-running containerd task: commands are executed inside it as
// additional processes, and files are copied in and out as tar streams.
//
// When a stage is complete, [Container.Commit] records the container's
// filesystem changes as a single new layer on top of its base image and
// stores the result as a named image. The image can then be pushed to a
// registry with [Runtime.Push] or written to an OCI archive with
// [Runtime.Export]. Containers should be destroyed once they are no longer
// needed to release their snapshots.
//
// Example usage:
//
//	rt, err := runtime.New("/run/containerd/containerd.sock", "fxbuild")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	ctr, err := rt.StartContainer(ctx, "alpine:edge", "fxbuild-1-runtime", "linux/amd64")
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	if _, err := ctr.ExecArgs(ctx, []string{"apk", "add", "tzdata"}, nil, "", os.Stderr); err != nil {
//	    return err
//	}
//
//	img, err := ctr.Commit(ctx, "fxbuild/runtime:abc1234", runtime.ImageConfig{Cmd: []string{"/app/vanity", "serve"}})
//	if err != nil {
//	    return err
//	}
//	return rt.Push(ctx, img, "ghcr.io/prod9/fx:latest")
package runtime
