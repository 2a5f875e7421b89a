// Loads the fxbuild configuration from the process environment.
//
// The environment is read exactly once, at process start, into a [Config]
// value that is then passed to every component. Nothing else in fxbuild
// consults environment variables.
//
//	PLATFORM                target platform (default linux/amd64)
//	IMAGE                   destination repository (default ghcr.io/prod9/fx)
//	EXECUTE_TIMEOUT         bound on each engine operation (default 5m)
//	EXCLUDES                comma separated build context exclude globs
//	CONTEXT_DIR             build context root (default .)
//	ENGINE                  dagger or containerd (default dagger)
//	REVISION_SOURCE         git or repository (default git)
//	EXPORT_PATH             optional OCI archive output path
//	REGISTRY_USERNAME       optional registry user
//	REGISTRY_PASSWORD       optional registry password or token
//	CONTAINERD_ADDRESS      containerd socket (default XDG-aware)
//	CONTAINERD_NAMESPACE    containerd namespace (default fxbuild)
//	CONTAINERD_SNAPSHOTTER  containerd snapshotter (default overlayfs)
package config
