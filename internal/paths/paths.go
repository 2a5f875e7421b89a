package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Socket of a system-wide containerd daemon.
	SystemContainerdSocket = "/run/containerd/containerd.sock"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755
)

// Path to the containerd socket.
//
// A rootless containerd listens under the user's runtime directory. That
// socket is preferred when it exists; otherwise the system socket is used.
//
//	rootless: $XDG_RUNTIME_DIR/containerd/containerd.sock
//	system:   /run/containerd/containerd.sock
func ContainerdSocket() string {
	if xdg.RuntimeDir != "" {
		rootless := filepath.Join(xdg.RuntimeDir, "containerd", "containerd.sock")
		if _, err := os.Stat(rootless); err == nil {
			return rootless
		}
	}
	return SystemContainerdSocket
}

// Environment variable that relocates the docker client configuration
// directory, as honoured by the docker CLI.
const DockerConfigEnv = "DOCKER_CONFIG"

// Directory holding the docker client configuration written by "docker
// login". DOCKER_CONFIG overrides the default location and is read on every
// call.
//
//	$DOCKER_CONFIG
//	~/.docker
func DockerConfigDir() string {
	if dir := os.Getenv(DockerConfigEnv); dir != "" {
		return dir
	}
	return filepath.Join(xdg.Home, ".docker")
}
