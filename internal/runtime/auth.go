package runtime

import (
	"fmt"

	"github.com/containerd/containerd/v2/core/remotes"
	"github.com/containerd/containerd/v2/core/remotes/docker"
	dockerconfig "github.com/docker/cli/cli/config"
	"github.com/docker/cli/cli/config/configfile"
)

// Key docker stores Docker Hub credentials under.
const dockerHubConfigKey = "https://index.docker.io/v1/"

// Returns the username and secret for a registry host. An empty username
// with a non-empty secret is an identity token; both empty means anonymous
// access.
type Credentials func(host string) (string, string, error)

// Returns credentials that answer every host with the same username and
// secret.
func StaticCredentials(username, secret string) Credentials {
	return func(string) (string, string, error) {
		return username, secret, nil
	}
}

// Returns credentials from the docker client configuration in dir.
//
// Lookups go through the docker CLI's own config loader, so inline "auths"
// entries, "credsStore" and per-registry "credHelpers" all apply. A missing
// config file yields anonymous access for every host.
func DockerConfigCredentials(dir string) (Credentials, error) {
	cf, err := dockerconfig.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: docker config %s: %w", ErrRuntime, dir, err)
	}
	return fileCredentials(cf), nil
}

// Adapts a loaded docker config file to [Credentials].
func fileCredentials(cf *configfile.ConfigFile) Credentials {
	return func(host string) (string, string, error) {
		auth, err := cf.GetAuthConfig(configKey(host))
		if err != nil {
			return "", "", fmt.Errorf("%w: credentials for %s: %w", ErrRuntime, host, err)
		}
		if auth.IdentityToken != "" {
			return "", auth.IdentityToken, nil
		}
		return auth.Username, auth.Password, nil
	}
}

// Maps a registry host as seen by the resolver to its docker config key.
func configKey(host string) string {
	switch host {
	case "docker.io", "registry-1.docker.io", "index.docker.io":
		return dockerHubConfigKey
	}
	return host
}

// Creates a registry resolver that authorizes with creds.
func newResolver(creds Credentials) remotes.Resolver {
	var opts []docker.AuthorizerOpt
	if creds != nil {
		opts = append(opts, docker.WithAuthCreds(creds))
	}
	return docker.NewResolver(docker.ResolverOptions{
		Hosts: docker.ConfigureDefaultRegistries(
			docker.WithAuthorizer(docker.NewDockerAuthorizer(opts...)),
		),
	})
}
