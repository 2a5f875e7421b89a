package runtime

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/prod9/fxbuild/internal/paths"
)

// Writes config.json into a fresh directory and returns the directory.
func writeDockerConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

// Installs a docker-credential-<name> program on PATH that knows a single
// ghcr.io login.
func installCredentialHelper(t *testing.T, name, user, secret string) {
	t.Helper()
	bin := t.TempDir()
	script := `#!/bin/sh
[ "$1" = "get" ] || exit 1
read -r server
if [ "$server" = "ghcr.io" ]; then
	echo '{"ServerURL":"ghcr.io","Username":"` + user + `","Secret":"` + secret + `"}'
	exit 0
fi
echo "credentials not found in native keychain"
exit 1
`
	if err := os.WriteFile(filepath.Join(bin, "docker-credential-"+name), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func assertCreds(t *testing.T, creds Credentials, host, wantUser, wantSecret string) {
	t.Helper()
	user, secret, err := creds(host)
	if err != nil {
		t.Fatalf("creds(%q): %v", host, err)
	}
	if user != wantUser || secret != wantSecret {
		t.Fatalf("creds(%q) = %q, %q; want %q, %q", host, user, secret, wantUser, wantSecret)
	}
}

func TestDockerConfigCredentialsInline(t *testing.T) {
	ghcr := base64.StdEncoding.EncodeToString([]byte("octocat:ghp_token"))
	hub := base64.StdEncoding.EncodeToString([]byte("hubuser:hubpass"))
	dir := writeDockerConfig(t, `{
		"auths": {
			"ghcr.io": {"auth": "`+ghcr+`"},
			"https://index.docker.io/v1/": {"auth": "`+hub+`"}
		}
	}`)

	creds, err := DockerConfigCredentials(dir)
	if err != nil {
		t.Fatal(err)
	}

	assertCreds(t, creds, "ghcr.io", "octocat", "ghp_token")
	assertCreds(t, creds, "registry-1.docker.io", "hubuser", "hubpass")
	assertCreds(t, creds, "example.com", "", "")
}

func TestDockerConfigCredentialsStore(t *testing.T) {
	installCredentialHelper(t, "fxbuildtest", "store-user", "store-secret")
	dir := writeDockerConfig(t, `{"auths": {"ghcr.io": {}}, "credsStore": "fxbuildtest"}`)

	creds, err := DockerConfigCredentials(dir)
	if err != nil {
		t.Fatal(err)
	}

	assertCreds(t, creds, "ghcr.io", "store-user", "store-secret")
}

func TestDockerConfigCredentialHelpers(t *testing.T) {
	installCredentialHelper(t, "fxbuildghcr", "helper-user", "helper-secret")
	quay := base64.StdEncoding.EncodeToString([]byte("q:p"))
	dir := writeDockerConfig(t, `{
		"auths": {"quay.io": {"auth": "`+quay+`"}},
		"credHelpers": {"ghcr.io": "fxbuildghcr"}
	}`)

	creds, err := DockerConfigCredentials(dir)
	if err != nil {
		t.Fatal(err)
	}

	assertCreds(t, creds, "ghcr.io", "helper-user", "helper-secret")
	assertCreds(t, creds, "quay.io", "q", "p")
}

func TestDockerConfigCredentialsEnvOverride(t *testing.T) {
	auth := base64.StdEncoding.EncodeToString([]byte("ci:from-env"))
	dir := writeDockerConfig(t, `{"auths": {"ghcr.io": {"auth": "`+auth+`"}}}`)
	t.Setenv(paths.DockerConfigEnv, dir)

	creds, err := DockerConfigCredentials(paths.DockerConfigDir())
	if err != nil {
		t.Fatal(err)
	}

	assertCreds(t, creds, "ghcr.io", "ci", "from-env")
}

func TestDockerConfigCredentialsMissingFile(t *testing.T) {
	creds, err := DockerConfigCredentials(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	assertCreds(t, creds, "ghcr.io", "", "")
}

func TestDockerConfigCredentialsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad json":   `{"auths": `,
		"bad base64": `{"auths": {"ghcr.io": {"auth": "!!"}}}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DockerConfigCredentials(writeDockerConfig(t, content)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestStaticCredentials(t *testing.T) {
	assertCreds(t, StaticCredentials("u", "s"), "any.host", "u", "s")
}
