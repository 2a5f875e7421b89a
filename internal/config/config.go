package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/containerd/platforms"
	"github.com/distribution/reference"
	"github.com/prod9/fxbuild/internal/paths"
)

// Build engine backend.
type Engine string

const (
	EngineDagger     Engine = "dagger"     // Dagger engine session.
	EngineContainerd Engine = "containerd" // Local containerd daemon.
)

// Where the revision identifier comes from.
type RevisionSource string

const (
	RevisionGit        RevisionSource = "git"        // "git rev-parse --short HEAD" subprocess.
	RevisionRepository RevisionSource = "repository" // HEAD read in-process from the repository.
)

// Paths left out of the build context unless EXCLUDES overrides them.
var DefaultExcludes = []string{
	"*.docker",
	".dockerignore",
	".DS_Store",
	".env",
	".env.local",
	".git",
	".github",
	".gitignore",
	".idea",
	"build.py",
}

// Fully resolved fxbuild configuration.
type Config struct {
	Platform       string         `env:"PLATFORM" envDefault:"linux/amd64"`
	Image          string         `env:"IMAGE" envDefault:"ghcr.io/prod9/fx"`
	ExecuteTimeout time.Duration  `env:"EXECUTE_TIMEOUT" envDefault:"5m"`
	Excludes       []string       `env:"EXCLUDES" envSeparator:","`
	ContextDir     string         `env:"CONTEXT_DIR" envDefault:"."`
	Engine         Engine         `env:"ENGINE" envDefault:"dagger"`
	RevisionSource RevisionSource `env:"REVISION_SOURCE" envDefault:"git"`
	ExportPath     string         `env:"EXPORT_PATH"`
	Registry       Registry       `envPrefix:"REGISTRY_"`
	Containerd     Containerd     `envPrefix:"CONTAINERD_"`
}

// Explicit registry credentials. When empty, the engine's own credential
// discovery applies.
type Registry struct {
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

// Returns true if both a username and a password are set.
func (r Registry) HasCredentials() bool {
	return r.Username != "" && r.Password != ""
}

// Connection settings for the containerd engine.
type Containerd struct {
	Address     string `env:"ADDRESS"`
	Namespace   string `env:"NAMESPACE" envDefault:"fxbuild"`
	Snapshotter string `env:"SNAPSHOTTER" envDefault:"overlayfs"`
}

// Reads the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return finish(cfg)
}

// Reads the configuration from the given variables instead of the process
// environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return finish(cfg)
}

// Applies computed defaults and validates.
func finish(cfg Config) (Config, error) {
	if len(cfg.Excludes) == 0 {
		cfg.Excludes = slices.Clone(DefaultExcludes)
	}
	if cfg.Containerd.Address == "" {
		cfg.Containerd.Address = paths.ContainerdSocket()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Checks that every field holds a usable value.
func (c Config) Validate() error {
	if _, err := platforms.Parse(c.Platform); err != nil {
		return fmt.Errorf("%w: PLATFORM %q: %w", ErrConfig, c.Platform, err)
	}

	named, err := reference.ParseNormalizedNamed(c.Image)
	if err != nil {
		return fmt.Errorf("%w: IMAGE %q: %w", ErrConfig, c.Image, err)
	}
	if !reference.IsNameOnly(named) {
		return fmt.Errorf("%w: IMAGE %q must not carry a tag or digest", ErrConfig, c.Image)
	}

	if c.ExecuteTimeout <= 0 {
		return fmt.Errorf("%w: EXECUTE_TIMEOUT must be positive, got %s", ErrConfig, c.ExecuteTimeout)
	}

	switch c.Engine {
	case EngineDagger, EngineContainerd:
	default:
		return fmt.Errorf("%w: unknown ENGINE %q", ErrConfig, c.Engine)
	}

	switch c.RevisionSource {
	case RevisionGit, RevisionRepository:
	default:
		return fmt.Errorf("%w: unknown REVISION_SOURCE %q", ErrConfig, c.RevisionSource)
	}

	if c.ContextDir == "" {
		return fmt.Errorf("%w: CONTEXT_DIR must not be empty", ErrConfig)
	}

	if (c.Registry.Username == "") != (c.Registry.Password == "") {
		return fmt.Errorf("%w: REGISTRY_USERNAME and REGISTRY_PASSWORD must be set together", ErrConfig)
	}

	return nil
}
