package revision

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Resolves the revision by running a version-control command and reading its
// standard output.
type Command struct {
	Dir  string   // Working directory for the command.
	Name string   // Executable name or path.
	Args []string // Arguments passed to the executable.
}

// Returns a [Command] running "git rev-parse --short HEAD" in dir.
func NewCommand(dir string) *Command {
	return &Command{
		Dir:  dir,
		Name: "git",
		Args: []string{"rev-parse", "--short", "HEAD"},
	}
}

// Runs the command and returns its trimmed standard output.
//
// A missing executable, a non-zero exit, or empty output is an error. The
// command's standard error is included in the returned error.
func (c *Command) Resolve(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("resolving revision", "command", cmd.String(), "dir", c.Dir)

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s: %w (%s)", ErrResolve, c.Name, err, msg)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrResolve, c.Name, err)
	}

	rev := strings.TrimSpace(stdout.String())
	if rev == "" {
		return "", fmt.Errorf("%w: %w", ErrResolve, ErrEmptyRevision)
	}
	return rev, nil
}
