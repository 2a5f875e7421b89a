package ctrdengine

import (
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/prod9/fxbuild/internal/runtime"
)

// Tracks the configuration accumulated while replaying a stage's lineage.
//
// Configuration steps only update the state. Exec and copy steps read it to
// resolve their environment and paths, and the target stage's final state
// becomes the committed image config.
type stepState struct {
	workdir string
	env     []string // Ordered "KEY=value" entries, last write wins.
	labels  map[string]string
	cmd     []string
}

// Creates an empty [stepState].
func newStepState() *stepState {
	return &stepState{labels: make(map[string]string)}
}

// Sets an environment variable, replacing an earlier value in place.
func (s *stepState) setEnv(key, value string) {
	entry := key + "=" + value
	for i, e := range s.env {
		if k, _, _ := strings.Cut(e, "="); k == key {
			s.env[i] = entry
			return
		}
	}
	s.env = append(s.env, entry)
}

// Resolves p against the working directory. Paths are always absolute and
// clean; the root directory stands in for an unset working directory.
func (s *stepState) resolve(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	dir := s.workdir
	if dir == "" {
		dir = "/"
	}
	return path.Join(dir, p)
}

// Returns the image configuration described by the state.
func (s *stepState) imageConfig() runtime.ImageConfig {
	return runtime.ImageConfig{
		Labels:     maps.Clone(s.labels),
		Env:        slices.Clone(s.env),
		WorkingDir: s.workdir,
		Cmd:        slices.Clone(s.cmd),
	}
}
