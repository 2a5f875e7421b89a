package buildctx

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// A staged path.
type Entry struct {
	Path string      // Slash-separated path relative to the context root.
	Mode fs.FileMode // File mode, including type bits.
	Size int64       // Size in bytes for regular files.
	Link string      // Symlink target, for symlinks only.
}

// Returns true if the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Mode.IsDir()
}

// A filtered snapshot of a directory tree.
type Context struct {
	root     string         // Absolute path of the context root.
	excludes []string       // Patterns used when staging.
	entries  []Entry        // Staged entries, sorted by path.
	index    map[string]int // Position of each path in entries.
}

// Walks root and records every path not matched by an exclude pattern.
//
// All patterns are validated before the walk. Symlinks are recorded, not
// followed.
func Stage(root string, excludes []string) (*Context, error) {
	for _, p := range excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrPattern, p)
		}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStage, err)
	}

	c := &Context{
		root:     abs,
		excludes: slices.Clone(excludes),
		index:    make(map[string]int),
	}

	if err := filepath.WalkDir(abs, c.visit); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStage, err)
	}

	slices.SortFunc(c.entries, func(a, b Entry) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	for i, e := range c.entries {
		c.index[e.Path] = i
	}

	slog.Debug("build context staged", "root", abs, "entries", len(c.entries), "excludes", len(excludes))
	return c, nil
}

// Records a single walked path unless it is excluded.
func (c *Context) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}
	rel = filepath.ToSlash(rel)

	if Excluded(c.excludes, rel) {
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	info, err := d.Info()
	if err != nil {
		return err
	}

	entry := Entry{Path: rel, Mode: info.Mode()}
	if info.Mode().IsRegular() {
		entry.Size = info.Size()
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		if entry.Link, err = os.Readlink(path); err != nil {
			return err
		}
	}

	c.entries = append(c.entries, entry)
	return nil
}

// Returns true if any pattern matches the slash-separated relative path.
//
// Patterns are assumed valid; invalid ones never match.
func Excluded(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Absolute path of the context root.
func (c *Context) Root() string {
	return c.root
}

// Exclude patterns the context was staged with.
func (c *Context) Excludes() []string {
	return slices.Clone(c.excludes)
}

// Staged entries in path order.
func (c *Context) Entries() []Entry {
	return slices.Clone(c.entries)
}

// Paths of staged regular files and symlinks in path order.
func (c *Context) Files() []string {
	files := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		if !e.IsDir() {
			files = append(files, e.Path)
		}
	}
	return files
}

// Returns true if the slash-separated relative path was staged.
func (c *Context) Has(rel string) bool {
	_, ok := c.index[rel]
	return ok
}

// Returns the staged entry for a slash-separated relative path.
func (c *Context) Entry(rel string) (Entry, bool) {
	i, ok := c.index[rel]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Host path of a staged entry.
func (c *Context) hostPath(rel string) string {
	return filepath.Join(c.root, filepath.FromSlash(rel))
}
