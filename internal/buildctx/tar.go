package buildctx

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path"
)

// Writes every staged entry to w as a tar stream rooted at prefix.
//
// The prefix directory itself is written first so that extraction creates
// it. An empty prefix writes entries at the archive root.
func (c *Context) WriteTar(w io.Writer, prefix string) error {
	tw := tar.NewWriter(w)

	if prefix != "" {
		info, err := os.Stat(c.root)
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = prefix + "/"
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
	}

	for _, e := range c.entries {
		if err := c.writeEntry(tw, e, path.Join(prefix, e.Path)); err != nil {
			return err
		}
	}

	return tw.Close()
}

// Writes a single staged file to w as a tar stream under the given archive
// name.
func (c *Context) WriteFileTar(w io.Writer, rel, name string) error {
	e, ok := c.Entry(rel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotStaged, rel)
	}
	if e.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotStaged, rel)
	}

	tw := tar.NewWriter(w)
	if err := c.writeEntry(tw, e, name); err != nil {
		return err
	}
	return tw.Close()
}

// Writes a single staged entry under the given archive name.
func (c *Context) writeEntry(tw *tar.Writer, e Entry, name string) error {
	hostPath := c.hostPath(e.Path)

	info, err := os.Lstat(hostPath)
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, e.Link)
	if err != nil {
		return err
	}
	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}
