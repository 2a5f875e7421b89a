// Stages a working directory into a filtered build context.
//
// [Stage] walks a directory tree once and records every path that survives
// the exclude patterns. Patterns are doublestar globs matched against the
// slash-separated path relative to the context root, so "*.docker" excludes
// files at the root only while "**/*.docker" excludes them at any depth. When
// a directory matches, it is omitted together with everything beneath it.
//
// The resulting [Context] is a snapshot: files created or removed after
// staging are not reflected. Engines that transfer the context themselves
// read it as a tar stream via [Context.WriteTar] and [Context.WriteFileTar].
//
// Example usage:
//
//	bc, err := buildctx.Stage(".", []string{".git", "*.docker"})
//	if err != nil {
//	    return err
//	}
//	if bc.Has("go.sum") {
//	    ...
//	}
package buildctx
