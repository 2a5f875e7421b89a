package main

import (
	"log/slog"
	"os"

	"github.com/prod9/fxbuild/internal"
	"github.com/prod9/fxbuild/internal/cli"
)

// The entry point for fxbuild.
//
// Installs the logger, records startup information, and executes the root
// command. Any error is logged and turned into a non-zero exit code.
func main() {
	cli.NewLogger()

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("fxbuild is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
