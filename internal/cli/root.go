package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prod9/fxbuild/internal"
)

// Represents the root command for fxbuild.
var RootCmd struct {
	Quiet    bool        `short:"q" help:"Suppress informational output."`
	Verbose  bool        `short:"v" help:"Include source locations in log output."`
	Debug    bool        `short:"d" help:"Enable debug output."`
	Publish  PublishCmd  `cmd:"" default:"1" help:"Build the image and push the latest and revision tags."`
	Plan     PlanCmd     `cmd:"" help:"Print the build plan as YAML without building."`
	Revision RevisionCmd `cmd:"" help:"Print the revision the image would be tagged with."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
//
// SIGINT and SIGTERM cancel the context handed to the subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Builds the fx container image and publishes it under the latest and revision tags.\n\nBuild parameters are read from the environment (PLATFORM, IMAGE, ENGINE, ...)."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Applies the parsed flags to the process-wide modes and logger.
func configureLogger() {
	if RootCmd.Quiet {
		internal.SetQuiet(true)
	}
	if RootCmd.Debug {
		internal.SetDebug(true)
	}
	if RootCmd.Verbose {
		internal.SetVerbose(true)
	}

	logLevel.Set(LogLevel())
	if internal.IsVerbose() {
		setDefaultLogger(true)
	}
}
