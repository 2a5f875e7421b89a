package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/prod9/fxbuild/internal"
)

// Level shared by every logger created here, so that flag parsing can adjust
// a logger that is already installed.
var logLevel slog.LevelVar

// Installs the process-wide logger, seeded from build-time linker flags.
//
// Output goes to stderr, colored only when stderr is a terminal. The level is
// adjusted again after flag parsing by [Execute].
func NewLogger() *slog.Logger {
	logLevel.Set(LogLevel())
	return setDefaultLogger(internal.IsVerbose())
}

// Returns the log level derived from the current modes.
func LogLevel() slog.Level {
	switch {
	case internal.IsDebug():
		return slog.LevelDebug
	case internal.IsQuiet():
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func setDefaultLogger(addSource bool) *slog.Logger {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      &logLevel,
		AddSource:  addSource,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	logger := slog.New(handler).WithGroup(internal.Name)
	slog.SetDefault(logger)
	return logger
}
