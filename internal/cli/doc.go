// Parses flags and runs fxbuild commands.
//
// The following global flags are accepted:
//
//	-q, --quiet     Suppress informational output and engine progress.
//	-v, --verbose   Include source locations in log output.
//	-d, --debug     Enable debug output.
//
// Flags override build-time defaults set via linker flags. Build parameters
// come from the environment, see package config. Running fxbuild without a
// command publishes the image.
package cli
