package plan

const (
	BaseImage   = "alpine:edge"                       // Root image of every stage.
	SourceLabel = "org.opencontainers.image.source"   // Provenance label key.
	SourceURL   = "https://github.com/prod9/fx"       // Provenance label value.
	RevisionKey = "org.opencontainers.image.revision" // Revision label key.
	AppDir      = "/app"                              // Working directory of every stage.
	Module      = "fx.prodigy9.co"                    // Go package compiled by the builder.
	Binary      = "vanity"                            // Compiled artifact name.
	Subcommand  = "serve"                             // Subcommand run by default.

	StageBase    = "base"
	StageBuilder = "builder"
	StageRuntime = "runtime"
)

// Alpine packages needed to compile the binary. None of them reach the
// runtime image.
var BuilderPackages = []string{"build-base", "git", "go", "pkgconfig", "openssl-dev"}

// Alpine packages the binary needs at runtime.
var RuntimePackages = []string{"tzdata", "ca-certificates"}

// Inputs to the fxbuild plan.
type Options struct {
	Platform string // OCI platform (e.g., "linux/amd64").
	Revision string // Source revision, recorded as an image label when set.
}

// Returns the fxbuild plan: a base stage, a builder stage compiling the
// binary, and a runtime stage carrying only the binary and its runtime
// packages.
//
// The builder copies go.mod and go.sum and downloads dependencies before
// copying the rest of the context, so that the dependency layer stays cached
// across source-only changes.
func New(opts Options) (Plan, error) {
	base := Stage{
		Name: StageBase,
		From: BaseImage,
		Steps: []Step{
			Label(SourceLabel, SourceURL),
		},
	}
	if opts.Revision != "" {
		base.Steps = append(base.Steps, Label(RevisionKey, opts.Revision))
	}
	base.Steps = append(base.Steps, Workdir(AppDir))

	builder := Stage{
		Name:   StageBuilder,
		Parent: StageBase,
		Steps: []Step{
			Exec(apkAdd(BuilderPackages)...),
			CopyFile("go.mod", "go.mod"),
			CopyFile("go.sum", "go.sum"),
			Exec("go", "mod", "download", "-x", "all"),
			Env("CGO_ENABLED", "0"),
			CopyContext(AppDir),
			Exec("go", "build", "-v", "-o", AppDir+"/"+Binary, Module),
		},
	}

	runtime := Stage{
		Name:   StageRuntime,
		Parent: StageBase,
		Steps: []Step{
			Exec(apkAdd(RuntimePackages)...),
			CopyStage(StageBuilder, Binary, Binary),
			DefaultArgs(AppDir+"/"+Binary, Subcommand),
		},
	}

	return Build(opts.Platform, StageRuntime, []Stage{base, builder, runtime})
}

// Returns an "apk add" command for the given packages.
func apkAdd(packages []string) []string {
	return append([]string{"apk", "add", "--no-cache"}, packages...)
}
