package plan

import "slices"

// Kind of build step.
type StepKind string

const (
	StepLabel       StepKind = "label"        // Sets an image label.
	StepWorkdir     StepKind = "workdir"      // Sets the working directory.
	StepEnv         StepKind = "env"          // Sets an environment variable.
	StepExec        StepKind = "exec"         // Runs a command.
	StepCopyFile    StepKind = "copy-file"    // Copies one file from the build context.
	StepCopyContext StepKind = "copy-context" // Copies the whole build context.
	StepCopyStage   StepKind = "copy-stage"   // Copies a file out of another stage.
	StepDefaultArgs StepKind = "default-args" // Sets the default command.
)

// A single build step. Which fields apply depends on Kind.
//
// Relative Dest paths, and relative Source paths of stage copies, resolve
// against the working directory in effect for the stage they refer to.
type Step struct {
	Kind   StepKind `yaml:"kind"`
	Key    string   `yaml:"key,omitempty"`    // Label or environment variable name.
	Value  string   `yaml:"value,omitempty"`  // Label value, variable value, or workdir path.
	Args   []string `yaml:"args,omitempty"`   // Command for exec and default-args.
	Stage  string   `yaml:"stage,omitempty"`  // Source stage for copy-stage.
	Source string   `yaml:"source,omitempty"` // Context path or stage path to copy.
	Dest   string   `yaml:"dest,omitempty"`   // Destination path in the image.
}

// Returns a deep copy of the step.
func (s Step) clone() Step {
	s.Args = slices.Clone(s.Args)
	return s
}

// Returns a step setting an image label.
func Label(key, value string) Step {
	return Step{Kind: StepLabel, Key: key, Value: value}
}

// Returns a step setting the working directory.
func Workdir(path string) Step {
	return Step{Kind: StepWorkdir, Value: path}
}

// Returns a step setting an environment variable for subsequent steps and
// the final image.
func Env(key, value string) Step {
	return Step{Kind: StepEnv, Key: key, Value: value}
}

// Returns a step running a command without a shell.
func Exec(args ...string) Step {
	return Step{Kind: StepExec, Args: args}
}

// Returns a step copying a single build context file.
func CopyFile(source, dest string) Step {
	return Step{Kind: StepCopyFile, Source: source, Dest: dest}
}

// Returns a step copying the whole build context to dest.
func CopyContext(dest string) Step {
	return Step{Kind: StepCopyContext, Dest: dest}
}

// Returns a step copying a file out of another stage.
func CopyStage(stage, source, dest string) Step {
	return Step{Kind: StepCopyStage, Stage: stage, Source: source, Dest: dest}
}

// Returns a step setting the image's default command.
func DefaultArgs(args ...string) Step {
	return Step{Kind: StepDefaultArgs, Args: args}
}
