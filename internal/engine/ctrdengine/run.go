package ctrdengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/prod9/fxbuild/internal/buildctx"
	"github.com/prod9/fxbuild/internal/engine"
	"github.com/prod9/fxbuild/internal/plan"
	"github.com/prod9/fxbuild/internal/runtime"
)

// Container operations a run needs. Satisfied by [runtime.Container].
type stageContainer interface {
	ID() string
	MkdirAll(ctx context.Context, dir string) error
	ExecArgs(ctx context.Context, args, env []string, workdir string, out io.Writer) (*runtime.ExecResult, error)
	CopyTo(ctx context.Context, r io.Reader, destDir string) error
	CopyFrom(ctx context.Context, w io.Writer, p string) error
	Rename(ctx context.Context, from, to string) error
	Stop(ctx context.Context) error
	Commit(ctx context.Context, name string, cfg runtime.ImageConfig) (runtime.Image, error)
	Destroy(ctx context.Context)
}

var _ stageContainer = (*runtime.Container)(nil)

// State of a single Execute call.
type run struct {
	engine     *Engine
	plan       plan.Plan
	bc         *buildctx.Context
	containers map[string]stageContainer // Started containers by stage.
	states     map[string]*stepState     // Final step state by stage.
}

// Starts a container for the stage and replays its lineage in it.
func (r *run) runStage(ctx context.Context, name string) error {
	from, steps, err := r.plan.Lineage(name)
	if err != nil {
		return fmt.Errorf("%w: %w", engine.ErrBuild, err)
	}

	slog.Info("building stage", "stage", name, "from", from, "steps", len(steps))

	ctr, err := r.engine.rt.StartContainer(ctx, from, r.engine.containerID(name), r.plan.Platform())
	if err != nil {
		return fmt.Errorf("%w: stage %q: %w", engine.ErrBuild, name, err)
	}
	r.containers[name] = ctr
	slog.Debug("stage container started", "stage", name, "id", ctr.ID())

	state := newStepState()
	for i, step := range steps {
		if err := r.runStep(ctx, ctr, state, step); err != nil {
			return engine.StepError(name, i, step, err)
		}
	}
	r.states[name] = state

	return nil
}

// Runs one step, bounded by the execute timeout.
func (r *run) runStep(ctx context.Context, ctr stageContainer, state *stepState, step plan.Step) error {
	if timeout := r.engine.opts.ExecuteTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	switch step.Kind {
	case plan.StepLabel:
		state.labels[step.Key] = step.Value
		return nil

	case plan.StepEnv:
		state.setEnv(step.Key, step.Value)
		return nil

	case plan.StepDefaultArgs:
		state.cmd = step.Args
		return nil

	case plan.StepWorkdir:
		state.workdir = state.resolve(step.Value)
		return ctr.MkdirAll(ctx, state.workdir)

	case plan.StepExec:
		return r.exec(ctx, ctr, state, step.Args)

	case plan.StepCopyFile:
		dest := state.resolve(step.Dest)
		return r.copyIn(ctx, ctr, path.Dir(dest), func(w io.Writer) error {
			return r.bc.WriteFileTar(w, step.Source, path.Base(dest))
		})

	case plan.StepCopyContext:
		dest := state.resolve(step.Dest)
		return r.copyIn(ctx, ctr, dest, func(w io.Writer) error {
			return r.bc.WriteTar(w, "")
		})

	case plan.StepCopyStage:
		return r.copyStage(ctx, ctr, state, step)

	default:
		return fmt.Errorf("unsupported step kind %q", step.Kind)
	}
}

// Runs a command in the container's working directory with the accumulated
// environment. A non-zero exit code fails the step.
func (r *run) exec(ctx context.Context, ctr stageContainer, state *stepState, args []string) error {
	slog.Debug("exec", "args", args, "workdir", state.workdir)

	result, err := ctr.ExecArgs(ctx, args, state.env, state.workdir, r.engine.opts.LogOutput)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: exit code %d: %s", runtime.ErrCommandFailed, result.ExitCode, result.Stderr)
	}
	return nil
}

// Streams a tar produced by write into destDir inside the container.
func (r *run) copyIn(ctx context.Context, ctr stageContainer, destDir string, write func(io.Writer) error) error {
	if err := ctr.MkdirAll(ctx, destDir); err != nil {
		return err
	}

	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		err := write(pw)
		pw.CloseWithError(err)
		errc <- err
	}()

	err := ctr.CopyTo(ctx, pr, destDir)
	pr.Close()
	if werr := <-errc; werr != nil && !errors.Is(werr, io.ErrClosedPipe) {
		return werr
	}
	return err
}

// Copies a path out of another stage's container.
//
// Relative sources resolve against the source stage's working directory. The
// tar stream is piped straight from one container to the other; the copied
// entry is renamed afterwards when the destination name differs.
func (r *run) copyStage(ctx context.Context, ctr stageContainer, state *stepState, step plan.Step) error {
	srcCtr, ok := r.containers[step.Stage]
	if !ok {
		return fmt.Errorf("%w %q", plan.ErrUnknownStage, step.Stage)
	}
	src := r.states[step.Stage].resolve(step.Source)
	dest := state.resolve(step.Dest)
	destDir := path.Dir(dest)

	slog.Debug("cross-stage copy", "stage", step.Stage, "src", src, "dest", dest)

	err := r.copyIn(ctx, ctr, destDir, func(w io.Writer) error {
		return srcCtr.CopyFrom(ctx, w, src)
	})
	if err != nil {
		return err
	}

	if path.Base(src) != path.Base(dest) {
		return ctr.Rename(ctx, path.Join(destDir, path.Base(src)), dest)
	}
	return nil
}

// Stops the stage's container and commits its filesystem and configuration.
func (r *run) commit(ctx context.Context, name string) (runtime.Image, error) {
	ctr, ok := r.containers[name]
	if !ok {
		return runtime.Image{}, fmt.Errorf("%w: %w %q", engine.ErrBuild, plan.ErrUnknownStage, name)
	}

	if err := ctr.Stop(ctx); err != nil {
		return runtime.Image{}, fmt.Errorf("%w: %w", engine.ErrBuild, err)
	}

	img, err := ctr.Commit(ctx, r.engine.imageName(name), r.states[name].imageConfig())
	if err != nil {
		return runtime.Image{}, fmt.Errorf("%w: %w", engine.ErrBuild, err)
	}
	return img, nil
}

// Destroys every container started for the run.
func (r *run) destroy(ctx context.Context) {
	for _, ctr := range r.containers {
		ctr.Destroy(ctx)
	}
}
