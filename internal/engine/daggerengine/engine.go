package daggerengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"dagger.io/dagger"
	"github.com/prod9/fxbuild/internal/buildctx"
	"github.com/prod9/fxbuild/internal/config"
	"github.com/prod9/fxbuild/internal/engine"
	"github.com/prod9/fxbuild/internal/plan"
)

// Name of the Dagger secret holding the registry password.
const passwordSecret = "fxbuild-registry-password"

// Controls the Dagger session.
type Options struct {
	LogOutput      io.Writer       // Receives engine progress. Nil discards it.
	ExecuteTimeout time.Duration   // Bounds materialization. Zero means unbounded.
	Registry       config.Registry // Explicit registry credentials, if any.
}

// A Dagger-backed [engine.Engine].
type Engine struct {
	client *dagger.Client
	opts   Options
}

// Connects to a Dagger engine, provisioning one if necessary.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = io.Discard
	}

	client, err := dagger.Connect(ctx, dagger.WithLogOutput(opts.LogOutput))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrEngine, err)
	}

	return &Engine{client: client, opts: opts}, nil
}

// Closes the Dagger session.
func (e *Engine) Close() error {
	return e.client.Close()
}

// Declares every stage as a Dagger container, then synchronizes the target.
//
// Root stages start from their registry image for the plan's platform; child
// stages extend their parent's container. The build context is handed to
// Dagger as a host directory with the same exclude patterns it was staged
// with.
func (e *Engine) Execute(ctx context.Context, p plan.Plan, bc *buildctx.Context) (engine.Artifact, error) {
	host := e.client.Host().Directory(bc.Root(), dagger.HostDirectoryOpts{
		Exclude: bc.Excludes(),
	})

	stages := make(map[string]*dagger.Container)
	for _, stage := range p.Stages() {
		ctr, err := e.declare(stage, p.Platform(), host, stages)
		if err != nil {
			return nil, err
		}
		stages[stage.Name] = ctr
	}

	target := stages[p.Target()]
	if target == nil {
		return nil, fmt.Errorf("%w: %w %q", engine.ErrBuild, plan.ErrUnknownStage, p.Target())
	}

	slog.Info("materializing image", "stage", p.Target(), "platform", p.Platform())

	synced, err := e.sync(ctx, target)
	if err != nil {
		return nil, err
	}

	return &Artifact{engine: e, ctr: synced}, nil
}

// Forces evaluation of the container graph, bounded by the execute timeout.
func (e *Engine) sync(ctx context.Context, ctr *dagger.Container) (*dagger.Container, error) {
	if e.opts.ExecuteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.ExecuteTimeout)
		defer cancel()
	}

	synced, err := ctr.Sync(ctx)
	if err != nil {
		var execErr *dagger.ExecError
		if errors.As(err, &execErr) {
			slog.Error("command failed",
				"cmd", execErr.Cmd,
				"exit", execErr.ExitCode,
				"stderr", execErr.Stderr,
			)
		}
		return nil, fmt.Errorf("%w: %w", engine.ErrBuild, err)
	}
	return synced, nil
}

// Returns the container for a stage with its steps applied.
func (e *Engine) declare(stage plan.Stage, platform string, host *dagger.Directory, stages map[string]*dagger.Container) (*dagger.Container, error) {
	var ctr *dagger.Container
	if stage.From != "" {
		ctr = e.client.Container(dagger.ContainerOpts{Platform: dagger.Platform(platform)}).From(stage.From)
	} else {
		ctr = stages[stage.Parent]
	}

	for i, step := range stage.Steps {
		next, err := apply(ctr, step, host, stages)
		if err != nil {
			return nil, engine.StepError(stage.Name, i, step, err)
		}
		ctr = next
	}

	return ctr, nil
}

// Applies a single step to a container.
func apply(ctr *dagger.Container, step plan.Step, host *dagger.Directory, stages map[string]*dagger.Container) (*dagger.Container, error) {
	switch step.Kind {
	case plan.StepLabel:
		return ctr.WithLabel(step.Key, step.Value), nil
	case plan.StepWorkdir:
		return ctr.WithWorkdir(step.Value), nil
	case plan.StepEnv:
		return ctr.WithEnvVariable(step.Key, step.Value), nil
	case plan.StepExec:
		return ctr.WithExec(step.Args), nil
	case plan.StepCopyFile:
		return ctr.WithFile(step.Dest, host.File(step.Source)), nil
	case plan.StepCopyContext:
		return ctr.WithDirectory(step.Dest, host), nil
	case plan.StepCopyStage:
		src, ok := stages[step.Stage]
		if !ok {
			return nil, fmt.Errorf("%w %q", plan.ErrUnknownStage, step.Stage)
		}
		return ctr.WithFile(step.Dest, src.File(step.Source)), nil
	case plan.StepDefaultArgs:
		return ctr.WithDefaultArgs(step.Args), nil
	default:
		return nil, fmt.Errorf("unsupported step kind %q", step.Kind)
	}
}
