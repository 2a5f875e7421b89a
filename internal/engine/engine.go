package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/prod9/fxbuild/internal/buildctx"
	"github.com/prod9/fxbuild/internal/plan"
)

var (
	ErrEngine = errors.New("build engine error")
	ErrBuild  = errors.New("build failed")
	ErrStep   = errors.New("build step failed")
	ErrPush   = errors.New("image push failed")
)

// Executes build plans.
type Engine interface {

	// Builds every stage of the plan and materializes the target stage.
	Execute(ctx context.Context, p plan.Plan, bc *buildctx.Context) (Artifact, error)

	// Releases the engine connection.
	Close() error
}

// A materialized image.
type Artifact interface {

	// Pushes the image to the registry under ref and returns the published
	// reference, including its digest when the engine reports one.
	Publish(ctx context.Context, ref string) (string, error)

	// Writes the image to an OCI archive at path.
	Export(ctx context.Context, path string) error
}

// Wraps a step failure with the stage and 1-based step position.
func StepError(stage string, index int, step plan.Step, err error) error {
	return fmt.Errorf("%w: stage %q, step %d (%s): %w", ErrStep, stage, index+1, step.Kind, err)
}
