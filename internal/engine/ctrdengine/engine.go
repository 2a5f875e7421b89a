package ctrdengine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prod9/fxbuild/internal"
	"github.com/prod9/fxbuild/internal/buildctx"
	"github.com/prod9/fxbuild/internal/engine"
	"github.com/prod9/fxbuild/internal/plan"
	"github.com/prod9/fxbuild/internal/runtime"
)

// Controls the containerd connection and step execution.
type Options struct {
	Address        string              // Containerd socket address.
	Namespace      string              // Containerd namespace for containers and images.
	Snapshotter    string              // Snapshotter name. Empty uses the runtime default.
	Credentials    runtime.Credentials // Registry credentials. Nil pulls and pushes anonymously.
	LogOutput      io.Writer           // Receives command output. Nil discards it.
	ExecuteTimeout time.Duration       // Bounds each step. Zero means unbounded.
}

// A containerd-backed [engine.Engine].
type Engine struct {
	rt    *runtime.Runtime
	opts  Options
	runID string // Short random ID shared by this engine's containers and images.

	mu     sync.Mutex
	images []string // Committed image records, removed on Close.
}

// Connects to the containerd daemon.
func New(opts Options) (*Engine, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = io.Discard
	}

	rtOpts := []runtime.Option{runtime.WithSnapshotter(opts.Snapshotter)}
	if opts.Credentials != nil {
		rtOpts = append(rtOpts, runtime.WithCredentials(opts.Credentials))
	}

	rt, err := runtime.New(opts.Address, opts.Namespace, rtOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrEngine, err)
	}

	return &Engine{
		rt:    rt,
		opts:  opts,
		runID: uuid.NewString()[:8],
	}, nil
}

// Removes committed image records and closes the containerd connection.
func (e *Engine) Close() error {
	e.mu.Lock()
	names := e.images
	e.images = nil
	e.mu.Unlock()

	for _, name := range names {
		if err := e.rt.RemoveImage(context.Background(), name); err != nil {
			slog.Warn("failed to remove image", "name", name, "error", err)
		}
	}
	return e.rt.Close()
}

// Runs the plan and commits the target stage as an image.
//
// Stages run in plan order. Every container started for the run is destroyed
// before Execute returns, whether or not the build succeeded.
func (e *Engine) Execute(ctx context.Context, p plan.Plan, bc *buildctx.Context) (engine.Artifact, error) {
	r := &run{
		engine:     e,
		plan:       p,
		bc:         bc,
		containers: make(map[string]stageContainer),
		states:     make(map[string]*stepState),
	}
	defer r.destroy(context.WithoutCancel(ctx))

	needed := neededStages(p)
	for _, stage := range p.Stages() {
		if !needed[stage.Name] {
			slog.Debug("stage replayed by descendants", "stage", stage.Name)
			continue
		}
		if err := r.runStage(ctx, stage.Name); err != nil {
			return nil, err
		}
	}

	img, err := r.commit(ctx, p.Target())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.images = append(e.images, img.Name)
	e.mu.Unlock()

	return &Artifact{rt: e.rt, image: img}, nil
}

// Returns the containerd container ID for a stage.
func (e *Engine) containerID(stage string) string {
	return fmt.Sprintf("%s-%s-%s", internal.Name, e.runID, stage)
}

// Returns the local image record name for a committed stage.
func (e *Engine) imageName(stage string) string {
	return fmt.Sprintf("%s.local/%s:%s", internal.Name, stage, e.runID)
}

// Returns the stages that must run in their own container: the target and
// every stage another stage copies from.
func neededStages(p plan.Plan) map[string]bool {
	needed := map[string]bool{p.Target(): true}
	for _, stage := range p.Stages() {
		for _, step := range stage.Steps {
			if step.Kind == plan.StepCopyStage {
				needed[step.Stage] = true
			}
		}
	}
	return needed
}
