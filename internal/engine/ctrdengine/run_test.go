package ctrdengine

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prod9/fxbuild/internal/buildctx"
	"github.com/prod9/fxbuild/internal/plan"
	"github.com/prod9/fxbuild/internal/runtime"
)

type execCall struct {
	Args    []string
	Env     []string
	Workdir string
}

// In-memory container keeping regular files by absolute path.
type fakeContainer struct {
	id        string
	files     map[string]string
	dirs      []string
	execs     []execCall
	renames   [][2]string
	exitCode  int
	stopped   bool
	committed *runtime.ImageConfig
	destroyed bool
}

func newFakeContainer(id string) *fakeContainer {
	return &fakeContainer{id: id, files: make(map[string]string)}
}

func (f *fakeContainer) ID() string { return f.id }

func (f *fakeContainer) MkdirAll(ctx context.Context, dir string) error {
	f.dirs = append(f.dirs, dir)
	return nil
}

func (f *fakeContainer) ExecArgs(ctx context.Context, args, env []string, workdir string, out io.Writer) (*runtime.ExecResult, error) {
	f.execs = append(f.execs, execCall{Args: args, Env: append([]string(nil), env...), Workdir: workdir})
	return &runtime.ExecResult{ExitCode: f.exitCode, Stderr: "compile error"}, nil
}

func (f *fakeContainer) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return err
		}
		f.files[path.Join(destDir, hdr.Name)] = string(b)
	}
}

func (f *fakeContainer) CopyFrom(ctx context.Context, w io.Writer, p string) error {
	content, ok := f.files[p]
	if !ok {
		return fmt.Errorf("%s: no such file", p)
	}
	tw := tar.NewWriter(w)
	if err := tw.WriteHeader(&tar.Header{Name: path.Base(p), Mode: 0o755, Size: int64(len(content)), Typeflag: tar.TypeReg}); err != nil {
		return err
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		return err
	}
	return tw.Close()
}

func (f *fakeContainer) Rename(ctx context.Context, from, to string) error {
	f.renames = append(f.renames, [2]string{from, to})
	f.files[to] = f.files[from]
	delete(f.files, from)
	return nil
}

func (f *fakeContainer) Stop(ctx context.Context) error {
	f.stopped = true
	return nil
}

func (f *fakeContainer) Commit(ctx context.Context, name string, cfg runtime.ImageConfig) (runtime.Image, error) {
	f.committed = &cfg
	return runtime.Image{Name: name, Platform: "linux/amd64"}, nil
}

func (f *fakeContainer) Destroy(ctx context.Context) {
	f.destroyed = true
}

// Stages a small project and returns a run over it.
func newTestRun(t *testing.T) *run {
	t.Helper()
	root := t.TempDir()
	for name, content := range map[string]string{
		"go.mod":     "module fx.prodigy9.co\n",
		"go.sum":     "sum\n",
		"main.go":    "package main\n",
		"cmd/cmd.go": "package cmd\n",
		".env":       "SECRET=1\n",
	} {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	bc, err := buildctx.Stage(root, []string{".env"})
	if err != nil {
		t.Fatal(err)
	}

	return &run{
		engine:     &Engine{opts: Options{LogOutput: io.Discard}, runID: "1a2b3c4d"},
		bc:         bc,
		containers: make(map[string]stageContainer),
		states:     make(map[string]*stepState),
	}
}

func runSteps(t *testing.T, r *run, ctr stageContainer, state *stepState, steps ...plan.Step) {
	t.Helper()
	for i, step := range steps {
		if err := r.runStep(context.Background(), ctr, state, step); err != nil {
			t.Fatalf("step %d (%s): %v", i+1, step.Kind, err)
		}
	}
}

func TestRunStepCopyFileResolvesAgainstWorkdir(t *testing.T) {
	r := newTestRun(t)
	ctr := newFakeContainer("builder")
	state := newStepState()

	runSteps(t, r, ctr, state,
		plan.Workdir("/app"),
		plan.CopyFile("go.mod", "go.mod"),
		plan.CopyFile("go.sum", "/etc/go.sum"),
	)

	if got := ctr.files["/app/go.mod"]; got != "module fx.prodigy9.co\n" {
		t.Fatalf("/app/go.mod = %q", got)
	}
	if got := ctr.files["/etc/go.sum"]; got != "sum\n" {
		t.Fatalf("/etc/go.sum = %q", got)
	}
	if diff := cmp.Diff([]string{"/app", "/app", "/etc"}, ctr.dirs); diff != "" {
		t.Fatalf("created dirs mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStepCopyContext(t *testing.T) {
	r := newTestRun(t)
	ctr := newFakeContainer("builder")

	runSteps(t, r, ctr, newStepState(), plan.CopyContext("/app"))

	want := map[string]string{
		"/app/go.mod":     "module fx.prodigy9.co\n",
		"/app/go.sum":     "sum\n",
		"/app/main.go":    "package main\n",
		"/app/cmd/cmd.go": "package cmd\n",
	}
	if diff := cmp.Diff(want, ctr.files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStepCopyStage(t *testing.T) {
	tests := []struct {
		name        string
		dest        string
		wantPath    string
		wantRenames [][2]string
	}{
		{
			name:     "same name",
			dest:     "vanity",
			wantPath: "/app/vanity",
		},
		{
			name:        "renamed",
			dest:        "/usr/local/bin/fx",
			wantPath:    "/usr/local/bin/fx",
			wantRenames: [][2]string{{"/usr/local/bin/vanity", "/usr/local/bin/fx"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRun(t)

			builder := newFakeContainer("builder")
			builder.files["/app/vanity"] = "ELF"
			builderState := newStepState()
			builderState.workdir = "/app"
			r.containers[plan.StageBuilder] = builder
			r.states[plan.StageBuilder] = builderState

			ctr := newFakeContainer("runtime")
			state := newStepState()
			state.workdir = "/app"

			runSteps(t, r, ctr, state, plan.CopyStage(plan.StageBuilder, "vanity", tt.dest))

			if got := ctr.files[tt.wantPath]; got != "ELF" {
				t.Fatalf("%s = %q, want ELF; files: %v", tt.wantPath, got, ctr.files)
			}
			if diff := cmp.Diff(tt.wantRenames, ctr.renames); diff != "" {
				t.Fatalf("renames mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunStepCopyStageUnknown(t *testing.T) {
	r := newTestRun(t)
	err := r.runStep(context.Background(), newFakeContainer("runtime"), newStepState(), plan.CopyStage("missing", "vanity", "vanity"))
	if !errors.Is(err, plan.ErrUnknownStage) {
		t.Fatalf("err = %v, want ErrUnknownStage", err)
	}
}

func TestRunStepExec(t *testing.T) {
	r := newTestRun(t)
	ctr := newFakeContainer("builder")
	state := newStepState()

	runSteps(t, r, ctr, state,
		plan.Workdir("/app"),
		plan.Env("CGO_ENABLED", "0"),
		plan.Exec("go", "build", "-v", "-o", "/app/vanity", "fx.prodigy9.co"),
	)

	want := []execCall{{
		Args:    []string{"go", "build", "-v", "-o", "/app/vanity", "fx.prodigy9.co"},
		Env:     []string{"CGO_ENABLED=0"},
		Workdir: "/app",
	}}
	if diff := cmp.Diff(want, ctr.execs); diff != "" {
		t.Fatalf("exec mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStepExecFailure(t *testing.T) {
	r := newTestRun(t)
	ctr := newFakeContainer("builder")
	ctr.exitCode = 2

	err := r.runStep(context.Background(), ctr, newStepState(), plan.Exec("false"))
	if !errors.Is(err, runtime.ErrCommandFailed) {
		t.Fatalf("err = %v, want ErrCommandFailed", err)
	}
}

func TestRunStepConfigurationOnly(t *testing.T) {
	r := newTestRun(t)
	ctr := newFakeContainer("runtime")
	state := newStepState()

	runSteps(t, r, ctr, state,
		plan.Label(plan.SourceLabel, plan.SourceURL),
		plan.Env("TZ", "UTC"),
		plan.DefaultArgs("/app/vanity", "serve"),
	)

	if len(ctr.execs) != 0 || len(ctr.files) != 0 {
		t.Fatalf("configuration steps touched the container: execs=%v files=%v", ctr.execs, ctr.files)
	}
	if state.labels[plan.SourceLabel] != plan.SourceURL || len(state.env) != 1 || len(state.cmd) != 2 {
		t.Fatalf("state not updated: %+v", state)
	}
}

func TestRunCommit(t *testing.T) {
	r := newTestRun(t)
	ctr := newFakeContainer("runtime")
	state := newStepState()
	state.workdir = "/app"
	state.cmd = []string{"/app/vanity", "serve"}
	r.containers[plan.StageRuntime] = ctr
	r.states[plan.StageRuntime] = state

	img, err := r.commit(context.Background(), plan.StageRuntime)
	if err != nil {
		t.Fatal(err)
	}

	if !ctr.stopped {
		t.Fatal("container not stopped before commit")
	}
	if img.Name != "fxbuild.local/runtime:1a2b3c4d" {
		t.Fatalf("image name = %q", img.Name)
	}
	if ctr.committed == nil || ctr.committed.WorkingDir != "/app" || len(ctr.committed.Cmd) != 2 {
		t.Fatalf("committed config = %+v", ctr.committed)
	}

	r.destroy(context.Background())
	if !ctr.destroyed {
		t.Fatal("container not destroyed")
	}
}
