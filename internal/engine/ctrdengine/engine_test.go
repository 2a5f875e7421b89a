package ctrdengine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prod9/fxbuild/internal/plan"
)

func TestNeededStages(t *testing.T) {
	p, err := plan.New(plan.Options{Platform: "linux/amd64", Revision: "abc1234"})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]bool{
		plan.StageBuilder: true,
		plan.StageRuntime: true,
	}
	if diff := cmp.Diff(want, neededStages(p)); diff != "" {
		t.Fatalf("neededStages mismatch (-want +got):\n%s", diff)
	}
}

func TestNeededStagesTargetOnly(t *testing.T) {
	p, err := plan.Build("linux/arm64", "only", []plan.Stage{
		{Name: "only", From: "alpine:edge", Steps: []plan.Step{plan.Exec("true")}},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]bool{"only": true}
	if diff := cmp.Diff(want, neededStages(p)); diff != "" {
		t.Fatalf("neededStages mismatch (-want +got):\n%s", diff)
	}
}

func TestNames(t *testing.T) {
	e := &Engine{runID: "1a2b3c4d"}

	if got, want := e.containerID("builder"), "fxbuild-1a2b3c4d-builder"; got != want {
		t.Fatalf("containerID = %q, want %q", got, want)
	}
	if got, want := e.imageName("runtime"), "fxbuild.local/runtime:1a2b3c4d"; got != want {
		t.Fatalf("imageName = %q, want %q", got, want)
	}
}
