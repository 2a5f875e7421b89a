package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/prod9/fxbuild/internal/plan"
)

func TestStepError(t *testing.T) {
	cause := errors.New("exit code 1")
	err := StepError("builder", 2, plan.Exec("go", "build"), cause)

	if !errors.Is(err, ErrStep) {
		t.Fatalf("error %v does not wrap ErrStep", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("error %v does not wrap the cause", err)
	}
	for _, want := range []string{`"builder"`, "step 3", "exec"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
