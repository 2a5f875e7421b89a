package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeEnv(t *testing.T) {
	tests := []struct {
		name      string
		base      []string
		overrides []string
		want      []string
	}{
		{
			name:      "override keeps position",
			base:      []string{"A=1", "B=2"},
			overrides: []string{"A=override"},
			want:      []string{"A=override", "B=2"},
		},
		{
			name:      "new key appended",
			base:      []string{"PATH=/bin"},
			overrides: []string{"CGO_ENABLED=0"},
			want:      []string{"PATH=/bin", "CGO_ENABLED=0"},
		},
		{
			name:      "empty base",
			overrides: []string{"A=1"},
			want:      []string{"A=1"},
		},
		{
			name: "both empty",
			want: []string{},
		},
		{
			name: "value with equals sign",
			base: []string{"CMD=foo=bar"},
			want: []string{"CMD=foo=bar"},
		},
		{
			name:      "malformed entries skipped",
			base:      []string{"NOEQUALS", "A=1"},
			overrides: []string{"ALSO_BAD", "B=2"},
			want:      []string{"A=1", "B=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeEnv(tt.base, tt.overrides)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("mergeEnv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeEnvDoesNotMutateBase(t *testing.T) {
	base := make([]string, 1, 4)
	base[0] = "A=1"
	_ = mergeEnv(base, []string{"B=2"})
	if got := base[:2][1]; got != "" {
		t.Fatalf("base backing array modified: %q", got)
	}
}

func TestNextExecID(t *testing.T) {
	a := nextExecID()
	b := nextExecID()
	if a == b {
		t.Fatalf("nextExecID returned duplicate: %q", a)
	}
	if a == "" || b == "" {
		t.Fatal("nextExecID returned empty string")
	}
}

func TestTail(t *testing.T) {
	if got := tail("abc", 10); got != "abc" {
		t.Fatalf("tail short = %q", got)
	}
	if got := tail("abcdef", 3); got != "def" {
		t.Fatalf("tail long = %q, want def", got)
	}
}
