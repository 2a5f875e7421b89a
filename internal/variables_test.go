package internal

import (
	"strings"
	"testing"
)

func withVariables(t *testing.T, v, commit string) {
	t.Helper()
	oldVersion, oldCommit := version, gitCommit
	version, gitCommit = v, commit
	t.Cleanup(func() {
		version, gitCommit = oldVersion, oldCommit
	})
}

func TestVersionStripsPrefix(t *testing.T) {
	withVariables(t, " V1.2.3 ", "abc1234")
	if got := Version(); got != "1.2.3" {
		t.Fatalf("Version() = %q, want 1.2.3", got)
	}
}

func TestVersionStringLocal(t *testing.T) {
	withVariables(t, "", "abc1234")
	if !IsLocal() {
		t.Fatal("IsLocal() = false, want true")
	}
	if got := VersionString(); got != defaultLocalBuild {
		t.Fatalf("VersionString() = %q, want %q", got, defaultLocalBuild)
	}
}

func TestVersionStringRelease(t *testing.T) {
	withVariables(t, "v0.4.1", "abc1234")
	got := VersionString()
	if !strings.HasPrefix(got, "0.4.1 abc1234 [") {
		t.Fatalf("VersionString() = %q, want prefix %q", got, "0.4.1 abc1234 [")
	}
}

func TestGitCommitUndefined(t *testing.T) {
	withVariables(t, "1.0.0", "  ")
	if got := GitCommit(); got != defaultUndefined {
		t.Fatalf("GitCommit() = %q, want %q", got, defaultUndefined)
	}
}
