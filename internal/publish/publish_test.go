package publish

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// Records pushes and fails for refs listed in fail.
type fakePusher struct {
	mu     sync.Mutex
	pushed []string
	fail   map[string]error
	delay  map[string]time.Duration
}

func (f *fakePusher) Publish(ctx context.Context, ref string) (string, error) {
	if d := f.delay[ref]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.fail[ref]; err != nil {
		return "", err
	}
	f.mu.Lock()
	f.pushed = append(f.pushed, ref)
	f.mu.Unlock()
	return ref + "@sha256:feed", nil
}

func (f *fakePusher) sorted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Clone(f.pushed)
	slices.Sort(out)
	return out
}

func TestTags(t *testing.T) {
	got := Tags("ghcr.io/x/y", "abc1234")
	want := []string{"ghcr.io/x/y:latest", "ghcr.io/x/y:abc1234"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Tags mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishPushesEveryTag(t *testing.T) {
	f := &fakePusher{}
	refs := Tags("ghcr.io/x/y", "abc1234")

	published, err := Publish(context.Background(), f, refs)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"ghcr.io/x/y:abc1234", "ghcr.io/x/y:latest"}, f.sorted()); diff != "" {
		t.Fatalf("pushed mismatch (-want +got):\n%s", diff)
	}
	want := []string{"ghcr.io/x/y:latest@sha256:feed", "ghcr.io/x/y:abc1234@sha256:feed"}
	if diff := cmp.Diff(want, published); diff != "" {
		t.Fatalf("published mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishFailureDoesNotCancelSibling(t *testing.T) {
	boom := errors.New("denied")
	f := &fakePusher{
		fail:  map[string]error{"r:latest": boom},
		delay: map[string]time.Duration{"r:abc1234": 20 * time.Millisecond},
	}

	published, err := Publish(context.Background(), f, Tags("r", "abc1234"))
	if !errors.Is(err, ErrPublish) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrPublish wrapping the push failure", err)
	}

	if diff := cmp.Diff([]string{"r:abc1234"}, f.sorted()); diff != "" {
		t.Fatalf("pushed mismatch (-want +got):\n%s", diff)
	}
	if published[0] != "" || published[1] == "" {
		t.Fatalf("published = %q, want only the revision tag", published)
	}
}

func TestPublishJoinsAllFailures(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	f := &fakePusher{fail: map[string]error{"r:latest": first, "r:abc1234": second}}

	_, err := Publish(context.Background(), f, Tags("r", "abc1234"))
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("err = %v, want both failures", err)
	}
	if !strings.Contains(err.Error(), "r:latest") || !strings.Contains(err.Error(), "r:abc1234") {
		t.Fatalf("err = %q, want both refs named", err)
	}
}

func TestPublishNoRefs(t *testing.T) {
	published, err := Publish(context.Background(), &fakePusher{}, nil)
	if err != nil || len(published) != 0 {
		t.Fatalf("Publish(nil) = %v, %v", published, err)
	}
}
