package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestFixedWindow_LimitAndReset(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFixedWindow(2, time.Minute)
	f.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false, false} {
		got, err := f.Allow(ctx, "1.2.3.4|/api/activities")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if got != want {
			t.Errorf("request %d: got %v, want %v", i, got, want)
		}
	}

	// Other keys have their own window.
	if ok, _ := f.Allow(ctx, "1.2.3.4|/api/portfolio"); !ok {
		t.Error("different route should be allowed")
	}

	now = now.Add(time.Minute)
	if ok, _ := f.Allow(ctx, "1.2.3.4|/api/activities"); !ok {
		t.Error("window should reset after it elapses")
	}
}

func TestFixedWindow_SweepsExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFixedWindow(1, time.Second)
	f.now = func() time.Time { return now }
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		_, _ = f.Allow(ctx, k)
	}

	now = now.Add(2 * time.Second)
	_, _ = f.Allow(ctx, "d")

	if len(f.counters) != 1 {
		t.Errorf("expected expired counters to be swept, have %d", len(f.counters))
	}
}
