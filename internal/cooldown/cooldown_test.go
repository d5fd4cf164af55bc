package cooldown

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTrackerWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tracker := New(time.Minute)
	tracker.now = func() time.Time { return now }

	if ok, _ := tracker.Allow("guild-1"); !ok {
		t.Fatal("expected first use to be allowed")
	}
	now = now.Add(20 * time.Second)
	ok, remaining := tracker.Allow("guild-1")
	if ok {
		t.Fatal("expected second use inside window to be rejected")
	}
	if remaining != 40*time.Second {
		t.Fatalf("expected 40s remaining, got %s", remaining)
	}
	if ok, _ := tracker.Allow("guild-2"); !ok {
		t.Fatal("expected other scope to be independent")
	}

	now = now.Add(41 * time.Second)
	if ok, _ := tracker.Allow("GUILD-1"); !ok {
		t.Fatal("expected use after window to be allowed")
	}
}

func TestTrackerDropsExpiredScopes(t *testing.T) {
	tracker := New(20 * time.Millisecond)
	tracker.Allow("a")
	tracker.Allow("b")
	if got := len(tracker.uses.Keys()); got != 2 {
		t.Fatalf("expected two tracked scopes, have %d", got)
	}

	deadline := time.Now().Add(time.Second)
	for len(tracker.uses.Keys()) > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := len(tracker.uses.Keys()); got != 0 {
		t.Fatalf("expected expired scopes to be dropped, have %d", got)
	}
	if ok, _ := tracker.Allow("a"); !ok {
		t.Fatal("expected scope to be allowed again after expiry")
	}
}

func TestTrackerConcurrentUseAllowsOnce(t *testing.T) {
	tracker := New(time.Minute)
	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := tracker.Allow("guild-1"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	if allowed.Load() != 1 {
		t.Fatalf("expected exactly one use inside the window, got %d", allowed.Load())
	}
}
