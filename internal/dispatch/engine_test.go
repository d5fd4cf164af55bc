package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func noop(ctx context.Context) error { return nil }

func TestEnqueueAssignsDefaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := New(1, logger)

	job, err := engine.Enqueue(Job{Source: "discord", Run: noop})
	if err != nil {
		t.Fatalf("enqueue returned error: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated job ID")
	}
	if job.Kind != JobKindMessage {
		t.Fatalf("expected default job kind %q, got %q", JobKindMessage, job.Kind)
	}
	if job.CreatedAt.IsZero() {
		t.Fatal("expected created timestamp")
	}
	if _, err := engine.Enqueue(Job{}); err == nil {
		t.Fatal("expected error for job without run function")
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := New(1, logger)

	for index := 0; index < 50; index++ {
		if _, err := engine.Enqueue(Job{Run: noop}); err != nil {
			t.Fatalf("unexpected enqueue error before queue full: %v", err)
		}
	}
	if _, err := engine.Enqueue(Job{Run: noop}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestEngineRunsJobsConcurrentlyAndStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := New(3, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Start(ctx) }()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ran     int
		release = make(chan struct{})
	)
	for index := 0; index < 3; index++ {
		wg.Add(1)
		_, err := engine.Enqueue(Job{Run: func(ctx context.Context) error {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
			<-release
			return nil
		}})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	wg.Add(1)
	_, _ = engine.Enqueue(Job{Run: func(ctx context.Context) error {
		defer wg.Done()
		panic("handler bug")
	}})

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		current := ran
		mu.Unlock()
		if current == 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected three jobs to run at once, got %d", current)
		case <-time.After(10 * time.Millisecond):
		}
	}
	close(release)
	wg.Wait()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start returned error: %v", err)
	}
}
