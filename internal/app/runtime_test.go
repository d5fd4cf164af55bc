package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dwizi/playbot/internal/config"
	"github.com/dwizi/playbot/internal/heartbeat"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, playgroundURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Environment:            "test",
		HTTPAddr:               "127.0.0.1:0",
		DataDir:                dir,
		DefaultConcurrency:     2,
		CommandPrefix:          "!",
		CacheBackend:           "sqlite",
		CachePath:              filepath.Join(dir, "playbot", "cache.sqlite"),
		CacheTTLSeconds:        60,
		PlaygroundURL:          playgroundURL,
		PlaygroundTimeoutSec:   5,
		CratesAPIURL:           playgroundURL,
		MaxCodeSize:            1024,
		OutputMaxLines:         10,
		OutputMaxBytes:         500,
		PublishCooldownSeconds: 60,
		DocsDir:                filepath.Join(dir, "docs"),
		WarmSchedule:           "@every 1h",
		MCPEnabled:             true,
	}
}

func TestParseCSVList(t *testing.T) {
	got := parseCSVList(" 123, ,456,123 ,789 ")
	if diff := cmp.Diff([]string{"123", "456", "789"}, got); diff != "" {
		t.Fatalf("unexpected list (-want +got):\n%s", diff)
	}
	if parseCSVList("  ") != nil {
		t.Fatal("expected nil for blank input")
	}
}

func TestRunMonitoredReportsLifecycle(t *testing.T) {
	registry := heartbeat.NewRegistry()

	err := runMonitored(context.Background(), registry, "dispatch", 0, func(ctx context.Context) error {
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	snapshot := registry.Snapshot(0)
	if snapshot.Components[0].State != heartbeat.StateDegraded {
		t.Fatalf("expected degraded, got %+v", snapshot.Components[0])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = runMonitored(ctx, registry, "dispatch", 0, func(ctx context.Context) error {
		return ctx.Err()
	})
	if state := registry.Snapshot(0).Components[0].State; state != heartbeat.StateStopped {
		t.Fatalf("expected stopped, got %s", state)
	}
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.CacheBackend = "memcached"
	if _, _, err := openStore(cfg); err == nil {
		t.Fatal("expected unsupported backend error")
	}
}

func TestNewCoreWithSQLiteCache(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	core, err := NewCore(cfg, testLogger())
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	defer core.Close()

	if core.sqlite == nil {
		t.Fatal("expected sqlite store")
	}
	if err := core.Cache.Ping(context.Background()); err != nil {
		t.Fatalf("ping cache: %v", err)
	}
	if core.Service.Prefix() != "!" {
		t.Fatalf("unexpected prefix: %s", core.Service.Prefix())
	}
}

func TestRuntimeRunWarmsCacheAndStops(t *testing.T) {
	var metaCalls atomic.Int32
	playground := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch req.URL.Path {
		case "/meta/versions":
			metaCalls.Add(1)
			_, _ = w.Write([]byte(`{"stable":{"rustc":{"version":"1.85.0","hash":"abc","date":"2025-02-17"}}}`))
		case "/meta/crates":
			metaCalls.Add(1)
			_, _ = w.Write([]byte(`{"crates":[{"name":"rand","version":"0.8.5","id":"rand"}]}`))
		default:
			http.NotFound(w, req)
		}
	}))
	defer playground.Close()

	runtime, err := New(testConfig(t, playground.URL), testLogger())
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer runtime.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runtime.Run(ctx)
	}()

	deadline := time.After(3 * time.Second)
	for metaCalls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("expected scheduler to warm the cache")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("runtime did not stop")
	}

	versions, err := runtime.Service.Versions(context.Background())
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if versions.Stable.Rustc.Version != "1.85.0" {
		t.Fatalf("unexpected cached versions: %+v", versions)
	}
	if metaCalls.Load() != 2 {
		t.Fatalf("expected versions to be served from cache, got %d playground calls", metaCalls.Load())
	}
}
