package commands

import (
	"context"
	"testing"

	"github.com/dwizi/playbot/internal/cache"
	"github.com/dwizi/playbot/internal/playground"
)

func TestWarmOverwritesCachedMetadata(t *testing.T) {
	service, deps := newTestService(t)
	deps.playground.crates = playground.Crates{Crates: []playground.Crate{{Name: "rand", Version: "0.8.5", ID: "rand"}}}

	if _, err := service.Crates(context.Background()); err != nil {
		t.Fatalf("prime crates: %v", err)
	}
	deps.playground.crates = playground.Crates{Crates: []playground.Crate{{Name: "rand", Version: "0.9.0", ID: "rand"}}}

	if err := service.Warm(context.Background()); err != nil {
		t.Fatalf("warm: %v", err)
	}
	cached, found, err := cache.Get[playground.Crates](context.Background(), service.cache, cache.KeyCrates)
	if err != nil || !found {
		t.Fatalf("expected cached crates, found=%v err=%v", found, err)
	}
	if cached.Crates[0].Version != "0.9.0" {
		t.Fatalf("expected refreshed crate list, got %+v", cached.Crates)
	}
	if !deps.redis.Exists(cache.KeyVersions) {
		t.Fatal("expected versions to be cached")
	}
	if ttl := deps.redis.TTL(cache.KeyVersions); ttl.Hours() != 24 {
		t.Fatalf("expected 24h ttl, got %s", ttl)
	}
}
