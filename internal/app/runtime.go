package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dwizi/playbot/internal/cache"
	"github.com/dwizi/playbot/internal/commands"
	"github.com/dwizi/playbot/internal/config"
	"github.com/dwizi/playbot/internal/connectors"
	"github.com/dwizi/playbot/internal/connectors/discord"
	"github.com/dwizi/playbot/internal/cratesio"
	"github.com/dwizi/playbot/internal/dispatch"
	"github.com/dwizi/playbot/internal/docs"
	"github.com/dwizi/playbot/internal/heartbeat"
	"github.com/dwizi/playbot/internal/httpapi"
	"github.com/dwizi/playbot/internal/mcpserver"
	"github.com/dwizi/playbot/internal/playground"
	"github.com/dwizi/playbot/internal/scheduler"
	"github.com/dwizi/playbot/internal/watcher"
)

const heartbeatStaleAfter = 2 * time.Minute

// NewCore opens the cache and builds the command service.
func NewCore(cfg config.Config, logger *slog.Logger) (*Core, error) {
	store, sqliteStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	cacheClient := cache.New(store, logger.With("component", "cache"))

	docsIndex := docs.New(cfg.DocsDir, logger.With("component", "docs"))
	if err := docsIndex.Load(); err != nil {
		logger.Warn("docs index load failed", "dir", cfg.DocsDir, "error", err)
	}

	service := commands.New(
		commands.Config{
			Prefix:          cfg.CommandPrefix,
			MaxCodeSize:     cfg.MaxCodeSize,
			OutputMaxLines:  cfg.OutputMaxLines,
			OutputMaxBytes:  cfg.OutputMaxBytes,
			CacheTTLSeconds: cfg.CacheTTLSeconds,
			PublishCooldown: time.Duration(cfg.PublishCooldownSeconds) * time.Second,
		},
		playground.New(cfg.PlaygroundURL, time.Duration(cfg.PlaygroundTimeoutSec)*time.Second),
		cratesio.New(cfg.CratesAPIURL, cfg.ContactEmail),
		docsIndex,
		cacheClient,
		logger.With("component", "commands"),
	)
	return &Core{
		Service: service,
		Cache:   cacheClient,
		Docs:    docsIndex,
		sqlite:  sqliteStore,
	}, nil
}

func openStore(cfg config.Config) (cache.Store, *cache.SQLiteStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.CacheBackend)) {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create cache directory: %w", err)
		}
		sqliteStore, err := cache.NewSQLiteStore(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqliteStore.AutoMigrate(context.Background()); err != nil {
			sqliteStore.Close()
			return nil, nil, err
		}
		return sqliteStore, sqliteStore, nil
	case "redis", "":
		redisStore, err := cache.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redisStore, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q", cfg.CacheBackend)
	}
}

func (c *Core) Close() error {
	if c == nil || c.Cache == nil {
		return nil
	}
	return c.Cache.Close()
}

func New(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if err := os.MkdirAll(cfg.DocsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create docs directory: %w", err)
	}
	core, err := NewCore(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := heartbeat.NewRegistry()
	registry.Starting("runtime", "booting")

	engine := dispatch.New(cfg.DefaultConcurrency, logger.With("component", "dispatch"))

	docsWatcher, err := watcher.New([]string{cfg.DocsDir}, docs.Extensions, logger.With("component", "watcher"), core.Docs.Reload)
	if err != nil {
		core.Close()
		return nil, err
	}

	jobs := []scheduler.Job{
		{Name: "warm-playground-metadata", Timeout: time.Minute, Run: core.Service.Warm},
	}
	if core.sqlite != nil {
		sqliteStore := core.sqlite
		pruneLogger := logger.With("component", "cache")
		jobs = append(jobs, scheduler.Job{Name: "prune-cache", Timeout: time.Minute, Run: func(ctx context.Context) error {
			removed, err := sqliteStore.Prune(ctx)
			if err != nil {
				return err
			}
			pruneLogger.Info("expired cache entries pruned", "removed", removed)
			return nil
		}})
	}
	warmer, err := scheduler.New(cfg.WarmSchedule, jobs, logger.With("component", "scheduler"))
	if err != nil {
		core.Close()
		return nil, err
	}

	connectorList := []connectors.Connector{
		discord.New(
			cfg.DiscordToken,
			cfg.DiscordAPIBase,
			cfg.DiscordGatewayURL,
			core.Service,
			logger.With("connector", "discord"),
			discord.WithCommandSync(cfg.CommandSyncEnabled),
			discord.WithCommandGuildIDs(parseCSVList(cfg.DiscordCommandGuildIDs)),
			discord.WithApplicationID(cfg.DiscordApplicationID),
			discord.WithDispatcher(engine),
			discord.WithHeartbeatReporter(registry),
		),
	}
	warmer.SetHeartbeatReporter(registry)

	var mcpHandler http.Handler
	if cfg.MCPEnabled {
		mcpHandler = mcpserver.New(core.Service, Version, logger.With("component", "mcp")).Handler()
	}
	router := httpapi.NewRouter(httpapi.Dependencies{
		Config:              cfg,
		Version:             Version,
		Cache:               core.Cache,
		Commands:            core.Service,
		Engine:              engine,
		MCP:                 mcpHandler,
		Logger:              logger.With("component", "api"),
		Heartbeat:           registry,
		HeartbeatStaleAfter: heartbeatStaleAfter,
	})

	return &Runtime{
		Core:             core,
		cfg:              cfg,
		logger:           logger,
		engine:           engine,
		httpServer:       &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second},
		watcher:          docsWatcher,
		scheduler:        warmer,
		connectors:       connectorList,
		heartbeat:        registry,
		heartbeatMonitor: heartbeat.NewMonitor(registry, 30*time.Second, heartbeatStaleAfter, logger.With("component", "heartbeat")),
	}, nil
}
