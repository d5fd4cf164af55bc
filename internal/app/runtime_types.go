package app

import (
	"log/slog"
	"net/http"

	"github.com/dwizi/playbot/internal/cache"
	"github.com/dwizi/playbot/internal/commands"
	"github.com/dwizi/playbot/internal/config"
	"github.com/dwizi/playbot/internal/connectors"
	"github.com/dwizi/playbot/internal/dispatch"
	"github.com/dwizi/playbot/internal/docs"
	"github.com/dwizi/playbot/internal/heartbeat"
	"github.com/dwizi/playbot/internal/scheduler"
	"github.com/dwizi/playbot/internal/watcher"
)

// Version is stamped at build time.
var Version = "0.1.0-dev"

// Core is the command pipeline without any long running surface. The CLI
// uses it directly for one-off runs.
type Core struct {
	Service *commands.Service
	Cache   *cache.Client
	Docs    *docs.Index

	sqlite *cache.SQLiteStore
}

type Runtime struct {
	*Core
	cfg              config.Config
	logger           *slog.Logger
	engine           *dispatch.Engine
	httpServer       *http.Server
	watcher          *watcher.Service
	scheduler        *scheduler.Service
	connectors       []connectors.Connector
	heartbeat        *heartbeat.Registry
	heartbeatMonitor *heartbeat.Monitor
}
