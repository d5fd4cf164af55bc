// Package httpapi serves health probes, a JSON run endpoint and the MCP
// transport.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dwizi/playbot/internal/commands"
	"github.com/dwizi/playbot/internal/config"
	"github.com/dwizi/playbot/internal/dispatch"
	"github.com/dwizi/playbot/internal/heartbeat"
)

type CommandService interface {
	Evaluate(ctx context.Context, input commands.EvalInput) (commands.EvalResult, error)
	HandleMessage(ctx context.Context, input commands.MessageInput) (commands.MessageOutput, error)
	ErrorReply(err error, attrs ...any) commands.Reply
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Dispatcher interface {
	Enqueue(job dispatch.Job) (dispatch.Job, error)
}

type Dependencies struct {
	Config              config.Config
	Version             string
	Cache               Pinger
	Commands            CommandService
	Engine              Dispatcher
	MCP                 http.Handler
	Logger              *slog.Logger
	Heartbeat           *heartbeat.Registry
	HeartbeatStaleAfter time.Duration
}

type router struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) http.Handler {
	rt := &router{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.handleHealth)
	mux.HandleFunc("/readyz", rt.handleReady)
	mux.HandleFunc("/api/v1/heartbeat", rt.handleHeartbeat)
	mux.HandleFunc("/api/v1/info", rt.handleInfo)
	mux.HandleFunc("/api/v1/run", rt.handleRun)
	mux.HandleFunc("/api/v1/chat", rt.handleChat)
	if deps.MCP != nil {
		mux.Handle("/mcp", deps.MCP)
		mux.Handle("/mcp/", deps.MCP)
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
