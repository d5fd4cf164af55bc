package httpapi

import "net/http"

func (r *router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *router) handleReady(w http.ResponseWriter, req *http.Request) {
	if r.deps.Cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready", "error": "cache is unavailable"})
		return
	}
	if err := r.deps.Cache.Ping(req.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready", "error": err.Error()})
		return
	}
	if r.deps.Heartbeat != nil {
		snapshot := r.deps.Heartbeat.Snapshot(r.deps.HeartbeatStaleAfter)
		if !snapshot.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "heartbeat": snapshot})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (r *router) handleHeartbeat(w http.ResponseWriter, req *http.Request) {
	if r.deps.Heartbeat == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  "heartbeat is disabled",
		})
		return
	}
	writeJSON(w, http.StatusOK, r.deps.Heartbeat.Snapshot(r.deps.HeartbeatStaleAfter))
}

func (r *router) handleInfo(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":           "playbot",
		"version":        r.deps.Version,
		"environment":    r.deps.Config.Environment,
		"command_prefix": r.deps.Config.CommandPrefix,
		"cache_backend":  r.deps.Config.CacheBackend,
		"playground_url": r.deps.Config.PlaygroundURL,
		"mcp_enabled":    r.deps.MCP != nil,
	})
}
