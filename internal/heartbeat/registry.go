// Package heartbeat tracks the health of long running components so the
// HTTP API can report readiness.
package heartbeat

import (
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	StateStarting = "starting"
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateDisabled = "disabled"
	StateStopped  = "stopped"
	StateStale    = "stale"

	OverallIdle    = "idle"
	OverallUnknown = "unknown"
)

type Reporter interface {
	Starting(component, message string)
	Beat(component, message string)
	Degrade(component, message string, err error)
	Disabled(component, message string)
	Stopped(component, message string)
}

type ComponentStatus struct {
	Name           string `json:"name"`
	State          string `json:"state"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
	LastBeatAtUnix int64  `json:"last_beat_at_unix,omitempty"`
	UpdatedAtUnix  int64  `json:"updated_at_unix"`
}

type Snapshot struct {
	GeneratedAtUnix int64             `json:"generated_at_unix"`
	Overall         string            `json:"overall"`
	Components      []ComponentStatus `json:"components"`
}

// Ready reports whether no component is degraded or stale.
func (s Snapshot) Ready() bool {
	return s.Overall != StateDegraded
}

type component struct {
	state      string
	message    string
	lastError  string
	lastBeatAt time.Time
	updatedAt  time.Time
}

type Registry struct {
	mu         sync.RWMutex
	components map[string]component
	now        func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		components: map[string]component{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *Registry) Starting(name, message string) {
	r.set(name, StateStarting, message, nil)
}

func (r *Registry) Beat(name, message string) {
	r.set(name, StateHealthy, message, nil)
}

func (r *Registry) Degrade(name, message string, err error) {
	r.set(name, StateDegraded, message, err)
}

func (r *Registry) Disabled(name, message string) {
	r.set(name, StateDisabled, message, nil)
}

func (r *Registry) Stopped(name, message string) {
	r.set(name, StateStopped, message, nil)
}

func (r *Registry) set(name, state, message string, err error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	record := r.components[name]
	record.state = state
	record.message = strings.TrimSpace(message)
	record.lastError = ""
	if err != nil {
		record.lastError = strings.TrimSpace(err.Error())
	}
	if state == StateHealthy || record.lastBeatAt.IsZero() {
		record.lastBeatAt = now
	}
	record.updatedAt = now
	r.components[name] = record
}

// Snapshot lists every component. A healthy or starting component that has
// not beaten within staleAfter is reported stale; zero disables the check.
func (r *Registry) Snapshot(staleAfter time.Duration) Snapshot {
	now := r.now()
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]ComponentStatus, 0, len(r.components))
	for name, record := range r.components {
		status := ComponentStatus{
			Name:           name,
			State:          record.state,
			Message:        record.message,
			Error:          record.lastError,
			LastBeatAtUnix: record.lastBeatAt.Unix(),
			UpdatedAtUnix:  record.updatedAt.Unix(),
		}
		active := record.state == StateHealthy || record.state == StateStarting
		if staleAfter > 0 && active && now.Sub(record.lastBeatAt) > staleAfter {
			status.State = StateStale
		}
		results = append(results, status)
	}
	sort.Slice(results, func(left, right int) bool {
		return results[left].Name < results[right].Name
	})

	return Snapshot{
		GeneratedAtUnix: now.Unix(),
		Overall:         overall(results),
		Components:      results,
	}
}

func overall(items []ComponentStatus) string {
	if len(items) == 0 {
		return OverallUnknown
	}
	starting, healthy := false, false
	for _, item := range items {
		switch item.State {
		case StateDegraded, StateStale:
			return StateDegraded
		case StateStarting:
			starting = true
		case StateHealthy:
			healthy = true
		}
	}
	switch {
	case starting:
		return StateStarting
	case healthy:
		return StateHealthy
	default:
		return OverallIdle
	}
}
