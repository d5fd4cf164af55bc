package heartbeat

import (
	"context"
	"log/slog"
	"time"
)

type Transition struct {
	Component string `json:"component"`
	From      string `json:"from"`
	To        string `json:"to"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Monitor polls a registry and logs every component state change.
type Monitor struct {
	registry     *Registry
	interval     time.Duration
	staleAfter   time.Duration
	logger       *slog.Logger
	onTransition func(Transition)
}

func NewMonitor(registry *Registry, interval, staleAfter time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		registry:   registry,
		interval:   interval,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

func (m *Monitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.logger.Info("heartbeat monitor started", "interval", m.interval.String(), "stale_after", m.staleAfter.String())

	previous := map[string]string{}
	for {
		for _, transition := range diff(previous, m.registry.Snapshot(m.staleAfter)) {
			m.emit(transition)
		}
		select {
		case <-ctx.Done():
			m.logger.Info("heartbeat monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) emit(transition Transition) {
	attrs := []any{"component", transition.Component, "from", transition.From, "to", transition.To}
	if transition.Error != "" {
		attrs = append(attrs, "error", transition.Error)
	}
	if transition.To == StateDegraded || transition.To == StateStale {
		m.logger.Warn("component health changed", attrs...)
	} else {
		m.logger.Info("component health changed", attrs...)
	}
	if m.onTransition != nil {
		m.onTransition(transition)
	}
}

func diff(previous map[string]string, snapshot Snapshot) []Transition {
	var transitions []Transition
	for _, item := range snapshot.Components {
		before, seen := previous[item.Name]
		previous[item.Name] = item.State
		if !seen || before == item.State {
			continue
		}
		transitions = append(transitions, Transition{
			Component: item.Name,
			From:      before,
			To:        item.State,
			Message:   item.Message,
			Error:     item.Error,
		})
	}
	return transitions
}
