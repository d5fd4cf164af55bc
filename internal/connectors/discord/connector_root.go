// Package discord connects the command service to a Discord bot account
// through the gateway websocket and the REST API.
package discord

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dwizi/playbot/internal/commands"
	"github.com/dwizi/playbot/internal/dispatch"
	"github.com/dwizi/playbot/internal/heartbeat"
)

const (
	componentName = "connector:discord"

	discordIntentGuilds          = 1 << 0
	discordIntentGuildMessages   = 1 << 9
	discordIntentDirectMessages  = 1 << 12
	discordIntentMessageContents = 1 << 15

	maxMessageLength = 2000
	maxAttachment    = 2 << 20
)

type CommandService interface {
	Prefix() string
	HandleMessage(ctx context.Context, input commands.MessageInput) (commands.MessageOutput, error)
	HandleCommand(ctx context.Context, input commands.CommandInput) (commands.Reply, error)
	ErrorReply(err error, attrs ...any) commands.Reply
}

type Dispatcher interface {
	Enqueue(job dispatch.Job) (dispatch.Job, error)
}

type Connector struct {
	token           string
	apiBase         string
	gatewayURL      string
	commandSync     bool
	commandGuildIDs []string
	applicationID   string
	service         CommandService
	dispatcher      Dispatcher
	httpClient      *http.Client
	logger          *slog.Logger
	botUserID       string
	reporter        heartbeat.Reporter
	newBackOff      func() backoff.BackOff
}

type Option func(*Connector)

func WithCommandSync(enabled bool) Option {
	return func(connector *Connector) {
		connector.commandSync = enabled
	}
}

func WithCommandGuildIDs(guildIDs []string) Option {
	return func(connector *Connector) {
		clean := make([]string, 0, len(guildIDs))
		seen := map[string]struct{}{}
		for _, guildID := range guildIDs {
			value := strings.TrimSpace(guildID)
			if value == "" {
				continue
			}
			if _, exists := seen[value]; exists {
				continue
			}
			seen[value] = struct{}{}
			clean = append(clean, value)
		}
		connector.commandGuildIDs = clean
	}
}

func WithApplicationID(applicationID string) Option {
	return func(connector *Connector) {
		connector.applicationID = strings.TrimSpace(applicationID)
	}
}

// WithDispatcher runs inbound commands on a worker pool instead of the
// gateway read loop.
func WithDispatcher(dispatcher Dispatcher) Option {
	return func(connector *Connector) {
		connector.dispatcher = dispatcher
	}
}

func WithHeartbeatReporter(reporter heartbeat.Reporter) Option {
	return func(connector *Connector) {
		connector.reporter = reporter
	}
}

func New(token, apiBase, gatewayURL string, service CommandService, logger *slog.Logger, opts ...Option) *Connector {
	if strings.TrimSpace(apiBase) == "" {
		apiBase = "https://discord.com/api/v10"
	}
	if strings.TrimSpace(gatewayURL) == "" {
		gatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"
	}
	connector := &Connector{
		token:       strings.TrimSpace(token),
		apiBase:     strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		gatewayURL:  strings.TrimSpace(gatewayURL),
		commandSync: true,
		service:     service,
		httpClient:  &http.Client{Timeout: 12 * time.Second},
		logger:      logger,
		newBackOff:  reconnectBackOff,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(connector)
		}
	}
	return connector
}

func (c *Connector) Name() string {
	return "discord"
}

func reconnectBackOff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = time.Minute
	policy.MaxElapsedTime = 0
	return policy
}

func (c *Connector) report(apply func(heartbeat.Reporter)) {
	if c.reporter != nil {
		apply(c.reporter)
	}
}
