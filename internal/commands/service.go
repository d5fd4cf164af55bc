// Package commands turns chat commands into playground, registry and docs
// lookups and formats the replies.
package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/dwizi/playbot/internal/boterr"
	"github.com/dwizi/playbot/internal/cache"
	"github.com/dwizi/playbot/internal/cooldown"
	"github.com/dwizi/playbot/internal/cratesio"
	"github.com/dwizi/playbot/internal/docs"
	"github.com/dwizi/playbot/internal/playground"
	"github.com/dwizi/playbot/internal/textutil"
)

type Playground interface {
	Execute(ctx context.Context, request playground.ExecuteRequest) (playground.ExecuteResponse, error)
	Miri(ctx context.Context, request playground.MiriRequest) (playground.ExecuteResponse, error)
	GistGet(ctx context.Context, id string) (playground.Gist, error)
	GistCreate(ctx context.Context, code string) (playground.Gist, error)
	Versions(ctx context.Context) (playground.Versions, error)
	Crates(ctx context.Context) (playground.Crates, error)
}

type Registry interface {
	GetCrate(ctx context.Context, name string) (cratesio.CrateResponse, error)
}

type DocsIndex interface {
	Search(source docs.Source, query string, limit int) []docs.Item
}

type Config struct {
	Prefix          string
	MaxCodeSize     int
	OutputMaxLines  int
	OutputMaxBytes  int
	CacheTTLSeconds int
	PublishCooldown time.Duration
}

type Service struct {
	cfg        Config
	playground Playground
	registry   Registry
	docs       DocsIndex
	cache      *cache.Client
	cooldown   *cooldown.Tracker
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg Config, playgroundClient Playground, registry Registry, docsIndex DocsIndex, cacheClient *cache.Client, logger *slog.Logger) *Service {
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = "!"
	}
	if cfg.MaxCodeSize < 1 {
		cfg.MaxCodeSize = 64 << 10
	}
	if cfg.OutputMaxLines < 1 {
		cfg.OutputMaxLines = textutil.DefaultMaxLines
	}
	if cfg.OutputMaxBytes < 1 {
		cfg.OutputMaxBytes = textutil.DefaultMaxBytes
	}
	if cfg.CacheTTLSeconds < 1 {
		cfg.CacheTTLSeconds = cache.DefaultTTLSeconds
	}
	if cfg.PublishCooldown <= 0 {
		cfg.PublishCooldown = time.Minute
	}
	return &Service{
		cfg:        cfg,
		playground: playgroundClient,
		registry:   registry,
		docs:       docsIndex,
		cache:      cacheClient,
		cooldown:   cooldown.New(cfg.PublishCooldown),
		logger:     logger,
		now:        time.Now,
	}
}

// MessageInput is a plain chat message that may carry a prefix command.
type MessageInput struct {
	Connector string
	ChannelID string
	GuildID   string
	UserID    string
	Text      string
}

type MessageOutput struct {
	Handled bool
	Reply   Reply
}

// Attachment is an uploaded file. Load is only called once the name and
// size checks pass.
type Attachment struct {
	Filename string
	Size     int
	URL      string
	Load     func(ctx context.Context) ([]byte, error)
}

// CommandInput is a structured invocation such as a slash command.
type CommandInput struct {
	Connector  string
	ChannelID  string
	GuildID    string
	UserID     string
	Name       string
	Subcommand string
	Options    map[string]string
	Attachment *Attachment
}

func (input CommandInput) option(name string) string {
	return strings.TrimSpace(input.Options[name])
}

func (s *Service) Prefix() string {
	return s.cfg.Prefix
}

func (s *Service) HandleMessage(ctx context.Context, input MessageInput) (MessageOutput, error) {
	text := strings.TrimSpace(input.Text)
	if !strings.HasPrefix(text, s.cfg.Prefix) {
		return MessageOutput{}, nil
	}
	command, rest := nextWord(strings.TrimPrefix(text, s.cfg.Prefix))
	command = strings.ToLower(command)
	if command == "cargo" {
		command, rest = nextWord(rest)
		command = strings.ToLower(command)
	}

	var (
		reply Reply
		err   error
	)
	switch command {
	case "run":
		reply, err = s.RunInline(ctx, input.UserID, rest)
	case "miri":
		reply, err = s.MiriInline(ctx, input.UserID, rest)
	case "publish":
		reply, err = s.Publish(ctx, scopeKey(input.GuildID, input.ChannelID), rest)
	case "share":
		reply, err = s.Share(ctx, rest)
	case "version":
		word, _ := nextWord(rest)
		reply, err = s.Version(ctx, playground.ParseChannel(word))
	case "crates":
		word, _ := nextWord(rest)
		reply, err = s.CratesPage(ctx, parsePage(word))
	case "crate":
		sub, args := nextWord(rest)
		if !strings.EqualFold(sub, "info") {
			return MessageOutput{}, nil
		}
		name, _ := nextWord(args)
		reply, err = s.CrateInfo(ctx, name)
	case "docs":
		source, query := nextWord(rest)
		reply, err = s.Docs(ctx, source, strings.TrimSpace(query))
	default:
		return MessageOutput{}, nil
	}
	if err != nil {
		return MessageOutput{Handled: true}, err
	}
	return MessageOutput{Handled: true, Reply: reply}, nil
}

func (s *Service) HandleCommand(ctx context.Context, input CommandInput) (Reply, error) {
	name := strings.ToLower(strings.TrimSpace(input.Name))
	sub := strings.ToLower(strings.TrimSpace(input.Subcommand))
	switch {
	case name == "run" && sub == "gist":
		return s.RunGist(ctx, input.option("id"), playground.ParamsFromOptions(input.Options))
	case name == "run" && sub == "file":
		return s.RunFile(ctx, input.Attachment, playground.ParamsFromOptions(input.Options))
	case name == "miri" && sub == "gist":
		return s.MiriGist(ctx, input.option("id"), playground.ParamsFromOptions(input.Options))
	case name == "miri" && sub == "file":
		return s.MiriFile(ctx, input.Attachment, playground.ParamsFromOptions(input.Options))
	case name == "crate" && sub == "info":
		return s.CrateInfo(ctx, input.option("name"))
	case name == "crates":
		return s.CratesPage(ctx, parsePage(input.option("page")))
	case name == "version":
		return s.Version(ctx, playground.ParseChannel(input.option("channel")))
	case name == "docs":
		return s.Docs(ctx, input.option("source"), input.option("query"))
	}
	return Reply{Content: "Unsupported command.", Ephemeral: true}, nil
}

// ErrorReply turns a handler error into the reply shown in chat. Input
// errors are echoed; everything else is logged and replaced by a generic
// message.
func (s *Service) ErrorReply(err error, attrs ...any) Reply {
	if boterr.IsUserError(err) {
		return Reply{Content: boterr.UserFacing(err), Ephemeral: true}
	}
	s.logger.Error("command failed", append([]any{"error", err}, attrs...)...)
	return Reply{Content: boterr.UserFacing(err), Ephemeral: true}
}

func nextWord(text string) (string, string) {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	end := strings.IndexFunc(text, unicode.IsSpace)
	if end < 0 {
		return text, ""
	}
	return text[:end], text[end:]
}

func scopeKey(guildID, channelID string) string {
	if strings.TrimSpace(guildID) != "" {
		return "guild:" + guildID
	}
	return "channel:" + channelID
}
