package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Environment        string
	HTTPAddr           string
	APIURL             string
	DataDir            string
	DefaultConcurrency int
	MCPEnabled         bool

	DiscordToken           string
	DiscordAPIBase         string
	DiscordGatewayURL      string
	DiscordApplicationID   string
	DiscordCommandGuildIDs string
	CommandSyncEnabled     bool
	CommandPrefix          string

	CacheBackend    string
	RedisURL        string
	CachePath       string
	CacheTTLSeconds int

	PlaygroundURL        string
	PlaygroundTimeoutSec int
	CratesAPIURL         string
	ContactEmail         string

	MaxCodeSize            int
	OutputMaxLines         int
	OutputMaxBytes         int
	PublishCooldownSeconds int

	DocsDir      string
	WarmSchedule string
}

func FromEnv() Config {
	dataDir := stringOrDefault("PLAYBOT_DATA_DIR", "/data")

	return Config{
		Environment:        stringOrDefault("PLAYBOT_ENV", "development"),
		HTTPAddr:           stringOrDefault("PLAYBOT_HTTP_ADDR", ":8080"),
		APIURL:             stringOrDefault("PLAYBOT_API_URL", "http://127.0.0.1:8080"),
		DataDir:            dataDir,
		DefaultConcurrency: intOrDefault("PLAYBOT_DEFAULT_CONCURRENCY", 8),
		MCPEnabled:         boolOrDefault("PLAYBOT_MCP_ENABLED", true),

		DiscordToken:           stringOrDefault("PLAYBOT_DISCORD_TOKEN", os.Getenv("DISCORD_TOKEN")),
		DiscordAPIBase:         stringOrDefault("PLAYBOT_DISCORD_API_BASE", "https://discord.com/api/v10"),
		DiscordGatewayURL:      stringOrDefault("PLAYBOT_DISCORD_GATEWAY_URL", "wss://gateway.discord.gg/?v=10&encoding=json"),
		DiscordApplicationID:   stringOrDefault("PLAYBOT_DISCORD_APPLICATION_ID", ""),
		DiscordCommandGuildIDs: stringOrDefault("PLAYBOT_DISCORD_COMMAND_GUILD_IDS", ""),
		CommandSyncEnabled:     boolOrDefault("PLAYBOT_COMMAND_SYNC_ENABLED", true),
		CommandPrefix:          stringOrDefault("PLAYBOT_COMMAND_PREFIX", "!"),

		CacheBackend:    cacheBackendOrDefault("PLAYBOT_CACHE_BACKEND", "redis"),
		RedisURL:        stringOrDefault("PLAYBOT_REDIS_URL", stringOrDefault("REDIS", "redis://127.0.0.1:6379/0")),
		CachePath:       stringOrDefault("PLAYBOT_CACHE_PATH", filepath.Join(dataDir, "playbot", "cache.sqlite")),
		CacheTTLSeconds: intOrDefault("PLAYBOT_CACHE_TTL_SECONDS", 86400),

		PlaygroundURL:        stringOrDefault("PLAYBOT_PLAYGROUND_URL", "https://play.rust-lang.org"),
		PlaygroundTimeoutSec: intOrDefault("PLAYBOT_PLAYGROUND_TIMEOUT_SECONDS", 30),
		CratesAPIURL:         stringOrDefault("PLAYBOT_CRATES_API_URL", "https://crates.io/api/v1"),
		ContactEmail:         stringOrDefault("PLAYBOT_CONTACT_EMAIL", os.Getenv("EMAIL")),

		MaxCodeSize:            intOrDefault("PLAYBOT_MAX_CODE_SIZE", 64<<10),
		OutputMaxLines:         intOrDefault("PLAYBOT_OUTPUT_MAX_LINES", 100),
		OutputMaxBytes:         intOrDefault("PLAYBOT_OUTPUT_MAX_BYTES", 1900),
		PublishCooldownSeconds: intOrDefault("PLAYBOT_PUBLISH_COOLDOWN_SECONDS", 60),

		DocsDir:      stringOrDefault("PLAYBOT_DOCS_DIR", filepath.Join(dataDir, "docs")),
		WarmSchedule: stringOrDefault("PLAYBOT_WARM_SCHEDULE", "@every 6h"),
	}
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return strings.TrimSpace(fallback)
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func boolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func cacheBackendOrDefault(name, fallback string) string {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch value {
	case "redis", "sqlite":
		return value
	default:
		return fallback
	}
}
