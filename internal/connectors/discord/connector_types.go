package discord

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dwizi/playbot/internal/commands"
)

type gatewayEnvelope struct {
	Op int             `json:"op"`
	T  string          `json:"t"`
	S  *int64          `json:"s"`
	D  json.RawMessage `json:"d"`
}

type discordHello struct {
	HeartbeatIntervalMS int64 `json:"heartbeat_interval"`
}

type discordReady struct {
	User discordAuthor `json:"user"`
}

type discordMessageCreate struct {
	ID        string        `json:"id"`
	ChannelID string        `json:"channel_id"`
	GuildID   string        `json:"guild_id"`
	Content   string        `json:"content"`
	Author    discordAuthor `json:"author"`
}

type discordInteractionCreate struct {
	ID            string                   `json:"id"`
	ApplicationID string                   `json:"application_id"`
	Type          int                      `json:"type"`
	Token         string                   `json:"token"`
	ChannelID     string                   `json:"channel_id"`
	GuildID       string                   `json:"guild_id"`
	Data          discordInteractionData   `json:"data"`
	Member        discordInteractionMember `json:"member"`
	User          discordAuthor            `json:"user"`
}

func (interaction discordInteractionCreate) userID() string {
	if strings.TrimSpace(interaction.Member.User.ID) != "" {
		return strings.TrimSpace(interaction.Member.User.ID)
	}
	return strings.TrimSpace(interaction.User.ID)
}

type discordInteractionData struct {
	Name     string                     `json:"name"`
	Options  []discordInteractionOption `json:"options"`
	Resolved discordResolved            `json:"resolved"`
}

type discordResolved struct {
	Attachments map[string]discordAttachment `json:"attachments"`
}

type discordInteractionOption struct {
	Name    string                     `json:"name"`
	Type    int                        `json:"type"`
	Value   any                        `json:"value"`
	Options []discordInteractionOption `json:"options"`
}

func (option discordInteractionOption) valueAsString() string {
	if option.Value == nil {
		return ""
	}
	switch value := option.Value.(type) {
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		if value {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", value)
	}
}

type discordInteractionMember struct {
	User discordAuthor `json:"user"`
}

type discordAuthor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

type discordAttachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Size        int    `json:"size"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

// discordMessage is the body of channel messages and interaction edits.
type discordMessage struct {
	Content string           `json:"content"`
	Embeds  []commands.Embed `json:"embeds,omitempty"`
	Flags   int              `json:"flags,omitempty"`
}

const flagEphemeral = 1 << 6

func clipDiscordMessage(content string) string {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) <= maxMessageLength {
		return trimmed
	}
	cut := maxMessageLength - 3
	for cut > 0 && !isRuneStart(trimmed[cut]) {
		cut--
	}
	return strings.TrimSpace(trimmed[:cut]) + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func ioReadAllLimited(body io.Reader, maxBytes int64) ([]byte, error) {
	limited := &io.LimitedReader{R: body, N: maxBytes + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("attachment too large")
	}
	return data, nil
}
