package discord

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dwizi/playbot/internal/commands"
	"github.com/dwizi/playbot/internal/dispatch"
)

func (c *Connector) syncCommands(ctx context.Context) error {
	applicationID, err := c.resolveApplicationID(ctx)
	if err != nil {
		return err
	}
	commandsPayload := buildDiscordCommandPayload(commands.SlashCommands())
	if len(commandsPayload) == 0 {
		return nil
	}
	if len(c.commandGuildIDs) == 0 {
		url := fmt.Sprintf("%s/applications/%s/commands", c.apiBase, applicationID)
		return c.doJSON(ctx, http.MethodPut, url, commandsPayload, nil)
	}
	for _, guildID := range c.commandGuildIDs {
		url := fmt.Sprintf("%s/applications/%s/guilds/%s/commands", c.apiBase, applicationID, guildID)
		if err := c.doJSON(ctx, http.MethodPut, url, commandsPayload, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connector) resolveApplicationID(ctx context.Context) (string, error) {
	if strings.TrimSpace(c.applicationID) != "" {
		return c.applicationID, nil
	}
	var payload struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.apiBase+"/oauth2/applications/@me", nil, &payload); err != nil {
		return "", fmt.Errorf("discord application lookup: %w", err)
	}
	applicationID := strings.TrimSpace(payload.ID)
	if applicationID == "" {
		return "", fmt.Errorf("discord application lookup returned empty id")
	}
	c.applicationID = applicationID
	return applicationID, nil
}

func buildDiscordCommandPayload(slash []commands.SlashCommand) []map[string]any {
	payload := make([]map[string]any, 0, len(slash))
	for _, command := range slash {
		name := strings.TrimSpace(command.Name)
		if name == "" {
			continue
		}
		entry := map[string]any{
			"name":        name,
			"description": discordCommandDescription(command.Description),
			"type":        1,
		}
		if len(command.Options) > 0 {
			entry["options"] = buildDiscordOptions(command.Options)
		}
		payload = append(payload, entry)
	}
	return payload
}

func buildDiscordOptions(options []commands.Option) []map[string]any {
	out := make([]map[string]any, 0, len(options))
	for _, option := range options {
		entry := map[string]any{
			"type":        int(option.Type),
			"name":        option.Name,
			"description": discordCommandDescription(option.Description),
		}
		if option.Required {
			entry["required"] = true
		}
		if len(option.Choices) > 0 {
			choices := make([]map[string]any, 0, len(option.Choices))
			for _, choice := range option.Choices {
				choices = append(choices, map[string]any{"name": choice.Name, "value": choice.Value})
			}
			entry["choices"] = choices
		}
		if len(option.Options) > 0 {
			entry["options"] = buildDiscordOptions(option.Options)
		}
		out = append(out, entry)
	}
	return out
}

func discordCommandDescription(description string) string {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return "Playground command"
	}
	if len(trimmed) > 100 {
		return strings.TrimSpace(trimmed[:100])
	}
	return trimmed
}

func (c *Connector) handleInteractionCreate(ctx context.Context, interaction discordInteractionCreate) error {
	if interaction.Type != 2 {
		return nil
	}
	input := c.commandInput(interaction)
	if strings.TrimSpace(input.Name) == "" {
		return c.sendInteractionResponse(ctx, interaction, "Unsupported command payload.")
	}
	if input.UserID == "" {
		return c.sendInteractionResponse(ctx, interaction, "Missing user context.")
	}
	if err := c.deferInteraction(ctx, interaction); err != nil {
		return err
	}
	return c.dispatch(ctx, dispatch.JobKindInteraction, interaction.ChannelID, func(ctx context.Context) error {
		reply, err := c.service.HandleCommand(ctx, input)
		if err != nil {
			reply = c.service.ErrorReply(err, "channel_id", interaction.ChannelID, "command", input.Name)
		}
		return c.editInteractionResponse(ctx, interaction, reply)
	}, func(ctx context.Context, reply commands.Reply) error {
		return c.editInteractionResponse(ctx, interaction, reply)
	})
}

// commandInput flattens a slash command with an optional subcommand into
// named options. Attachment options are resolved through the payload.
func (c *Connector) commandInput(interaction discordInteractionCreate) commands.CommandInput {
	input := commands.CommandInput{
		Connector: "discord",
		ChannelID: strings.TrimSpace(interaction.ChannelID),
		GuildID:   strings.TrimSpace(interaction.GuildID),
		UserID:    interaction.userID(),
		Name:      strings.TrimSpace(interaction.Data.Name),
		Options:   map[string]string{},
	}
	options := interaction.Data.Options
	if len(options) == 1 && options[0].Type == int(commands.OptionSubcommand) {
		input.Subcommand = options[0].Name
		options = options[0].Options
	}
	for _, option := range options {
		value := strings.TrimSpace(option.valueAsString())
		if value == "" {
			continue
		}
		if option.Type == int(commands.OptionAttachment) {
			if attachment, ok := interaction.Data.Resolved.Attachments[value]; ok {
				input.Attachment = c.attachment(attachment)
			}
			continue
		}
		input.Options[option.Name] = value
	}
	return input
}

func (c *Connector) sendInteractionResponse(ctx context.Context, interaction discordInteractionCreate, content string) error {
	return c.interactionCallback(ctx, interaction, map[string]any{
		"type": 4,
		"data": discordMessage{Content: clipDiscordMessage(content), Flags: flagEphemeral},
	})
}

func (c *Connector) deferInteraction(ctx context.Context, interaction discordInteractionCreate) error {
	return c.interactionCallback(ctx, interaction, map[string]any{"type": 5})
}

func (c *Connector) interactionCallback(ctx context.Context, interaction discordInteractionCreate, body map[string]any) error {
	if strings.TrimSpace(interaction.ID) == "" || strings.TrimSpace(interaction.Token) == "" {
		return fmt.Errorf("missing interaction id or token")
	}
	endpoint := fmt.Sprintf("%s/interactions/%s/%s/callback", c.apiBase, interaction.ID, interaction.Token)
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("discord interaction response: %w", err)
	}
	return nil
}

func (c *Connector) editInteractionResponse(ctx context.Context, interaction discordInteractionCreate, reply commands.Reply) error {
	applicationID := strings.TrimSpace(interaction.ApplicationID)
	if applicationID == "" {
		applicationID = c.applicationID
	}
	if applicationID == "" {
		return fmt.Errorf("missing application id for interaction edit")
	}
	endpoint := fmt.Sprintf("%s/webhooks/%s/%s/messages/@original", c.apiBase, applicationID, interaction.Token)
	body := discordMessage{Content: clipDiscordMessage(reply.Content), Embeds: reply.Embeds}
	if err := c.doJSON(ctx, http.MethodPatch, endpoint, body, nil); err != nil {
		return fmt.Errorf("discord interaction edit: %w", err)
	}
	return nil
}
