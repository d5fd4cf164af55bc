package discord

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dwizi/playbot/internal/boterr"
	"github.com/dwizi/playbot/internal/commands"
	"github.com/dwizi/playbot/internal/dispatch"
	"github.com/dwizi/playbot/internal/textutil"
)

func (c *Connector) handleMessageCreate(ctx context.Context, message discordMessageCreate) error {
	if message.Author.Bot {
		return nil
	}
	text := strings.TrimSpace(message.Content)
	if text == "" || !strings.HasPrefix(text, c.service.Prefix()) {
		return nil
	}
	input := commands.MessageInput{
		Connector: "discord",
		ChannelID: message.ChannelID,
		GuildID:   message.GuildID,
		UserID:    message.Author.ID,
		Text:      text,
	}
	return c.dispatch(ctx, dispatch.JobKindMessage, message.ChannelID, func(ctx context.Context) error {
		output, err := c.service.HandleMessage(ctx, input)
		if err != nil {
			return c.sendChannelReply(ctx, message.ChannelID, c.service.ErrorReply(err, "channel_id", message.ChannelID, "message_id", message.ID))
		}
		if !output.Handled {
			return nil
		}
		return c.sendChannelReply(ctx, message.ChannelID, output.Reply)
	}, func(ctx context.Context, reply commands.Reply) error {
		return c.sendChannelReply(ctx, message.ChannelID, reply)
	})
}

// dispatch runs work on the worker pool when one is configured, otherwise
// inline. A full queue is reported back to the user through busy.
func (c *Connector) dispatch(ctx context.Context, kind dispatch.JobKind, source string, work func(context.Context) error, busy func(context.Context, commands.Reply) error) error {
	if c.dispatcher == nil {
		return work(ctx)
	}
	_, err := c.dispatcher.Enqueue(dispatch.Job{
		Kind:      kind,
		Source:    "discord:" + source,
		CreatedAt: time.Now().UTC(),
		Run:       work,
	})
	if errors.Is(err, dispatch.ErrQueueFull) {
		c.logger.Warn("dispatch queue full, dropping discord command", "source", source)
		return busy(ctx, commands.Reply{Content: boterr.UserFacing(err), Ephemeral: true})
	}
	return err
}

// sendChannelReply posts the reply, splitting long content over several
// messages. Embeds go with the last one.
func (c *Connector) sendChannelReply(ctx context.Context, channelID string, reply commands.Reply) error {
	chunks := textutil.Split(strings.TrimSpace(reply.Content), maxMessageLength)
	if len(chunks) == 0 && len(reply.Embeds) == 0 {
		return nil
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	for index, chunk := range chunks {
		body := discordMessage{Content: chunk}
		if index == len(chunks)-1 {
			body.Embeds = reply.Embeds
		}
		if err := c.sendChannelMessage(ctx, channelID, body); err != nil {
			return err
		}
	}
	return nil
}
