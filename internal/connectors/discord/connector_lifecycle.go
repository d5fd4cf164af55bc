package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dwizi/playbot/internal/heartbeat"
)

// stableSession is how long a gateway session must last before the
// reconnect delay starts over from its initial value.
const stableSession = time.Minute

func (c *Connector) Start(ctx context.Context) error {
	c.report(func(r heartbeat.Reporter) { r.Starting(componentName, "starting") })
	if c.token == "" {
		c.report(func(r heartbeat.Reporter) { r.Disabled(componentName, "token missing") })
		c.logger.Info("connector disabled, token missing")
		<-ctx.Done()
		return nil
	}
	if c.service == nil {
		c.report(func(r heartbeat.Reporter) { r.Disabled(componentName, "command service missing") })
		c.logger.Info("connector disabled, dependencies missing")
		<-ctx.Done()
		return nil
	}

	c.logger.Info("connector started", "mode", "gateway")
	if c.commandSync {
		if err := c.syncCommands(ctx); err != nil {
			c.logger.Warn("discord command sync failed", "error", err)
		} else {
			c.logger.Info("discord commands synced", "guild_count", len(c.commandGuildIDs))
		}
	}

	retry := c.newBackOff()
	for {
		if ctx.Err() != nil {
			return c.stopped()
		}
		startedAt := time.Now()
		err := c.runSession(ctx)
		if ctx.Err() != nil {
			return c.stopped()
		}
		if time.Since(startedAt) > stableSession {
			retry.Reset()
		}
		wait := retry.NextBackOff()
		c.report(func(r heartbeat.Reporter) { r.Degrade(componentName, "gateway session error", err) })
		c.logger.Error("discord session ended, reconnecting", "error", err, "retry_in", wait.String())
		select {
		case <-ctx.Done():
			return c.stopped()
		case <-time.After(wait):
		}
	}
}

func (c *Connector) stopped() error {
	c.report(func(r heartbeat.Reporter) { r.Stopped(componentName, "stopped") })
	c.logger.Info("connector stopped")
	return nil
}

func (c *Connector) runSession(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.gatewayURL, nil)
	if err != nil {
		return fmt.Errorf("dial discord gateway: %w", err)
	}
	defer conn.Close()

	sessionCtx, cancelSession := context.WithCancel(ctx)
	defer cancelSession()
	go func() {
		<-sessionCtx.Done()
		_ = conn.Close()
	}()

	var (
		writeMu        sync.Mutex
		sequence       atomic.Int64
		heartbeatEvery = 30 * time.Second
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read hello: %w", err)
		}
		var envelope gatewayEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			return fmt.Errorf("decode hello payload: %w", err)
		}
		if envelope.Op != 10 {
			continue
		}
		var hello discordHello
		if err := json.Unmarshal(envelope.D, &hello); err != nil {
			return fmt.Errorf("decode hello body: %w", err)
		}
		heartbeatEvery = time.Duration(hello.HeartbeatIntervalMS) * time.Millisecond
		break
	}

	if err := c.sendIdentify(conn, &writeMu); err != nil {
		return err
	}
	c.report(func(r heartbeat.Reporter) { r.Beat(componentName, "gateway session established") })

	go c.heartbeatLoop(sessionCtx, conn, &writeMu, &sequence, heartbeatEvery)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read gateway message: %w", err)
		}

		var envelope gatewayEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			c.logger.Error("decode gateway envelope failed", "error", err)
			continue
		}
		if envelope.S != nil {
			sequence.Store(*envelope.S)
		}

		switch envelope.Op {
		case 0:
			c.report(func(r heartbeat.Reporter) { r.Beat(componentName, "gateway event received") })
			c.handleDispatch(ctx, envelope)
		case 1:
			if err := c.sendHeartbeat(conn, &writeMu, sequence.Load()); err != nil {
				return err
			}
		case 7:
			return fmt.Errorf("gateway requested reconnect")
		case 9:
			return fmt.Errorf("gateway invalid session")
		}
	}
}

func (c *Connector) handleDispatch(ctx context.Context, envelope gatewayEnvelope) {
	switch envelope.T {
	case "READY":
		var ready discordReady
		if err := json.Unmarshal(envelope.D, &ready); err == nil {
			c.botUserID = strings.TrimSpace(ready.User.ID)
		}
	case "MESSAGE_CREATE":
		var message discordMessageCreate
		if err := json.Unmarshal(envelope.D, &message); err != nil {
			c.logger.Error("decode message create failed", "error", err)
			return
		}
		if err := c.handleMessageCreate(ctx, message); err != nil {
			c.logger.Error("handle discord message failed", "error", err, "channel_id", message.ChannelID)
		}
	case "INTERACTION_CREATE":
		var interaction discordInteractionCreate
		if err := json.Unmarshal(envelope.D, &interaction); err != nil {
			c.logger.Error("decode interaction create failed", "error", err)
			return
		}
		if err := c.handleInteractionCreate(ctx, interaction); err != nil {
			c.logger.Error("handle discord interaction failed", "error", err, "channel_id", interaction.ChannelID)
		}
	}
}

func (c *Connector) heartbeatLoop(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex, seq *atomic.Int64, interval time.Duration) {
	if interval < time.Second {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.sendHeartbeat(conn, writeMu, seq.Load()); err != nil {
				c.logger.Error("heartbeat failed", "error", err)
				return
			}
		}
	}
}

func (c *Connector) sendIdentify(conn *websocket.Conn, writeMu *sync.Mutex) error {
	payload := map[string]any{
		"op": 2,
		"d": map[string]any{
			"token": c.token,
			"intents": discordIntentGuilds |
				discordIntentGuildMessages |
				discordIntentDirectMessages |
				discordIntentMessageContents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "playbot",
				"device":  "playbot",
			},
		},
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	if err := conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}
	return nil
}

func (c *Connector) sendHeartbeat(conn *websocket.Conn, writeMu *sync.Mutex, seq int64) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	payload := map[string]any{
		"op": 1,
		"d":  seq,
	}
	if err := conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("send heartbeat: %w", err)
	}
	return nil
}
