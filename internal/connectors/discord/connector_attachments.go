package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dwizi/playbot/internal/commands"
)

func (c *Connector) attachment(attachment discordAttachment) *commands.Attachment {
	url := strings.TrimSpace(attachment.URL)
	return &commands.Attachment{
		Filename: attachment.Filename,
		Size:     attachment.Size,
		URL:      url,
		Load: func(ctx context.Context) ([]byte, error) {
			return c.downloadAttachment(ctx, url)
		},
	}
}

func (c *Connector) downloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+c.token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("discord attachment download failed with status %d", res.StatusCode)
	}
	return ioReadAllLimited(res.Body, maxAttachment)
}

func (c *Connector) sendChannelMessage(ctx context.Context, channelID string, body discordMessage) error {
	endpoint := fmt.Sprintf("%s/channels/%s/messages", c.apiBase, channelID)
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("discord send message: %w", err)
	}
	return nil
}

func (c *Connector) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", "playbot/0.1")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("status=%d body=%s", res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
