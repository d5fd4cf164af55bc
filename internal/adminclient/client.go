// Package adminclient talks to a running playbot HTTP API.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dwizi/playbot/internal/commands"
	"github.com/dwizi/playbot/internal/heartbeat"
)

type Client struct {
	baseURL string
	http    *http.Client
}

type RunRequest struct {
	Params string `json:"params"`
	Code   string `json:"code"`
	Miri   bool   `json:"miri"`
}

type ChatRequest struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

type ChatResponse struct {
	Handled bool           `json:"handled"`
	Reply   commands.Reply `json:"reply"`
}

type Info struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	CommandPrefix string `json:"command_prefix"`
	CacheBackend  string `json:"cache_backend"`
	PlaygroundURL string `json:"playground_url"`
	MCPEnabled    bool   `json:"mcp_enabled"`
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout < time.Second {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Run(ctx context.Context, input RunRequest) (commands.EvalResult, error) {
	if strings.TrimSpace(input.Code) == "" {
		return commands.EvalResult{}, fmt.Errorf("code is required")
	}
	var response commands.EvalResult
	if err := c.postJSON(ctx, "/api/v1/run", input, &response); err != nil {
		return commands.EvalResult{}, err
	}
	return response, nil
}

func (c *Client) Chat(ctx context.Context, input ChatRequest) (ChatResponse, error) {
	input.Text = strings.TrimSpace(input.Text)
	if input.Text == "" {
		return ChatResponse{}, fmt.Errorf("text is required")
	}
	var response ChatResponse
	if err := c.postJSON(ctx, "/api/v1/chat", input, &response); err != nil {
		return ChatResponse{}, err
	}
	return response, nil
}

func (c *Client) Info(ctx context.Context) (Info, error) {
	var info Info
	if err := c.getJSON(ctx, "/api/v1/info", &info); err != nil {
		return Info{}, err
	}
	return info, nil
}

func (c *Client) Heartbeat(ctx context.Context) (heartbeat.Snapshot, error) {
	var snapshot heartbeat.Snapshot
	if err := c.getJSON(ctx, "/api/v1/heartbeat", &snapshot); err != nil {
		return heartbeat.Snapshot{}, err
	}
	return snapshot, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(requestBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var apiError struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&apiError)
		if strings.TrimSpace(apiError.Error) == "" {
			apiError.Error = res.Status
		}
		return errors.New(apiError.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
