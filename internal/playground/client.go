package playground

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://play.rust-lang.org"

var ErrBackend = errors.New("playground backend error")

type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

func New(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout < time.Second {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:      &http.Client{Timeout: timeout},
		userAgent: "playbot/0.1",
	}
}

func (c *Client) Execute(ctx context.Context, request ExecuteRequest) (ExecuteResponse, error) {
	var response ExecuteResponse
	if err := c.postJSON(ctx, "/execute", request, &response); err != nil {
		return ExecuteResponse{}, fmt.Errorf("execute: %w", err)
	}
	return response, nil
}

func (c *Client) Miri(ctx context.Context, request MiriRequest) (ExecuteResponse, error) {
	var response ExecuteResponse
	if err := c.postJSON(ctx, "/miri", request, &response); err != nil {
		return ExecuteResponse{}, fmt.Errorf("miri: %w", err)
	}
	return response, nil
}

func (c *Client) GistGet(ctx context.Context, id string) (Gist, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/meta/gist/"+url.PathEscape(strings.TrimSpace(id)), nil)
	if err != nil {
		return Gist{}, err
	}
	var gist Gist
	if err := c.doJSON(req, &gist); err != nil {
		return Gist{}, fmt.Errorf("get gist %s: %w", id, err)
	}
	return gist, nil
}

func (c *Client) GistCreate(ctx context.Context, code string) (Gist, error) {
	var gist Gist
	if err := c.postJSON(ctx, "/meta/gist", map[string]string{"code": code}, &gist); err != nil {
		return Gist{}, fmt.Errorf("create gist: %w", err)
	}
	return gist, nil
}

func (c *Client) Versions(ctx context.Context) (Versions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/meta/versions", nil)
	if err != nil {
		return Versions{}, err
	}
	var versions Versions
	if err := c.doJSON(req, &versions); err != nil {
		return Versions{}, fmt.Errorf("versions: %w", err)
	}
	return versions, nil
}

func (c *Client) Crates(ctx context.Context) (Crates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/meta/crates", nil)
	if err != nil {
		return Crates{}, err
	}
	var crates Crates
	if err := c.doJSON(req, &crates); err != nil {
		return Crates{}, fmt.Errorf("crates: %w", err)
	}
	return crates, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("%w: status=%d body=%s", ErrBackend, res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrBackend, err)
	}
	return nil
}
