// Package cratesio reads crate metadata from the crates.io registry API.
package cratesio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://crates.io/api/v1"

var (
	ErrRegistry = errors.New("crates.io registry error")
	ErrNotFound = errors.New("crate not found")
)

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// New builds a client. crates.io requires a user agent with contact
// details, so contact is appended to it.
func New(baseURL, contact string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := "playbot"
	if contact = strings.TrimSpace(contact); contact != "" {
		userAgent = fmt.Sprintf("playbot (%s)", contact)
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

type User struct {
	Login  string `json:"login"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	URL    string `json:"url"`
}

type Version struct {
	Num         string `json:"num"`
	License     string `json:"license,omitempty"`
	RustVersion string `json:"rust_version,omitempty"`
	PublishedBy *User  `json:"published_by,omitempty"`
}

type Crate struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Homepage        string    `json:"homepage,omitempty"`
	Repository      string    `json:"repository,omitempty"`
	Documentation   string    `json:"documentation,omitempty"`
	MaxVersion      string    `json:"max_version"`
	Downloads       int64     `json:"downloads"`
	RecentDownloads *int64    `json:"recent_downloads,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
	Keywords        []string  `json:"keywords,omitempty"`
	Categories      []string  `json:"categories,omitempty"`
}

type CrateResponse struct {
	Crate    Crate     `json:"crate"`
	Versions []Version `json:"versions"`
}

// Latest returns the newest published version, if any.
func (r CrateResponse) Latest() (Version, bool) {
	if len(r.Versions) == 0 {
		return Version{}, false
	}
	return r.Versions[0], true
}

func (c *Client) GetCrate(ctx context.Context, name string) (CrateResponse, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return CrateResponse{}, fmt.Errorf("%w: empty crate name", ErrNotFound)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return CrateResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/crates/"+url.PathEscape(name), nil)
	if err != nil {
		return CrateResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return CrateResponse{}, fmt.Errorf("%w: %v", ErrRegistry, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return CrateResponse{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return CrateResponse{}, fmt.Errorf("%w: status=%d body=%s", ErrRegistry, res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	var payload CrateResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return CrateResponse{}, fmt.Errorf("%w: decode crate: %v", ErrRegistry, err)
	}
	return payload, nil
}
