package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dwizi/playbot/internal/boterr"
	"github.com/dwizi/playbot/internal/cache"
	"github.com/dwizi/playbot/internal/cratesio"
	"github.com/dwizi/playbot/internal/docs"
	"github.com/dwizi/playbot/internal/playground"
	"github.com/dwizi/playbot/internal/textutil"
)

const cratesPerPage = 24

// CrateInfo is the cached form of a registry lookup.
type CrateInfo struct {
	CrateResponse cratesio.CrateResponse `json:"crate_response"`
	LastUpdated   time.Time              `json:"last_updated"`
}

func (s *Service) Versions(ctx context.Context) (playground.Versions, error) {
	return cache.Load(ctx, s.cache, cache.KeyVersions, s.cfg.CacheTTLSeconds, s.playground.Versions)
}

func (s *Service) Crates(ctx context.Context) (playground.Crates, error) {
	return cache.Load(ctx, s.cache, cache.KeyCrates, s.cfg.CacheTTLSeconds, s.playground.Crates)
}

func (s *Service) Version(ctx context.Context, channel playground.Channel) (Reply, error) {
	versions, err := s.Versions(ctx)
	if err != nil {
		return Reply{}, err
	}
	current := versions.ForChannel(channel)
	embed := Embed{
		Title:  "Current versions used by the Rust Playground",
		Color:  brandColor,
		Author: &EmbedAuthor{Name: "Cargo"},
	}
	embed.field("rustc", current.Rustc.Version)
	embed.field("rustfmt", current.Rustfmt.Version)
	embed.field("clippy", current.Clippy.Version)
	if current.Miri != nil {
		embed.field("miri", current.Miri.Version)
	}
	return Reply{Embeds: []Embed{embed}}, nil
}

func (s *Service) CratesPage(ctx context.Context, page int) (Reply, error) {
	crates, err := s.Crates(ctx)
	if err != nil {
		return Reply{}, err
	}
	total := (len(crates.Crates) + cratesPerPage - 1) / cratesPerPage
	if page < 1 {
		page = 1
	}
	if page > total {
		return Reply{}, boterr.PageOutOfRange(total)
	}
	start := (page - 1) * cratesPerPage
	end := min(start+cratesPerPage, len(crates.Crates))

	embed := Embed{
		Title: fmt.Sprintf("Crates (%d/%d)", page, total),
		Color: brandColor,
	}
	for _, crate := range crates.Crates[start:end] {
		embed.field(
			fmt.Sprintf("%s (%s)", crate.Name, crate.Version),
			fmt.Sprintf("[%s](https://crates.io/crates/%s)", crate.ID, crate.ID),
		)
	}
	return Reply{Embeds: []Embed{embed}}, nil
}

func (s *Service) LookupCrate(ctx context.Context, name string) (CrateInfo, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return CrateInfo{}, boterr.ErrNoCrateName
	}
	info, err := cache.Load(ctx, s.cache, cache.CrateInfoKey(name), s.cfg.CacheTTLSeconds, func(ctx context.Context) (CrateInfo, error) {
		response, err := s.registry.GetCrate(ctx, name)
		if err != nil {
			return CrateInfo{}, err
		}
		return CrateInfo{CrateResponse: response, LastUpdated: s.now().UTC()}, nil
	})
	if errors.Is(err, cratesio.ErrNotFound) {
		return CrateInfo{}, boterr.CrateNotFound(name)
	}
	return info, err
}

func (s *Service) CrateInfo(ctx context.Context, name string) (Reply, error) {
	info, err := s.LookupCrate(ctx, name)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Embeds: []Embed{crateEmbed(info)}}, nil
}

func crateEmbed(info CrateInfo) Embed {
	crate := info.CrateResponse.Crate
	embed := Embed{
		Title:     crate.Name,
		Color:     downloadColor(crate.Downloads),
		Timestamp: info.LastUpdated.UTC().Format(time.RFC3339),
	}
	switch {
	case crate.Homepage != "":
		embed.URL = crate.Homepage
	case crate.Repository != "":
		embed.URL = crate.Repository
	default:
		embed.URL = "https://crates.io/crates/" + crate.ID
	}
	if crate.Description != "" {
		embed.Description = strings.TrimRight(crate.Description, "\n") +
			fmt.Sprintf("\n[crates.io](https://crates.io/crates/%[1]s) / [docs.rs](https://docs.rs/%[1]s/latest)", crate.ID)
	}

	latest, hasLatest := info.CrateResponse.Latest()
	if hasLatest && latest.PublishedBy != nil {
		embed.Author = &EmbedAuthor{
			Name:    latest.PublishedBy.Login,
			URL:     latest.PublishedBy.URL,
			IconURL: latest.PublishedBy.Avatar,
		}
	}

	embed.field("Version", crate.MaxVersion)
	embed.field("Last update", fmt.Sprintf("<t:%d>", crate.UpdatedAt.Unix()))
	if hasLatest && latest.License != "" {
		embed.field("License", latest.License)
	}
	if len(crate.Keywords) > 0 {
		embed.field("Keywords", backticked(crate.Keywords))
	}
	if len(crate.Categories) > 0 {
		embed.field("Categories", backticked(crate.Categories))
	}
	downloads := formatCount(crate.Downloads)
	if crate.RecentDownloads != nil {
		downloads = fmt.Sprintf("%s (%s)", downloads, formatCount(*crate.RecentDownloads))
	}
	embed.field("Downloads", downloads)
	if hasLatest && latest.RustVersion != "" {
		embed.field("Rust version", latest.RustVersion)
	}
	return embed
}

func downloadColor(downloads int64) int {
	switch {
	case downloads >= 100_000_000:
		return 0x2ecc71
	case downloads >= 1_000_000:
		return 0x3498db
	case downloads >= 100_000:
		return 0xf1c40f
	case downloads >= 10_000:
		return 0xe67e22
	default:
		return 0xe74c3c
	}
}

func backticked(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, "`"+value+"`")
	}
	return strings.Join(quoted, " ")
}

func (s *Service) SearchDocs(sourceName, query string) (docs.Source, docs.Item, error) {
	source, ok := docs.ParseSource(sourceName)
	if !ok {
		source = docs.SourceStd
		if strings.TrimSpace(query) == "" {
			query = sourceName
		} else if strings.TrimSpace(sourceName) != "" {
			query = sourceName + " " + query
		}
	}
	query = strings.TrimSpace(query)
	if query == "" || s.docs == nil {
		return source, docs.Item{}, boterr.NoMatch(query)
	}
	items := s.docs.Search(source, query, 1)
	if len(items) == 0 {
		return source, docs.Item{}, boterr.NoMatch(query)
	}
	return source, items[0], nil
}

func (s *Service) Docs(ctx context.Context, sourceName, query string) (Reply, error) {
	source, item, err := s.SearchDocs(sourceName, query)
	if err != nil {
		return Reply{}, err
	}
	embed := Embed{
		Title: item.Name,
		Color: source.Color(),
	}
	if chunks := textutil.Split(item.Docs, textutil.EmbedLimit); len(chunks) > 0 {
		embed.Description = chunks[0]
	}
	if item.Path != "" && item.Path != item.Name {
		embed.Author = &EmbedAuthor{Name: item.Path}
	}
	return Reply{Embeds: []Embed{embed}}, nil
}

func parsePage(value string) int {
	page, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
