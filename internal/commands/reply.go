package commands

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dwizi/playbot/internal/textutil"
)

const brandColor = 0xCC5500

// Reply is what a command sends back. Embed fields follow the Discord
// embed object so connectors can encode them directly.
type Reply struct {
	Content   string  `json:"content,omitempty"`
	Embeds    []Embed `json:"embeds,omitempty"`
	Ephemeral bool    `json:"-"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type EmbedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

func (e *Embed) field(name, value string) {
	e.Fields = append(e.Fields, EmbedField{Name: name, Value: value, Inline: true})
}

// Text renders the reply as plain text for surfaces without embeds.
func (r Reply) Text() string {
	parts := make([]string, 0, 1+len(r.Embeds))
	if strings.TrimSpace(r.Content) != "" {
		parts = append(parts, r.Content)
	}
	for _, embed := range r.Embeds {
		lines := []string{}
		if embed.Title != "" {
			lines = append(lines, "**"+embed.Title+"**")
		}
		if embed.Description != "" {
			lines = append(lines, embed.Description)
		}
		for _, field := range embed.Fields {
			lines = append(lines, field.Name+": "+field.Value)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

func truncateOutput(content string, maxLines, maxBytes int) string {
	return textutil.Truncate(content, maxLines, maxBytes)
}

// formatCount groups digits with apostrophes, e.g. 1'234'567.
func formatCount(value int64) string {
	printer := message.NewPrinter(language.English)
	return strings.ReplaceAll(printer.Sprintf("%d", value), ",", "'")
}
