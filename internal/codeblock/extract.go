// Package codeblock pulls code payloads and gist identifiers out of chat text.
package codeblock

import (
	"regexp"
	"strings"

	"github.com/dwizi/playbot/internal/boterr"
)

const (
	strictPattern  = "(?s)```rust\r?\n(.*?)```"
	relaxedPattern = "(?s)```[A-Za-z0-9_+-]*\r?\n(.*?)```"
	gistIDPattern  = "(?i)[0-9a-f]{32}"
)

var (
	strictFence  = regexp.MustCompile(strictPattern)
	relaxedFence = regexp.MustCompile(relaxedPattern)
	gistID       = regexp.MustCompile(gistIDPattern)
)

// Extract returns the trimmed body of the first ```rust fenced block.
func Extract(message string) (string, error) {
	return extract(strictFence, message)
}

// ExtractRelaxed accepts any fence tag, including none.
func ExtractRelaxed(message string) (string, error) {
	return extract(relaxedFence, message)
}

// ExtractWith picks the strict or relaxed matcher.
func ExtractWith(message string, requireTag bool) (string, error) {
	if requireTag {
		return Extract(message)
	}
	return ExtractRelaxed(message)
}

func extract(pattern *regexp.Regexp, message string) (string, error) {
	match := pattern.FindStringSubmatch(message)
	if match == nil {
		return "", boterr.ErrNoCodeBlock
	}
	return strings.TrimSpace(match[1]), nil
}

// ParamLine returns the first line of an inline command body, or an empty
// string when the body opens directly with a fence.
func ParamLine(body string) string {
	first, _, _ := strings.Cut(body, "\n")
	first = strings.TrimSpace(first)
	if strings.HasPrefix(first, "```") {
		return ""
	}
	return first
}

// GistID finds the first 32 character hex run in input and lower-cases it.
func GistID(input string) (string, bool) {
	match := gistID.FindString(input)
	if match == "" {
		return "", false
	}
	return strings.ToLower(match), true
}
