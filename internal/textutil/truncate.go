package textutil

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxLines = 100
	DefaultMaxBytes = 1900
	EmbedLimit      = 4096
)

// Truncate keeps at most maxLines lines of text and then cuts the result to
// maxBytes without splitting a multi-byte character.
func Truncate(text string, maxLines, maxBytes int) string {
	if maxLines < 0 {
		maxLines = 0
	}
	if maxBytes < 0 {
		maxBytes = 0
	}
	lines := strings.Split(text, "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	joined := strings.Join(lines, "\n")
	if len(joined) <= maxBytes {
		return joined
	}
	return joined[:runeBoundary(joined, maxBytes)]
}

// Split cuts text into chunks of at most size bytes on character boundaries.
func Split(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size < utf8.UTFMax {
		size = utf8.UTFMax
	}
	chunks := make([]string, 0, len(text)/size+1)
	for len(text) > size {
		cut := runeBoundary(text, size)
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return append(chunks, text)
}

func runeBoundary(text string, limit int) int {
	if limit >= len(text) {
		return len(text)
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}
