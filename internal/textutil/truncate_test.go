package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestTruncateKeepsShortText(t *testing.T) {
	input := "hello\nworld"
	if got := Truncate(input, 10, 100); got != input {
		t.Fatalf("expected unchanged text, got %q", got)
	}
}

func TestTruncateLimitsLines(t *testing.T) {
	input := "one\ntwo\nthree\nfour"
	if got := Truncate(input, 2, 100); got != "one\ntwo" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestTruncateRespectsCharacterBoundary(t *testing.T) {
	input := "aé€😀"
	for limit := 0; limit <= len(input); limit++ {
		got := Truncate(input, 10, limit)
		if len(got) > limit {
			t.Fatalf("limit %d: output %q exceeds limit", limit, got)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("limit %d: output %q is not valid utf-8", limit, got)
		}
	}
	if got := Truncate(input, 10, 2); got != "a" {
		t.Fatalf("expected multi-byte rune to be dropped, got %q", got)
	}
}

func TestTruncateIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"single line",
		strings.Repeat("line\n", 250),
		strings.Repeat("ü", 3000),
		"trailing newline\n",
		strings.Repeat("日本語テキスト\n", 400),
	}
	limits := []struct{ lines, bytes int }{{100, 1900}, {1, 5}, {3, 7}, {0, 10}}
	for _, input := range inputs {
		for _, limit := range limits {
			once := Truncate(input, limit.lines, limit.bytes)
			twice := Truncate(once, limit.lines, limit.bytes)
			if once != twice {
				t.Fatalf("not idempotent for %d/%d: %q vs %q", limit.lines, limit.bytes, once, twice)
			}
			if len(once) > limit.bytes {
				t.Fatalf("output exceeds %d bytes", limit.bytes)
			}
			if lines := strings.Count(once, "\n") + 1; once != "" && lines > limit.lines {
				t.Fatalf("output has %d lines, limit %d", lines, limit.lines)
			}
		}
	}
}

func TestSplitChunksOnBoundaries(t *testing.T) {
	got := Split("abcdefghij", 4)
	want := []string{"abcd", "efgh", "ij"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected chunks (-want +got):\n%s", diff)
	}

	input := strings.Repeat("€", 10)
	chunks := Split(input, 7)
	if strings.Join(chunks, "") != input {
		t.Fatal("expected chunks to reassemble into the input")
	}
	for _, chunk := range chunks {
		if len(chunk) > 7 || !utf8.ValidString(chunk) {
			t.Fatalf("invalid chunk %q", chunk)
		}
	}
	if Split("", 10) != nil {
		t.Fatal("expected nil for empty input")
	}
}
