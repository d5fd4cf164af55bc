package codeblock

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/dwizi/playbot/internal/boterr"
)

func TestPatternsCompile(t *testing.T) {
	for _, pattern := range []string{strictPattern, relaxedPattern, gistIDPattern} {
		if _, err := regexp.Compile(pattern); err != nil {
			t.Fatalf("pattern %q does not compile: %v", pattern, err)
		}
	}
}

func TestExtractRoundTrip(t *testing.T) {
	bodies := []string{
		"fn main() {}",
		"  \n\nfn main() {\n    println!(\"hi\");\n}\n\n",
		"let s = \"`single` and ``double``\";",
	}
	for _, body := range bodies {
		got, err := Extract("run this\n```rust\n" + body + "```\nthanks")
		if err != nil {
			t.Fatalf("extract failed: %v", err)
		}
		want := strings.TrimSpace(body)
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestExtractFirstBlockNonGreedy(t *testing.T) {
	got, err := Extract("```rust\nfirst\n```\n```rust\nsecond\n```")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "first" {
		t.Fatalf("expected first block, got %q", got)
	}
}

func TestExtractMissingBlock(t *testing.T) {
	for _, input := range []string{"", "no code here", "```python\nprint(1)\n```"} {
		if _, err := Extract(input); !errors.Is(err, boterr.ErrNoCodeBlock) {
			t.Fatalf("expected ErrNoCodeBlock for %q, got %v", input, err)
		}
	}
}

func TestExtractRelaxedAcceptsUntaggedFence(t *testing.T) {
	for _, input := range []string{"```\nfn main() {}\n```", "```rs\nfn main() {}\n```", "```rust\nfn main() {}\n```"} {
		got, err := ExtractRelaxed(input)
		if err != nil {
			t.Fatalf("relaxed extract failed for %q: %v", input, err)
		}
		if got != "fn main() {}" {
			t.Fatalf("unexpected body %q", got)
		}
	}
	if _, err := ExtractWith("```\nfn main() {}\n```", true); !errors.Is(err, boterr.ErrNoCodeBlock) {
		t.Fatalf("expected strict mode to reject untagged fence, got %v", err)
	}
}

func TestExtractAcceptsCRLF(t *testing.T) {
	for _, extract := range []func(string) (string, error){Extract, ExtractRelaxed} {
		got, err := extract("-r beta\r\n```rust\r\nfn main() {}\r\n```")
		if err != nil {
			t.Fatalf("extract crlf: %v", err)
		}
		if got != "fn main() {}" {
			t.Fatalf("unexpected body %q", got)
		}
	}
	if got, _ := ExtractRelaxed("```\r\nlet x = 1;\r\n```"); got != "let x = 1;" {
		t.Fatalf("unexpected relaxed body %q", got)
	}
}

func TestParamLine(t *testing.T) {
	if got := ParamLine("-r beta\n```rust\nfn main(){}\n```"); got != "-r beta" {
		t.Fatalf("unexpected param line %q", got)
	}
	if got := ParamLine("```rust\nfn main(){}\n```"); got != "" {
		t.Fatalf("expected empty param line, got %q", got)
	}
}

func TestGistID(t *testing.T) {
	const id = "0123456789abcdef0123456789abcdef"
	inputs := []string{
		id,
		"0123456789ABCDEF0123456789ABCDEF",
		"https://gist.github.com/rust-play/" + id + "/raw",
		`<script src="https://gist.github.com/user/` + id + `.js"></script>`,
	}
	for _, input := range inputs {
		got, ok := GistID(input)
		if !ok || got != id {
			t.Fatalf("expected %s from %q, got %q (%v)", id, input, got, ok)
		}
	}
	if _, ok := GistID("deadbeef"); ok {
		t.Fatal("expected no match for short hex run")
	}
}
