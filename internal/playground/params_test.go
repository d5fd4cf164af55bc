package playground

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseParamsDefaults(t *testing.T) {
	got := ParseParams("")
	want := Params{Channel: ChannelStable, Mode: ModeDebug, Edition: Edition2024, CrateType: CrateBinary}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected defaults (-want +got):\n%s", diff)
	}
}

func TestParseParamsKeywords(t *testing.T) {
	tests := []struct {
		line string
		want Params
	}{
		{line: "-r", want: withParams(func(p *Params) { p.Mode = ModeRelease })},
		{line: "--release", want: withParams(func(p *Params) { p.Mode = ModeRelease })},
		{line: "RELEASE", want: withParams(func(p *Params) { p.Mode = ModeRelease })},
		{line: "beta", want: withParams(func(p *Params) { p.Channel = ChannelBeta })},
		{line: "Nightly", want: withParams(func(p *Params) { p.Channel = ChannelNightly })},
		{line: "2015", want: withParams(func(p *Params) { p.Edition = Edition2015 })},
		{line: "e2018", want: withParams(func(p *Params) { p.Edition = Edition2018 })},
		{line: "2021", want: withParams(func(p *Params) { p.Edition = Edition2021 })},
		{line: "e2024", want: withParams(func(p *Params) { p.Edition = Edition2024 })},
		{line: "lib", want: withParams(func(p *Params) { p.CrateType = CrateLibrary })},
		{line: "library binary", want: withParams(func(p *Params) { p.CrateType = CrateBinary })},
		{line: "tests backtrace", want: withParams(func(p *Params) { p.Tests = true; p.Backtrace = true })},
		{line: "tree", want: withParams(func(p *Params) { p.AliasingModel = AliasingTree })},
		{line: "stacked", want: withParams(func(p *Params) { p.AliasingModel = AliasingStacked })},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, ParseParams(tc.line)); diff != "" {
			t.Fatalf("line %q (-want +got):\n%s", tc.line, diff)
		}
	}
}

func TestParseParamsLastTokenWins(t *testing.T) {
	if got := ParseParams("nightly beta").Channel; got != ChannelBeta {
		t.Fatalf("expected beta, got %s", got)
	}
	if got := ParseParams("2018 2021").Edition; got != Edition2021 {
		t.Fatalf("expected 2021, got %s", got)
	}
	if got := ParseParams("release debug").Mode; got != ModeDebug {
		t.Fatalf("expected debug, got %s", got)
	}
}

func TestParseParamsIgnoresUnknownTokens(t *testing.T) {
	if diff := cmp.Diff(ParseParams("release"), ParseParams("banana release")); diff != "" {
		t.Fatalf("unknown token changed result (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultParams(), ParseParams("banana --frobnicate 1999")); diff != "" {
		t.Fatalf("unknown tokens changed defaults (-want +got):\n%s", diff)
	}
}

func TestParseParamsOrderIndependentForDistinctFields(t *testing.T) {
	a := ParseParams("-r beta 2018 lib tests")
	b := ParseParams("tests lib 2018 beta -r")
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("token order changed result (-a +b):\n%s", diff)
	}
}

func TestParseExecuteScenario(t *testing.T) {
	got := ParseExecute("-r beta", "fn main(){}")
	want := ExecuteRequest{
		Channel:   ChannelBeta,
		Mode:      ModeRelease,
		Edition:   Edition2024,
		CrateType: CrateBinary,
		Code:      "fn main(){}",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected request (-want +got):\n%s", diff)
	}
}

func TestParseMiri(t *testing.T) {
	got := ParseMiri("2021 tests tree", "fn main(){}")
	want := MiriRequest{Edition: Edition2021, Tests: true, AliasingModel: AliasingTree, Code: "fn main(){}"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected request (-want +got):\n%s", diff)
	}
}

func TestParamsFromOptions(t *testing.T) {
	got := ParamsFromOptions(map[string]string{
		"channel":    "Nightly",
		"mode":       "release",
		"edition":    "2018",
		"crate_type": "lib",
		"tests":      "true",
		"backtrace":  "false",
		"unknown":    "x",
	})
	want := Params{Channel: ChannelNightly, Mode: ModeRelease, Edition: Edition2018, CrateType: CrateLibrary, Tests: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected params (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultParams(), ParamsFromOptions(map[string]string{"edition": "1999"})); diff != "" {
		t.Fatalf("unknown edition changed defaults (-want +got):\n%s", diff)
	}
}

func withParams(apply func(*Params)) Params {
	params := DefaultParams()
	apply(&params)
	return params
}
