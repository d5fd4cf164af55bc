package playground

import "strings"

type Channel string

const (
	ChannelStable  Channel = "stable"
	ChannelBeta    Channel = "beta"
	ChannelNightly Channel = "nightly"
)

type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

type Edition string

const (
	Edition2015 Edition = "2015"
	Edition2018 Edition = "2018"
	Edition2021 Edition = "2021"
	Edition2024 Edition = "2024"
)

// LatestEdition is the edition used when a request does not name one.
const LatestEdition = Edition2024

type CrateType string

const (
	CrateBinary  CrateType = "bin"
	CrateLibrary CrateType = "lib"
)

type AliasingModel string

const (
	AliasingNone    AliasingModel = ""
	AliasingStacked AliasingModel = "stacked"
	AliasingTree    AliasingModel = "tree"
)

type ExecuteRequest struct {
	Channel   Channel   `json:"channel"`
	Mode      Mode      `json:"mode"`
	Edition   Edition   `json:"edition"`
	CrateType CrateType `json:"crateType"`
	Tests     bool      `json:"tests"`
	Backtrace bool      `json:"backtrace"`
	Code      string    `json:"code"`
}

type MiriRequest struct {
	Edition       Edition       `json:"edition"`
	Tests         bool          `json:"tests"`
	AliasingModel AliasingModel `json:"aliasingModel,omitempty"`
	Code          string        `json:"code"`
}

type ExecuteResponse struct {
	Success    bool   `json:"success"`
	ExitDetail string `json:"exitDetail"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// Content is stdout for a successful run and stderr otherwise.
func (r ExecuteResponse) Content() string {
	if r.Success {
		return r.Stdout
	}
	return r.Stderr
}

type Gist struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Code string `json:"code"`
}

type ToolVersion struct {
	Version string `json:"version"`
	Hash    string `json:"hash"`
	Date    string `json:"date"`
}

type ChannelVersions struct {
	Rustc   ToolVersion  `json:"rustc"`
	Rustfmt ToolVersion  `json:"rustfmt"`
	Clippy  ToolVersion  `json:"clippy"`
	Miri    *ToolVersion `json:"miri,omitempty"`
}

type Versions struct {
	Stable  ChannelVersions `json:"stable"`
	Beta    ChannelVersions `json:"beta"`
	Nightly ChannelVersions `json:"nightly"`
}

func (v Versions) ForChannel(channel Channel) ChannelVersions {
	switch channel {
	case ChannelBeta:
		return v.Beta
	case ChannelNightly:
		return v.Nightly
	default:
		return v.Stable
	}
}

type Crate struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	ID      string `json:"id"`
}

type Crates struct {
	Crates []Crate `json:"crates"`
}

// ParseChannel maps a structured option value onto a channel, falling back
// to stable.
func ParseChannel(value string) Channel {
	switch Channel(strings.ToLower(strings.TrimSpace(value))) {
	case ChannelBeta:
		return ChannelBeta
	case ChannelNightly:
		return ChannelNightly
	default:
		return ChannelStable
	}
}
