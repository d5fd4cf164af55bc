package playground

import (
	"strconv"
	"strings"
)

// Params is the parsed form of a command's configuration tokens. It builds
// both execute and miri requests.
type Params struct {
	Channel       Channel
	Mode          Mode
	Edition       Edition
	CrateType     CrateType
	Tests         bool
	Backtrace     bool
	AliasingModel AliasingModel
}

func DefaultParams() Params {
	return Params{
		Channel:   ChannelStable,
		Mode:      ModeDebug,
		Edition:   LatestEdition,
		CrateType: CrateBinary,
	}
}

type setter func(*Params)

func setMode(mode Mode) setter {
	return func(params *Params) { params.Mode = mode }
}

func setChannel(channel Channel) setter {
	return func(params *Params) { params.Channel = channel }
}

func setEdition(edition Edition) setter {
	return func(params *Params) { params.Edition = edition }
}

func setCrateType(crateType CrateType) setter {
	return func(params *Params) { params.CrateType = crateType }
}

func setAliasing(model AliasingModel) setter {
	return func(params *Params) { params.AliasingModel = model }
}

var (
	modeKeywords = map[string]Mode{
		"-r":        ModeRelease,
		"--release": ModeRelease,
		"release":   ModeRelease,
		"debug":     ModeDebug,
	}
	channelKeywords = map[string]Channel{
		"stable":  ChannelStable,
		"beta":    ChannelBeta,
		"nightly": ChannelNightly,
	}
	editionKeywords = map[string]Edition{
		"2015":  Edition2015,
		"e2015": Edition2015,
		"2018":  Edition2018,
		"e2018": Edition2018,
		"2021":  Edition2021,
		"e2021": Edition2021,
		"2024":  Edition2024,
		"e2024": Edition2024,
	}
	crateTypeKeywords = map[string]CrateType{
		"bin":     CrateBinary,
		"binary":  CrateBinary,
		"lib":     CrateLibrary,
		"library": CrateLibrary,
	}
	aliasingKeywords = map[string]AliasingModel{
		"stacked": AliasingStacked,
		"tree":    AliasingTree,
	}
	flagKeywords = map[string]setter{
		"tests":     func(params *Params) { params.Tests = true },
		"backtrace": func(params *Params) { params.Backtrace = true },
	}

	keywords = buildKeywordTable()
)

func buildKeywordTable() map[string]setter {
	table := map[string]setter{}
	for token, mode := range modeKeywords {
		table[token] = setMode(mode)
	}
	for token, channel := range channelKeywords {
		table[token] = setChannel(channel)
	}
	for token, edition := range editionKeywords {
		table[token] = setEdition(edition)
	}
	for token, crateType := range crateTypeKeywords {
		table[token] = setCrateType(crateType)
	}
	for token, model := range aliasingKeywords {
		table[token] = setAliasing(model)
	}
	for token, apply := range flagKeywords {
		table[token] = apply
	}
	return table
}

// ParseParams applies every recognized token in line, in order, on top of
// the defaults. Unknown tokens are skipped.
func ParseParams(line string) Params {
	params := DefaultParams()
	for _, token := range strings.Fields(line) {
		if apply, ok := keywords[strings.ToLower(token)]; ok {
			apply(&params)
		}
	}
	return params
}

// ParamsFromOptions builds params from named slash-command options. Values
// that do not match a known keyword leave the default in place.
func ParamsFromOptions(options map[string]string) Params {
	params := DefaultParams()
	if value, ok := lookup(options, "channel"); ok {
		if channel, known := channelKeywords[value]; known {
			params.Channel = channel
		}
	}
	if value, ok := lookup(options, "mode"); ok {
		if mode, known := modeKeywords[value]; known {
			params.Mode = mode
		}
	}
	if value, ok := lookup(options, "edition"); ok {
		if edition, known := editionKeywords[value]; known {
			params.Edition = edition
		}
	}
	if value, ok := lookup(options, "crate_type"); ok {
		if crateType, known := crateTypeKeywords[value]; known {
			params.CrateType = crateType
		}
	}
	if value, ok := lookup(options, "aliasing_model"); ok {
		if model, known := aliasingKeywords[value]; known {
			params.AliasingModel = model
		}
	}
	params.Tests = optionBool(options, "tests")
	params.Backtrace = optionBool(options, "backtrace")
	return params
}

func lookup(options map[string]string, name string) (string, bool) {
	value, ok := options[name]
	if !ok {
		return "", false
	}
	value = strings.ToLower(strings.TrimSpace(value))
	return value, value != ""
}

func optionBool(options map[string]string, name string) bool {
	value, ok := lookup(options, name)
	if !ok {
		return false
	}
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}

func (p Params) ExecuteRequest(code string) ExecuteRequest {
	return ExecuteRequest{
		Channel:   p.Channel,
		Mode:      p.Mode,
		Edition:   p.Edition,
		CrateType: p.CrateType,
		Tests:     p.Tests,
		Backtrace: p.Backtrace,
		Code:      code,
	}
}

func (p Params) MiriRequest(code string) MiriRequest {
	return MiriRequest{
		Edition:       p.Edition,
		Tests:         p.Tests,
		AliasingModel: p.AliasingModel,
		Code:          code,
	}
}

func ParseExecute(line, code string) ExecuteRequest {
	return ParseParams(line).ExecuteRequest(code)
}

func ParseMiri(line, code string) MiriRequest {
	return ParseParams(line).MiriRequest(code)
}
