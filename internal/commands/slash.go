package commands

// OptionType mirrors the application command option types used by chat
// platforms that support structured commands.
type OptionType int

const (
	OptionSubcommand OptionType = 1
	OptionString     OptionType = 3
	OptionInteger    OptionType = 4
	OptionBoolean    OptionType = 5
	OptionAttachment OptionType = 11
)

type Choice struct {
	Name  string
	Value string
}

type Option struct {
	Type        OptionType
	Name        string
	Description string
	Required    bool
	Choices     []Choice
	Options     []Option
}

type SlashCommand struct {
	Name        string
	Description string
	Options     []Option
}

var (
	channelChoices = []Choice{{"Stable", "stable"}, {"Beta", "beta"}, {"Nightly", "nightly"}}
	modeChoices    = []Choice{{"Debug", "debug"}, {"Release", "release"}}
	editionChoices = []Choice{{"2015", "2015"}, {"2018", "2018"}, {"2021", "2021"}, {"2024", "2024"}}
	crateChoices   = []Choice{{"Binary", "bin"}, {"Library", "lib"}}
	aliasChoices   = []Choice{{"Stacked borrows", "stacked"}, {"Tree borrows", "tree"}}
	sourceChoices  = []Choice{{"std", "std"}, {"core", "core"}, {"alloc", "alloc"}}
)

func runOptions() []Option {
	return []Option{
		{Type: OptionString, Name: "channel", Description: "Toolchain channel", Choices: channelChoices},
		{Type: OptionString, Name: "mode", Description: "Build mode", Choices: modeChoices},
		{Type: OptionString, Name: "edition", Description: "Rust edition", Choices: editionChoices},
		{Type: OptionString, Name: "crate_type", Description: "Crate type", Choices: crateChoices},
		{Type: OptionBoolean, Name: "tests", Description: "Run tests instead of main"},
		{Type: OptionBoolean, Name: "backtrace", Description: "Enable RUST_BACKTRACE"},
	}
}

func miriOptions() []Option {
	return []Option{
		{Type: OptionString, Name: "edition", Description: "Rust edition", Choices: editionChoices},
		{Type: OptionBoolean, Name: "tests", Description: "Run tests instead of main"},
		{Type: OptionString, Name: "aliasing_model", Description: "Aliasing model checked by miri", Choices: aliasChoices},
	}
}

func gistSource(description string) Option {
	return Option{Type: OptionString, Name: "id", Description: description, Required: true}
}

func fileSource(description string) Option {
	return Option{Type: OptionAttachment, Name: "file", Description: description, Required: true}
}

// SlashCommands lists the structured commands to register with the chat
// platform. Inline code commands stay prefix only.
func SlashCommands() []SlashCommand {
	return []SlashCommand{
		{
			Name:        "run",
			Description: "Run Rust code on the playground",
			Options: []Option{
				{
					Type:        OptionSubcommand,
					Name:        "gist",
					Description: "Run the code of a GitHub gist",
					Options:     append([]Option{gistSource("Id or URL of the gist to run")}, runOptions()...),
				},
				{
					Type:        OptionSubcommand,
					Name:        "file",
					Description: "Run an uploaded .rs file",
					Options:     append([]Option{fileSource("Rust source file to run")}, runOptions()...),
				},
			},
		},
		{
			Name:        "miri",
			Description: "Check Rust code for undefined behavior with miri",
			Options: []Option{
				{
					Type:        OptionSubcommand,
					Name:        "gist",
					Description: "Check the code of a GitHub gist",
					Options:     append([]Option{gistSource("Id or URL of the gist to check")}, miriOptions()...),
				},
				{
					Type:        OptionSubcommand,
					Name:        "file",
					Description: "Check an uploaded .rs file",
					Options:     append([]Option{fileSource("Rust source file to check")}, miriOptions()...),
				},
			},
		},
		{
			Name:        "crate",
			Description: "Crate registry lookups",
			Options: []Option{
				{
					Type:        OptionSubcommand,
					Name:        "info",
					Description: "Show crates.io information about a crate",
					Options: []Option{
						{Type: OptionString, Name: "name", Description: "The name of the crate", Required: true},
					},
				},
			},
		},
		{
			Name:        "crates",
			Description: "List the crates available on the playground",
			Options: []Option{
				{Type: OptionInteger, Name: "page", Description: "Which page (24 per page)"},
			},
		},
		{
			Name:        "version",
			Description: "Show the toolchain versions used by the playground",
			Options: []Option{
				{Type: OptionString, Name: "channel", Description: "Toolchain channel", Required: true, Choices: channelChoices},
			},
		},
		{
			Name:        "docs",
			Description: "Search the standard library documentation",
			Options: []Option{
				{Type: OptionString, Name: "source", Description: "Crate to search", Required: true, Choices: sourceChoices},
				{Type: OptionString, Name: "query", Description: "Search query", Required: true},
			},
		},
	}
}
