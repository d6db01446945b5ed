package models

// GlobalConfig is the full persisted state of the bot: authentication,
// process-wide defaults, and the per-guild settings map. It is loaded once
// at startup and rewritten in full after every mutation.
type GlobalConfig struct {
	BotToken    string                   `json:"bot-token"`
	HelpCommand string                   `json:"help-command"`
	Global      GlobalDefaults           `json:"global"`
	Guilds      map[string]*TenantConfig `json:"guilds"`
}

// GlobalDefaults holds the process-wide command prefixes. The "{bot_id}"
// placeholder is substituted with the bot's own user ID at dispatch time.
type GlobalDefaults struct {
	GuildCommandPrefixes []string `json:"guild-command-prefixes"`
	DMCommandPrefixes    []string `json:"dm-command-prefixes"`
}

// TenantConfig holds the settings of one guild. Every field is optional;
// an all-empty TenantConfig behaves exactly like an absent entry.
type TenantConfig struct {
	AdminRoleID     string   `json:"admin-role-id,omitempty"`
	GrantRoleID     string   `json:"grant-role-id,omitempty"`
	LogChannelID    string   `json:"log-channel-id,omitempty"`
	CommandPrefixes []string `json:"command-prefixes,omitempty"`
}

// IsZero reports whether the guild is unconfigured.
func (t TenantConfig) IsZero() bool {
	return t.AdminRoleID == "" && t.GrantRoleID == "" &&
		t.LogChannelID == "" && len(t.CommandPrefixes) == 0
}

// Clone returns a deep copy safe to hand to callers.
func (t TenantConfig) Clone() TenantConfig {
	out := t
	if t.CommandPrefixes != nil {
		out.CommandPrefixes = append([]string(nil), t.CommandPrefixes...)
	}
	return out
}

// Clone returns a deep copy of the whole configuration. Mutations are
// applied to a clone first so a failed persist never leaves the live copy
// out of sync with disk.
func (c GlobalConfig) Clone() GlobalConfig {
	out := c
	if c.Global.GuildCommandPrefixes != nil {
		out.Global.GuildCommandPrefixes = append([]string(nil), c.Global.GuildCommandPrefixes...)
	}
	if c.Global.DMCommandPrefixes != nil {
		out.Global.DMCommandPrefixes = append([]string(nil), c.Global.DMCommandPrefixes...)
	}
	out.Guilds = make(map[string]*TenantConfig, len(c.Guilds))
	for id, g := range c.Guilds {
		cloned := g.Clone()
		out.Guilds[id] = &cloned
	}
	return out
}

// PlaceholderToken is the token value in a freshly written template.
const PlaceholderToken = "<your-bot-token>"

// DefaultGlobal returns the prefix defaults used both for the first-run
// template and for upgrading configurations written before the global
// block existed.
func DefaultGlobal() GlobalDefaults {
	return GlobalDefaults{
		GuildCommandPrefixes: []string{"<@{bot_id}> ", "<@!{bot_id}> "},
		DMCommandPrefixes:    []string{"<@{bot_id}> ", ""},
	}
}

// FirstRunTemplate is the configuration written when no state file exists.
// The token is a placeholder; the process refuses to start until it is
// replaced.
func FirstRunTemplate() GlobalConfig {
	return GlobalConfig{
		BotToken:    PlaceholderToken,
		HelpCommand: "vhelp",
		Global:      DefaultGlobal(),
		Guilds:      map[string]*TenantConfig{},
	}
}
