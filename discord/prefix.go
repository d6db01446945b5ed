package discord

import (
	"strings"

	"github.com/tnicklin/vouchbot/models"
)

// botIDPlaceholder in a stored prefix stands for the bot's own user ID,
// so "<@{bot_id}> " style prefixes survive the bot account changing.
const botIDPlaceholder = "{bot_id}"

// effectivePrefixes resolves the prefix list to try for one message. In a
// guild the tenant's own prefixes come first, followed by the global guild
// defaults; in a DM only the global DM defaults apply. Order matters: the
// first match wins, and the DM defaults end with the empty prefix that
// matches everything.
func effectivePrefixes(tenant []string, defaults models.GlobalDefaults, botID string, inGuild bool) []string {
	if !inGuild {
		return substituteBotID(defaults.DMCommandPrefixes, botID)
	}
	out := make([]string, 0, len(tenant)+len(defaults.GuildCommandPrefixes))
	out = append(out, tenant...)
	out = append(out, substituteBotID(defaults.GuildCommandPrefixes, botID)...)
	return out
}

func substituteBotID(prefixes []string, botID string) []string {
	out := make([]string, len(prefixes))
	for i, p := range prefixes {
		out[i] = strings.ReplaceAll(p, botIDPlaceholder, botID)
	}
	return out
}

// matchPrefix tries prefixes in order and strips the first that matches.
func matchPrefix(content string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(content, p) {
			return content[len(p):], true
		}
	}
	return "", false
}
