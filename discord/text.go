package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// noPing defuses mass mentions in text echoed back to the channel by
// inserting a zero-width space.
func noPing(msg string) string {
	msg = strings.ReplaceAll(msg, "@everyone", "@​everyone")
	return strings.ReplaceAll(msg, "@here", "@​here")
}

// stripMention reduces <@123>, <@!123>, <@&123> and <#123> to the bare ID.
func stripMention(arg string) string {
	if !strings.HasPrefix(arg, "<") || !strings.HasSuffix(arg, ">") {
		return arg
	}
	id := arg[1 : len(arg)-1]
	id = strings.TrimPrefix(id, "@")
	id = strings.TrimPrefix(id, "!")
	id = strings.TrimPrefix(id, "&")
	id = strings.TrimPrefix(id, "#")
	return id
}

// findRole resolves a role argument by mention, ID, or name.
func findRole(guild *discordgo.Guild, arg string) *discordgo.Role {
	id := stripMention(arg)
	for _, r := range guild.Roles {
		if r.ID == id {
			return r
		}
	}
	for _, r := range guild.Roles {
		if strings.EqualFold(r.Name, arg) {
			return r
		}
	}
	return nil
}

// findChannel resolves a channel argument by mention, ID, or name.
func findChannel(guild *discordgo.Guild, arg string) *discordgo.Channel {
	id := stripMention(arg)
	for _, ch := range guild.Channels {
		if ch.ID == id {
			return ch
		}
	}
	name := strings.TrimPrefix(arg, "#")
	for _, ch := range guild.Channels {
		if strings.EqualFold(ch.Name, name) {
			return ch
		}
	}
	return nil
}
