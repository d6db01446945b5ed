package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/tnicklin/vouchbot/diag"
	"github.com/tnicklin/vouchbot/models"
)

// guildState returns the guild with roles and channels populated,
// preferring the session state cache over the REST API.
func (d *DefaultDiscord) guildState(s *discordgo.Session, guildID string) (*discordgo.Guild, error) {
	if g, err := s.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
		return g, nil
	}

	g, err := s.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch guild %s: %w", guildID, err)
	}
	if len(g.Channels) == 0 {
		channels, err := s.GuildChannels(guildID)
		if err != nil {
			return nil, fmt.Errorf("fetch guild channels %s: %w", guildID, err)
		}
		g.Channels = channels
	}
	return g, nil
}

// buildSnapshot projects the live guild into the diagnosis input: the
// bot's guild-wide permissions, its top role position, every role's
// position, and the state of any channel the config references.
func (d *DefaultDiscord) buildSnapshot(s *discordgo.Session, guild *discordgo.Guild, cfg models.TenantConfig) diag.GuildSnapshot {
	snap := diag.GuildSnapshot{
		RolePositions: make(map[string]int, len(guild.Roles)),
		Channels:      map[string]diag.ChannelState{},
	}
	for _, r := range guild.Roles {
		snap.RolePositions[r.ID] = r.Position
	}

	botID := ""
	if s.State.User != nil {
		botID = s.State.User.ID
	}

	var perms int64
	if member := d.botMember(s, guild.ID, botID); member != nil {
		held := make(map[string]bool, len(member.Roles)+1)
		for _, id := range member.Roles {
			held[id] = true
		}
		held[guild.ID] = true // @everyone

		for _, r := range guild.Roles {
			if !held[r.ID] {
				continue
			}
			perms |= r.Permissions
			if r.Position > snap.BotTopRolePosition {
				snap.BotTopRolePosition = r.Position
			}
		}
	}

	admin := perms&discordgo.PermissionAdministrator != 0
	snap.CanManageRoles = admin || perms&discordgo.PermissionManageRoles != 0
	snap.CanAddReactions = admin || perms&discordgo.PermissionAddReactions != 0
	snap.CanReadHistory = admin || perms&discordgo.PermissionReadMessageHistory != 0

	if cfg.LogChannelID != "" {
		snap.Channels[cfg.LogChannelID] = d.channelState(s, guild, cfg.LogChannelID, botID)
	}
	return snap
}

func (d *DefaultDiscord) botMember(s *discordgo.Session, guildID, botID string) *discordgo.Member {
	if botID == "" {
		return nil
	}
	if m, err := s.State.Member(guildID, botID); err == nil {
		return m
	}
	m, err := s.GuildMember(guildID, botID)
	if err != nil {
		d.logger.WarnW("fetch own member", "guild_id", guildID, "error", err)
		return nil
	}
	return m
}

func (d *DefaultDiscord) channelState(s *discordgo.Session, guild *discordgo.Guild, channelID, botID string) diag.ChannelState {
	var found bool
	for _, ch := range guild.Channels {
		if ch.ID == channelID {
			found = true
			break
		}
	}
	if !found {
		return diag.ChannelState{}
	}

	state := diag.ChannelState{Exists: true}
	perms, err := s.UserChannelPermissions(botID, channelID)
	if err != nil {
		d.logger.WarnW("fetch channel permissions", "channel_id", channelID, "error", err)
		return state
	}
	state.CanSend = perms&discordgo.PermissionSendMessages != 0 ||
		perms&discordgo.PermissionAdministrator != 0
	return state
}
