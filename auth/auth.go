// Package auth derives owner/admin/member decisions from the actor's
// identity, live guild facts, and the stored per-guild configuration.
// Live ownership always wins over stored config: losing the admin role can
// never lock out the guild owner or the bot owner.
package auth

import "github.com/tnicklin/vouchbot/models"

// Level is the flat authorization ladder. Each level implies all lower
// ones.
type Level int

const (
	Member Level = iota
	Admin
	GuildOwner
	BotOwner
)

func (l Level) String() string {
	switch l {
	case Member:
		return "member"
	case Admin:
		return "admin"
	case GuildOwner:
		return "guild owner"
	case BotOwner:
		return "bot owner"
	default:
		return "unknown"
	}
}

// Request is the live snapshot a decision is made from. GuildID is empty
// for direct messages; ActorRoleIDs are the actor's roles in that guild.
type Request struct {
	ActorID      string
	GuildID      string
	GuildOwnerID string
	ActorRoleIDs []string
}

// InGuild reports whether the request carries a guild context.
func (r Request) InGuild() bool {
	return r.GuildID != ""
}

// Resolver answers authorization questions. OwnerID is the application
// owner, resolved once at startup.
type Resolver struct {
	OwnerID string
}

func (rs Resolver) IsBotOwner(req Request) bool {
	return rs.OwnerID != "" && req.ActorID == rs.OwnerID
}

func (rs Resolver) IsGuildOwner(req Request) bool {
	if rs.IsBotOwner(req) {
		return true
	}
	return req.InGuild() && req.GuildOwnerID != "" && req.ActorID == req.GuildOwnerID
}

// IsAdmin checks the configured admin role. Outside a guild context the
// role check never applies; only ownership can grant admin there.
func (rs Resolver) IsAdmin(req Request, cfg models.TenantConfig) bool {
	if rs.IsGuildOwner(req) {
		return true
	}
	if !req.InGuild() || cfg.AdminRoleID == "" {
		return false
	}
	for _, id := range req.ActorRoleIDs {
		if id == cfg.AdminRoleID {
			return true
		}
	}
	return false
}

// Allows reports whether the request satisfies the given required level.
func (rs Resolver) Allows(level Level, req Request, cfg models.TenantConfig) bool {
	switch level {
	case Member:
		return true
	case Admin:
		return rs.IsAdmin(req, cfg)
	case GuildOwner:
		return rs.IsGuildOwner(req)
	case BotOwner:
		return rs.IsBotOwner(req)
	default:
		return false
	}
}
