// Package diag cross-checks a guild's stored configuration against live
// platform state. Problems are recomputed on every request; roles and
// channels change outside the bot's control, so caching would lie.
package diag

import "github.com/tnicklin/vouchbot/models"

type Severity int

const (
	Error Severity = iota
	Warning
)

// Problem is one actionable finding. Errors mean vouching cannot work;
// warnings mean something is degraded but vouching still functions.
type Problem struct {
	Severity Severity
	Message  string
}

// ChannelState describes one channel as the bot currently sees it.
type ChannelState struct {
	Exists  bool
	CanSend bool
}

// GuildSnapshot is the live guild state a diagnosis runs against. Callers
// build it fresh per request.
type GuildSnapshot struct {
	CanManageRoles  bool
	CanAddReactions bool
	CanReadHistory  bool

	// BotTopRolePosition is the position of the bot's highest role.
	// Higher positions outrank lower ones.
	BotTopRolePosition int

	// RolePositions maps every existing role ID to its position.
	RolePositions map[string]int

	// Channels maps channel IDs the config references to their state.
	Channels map[string]ChannelState
}

// Errors returns the conditions that make vouching impossible, in a fixed
// order. Exactly one of the three grant-role conditions can fire per
// evaluation.
func Errors(cfg models.TenantConfig, snap GuildSnapshot) []Problem {
	var out []Problem
	add := func(msg string) {
		out = append(out, Problem{Severity: Error, Message: msg})
	}

	if !snap.CanManageRoles {
		add("Bot does not have permission to grant roles")
	}

	switch pos, ok := snap.RolePositions[cfg.GrantRoleID]; {
	case cfg.GrantRoleID == "":
		add("Grant role is not set")
	case !ok:
		add("Configured grant role does not exist")
	case pos >= snap.BotTopRolePosition:
		add("Grant role is above the role of the bot")
	}

	if cfg.LogChannelID != "" {
		if ch, ok := snap.Channels[cfg.LogChannelID]; ok && ch.Exists && !ch.CanSend {
			add("Bot does not have send permission to log channel")
		}
	}

	return out
}

// Warnings returns degraded but non-fatal conditions.
func Warnings(cfg models.TenantConfig, snap GuildSnapshot) []Problem {
	var out []Problem
	add := func(msg string) {
		out = append(out, Problem{Severity: Warning, Message: msg})
	}

	if !snap.CanAddReactions {
		add("Bot does not have guild wide add reaction permission, " +
			"reactions will not work in channels without it")
	}
	if !snap.CanReadHistory {
		add("Bot does not have guild wide read message history " +
			"permission, this may be required for reactions")
	}

	if cfg.LogChannelID != "" {
		if ch, ok := snap.Channels[cfg.LogChannelID]; !ok || !ch.Exists {
			add("Configured log channel does not exist")
		}
	}

	if cfg.AdminRoleID != "" {
		if _, ok := snap.RolePositions[cfg.AdminRoleID]; !ok {
			add("Configured admin role does not exist")
		}
	}

	return out
}

// Problems returns errors followed by warnings.
func Problems(cfg models.TenantConfig, snap GuildSnapshot) []Problem {
	return append(Errors(cfg, snap), Warnings(cfg, snap)...)
}

// Render formats a problem the way it is shown to users.
func (p Problem) Render() string {
	if p.Severity == Error {
		return "⛔ " + p.Message
	}
	return "⚠️ " + p.Message
}
