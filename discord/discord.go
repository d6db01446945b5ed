package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/tnicklin/vouchbot/auth"
	"github.com/tnicklin/vouchbot/diag"
	"github.com/tnicklin/vouchbot/logger"
	"github.com/tnicklin/vouchbot/models"
	"github.com/tnicklin/vouchbot/store"
)

var _ Discord = (*DefaultDiscord)(nil)

// Reaction signals for command outcomes that carry no message of their
// own. When adding the reaction fails, one plain-message fallback is
// attempted; a second failure is swallowed.
const (
	reactionHandlerError = "\U0001F4A5" // collision symbol
	reactionNoReply      = "\U0001F910" // zipper-mouth face
	reactionDenied       = "\U0001F6AB" // no entry sign
	reactionBadInput     = "❓"     // question mark
)

// Sentinel outcomes handlers report instead of a reply.
var (
	errDenied   = errors.New("authorization denied")
	errBadInput = errors.New("bad input")
)

type DefaultDiscord struct {
	session       *discordgo.Session
	store         *store.Store
	resolver      auth.Resolver
	logger        logger.Logger
	commands      map[string]command
	removeHandler func()
}

type Params struct {
	Session *discordgo.Session
	Store   *store.Store
	Logger  logger.Logger
}

func New(p Params) *DefaultDiscord {
	log := p.Logger
	if log == nil {
		log = logger.NewNop()
	}

	d := &DefaultDiscord{
		session: p.Session,
		store:   p.Store,
		logger:  log,
	}
	d.commands = commandTable()
	return d
}

// Start opens nothing itself; the session is opened by the caller. It
// resolves the application owner (the identity behind the BotOwner level)
// and registers the message handler.
func (d *DefaultDiscord) Start(_ context.Context) error {
	app, err := d.session.Application("@me")
	if err != nil {
		return fmt.Errorf("resolve application owner: %w", err)
	}
	if app.Owner == nil {
		return errors.New("application has no owner")
	}
	d.resolver = auth.Resolver{OwnerID: app.Owner.ID}
	d.logger.InfoW("resolved application owner", "owner_id", app.Owner.ID)

	d.removeHandler = d.session.AddHandler(d.handleMessage)
	return nil
}

func (d *DefaultDiscord) Stop() error {
	if d.removeHandler != nil {
		d.removeHandler()
		d.removeHandler = nil
	}
	return nil
}

// event carries everything a handler needs for one inbound command.
type event struct {
	session *discordgo.Session
	message *discordgo.MessageCreate
	args    []string
	req     auth.Request
	tenant  models.TenantConfig
	guild   *discordgo.Guild
	snap    diag.GuildSnapshot
}

func (e *event) inGuild() bool {
	return e.message.GuildID != ""
}

func (d *DefaultDiscord) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	inGuild := m.GuildID != ""
	tenant := models.TenantConfig{}
	if inGuild {
		tenant = d.store.Guild(m.GuildID)
	}

	botID := ""
	if s.State.User != nil {
		botID = s.State.User.ID
	}
	prefixes := effectivePrefixes(tenant.CommandPrefixes, d.store.Defaults(), botID, inGuild)
	rest, ok := matchPrefix(m.Content, prefixes)
	if !ok {
		return
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])
	if help := d.store.HelpCommand(); help != "" && name == strings.ToLower(help) {
		name = "help"
	}
	cmd, ok := d.commands[name]
	if !ok {
		return
	}

	canSend := d.canReply(s, m, inGuild)
	if !canSend {
		d.signal(s, m, reactionNoReply, false)
		return
	}

	ev := &event{
		session: s,
		message: m,
		args:    fields[1:],
		tenant:  tenant,
	}

	if inGuild {
		guild, err := d.guildState(s, m.GuildID)
		if err != nil {
			d.logger.ErrorW("fetch guild state", "guild_id", m.GuildID, "error", err)
			d.signal(s, m, reactionHandlerError, canSend)
			return
		}
		ev.guild = guild
		ev.snap = d.buildSnapshot(s, guild, tenant)
		ev.req = auth.Request{
			ActorID:      m.Author.ID,
			GuildID:      m.GuildID,
			GuildOwnerID: guild.OwnerID,
			ActorRoleIDs: actorRoles(m),
		}
	} else {
		ev.req = auth.Request{ActorID: m.Author.ID}
	}

	if cmd.guildOnly && !inGuild {
		d.signal(s, m, reactionDenied, canSend)
		return
	}
	if !d.resolver.Allows(cmd.level, ev.req, ev.tenant) {
		d.signal(s, m, reactionDenied, canSend)
		return
	}

	ctx := context.Background()
	reply, err := cmd.run(d, ctx, ev)
	if err != nil {
		switch {
		case errors.Is(err, errDenied):
			d.signal(s, m, reactionDenied, canSend)
		case errors.Is(err, errBadInput):
			d.signal(s, m, reactionBadInput, canSend)
		default:
			d.logger.ErrorW("command failed", "command", name, "guild_id", m.GuildID, "error", err)
			d.signal(s, m, reactionHandlerError, canSend)
		}
		return
	}
	if reply == "" {
		return
	}

	// Config-affecting commands carry the current diagnosis with them so
	// misconfiguration surfaces before it bites.
	if cmd.configAffecting && inGuild {
		// Re-read: the handler may have just mutated the config.
		current := d.store.Guild(m.GuildID)
		problems := diag.Problems(current, d.buildSnapshot(s, ev.guild, current))
		reply = appendProblems(reply, problems)
	}

	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		d.logger.ErrorW("send reply", "channel_id", m.ChannelID, "error", err)
	}
}

// canReply reports whether the bot may send messages in the invoking
// channel. DMs are always repliable.
func (d *DefaultDiscord) canReply(s *discordgo.Session, m *discordgo.MessageCreate, inGuild bool) bool {
	if !inGuild {
		return true
	}
	if s.State.User == nil {
		return true
	}
	perms, err := s.UserChannelPermissions(s.State.User.ID, m.ChannelID)
	if err != nil {
		// Unknown is treated as sendable; the send itself will tell.
		return true
	}
	return perms&discordgo.PermissionSendMessages != 0
}

// signal adds an outcome reaction, falling back to a plain message once.
func (d *DefaultDiscord) signal(s *discordgo.Session, m *discordgo.MessageCreate, reaction string, canSend bool) {
	err := s.MessageReactionAdd(m.ChannelID, m.ID, reaction)
	if err == nil {
		return
	}
	if !canSend {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reaction); err != nil {
		d.logger.DebugW("reaction fallback failed", "channel_id", m.ChannelID, "error", err)
	}
}

func actorRoles(m *discordgo.MessageCreate) []string {
	if m.Member == nil {
		return nil
	}
	return m.Member.Roles
}

// appendProblems attaches the rendered problem list under a warning
// header, matching check-config output.
func appendProblems(msg string, problems []diag.Problem) string {
	if len(problems) == 0 {
		return msg
	}
	lines := []string{msg, "", "**Warning**"}
	for _, p := range problems {
		lines = append(lines, p.Render())
	}
	return strings.Join(lines, "\n")
}
