package discord

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/tnicklin/vouchbot/auth"
	"github.com/tnicklin/vouchbot/diag"
	"github.com/tnicklin/vouchbot/store"
)

type handlerFunc func(d *DefaultDiscord, ctx context.Context, ev *event) (string, error)

// command declares one entry of the dispatch table: the required
// authorization level is checked once by dispatch, before the handler
// runs.
type command struct {
	level           auth.Level
	guildOnly       bool
	configAffecting bool
	run             handlerFunc
}

func commandTable() map[string]command {
	return map[string]command{
		"vouch": {
			level:     auth.Member,
			guildOnly: true,
			run:       cmdVouch,
		},
		"set-admin-role": {
			level:           auth.GuildOwner,
			guildOnly:       true,
			configAffecting: true,
			run:             cmdSetAdminRole,
		},
		"set-grant-role": {
			level:           auth.Admin,
			guildOnly:       true,
			configAffecting: true,
			run:             cmdSetGrantRole,
		},
		"set-log-channel": {
			level:           auth.Admin,
			guildOnly:       true,
			configAffecting: true,
			run:             cmdSetLogChannel,
		},
		"set-bot-prefixes": {
			level:           auth.Admin,
			guildOnly:       true,
			configAffecting: true,
			run:             cmdSetBotPrefixes,
		},
		"set-bot-nick": {
			level:     auth.Admin,
			guildOnly: true,
			run:       cmdSetBotNick,
		},
		"check-config": {
			level:     auth.Admin,
			guildOnly: true,
			run:       cmdCheckConfig,
		},
		"name": {
			level: auth.BotOwner,
			run:   cmdName,
		},
		"avatar": {
			level: auth.BotOwner,
			run:   cmdAvatar,
		},
		"help": {
			level: auth.Member,
			run:   cmdHelp,
		},
	}
}

func cmdVouch(d *DefaultDiscord, ctx context.Context, ev *event) (string, error) {
	if len(ev.args) != 1 {
		return "", errBadInput
	}

	target, err := d.resolveMember(ev, ev.args[0])
	if err != nil {
		return "", errBadInput
	}

	req := vouchRequest{
		ActorID:       ev.message.Author.ID,
		ActorRoleIDs:  actorRoles(ev.message),
		ActorMention:  ev.message.Author.Mention(),
		TargetID:      target.User.ID,
		TargetIsBot:   target.User.Bot,
		TargetRoleIDs: target.Roles,
		TargetMention: target.User.Mention(),
	}

	outcome := evaluateVouch(req, ev.tenant, diag.Errors(ev.tenant, ev.snap))
	if !outcome.Grant {
		return outcome.Message, nil
	}

	if err := ev.session.GuildMemberRoleAdd(ev.message.GuildID, target.User.ID, ev.tenant.GrantRoleID); err != nil {
		return "", fmt.Errorf("grant role %s to %s: %w", ev.tenant.GrantRoleID, target.User.ID, err)
	}

	// Best-effort: a broken log channel never fails the vouch.
	if ev.tenant.LogChannelID != "" {
		if ch := ev.snap.Channels[ev.tenant.LogChannelID]; ch.Exists {
			if _, err := ev.session.ChannelMessageSend(ev.tenant.LogChannelID, outcome.LogMessage); err != nil {
				d.logger.WarnW("send vouch log", "channel_id", ev.tenant.LogChannelID, "error", err)
			}
		}
	}

	return outcome.Message, nil
}

// resolveMember turns a mention or ID argument into a guild member.
func (d *DefaultDiscord) resolveMember(ev *event, arg string) (*discordgo.Member, error) {
	id := stripMention(arg)
	if id == "" {
		return nil, errBadInput
	}
	if m, err := ev.session.State.Member(ev.message.GuildID, id); err == nil {
		return m, nil
	}
	m, err := ev.session.GuildMember(ev.message.GuildID, id)
	if err != nil {
		return nil, fmt.Errorf("fetch member %s: %w", id, err)
	}
	return m, nil
}

func cmdSetAdminRole(d *DefaultDiscord, ctx context.Context, ev *event) (string, error) {
	if len(ev.args) == 0 {
		err := d.store.Unset(ctx, ev.message.GuildID, store.FieldAdminRole)
		if errors.Is(err, store.ErrNotSet) {
			return "Admin role is not set", nil
		}
		if err != nil {
			return "", err
		}
		return "Removed configured admin role", nil
	}

	role := findRole(ev.guild, strings.Join(ev.args, " "))
	if role == nil {
		return "", errBadInput
	}
	if role.ID == ev.guild.ID {
		return "Granting admin access to everyone is not allowed", nil
	}
	if err := d.store.Set(ctx, ev.message.GuildID, store.FieldAdminRole, role.ID); err != nil {
		return "", err
	}
	return noPing(fmt.Sprintf("Set admin role to %s", role.Name)), nil
}

func cmdSetGrantRole(d *DefaultDiscord, ctx context.Context, ev *event) (string, error) {
	if len(ev.args) == 0 {
		err := d.store.Unset(ctx, ev.message.GuildID, store.FieldGrantRole)
		if errors.Is(err, store.ErrNotSet) {
			return "Grant role is not set", nil
		}
		if err != nil {
			return "", err
		}
		return "Removed configured grant role", nil
	}

	role := findRole(ev.guild, strings.Join(ev.args, " "))
	if role == nil {
		return "", errBadInput
	}
	if role.ID == ev.guild.ID {
		return "Granting the @everyone role is not possible", nil
	}
	if err := d.store.Set(ctx, ev.message.GuildID, store.FieldGrantRole, role.ID); err != nil {
		return "", err
	}
	return noPing(fmt.Sprintf("Set grant role to %s", role.Name)), nil
}

func cmdSetLogChannel(d *DefaultDiscord, ctx context.Context, ev *event) (string, error) {
	if len(ev.args) == 0 {
		err := d.store.Unset(ctx, ev.message.GuildID, store.FieldLogChannel)
		if errors.Is(err, store.ErrNotSet) {
			return "Log channel is not set", nil
		}
		if err != nil {
			return "", err
		}
		return "Removed configured log channel", nil
	}

	ch := findChannel(ev.guild, ev.args[0])
	if ch == nil {
		return "", errBadInput
	}
	if err := d.store.Set(ctx, ev.message.GuildID, store.FieldLogChannel, ch.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Set log channel to <#%s>", ch.ID), nil
}

func cmdSetBotPrefixes(d *DefaultDiscord, ctx context.Context, ev *event) (string, error) {
	if len(ev.args) == 0 {
		err := d.store.UnsetPrefixes(ctx, ev.message.GuildID)
		if errors.Is(err, store.ErrNotSet) {
			return "Command prefixes are not set", nil
		}
		if err != nil {
			return "", err
		}
		return "Removed configured command prefixes", nil
	}

	if err := d.store.SetPrefixes(ctx, ev.message.GuildID, ev.args); err != nil {
		return "", err
	}
	quoted := make([]string, len(ev.args))
	for i, p := range ev.args {
		quoted[i] = "`" + p + "`"
	}
	return noPing("Set command prefixes to " + strings.Join(quoted, ", ")), nil
}

func cmdSetBotNick(d *DefaultDiscord, ctx context.Context, ev *event) (string, error) {
	botID := ""
	if ev.session.State.User != nil {
		botID = ev.session.State.User.ID
	}
	perms, err := ev.session.UserChannelPermissions(botID, ev.message.ChannelID)
	if err == nil && perms&discordgo.PermissionChangeNickname == 0 &&
		perms&discordgo.PermissionAdministrator == 0 {
		return "⛔ Bot does not have permission to change nickname", nil
	}

	nick := strings.Join(ev.args, " ")
	if err := ev.session.GuildMemberNickname(ev.message.GuildID, "@me", nick); err != nil {
		return "", fmt.Errorf("change nickname: %w", err)
	}
	if nick == "" {
		return "Reset nick", nil
	}
	return noPing(fmt.Sprintf("Changed nick to %s", nick)), nil
}

func cmdCheckConfig(d *DefaultDiscord, ctx context.Context, ev *event) (string, error) {
	problems := diag.Problems(ev.tenant, ev.snap)
	if len(problems) == 0 {
		return "No issues with the configuration detected", nil
	}
	lines := []string{"Found the following issues"}
	for _, p := range problems {
		lines = append(lines, p.Render())
	}
	return strings.Join(lines, "\n"), nil
}

func cmdName(d *DefaultDiscord, ctx context.Context, ev *event) (string, error) {
	if len(ev.args) == 0 {
		return "", errBadInput
	}
	newName := strings.Join(ev.args, " ")
	if _, err := ev.session.UserUpdate(newName, ""); err != nil {
		return "", fmt.Errorf("change username: %w", err)
	}
	return noPing(fmt.Sprintf("Changed name to %s.", newName)), nil
}

// cmdAvatar sets the bot avatar from the message's single attachment.
// The whole operation is best-effort: failures are logged, never surfaced
// as a command error.
func cmdAvatar(d *DefaultDiscord, ctx context.Context, ev *event) (string, error) {
	atts := ev.message.Attachments
	if len(atts) != 1 {
		return "You need to upload the avatar with the command.", nil
	}

	data, contentType, err := fetchAttachment(ctx, atts[0].ProxyURL)
	if err != nil {
		d.logger.WarnW("fetch avatar attachment", "url", atts[0].ProxyURL, "error", err)
		return "", nil
	}

	uri := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	if _, err := ev.session.UserUpdate("", uri); err != nil {
		d.logger.WarnW("update avatar", "error", err)
		return "", nil
	}
	return "Avatar changed.", nil
}

func fetchAttachment(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return data, contentType, nil
}

func cmdHelp(d *DefaultDiscord, ctx context.Context, ev *event) (string, error) {
	help := d.store.HelpCommand()
	if help == "" {
		help = "help"
	}
	return "**Commands**\n" + "```\n" +
		"vouch <member>            - Vouch for a new member you know\n" +
		help + "                     - Show this help message\n" +
		"```\n" +
		"**Admin commands**\n" + "```\n" +
		"set-admin-role [role]     - Role granting access to guild settings (guild owner)\n" +
		"set-grant-role [role]     - Role granted upon successful vouching\n" +
		"set-log-channel [channel] - Channel vouches are logged to\n" +
		"set-bot-prefixes [p...]   - Command prefixes for this guild\n" +
		"set-bot-nick [nick]       - Nickname of the bot in this guild\n" +
		"check-config              - Check for problems with config and permissions\n" +
		"```\n" +
		"Omit the argument of a set-* command to remove the setting.", nil
}
