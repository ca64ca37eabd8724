package bot

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"tsunbot/pkg/persona"
)

func (h *Handler) actionFailed(c *cmdContext, action string, err error) string {
	h.logger.Warn().Err(err).Str("action", action).Str("guild", c.guildID).Msg("server action failed")
	return h.persona.Activity("server_actions", "failed", persona.Vars{"error": shortError(err)})
}

func (h *Handler) badTarget() string {
	return h.persona.Activity("server_actions", "bad_target", nil)
}

func (h *Handler) cmdMention(c *cmdContext) (string, error) {
	userID, ok := parseUserID(c.args[0])
	if !ok {
		return h.badTarget(), nil
	}
	message := strings.TrimSpace(strings.TrimPrefix(c.rest, c.args[0]))
	return h.persona.Activity("server_actions", "mention", persona.Vars{
		"mention": "<@" + userID + ">",
		"message": message,
	}), nil
}

// parseColor reads "#rrggbb" or "rrggbb".
func parseColor(s string) (int, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func (h *Handler) cmdCreateRole(c *cmdContext) (string, error) {
	name := c.rest
	params := &discordgo.RoleParams{}
	if len(c.args) > 1 {
		if color, ok := parseColor(c.args[len(c.args)-1]); ok {
			params.Color = &color
			name = strings.Join(c.args[:len(c.args)-1], " ")
		}
	}
	params.Name = name

	role, err := c.s.GuildRoleCreate(c.guildID, params)
	if err != nil {
		return h.actionFailed(c, "create_role", err), nil
	}
	h.logger.Info().Str("guild", c.guildID).Str("role", role.Name).Str("by", c.userID).Msg("role created")
	return h.persona.Activity("server_actions", "role_created", persona.Vars{"role": role.Name}), nil
}

var errRoleNotFound = errors.New("role not found")

func (h *Handler) findRole(s Session, guildID, name string) (*discordgo.Role, error) {
	roles, err := s.GuildRoles(guildID)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, name) || r.ID == strings.Trim(name, "<@&>") {
			return r, nil
		}
	}
	return nil, errRoleNotFound
}

func (h *Handler) cmdGiveRole(c *cmdContext) (string, error) {
	return h.changeRole(c, true)
}

func (h *Handler) cmdRemoveRole(c *cmdContext) (string, error) {
	return h.changeRole(c, false)
}

func (h *Handler) changeRole(c *cmdContext, add bool) (string, error) {
	userID, ok := parseUserID(c.args[0])
	if !ok {
		return h.badTarget(), nil
	}
	roleName := strings.TrimSpace(strings.TrimPrefix(c.rest, c.args[0]))

	role, err := h.findRole(c.s, c.guildID, roleName)
	if errors.Is(err, errRoleNotFound) {
		return h.persona.Activity("server_actions", "role_not_found", persona.Vars{"role": roleName}), nil
	}
	if err != nil {
		return h.actionFailed(c, "find_role", err), nil
	}

	vars := persona.Vars{"role": role.Name, "mention": "<@" + userID + ">"}
	if add {
		if err := c.s.GuildMemberRoleAdd(c.guildID, userID, role.ID); err != nil {
			return h.actionFailed(c, "give_role", err), nil
		}
		return h.persona.Activity("server_actions", "role_given", vars), nil
	}
	if err := c.s.GuildMemberRoleRemove(c.guildID, userID, role.ID); err != nil {
		return h.actionFailed(c, "remove_role", err), nil
	}
	return h.persona.Activity("server_actions", "role_removed", vars), nil
}

func (h *Handler) cmdKick(c *cmdContext) (string, error) {
	userID, ok := parseUserID(c.args[0])
	if !ok || userID == h.botID {
		return h.badTarget(), nil
	}
	reason := strings.TrimSpace(strings.TrimPrefix(c.rest, c.args[0]))
	if reason == "" {
		reason = "kicked by " + c.userName
	}
	if err := c.s.GuildMemberDeleteWithReason(c.guildID, userID, reason); err != nil {
		return h.actionFailed(c, "kick", err), nil
	}
	h.logger.Info().Str("guild", c.guildID).Str("target", userID).Str("by", c.userID).Msg("member kicked")
	return h.persona.Activity("server_actions", "kicked", persona.Vars{"mention": "<@" + userID + ">"}), nil
}

func (h *Handler) cmdCreateChannel(c *cmdContext) (string, error) {
	ctype := discordgo.ChannelTypeGuildText
	if len(c.args) > 1 {
		switch strings.ToLower(c.args[1]) {
		case "voice":
			ctype = discordgo.ChannelTypeGuildVoice
		case "text":
		default:
			return "", errUsage("channel type must be text or voice")
		}
	}
	ch, err := c.s.GuildChannelCreate(c.guildID, c.args[0], ctype)
	if err != nil {
		return h.actionFailed(c, "create_channel", err), nil
	}
	return h.persona.Activity("server_actions", "channel_created", persona.Vars{"channel": "<#" + ch.ID + ">"}), nil
}

func (h *Handler) cmdSendTo(c *cmdContext) (string, error) {
	channelID, ok := parseChannelID(c.args[0])
	if !ok {
		return h.badTarget(), nil
	}
	ch, err := c.s.Channel(channelID)
	if err != nil || ch.GuildID != c.guildID {
		return h.badTarget(), nil
	}
	message := strings.TrimSpace(strings.TrimPrefix(c.rest, c.args[0]))
	if _, err := c.s.ChannelMessageSend(channelID, message); err != nil {
		return h.actionFailed(c, "send_to", err), nil
	}
	return h.persona.Activity("server_actions", "sent", persona.Vars{"channel": "<#" + channelID + ">"}), nil
}
