package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// getUserFromInteraction extracts the user ID and name from an interaction
// It handles both guild (Member) and DM (User) contexts
func getUserFromInteraction(i *discordgo.InteractionCreate) (string, string, error) {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID, displayName(i.Member.User), nil
	}
	if i.User != nil {
		return i.User.ID, displayName(i.User), nil
	}
	return "", "", fmt.Errorf("could not determine user from interaction")
}

// optionMap flattens the string options of a slash command by name.
func optionMap(i *discordgo.InteractionCreate) map[string]string {
	out := make(map[string]string)
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			out[opt.Name] = opt.StringValue()
		}
	}
	return out
}

func respond(h *Handler, s Session, i *discordgo.InteractionCreate, content string) {
	interactionReply(h, s, i, content, 0)
}

// respondEphemeral replies so only the invoking user sees it.
func respondEphemeral(h *Handler, s Session, i *discordgo.InteractionCreate, content string) {
	interactionReply(h, s, i, content, discordgo.MessageFlagsEphemeral)
}

func interactionReply(h *Handler, s Session, i *discordgo.InteractionCreate, content string, flags discordgo.MessageFlags) {
	parts := splitMessage(content, MaxMessageLength)
	if len(parts) == 0 {
		return
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: parts[0],
			Flags:   flags,
		},
	})
	if err != nil {
		h.logger.Error().Err(err).Str("interaction", i.ID).Msg("error responding to interaction")
		return
	}

	for _, part := range parts[1:] {
		_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: part,
			Flags:   flags,
		})
		if err != nil {
			h.logger.Error().Err(err).Str("interaction", i.ID).Int("parts", len(parts)).Msg("error sending followup")
			return
		}
	}
}
