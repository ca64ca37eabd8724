package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// SlashCommands defines all available slash commands
var SlashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "relationship",
		Description: "See how well the bot tolerates you",
	},
	{
		Name:        "mood",
		Description: "Check the bot's current mood",
	},
	{
		Name:        "reminders",
		Description: "List your pending reminders",
	},
	{
		Name:        "remind",
		Description: "Set a reminder",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "when",
				Description: "When to remind you: in 10 minutes, 2h, at 3pm, tomorrow at 9am",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "message",
				Description: "What to remind you about",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "repeat",
				Description: "Repeat the reminder",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "hourly", Value: "hourly"},
					{Name: "daily", Value: "daily"},
					{Name: "weekly", Value: "weekly"},
				},
			},
		},
	},
}

// SlashCommandHandlers maps command names to their handler functions
var SlashCommandHandlers = map[string]func(h *Handler, ctx context.Context, s Session, i *discordgo.InteractionCreate){
	"relationship": handleRelationshipCommand,
	"mood":         handleMoodCommand,
	"reminders":    handleRemindersCommand,
	"remind":       handleRemindCommand,
}

func handleRelationshipCommand(h *Handler, ctx context.Context, s Session, i *discordgo.InteractionCreate) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		h.logger.Error().Err(err).Msg("relationship command without user")
		return
	}
	rel, err := h.relationships.Get(ctx, userID, i.GuildID)
	if err != nil {
		h.logger.Error().Err(err).Str("user", userID).Msg("error loading relationship")
		respondEphemeral(h, s, i, h.persona.Response("error", nil))
		return
	}
	respondEphemeral(h, s, i, h.relationshipReply(rel))
}

func handleMoodCommand(h *Handler, ctx context.Context, s Session, i *discordgo.InteractionCreate) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		h.logger.Error().Err(err).Msg("mood command without user")
		return
	}
	st, err := h.personality.Get(ctx, i.GuildID)
	if err != nil {
		h.logger.Error().Err(err).Str("guild", i.GuildID).Msg("error loading personality")
		respondEphemeral(h, s, i, h.persona.Response("error", nil))
		return
	}
	rel, err := h.relationships.Get(ctx, userID, i.GuildID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user", userID).Msg("error loading relationship")
	}
	respond(h, s, i, h.moodReply(st.MoodState(), st.Mood(), rel.Level))
}

func handleRemindersCommand(h *Handler, ctx context.Context, s Session, i *discordgo.InteractionCreate) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		h.logger.Error().Err(err).Msg("reminders command without user")
		return
	}
	reply, err := h.remindersReply(ctx, userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user", userID).Msg("error listing reminders")
		reply = h.persona.Response("error", nil)
	}
	respondEphemeral(h, s, i, reply)
}

func handleRemindCommand(h *Handler, ctx context.Context, s Session, i *discordgo.InteractionCreate) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		h.logger.Error().Err(err).Msg("remind command without user")
		return
	}

	opts := optionMap(i)
	when, message, repeat := opts["when"], opts["message"], opts["repeat"]

	reply, ok, err := h.createReminder(ctx, userID, i.GuildID, i.ChannelID, when, message, repeat)
	if err != nil {
		h.logger.Error().Err(err).Str("user", userID).Msg("error creating reminder")
		reply = h.persona.Response("error", nil)
	} else if ok {
		if notes := h.recordInteraction(ctx, userID, i.GuildID, "reminder", ""); notes != "" {
			reply += "\n\n" + notes
		}
	}
	respond(h, s, i, reply)
}

// HandleInteraction dispatches a slash command to its handler.
func (h *Handler) HandleInteraction(s Session, i *discordgo.InteractionCreate) {
	// Only handle application commands (slash commands)
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	commandName := i.ApplicationCommandData().Name
	handler, ok := SlashCommandHandlers[commandName]
	if !ok {
		h.logger.Warn().Str("command", commandName).Msg("unknown slash command")
		return
	}

	ctx, cancel := context.WithTimeout(h.baseCtx, 30*time.Second)
	defer cancel()
	handler(h, ctx, s, i)
}

// InteractionCreate handles all slash command interactions
func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.HandleInteraction(&DiscordSession{s}, i)
}

// RegisterSlashCommands registers all slash commands with Discord, globally
// when guildID is empty.
func RegisterSlashCommands(s *discordgo.Session, guildID string) ([]*discordgo.ApplicationCommand, error) {
	logger := log.With().Str("component", "slash").Str("guild", guildID).Logger()
	logger.Info().Int("count", len(SlashCommands)).Msg("registering slash commands")

	registeredCommands := make([]*discordgo.ApplicationCommand, len(SlashCommands))
	for i, cmd := range SlashCommands {
		registeredCmd, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, cmd)
		if err != nil {
			logger.Error().Err(err).Str("command", cmd.Name).Msg("cannot create command")
			return nil, err
		}
		registeredCommands[i] = registeredCmd
		logger.Debug().Str("command", cmd.Name).Msg("registered command")
	}

	return registeredCommands, nil
}

// UnregisterSlashCommands removes all registered slash commands
func UnregisterSlashCommands(s *discordgo.Session, guildID string, commands []*discordgo.ApplicationCommand) error {
	logger := log.With().Str("component", "slash").Str("guild", guildID).Logger()

	for _, cmd := range commands {
		if err := s.ApplicationCommandDelete(s.State.User.ID, guildID, cmd.ID); err != nil {
			logger.Error().Err(err).Str("command", cmd.Name).Msg("cannot delete command")
			return err
		}
		logger.Debug().Str("command", cmd.Name).Msg("unregistered command")
	}
	return nil
}
