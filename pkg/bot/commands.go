package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"tsunbot/pkg/games"
	"tsunbot/pkg/gemini"
	"tsunbot/pkg/persona"
	"tsunbot/pkg/personality"
	"tsunbot/pkg/relationship"
	"tsunbot/pkg/search"
	"tsunbot/pkg/storage"
	"tsunbot/pkg/utilities"
)

// command is one prefix command. kind is the relationship gain applied on
// success and mood the personality event; run may change either through
// the context.
type command struct {
	name      string
	aliases   []string
	usage     string
	minArgs   int
	kind      string
	mood      string
	guildOnly bool
	perm      int64
	admin     bool
	limited   bool
	run       func(h *Handler, c *cmdContext) (string, error)
}

type cmdContext struct {
	ctx       context.Context
	s         Session
	msg       *discordgo.MessageCreate
	invoked   string
	rest      string
	args      []string
	userID    string
	userName  string
	guildID   string
	channelID string

	kind  string
	mood  string
	after func()
}

// usageError makes runCommand answer with the command's usage line.
type usageError struct{ reason string }

func (e *usageError) Error() string { return "usage: " + e.reason }

func errUsage(reason string) error { return &usageError{reason: reason} }

func buildCommands() map[string]*command {
	cmds := []*command{
		// AI
		{name: "ai", aliases: []string{"ask", "chat"}, usage: "ai <question>", minArgs: 1, kind: "chat", mood: "chat", limited: true, run: (*Handler).cmdAsk},

		// Social
		{name: "help_ai", aliases: []string{"commands"}, usage: "help_ai", run: (*Handler).cmdHelp},
		{name: "compliment", usage: "compliment", kind: "compliment", mood: "compliment_given", run: (*Handler).cmdCompliment},
		{name: "mood", usage: "mood", run: (*Handler).cmdMood},
		{name: "relationship", usage: "relationship", run: (*Handler).cmdRelationship},

		// Utilities
		{name: "time", usage: "time [zone]", kind: "utility", run: (*Handler).cmdTime},
		{name: "calc", usage: "calc <expression>", minArgs: 1, kind: "utility", run: (*Handler).cmdCalc},
		{name: "dice", usage: "dice [sides]", kind: "utility", run: (*Handler).cmdDice},
		{name: "flip", usage: "flip", kind: "utility", run: (*Handler).cmdFlip},
		{name: "weather", usage: "weather <city>", minArgs: 1, kind: "utility", run: (*Handler).cmdWeather},
		{name: "fact", usage: "fact", kind: "utility", run: (*Handler).cmdFact},
		{name: "joke", usage: "joke", kind: "utility", run: (*Handler).cmdJoke},
		{name: "catfact", usage: "catfact", kind: "utility", run: (*Handler).cmdCatFact},
		{name: "search", usage: "search <query>", minArgs: 1, kind: "utility", run: (*Handler).cmdSearch},

		// Games
		{name: "game", usage: "game guess [max]", minArgs: 1, kind: "game", run: (*Handler).cmdGame},
		{name: "guess", usage: "guess <number>", minArgs: 1, kind: "game", run: (*Handler).cmdGuess},
		{name: "rps", aliases: []string{"rock", "paper", "scissors"}, usage: "rps <rock|paper|scissors>", kind: "game", run: (*Handler).cmdRPS},
		{name: "8ball", usage: "8ball <question>", minArgs: 1, kind: "game", run: (*Handler).cmd8Ball},
		{name: "trivia", usage: "trivia", kind: "game", run: (*Handler).cmdTrivia},
		{name: "answer", usage: "answer <text>", minArgs: 1, kind: "game", run: (*Handler).cmdAnswer},

		// Reminders
		{name: "remind", usage: "remind [daily|weekly|hourly|every_N_unit] <when> <message>", minArgs: 2, kind: "reminder", run: (*Handler).cmdRemind},
		{name: "reminders", usage: "reminders", run: (*Handler).cmdReminders},
		{name: "cancelreminder", usage: "cancelreminder <id>", minArgs: 1, run: (*Handler).cmdCancelReminder},

		// Subscriptions
		{name: "subscribe", usage: "subscribe <" + strings.Join(subscriptionTypes, "|") + ">", minArgs: 1, run: (*Handler).cmdSubscribe},
		{name: "unsubscribe", usage: "unsubscribe <type>", minArgs: 1, run: (*Handler).cmdUnsubscribe},
		{name: "subscriptions", usage: "subscriptions", run: (*Handler).cmdSubscriptions},

		// Knowledge
		{name: "remember", usage: "remember <key> <content>", minArgs: 2, run: (*Handler).cmdRemember},
		{name: "recall", usage: "recall <key>", minArgs: 1, run: (*Handler).cmdRecall},
		{name: "forget", usage: "forget <key>", minArgs: 1, run: (*Handler).cmdForget},
		{name: "facts", usage: "facts", run: (*Handler).cmdFacts},

		// Server actions
		{name: "mention", usage: "mention <@user> [message]", minArgs: 1, guildOnly: true, run: (*Handler).cmdMention},
		{name: "create_role", usage: "create_role <name> [#hexcolor]", minArgs: 1, guildOnly: true, perm: discordgo.PermissionManageRoles, run: (*Handler).cmdCreateRole},
		{name: "give_role", usage: "give_role <@user> <role>", minArgs: 2, guildOnly: true, perm: discordgo.PermissionManageRoles, run: (*Handler).cmdGiveRole},
		{name: "remove_role", usage: "remove_role <@user> <role>", minArgs: 2, guildOnly: true, perm: discordgo.PermissionManageRoles, run: (*Handler).cmdRemoveRole},
		{name: "kick", usage: "kick <@user> [reason]", minArgs: 1, guildOnly: true, perm: discordgo.PermissionKickMembers, run: (*Handler).cmdKick},
		{name: "create_channel", usage: "create_channel <name> [text|voice]", minArgs: 1, guildOnly: true, perm: discordgo.PermissionManageChannels, run: (*Handler).cmdCreateChannel},
		{name: "send_to", usage: "send_to <#channel> <message>", minArgs: 2, guildOnly: true, perm: discordgo.PermissionManageMessages, run: (*Handler).cmdSendTo},

		// Admin
		{name: "reload_persona", usage: "reload_persona", admin: true, run: (*Handler).cmdReloadPersona},
		{name: "api_status", usage: "api_status", admin: true, run: (*Handler).cmdAPIStatus},
		{name: "shutdown", aliases: []string{"kill", "stop"}, usage: "shutdown", admin: true, run: (*Handler).cmdShutdown},
		{name: "restart", aliases: []string{"reboot"}, usage: "restart", admin: true, run: (*Handler).cmdRestart},
	}

	table := make(map[string]*command, len(cmds)*2)
	for _, c := range cmds {
		table[c.name] = c
		for _, a := range c.aliases {
			table[a] = c
		}
	}
	return table
}

func (h *Handler) cmdAsk(c *cmdContext) (string, error) {
	if isRude(c.rest) {
		c.kind, c.mood = "rude", "rude"
	}
	answer, ok := h.askAI(c.ctx, c.s, c.userID, c.userName, c.guildID, c.channelID, c.rest)
	if !ok {
		c.kind, c.mood = "", "error"
	}
	return answer, nil
}

// askAI answers question in persona, with the user's recent history and any
// guild facts the question names. Both turns are stored on success. On
// failure it returns the fallback line and false.
func (h *Handler) askAI(ctx context.Context, s Session, userID, userName, guildID, channelID, question string) (string, bool) {
	logger := h.logger.With().Str("user", userID).Str("guild", guildID).Logger()

	if err := s.ChannelTyping(channelID); err != nil {
		logger.Debug().Err(err).Msg("error sending typing indicator")
	}

	in := persona.PromptInput{Question: question, UserName: userName}

	history, err := h.store.RecentConversation(ctx, userID, guildID, h.cfg.AI.HistoryLength)
	if err != nil {
		logger.Warn().Err(err).Msg("error loading conversation history")
	}
	for _, m := range history {
		in.History = append(in.History, gemini.Message{Role: m.Role, Content: m.Content})
	}

	if rel, err := h.relationships.Get(ctx, userID, guildID); err == nil {
		in.Tier = relationship.TierFor(rel.Level).Name
	} else {
		logger.Warn().Err(err).Msg("error loading relationship")
	}
	if st, err := h.personality.Get(ctx, guildID); err == nil {
		in.Mood = string(st.MoodState())
	} else {
		logger.Warn().Err(err).Msg("error loading personality")
	}

	facts, err := h.store.SearchFacts(ctx, guildID, strings.Fields(question))
	if err != nil {
		logger.Warn().Err(err).Msg("error searching facts")
	}
	for _, f := range facts {
		in.Facts = append(in.Facts, persona.KnownFact{Key: f.Key, Content: f.Content})
	}

	answer, err := h.ai.Generate(ctx, h.persona.Prompt(in))
	if err != nil || strings.TrimSpace(answer) == "" {
		if errors.Is(err, gemini.ErrNoAvailableKeys) {
			logger.Warn().Msg("no gemini keys available")
		} else if err != nil {
			logger.Error().Err(err).Msg("error generating response")
		}
		return h.persona.Response("ai_fallback", nil), false
	}

	for _, turn := range []storage.ConversationMessage{
		{UserID: userID, GuildID: guildID, ChannelID: channelID, Role: "user", Content: question},
		{UserID: userID, GuildID: guildID, ChannelID: channelID, Role: "assistant", Content: answer},
	} {
		if _, err := h.store.AddConversationMessage(ctx, turn); err != nil {
			logger.Error().Err(err).Msg("error storing conversation")
		}
	}
	return answer, true
}

func (h *Handler) cmdHelp(c *cmdContext) (string, error) {
	return h.persona.Help(), nil
}

func (h *Handler) cmdCompliment(c *cmdContext) (string, error) {
	rel, err := h.relationships.Get(c.ctx, c.userID, c.guildID)
	if err != nil {
		return "", err
	}
	tier := relationship.TierFor(rel.Level)
	return h.persona.Response("compliment_received", nil) + "\n" +
		h.persona.Relationship(tier.Key, "compliment", persona.Vars{"user": c.userName}), nil
}

func (h *Handler) cmdMood(c *cmdContext) (string, error) {
	st, err := h.personality.Get(c.ctx, c.guildID)
	if err != nil {
		return "", err
	}
	rel, err := h.relationships.Get(c.ctx, c.userID, c.guildID)
	if err != nil {
		return "", err
	}
	return h.moodReply(st.MoodState(), st.Mood(), rel.Level), nil
}

func (h *Handler) moodReply(state personality.Mood, mood, level int) string {
	tier := relationship.TierFor(level)
	return fmt.Sprintf("%s\n%s\n*Mood: %s (%d/100)*",
		h.persona.Mood(string(state), nil),
		h.persona.Relationship(tier.Key, "mood", nil),
		state, mood)
}

func (h *Handler) cmdRelationship(c *cmdContext) (string, error) {
	rel, err := h.relationships.Get(c.ctx, c.userID, c.guildID)
	if err != nil {
		return "", err
	}
	return h.relationshipReply(rel), nil
}

func (h *Handler) relationshipReply(rel storage.Relationship) string {
	tier := relationship.TierFor(rel.Level)
	status := h.persona.Activity("relationship", "status", persona.Vars{
		"greeting": h.persona.Relationship(tier.Key, "greeting", nil),
		"count":    strconv.Itoa(rel.InteractionCount),
		"tier":     tier.Name,
		"level":    strconv.Itoa(rel.Level),
	})
	return status + "\n" + formatRelationship(rel)
}

func (h *Handler) cmdTime(c *cmdContext) (string, error) {
	now, err := utilities.Now(c.rest)
	if err != nil {
		return "", errUsage(err.Error())
	}
	return h.persona.Activity("utilities", "time", persona.Vars{"time": now}), nil
}

func (h *Handler) cmdCalc(c *cmdContext) (string, error) {
	v, err := utilities.Calculate(c.rest)
	if err != nil {
		return h.persona.Activity("calculation", "error", nil), nil
	}
	return h.persona.Activity("calculation", "success", persona.Vars{
		"expression": c.rest,
		"result":     utilities.FormatNumber(v),
	}), nil
}

func (h *Handler) cmdDice(c *cmdContext) (string, error) {
	sides := 0
	if len(c.args) > 0 {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(c.args[0]), "d"))
		if err != nil {
			return "", errUsage("sides must be a number")
		}
		sides = n
	}
	result, used := utilities.RollDice(sides)
	return h.persona.Activity("utilities", "dice", persona.Vars{"result": itoa(result), "sides": itoa(used)}), nil
}

func (h *Handler) cmdFlip(c *cmdContext) (string, error) {
	return h.persona.Activity("utilities", "flip", persona.Vars{"result": utilities.FlipCoin()}), nil
}

func (h *Handler) cmdWeather(c *cmdContext) (string, error) {
	w, err := h.fetcher.Weather(c.ctx, c.rest)
	switch {
	case errors.Is(err, utilities.ErrNoAPIKey):
		return h.persona.Activity("weather", "no_key", nil), nil
	case err != nil:
		h.logger.Warn().Err(err).Str("city", c.rest).Msg("weather lookup failed")
		return h.persona.Activity("weather", "error", persona.Vars{"city": c.rest}), nil
	}
	return h.persona.Activity("weather", "success", persona.Vars{
		"temp":        strconv.FormatFloat(w.Temp, 'f', 1, 64),
		"description": w.Description,
		"city":        w.City,
	}), nil
}

func (h *Handler) cmdFact(c *cmdContext) (string, error) {
	fact, err := h.fetcher.RandomFact(c.ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("fact lookup failed")
		return h.persona.Activity("facts", "error", nil), nil
	}
	return h.persona.Activity("facts", "success", persona.Vars{"fact": fact}), nil
}

func (h *Handler) cmdJoke(c *cmdContext) (string, error) {
	j, err := h.fetcher.RandomJoke(c.ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("joke lookup failed")
		return h.persona.Activity("jokes", "error", nil), nil
	}
	return h.persona.Activity("jokes", "success", persona.Vars{"setup": j.Setup, "punchline": j.Punchline}), nil
}

func (h *Handler) cmdCatFact(c *cmdContext) (string, error) {
	fact, err := h.fetcher.CatFact(c.ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("cat fact lookup failed")
		return h.persona.Activity("cat_facts", "error", nil), nil
	}
	return h.persona.Activity("cat_facts", "success", persona.Vars{"fact": fact}), nil
}

func (h *Handler) cmdSearch(c *cmdContext) (string, error) {
	results, err := h.searcher.Search(c.ctx, c.rest, 5)
	if err != nil {
		h.logger.Warn().Err(err).Str("query", c.rest).Msg("search failed")
		return h.persona.Activity("search", "error", nil), nil
	}
	if len(results) == 0 {
		return h.persona.Activity("search", "empty", persona.Vars{"query": c.rest}), nil
	}
	return h.persona.Activity("search", "success", persona.Vars{"results": search.Format(results)}), nil
}

func (h *Handler) cmdGame(c *cmdContext) (string, error) {
	if strings.ToLower(c.args[0]) != "guess" {
		return "", errUsage("unknown game")
	}
	upper := 0
	if len(c.args) > 1 {
		n, err := strconv.Atoi(c.args[1])
		if err != nil || n < 2 {
			return "", errUsage("max must be a number above 1")
		}
		upper = n
	}
	used := h.games.StartGuess(c.userID, upper)
	return h.persona.Activity("games", "guess_start", persona.Vars{"max": itoa(used)}), nil
}

func (h *Handler) cmdGuess(c *cmdContext) (string, error) {
	n, err := strconv.Atoi(c.args[0])
	if err != nil {
		return "", errUsage("not a number")
	}
	res, attempts, err := h.games.Guess(c.userID, n)
	switch {
	case errors.Is(err, games.ErrNoGame):
		c.kind = ""
		return h.persona.Activity("games", "guess_none", nil), nil
	case err != nil:
		return "", errUsage(err.Error())
	}
	switch res {
	case games.GuessHigher:
		return h.persona.Activity("games", "guess_higher", nil), nil
	case games.GuessLower:
		return h.persona.Activity("games", "guess_lower", nil), nil
	default:
		c.mood = "game_lost_by_bot"
		return h.persona.Activity("games", "guess_correct", persona.Vars{"attempts": itoa(attempts)}), nil
	}
}

func (h *Handler) cmdRPS(c *cmdContext) (string, error) {
	choice := c.invoked
	if choice == "rps" {
		if len(c.args) == 0 {
			return h.persona.Activity("games", "rps_invalid", nil), nil
		}
		choice = c.args[0]
	}
	outcome, bot, err := h.games.RPS(choice)
	if err != nil {
		c.kind = ""
		return h.persona.Activity("games", "rps_invalid", nil), nil
	}
	vars := persona.Vars{"user_choice": strings.ToLower(choice), "bot_choice": bot}
	switch outcome {
	case games.RPSWin:
		c.mood = "game_lost_by_bot"
		return h.persona.Activity("games", "rps_win", vars), nil
	case games.RPSLose:
		c.mood = "game_won_by_bot"
		return h.persona.Activity("games", "rps_lose", vars), nil
	default:
		return h.persona.Activity("games", "rps_tie", vars), nil
	}
}

func (h *Handler) cmd8Ball(c *cmdContext) (string, error) {
	return h.persona.Activity("magic_8ball", "prefix", persona.Vars{"answer": h.games.EightBall()}), nil
}

func (h *Handler) cmdTrivia(c *cmdContext) (string, error) {
	q := h.games.StartTrivia(c.userID)
	return h.persona.Activity("games", "trivia_question", persona.Vars{
		"question": q.Question,
		"seconds":  itoa(int(h.games.TriviaWindow().Seconds())),
	}), nil
}

func (h *Handler) cmdAnswer(c *cmdContext) (string, error) {
	res, err := h.games.Answer(c.userID, c.rest)
	if errors.Is(err, games.ErrNoGame) {
		c.kind = ""
		return h.persona.Activity("games", "trivia_none", nil), nil
	}
	if err != nil {
		return "", err
	}
	vars := persona.Vars{"answer": res.Answer}
	switch {
	case res.TimedOut:
		return h.persona.Activity("games", "trivia_timeout", vars), nil
	case !res.Correct:
		c.mood = "game_won_by_bot"
		return h.persona.Activity("games", "trivia_wrong", vars), nil
	case res.Fast:
		c.mood = "game_lost_by_bot"
		vars["elapsed"] = strconv.FormatFloat(res.Elapsed.Seconds(), 'f', 1, 64)
		return h.persona.Activity("games", "trivia_fast", vars), nil
	default:
		c.mood = "game_lost_by_bot"
		return h.persona.Activity("games", "trivia_correct", vars), nil
	}
}
