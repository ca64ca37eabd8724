package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tsunbot/pkg/config"
	"tsunbot/pkg/games"
	"tsunbot/pkg/persona"
	"tsunbot/pkg/personality"
	"tsunbot/pkg/relationship"
	"tsunbot/pkg/reminder"
)

// Deps are the collaborators a Handler is built from. Context is the root
// every per-event context derives from; nil means context.Background().
type Deps struct {
	Context       context.Context
	Config        *config.Config
	AI            AIClient
	Store         Store
	Persona       *persona.Manager
	Personality   *personality.Registry
	Relationships *relationship.Tracker
	Reminders     *reminder.Scheduler
	Games         *games.Manager
	Fetcher       Fetcher
	Searcher      Searcher
}

type Handler struct {
	cfg           *config.Config
	ai            AIClient
	store         Store
	persona       *persona.Manager
	personality   *personality.Registry
	relationships *relationship.Tracker
	reminders     *reminder.Scheduler
	games         *games.Manager
	fetcher       Fetcher
	searcher      Searcher

	botID     string
	session   Session
	sessionMu sync.RWMutex

	limiterMu sync.Mutex
	hits      map[string][]time.Time

	commands map[string]*command
	onExit   func(restart bool)

	baseCtx context.Context
	wg      sync.WaitGroup
	now     func() time.Time
	logger  zerolog.Logger
}

func NewHandler(d Deps) *Handler {
	base := d.Context
	if base == nil {
		base = context.Background()
	}
	h := &Handler{
		cfg:           d.Config,
		ai:            d.AI,
		store:         d.Store,
		persona:       d.Persona,
		personality:   d.Personality,
		relationships: d.Relationships,
		reminders:     d.Reminders,
		games:         d.Games,
		fetcher:       d.Fetcher,
		searcher:      d.Searcher,
		hits:          make(map[string][]time.Time),
		baseCtx:       base,
		now:           time.Now,
		logger:        log.With().Str("component", "bot").Logger(),
	}
	h.commands = buildCommands()
	return h
}

func (h *Handler) SetBotID(id string) {
	h.botID = id
}

// SetSession wires the live Discord session used by background loops.
func (h *Handler) SetSession(s Session) {
	h.sessionMu.Lock()
	h.session = s
	h.sessionMu.Unlock()
}

func (h *Handler) getSession() Session {
	h.sessionMu.RLock()
	defer h.sessionMu.RUnlock()
	return h.session
}

// SetExitFunc registers what the shutdown and restart admin commands call
// after their reply has been sent.
func (h *Handler) SetExitFunc(fn func(restart bool)) {
	h.onExit = fn
}

// Start launches the background loops: reminder delivery, mood decay,
// subscriptions and status refresh. They stop when ctx is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.goLoop("reminders", func() {
		if err := h.reminders.Run(ctx); err != nil {
			h.logger.Error().Err(err).Msg("reminder scheduler stopped")
		}
	})
	h.goLoop("mood", func() { h.runMoodDecayLoop(ctx) })
	h.goLoop("subscriptions", func() { h.runSubscriptionLoop(ctx) })
	h.goLoop("status", func() { h.runStatusLoop(ctx) })
}

func (h *Handler) goLoop(name string, fn func()) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.logger.Debug().Str("loop", name).Msg("loop started")
		fn()
		h.logger.Debug().Str("loop", name).Msg("loop stopped")
	}()
}

// Wait blocks until every loop started by Start has returned.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.HandleMessage(&DiscordSession{s}, m)
}

// Ready sets the presence once the gateway session is up.
func (h *Handler) Ready(s *discordgo.Session, r *discordgo.Ready) {
	h.logger.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("connected to Discord")
	h.updateStatus(&DiscordSession{s})
}

func (h *Handler) HandleMessage(s Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == h.botID {
		return
	}

	content := strings.TrimSpace(m.Content)
	prefix := h.cfg.Bot.Prefix
	if !strings.HasPrefix(content, prefix) {
		if h.isMentioned(m) {
			h.handleMention(s, m)
		}
		return
	}

	name, rest := splitCommand(content[len(prefix):])
	cmd, ok := h.commands[strings.ToLower(name)]
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(h.baseCtx, 2*time.Minute)
	defer cancel()

	c := &cmdContext{
		ctx:       ctx,
		s:         s,
		msg:       m,
		invoked:   strings.ToLower(name),
		rest:      rest,
		args:      strings.Fields(rest),
		userID:    m.Author.ID,
		userName:  displayName(m.Author),
		guildID:   m.GuildID,
		channelID: m.ChannelID,
		kind:      cmd.kind,
		mood:      cmd.mood,
	}
	h.runCommand(c, cmd)
}

func (h *Handler) isMentioned(m *discordgo.MessageCreate) bool {
	for _, u := range m.Mentions {
		if u.ID == h.botID {
			return true
		}
	}
	return false
}

func (h *Handler) handleMention(s Session, m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(h.baseCtx, 10*time.Second)
	defer cancel()

	reply := h.persona.Response("mention", persona.Vars{"user": displayName(m.Author)})
	if isRude(m.Content) {
		reply = h.persona.Response("rude", nil)
		if notes := h.recordInteraction(ctx, m.Author.ID, m.GuildID, "rude", "rude"); notes != "" {
			reply += "\n" + notes
		}
	}
	h.sendSplitMessage(s, m.ChannelID, reply, m.Reference())
}

// runCommand checks access, runs cmd, applies the relationship and mood
// updates and sends the reply.
func (h *Handler) runCommand(c *cmdContext, cmd *command) {
	logger := h.logger.With().Str("command", cmd.name).Str("user", c.userID).Str("guild", c.guildID).Logger()

	if reply, ok := h.checkAccess(c, cmd); !ok {
		h.sendSplitMessage(c.s, c.channelID, reply, c.msg.Reference())
		return
	}

	reply, err := cmd.run(h, c)
	if err != nil {
		var usage *usageError
		if errors.As(err, &usage) {
			reply = h.persona.Response("missing_args", persona.Vars{"usage": h.cfg.Bot.Prefix + cmd.usage})
			c.kind, c.mood = "", ""
		} else {
			logger.Error().Err(err).Msg("command failed")
			reply = h.persona.Response("error", persona.Vars{"error": shortError(err)})
			c.kind, c.mood = "", "error"
		}
	} else {
		logger.Debug().Msg("command handled")
	}

	if notes := h.recordInteraction(c.ctx, c.userID, c.guildID, c.kind, c.mood); notes != "" {
		reply += "\n\n" + notes
	}
	if reply != "" {
		h.sendSplitMessage(c.s, c.channelID, reply, c.msg.Reference())
	}
	if c.after != nil {
		c.after()
	}
}

func (h *Handler) checkAccess(c *cmdContext, cmd *command) (string, bool) {
	if cmd.admin && !h.cfg.IsAdmin(c.userID) {
		return h.persona.Response("no_permission", nil), false
	}
	if cmd.guildOnly && c.guildID == "" {
		return h.persona.Response("guild_only", nil), false
	}
	if cmd.perm != 0 && !h.hasPermission(c.s, c.userID, c.channelID, cmd.perm) {
		return h.persona.Response("no_permission", nil), false
	}
	if len(c.args) < cmd.minArgs {
		return h.persona.Response("missing_args", persona.Vars{"usage": h.cfg.Bot.Prefix + cmd.usage}), false
	}
	if cmd.limited {
		if ok, wait := h.allow(c.userID); !ok {
			seconds := int(wait.Seconds()) + 1
			return h.persona.Response("rate_limited", persona.Vars{"seconds": itoa(seconds)}), false
		}
	}
	return "", true
}

func (h *Handler) hasPermission(s Session, userID, channelID string, perm int64) bool {
	perms, err := s.UserChannelPermissions(userID, channelID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user", userID).Msg("error checking permissions")
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0 || perms&perm == perm
}

// allow charges the user's AI budget: at most rate_limit.max_requests in any
// rate_limit.window_seconds. When refused it returns how long until the
// oldest request in the window expires.
func (h *Handler) allow(userID string) (bool, time.Duration) {
	window := h.cfg.RateLimitWindow()
	now := h.now()

	h.limiterMu.Lock()
	defer h.limiterMu.Unlock()

	hits := h.hits[userID]
	expired := 0
	for expired < len(hits) && !hits[expired].Add(window).After(now) {
		expired++
	}
	hits = hits[expired:]

	if len(hits) >= h.cfg.RateLimit.MaxRequests {
		h.hits[userID] = hits
		return false, hits[0].Add(window).Sub(now)
	}
	if len(hits) == 0 {
		hits = make([]time.Time, 0, h.cfg.RateLimit.MaxRequests)
	}
	h.hits[userID] = append(hits, now)
	return true, 0
}

// recordInteraction applies a relationship gain and a mood event. It
// returns milestone and tier announcements to append to the reply.
func (h *Handler) recordInteraction(ctx context.Context, userID, guildID, kind, moodEvent string) string {
	var notes []string
	if kind != "" {
		upd, err := h.relationships.Record(ctx, userID, guildID, kind)
		if err != nil {
			h.logger.Error().Err(err).Str("user", userID).Msg("error updating relationship")
		} else {
			for _, ms := range upd.Milestones {
				notes = append(notes, h.persona.Activity("relationship", "milestone", persona.Vars{"milestone": ms.Name}))
			}
			if upd.TierChanged() && upd.Current.Level > upd.Previous.Level {
				notes = append(notes, h.persona.Activity("relationship", "tier_up", persona.Vars{"tier": upd.Tier.Name}))
			}
		}
	}
	if moodEvent != "" {
		if _, err := h.personality.Apply(ctx, guildID, moodEvent); err != nil {
			h.logger.Error().Err(err).Str("guild", guildID).Msg("error updating mood")
		}
	}
	return strings.Join(notes, "\n")
}
