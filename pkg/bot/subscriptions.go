package bot

import (
	"context"
	"slices"
	"strings"
	"time"

	"tsunbot/pkg/persona"
	"tsunbot/pkg/storage"
)

// SubscriptionPeriod is how long a feed waits between deliveries.
const SubscriptionPeriod = 24 * time.Hour

var subscriptionTypes = []string{"daily_fact", "daily_joke", "daily_catfact"}

func (h *Handler) cmdSubscribe(c *cmdContext) (string, error) {
	subType := strings.ToLower(c.args[0])
	if !slices.Contains(subscriptionTypes, subType) {
		return h.persona.Activity("subscriptions", "invalid", persona.Vars{"types": strings.Join(subscriptionTypes, ", ")}), nil
	}
	err := h.store.Subscribe(c.ctx, storage.Subscription{
		UserID:    c.userID,
		GuildID:   c.guildID,
		ChannelID: c.channelID,
		Type:      subType,
	})
	if err != nil {
		return "", err
	}
	return h.persona.Activity("subscriptions", "subscribed", persona.Vars{"type": subType}), nil
}

func (h *Handler) cmdUnsubscribe(c *cmdContext) (string, error) {
	subType := strings.ToLower(c.args[0])
	ok, err := h.store.Unsubscribe(c.ctx, c.userID, subType)
	if err != nil {
		return "", err
	}
	if !ok {
		return h.persona.Activity("subscriptions", "not_found", persona.Vars{"type": subType}), nil
	}
	return h.persona.Activity("subscriptions", "unsubscribed", persona.Vars{"type": subType}), nil
}

func (h *Handler) cmdSubscriptions(c *cmdContext) (string, error) {
	subs, err := h.store.UserSubscriptions(c.ctx, c.userID)
	if err != nil {
		return "", err
	}
	if len(subs) == 0 {
		return h.persona.Activity("subscriptions", "none", nil), nil
	}
	names := make([]string, 0, len(subs))
	for _, s := range subs {
		names = append(names, s.Type+" in <#"+s.ChannelID+">")
	}
	return h.persona.Activity("subscriptions", "list", persona.Vars{"list": strings.Join(names, ", ")}), nil
}

func (h *Handler) runSubscriptionLoop(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.SubscriptionInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.deliverSubscriptions(ctx)
		}
	}
}

// deliverSubscriptions posts content for every feed not triggered in the
// last SubscriptionPeriod and returns how many were sent.
func (h *Handler) deliverSubscriptions(ctx context.Context) int {
	s := h.getSession()
	if s == nil {
		return 0
	}

	now := h.now()
	sent := 0
	for _, subType := range subscriptionTypes {
		due, err := h.store.DueSubscriptions(ctx, subType, now.Add(-SubscriptionPeriod))
		if err != nil {
			h.logger.Error().Err(err).Str("type", subType).Msg("error loading subscriptions")
			continue
		}
		if len(due) == 0 {
			continue
		}

		// One fetch serves every subscriber of a type in this round.
		content, err := h.subscriptionContent(ctx, subType)
		if err != nil {
			h.logger.Warn().Err(err).Str("type", subType).Msg("error fetching subscription content")
			continue
		}

		for _, sub := range due {
			msg := "<@" + sub.UserID + "> " + content
			if _, err := s.ChannelMessageSend(sub.ChannelID, msg); err != nil {
				h.logger.Warn().Err(err).Int64("id", sub.ID).Str("channel", sub.ChannelID).Msg("error delivering subscription")
				continue
			}
			if err := h.store.MarkSubscriptionTriggered(ctx, sub.ID, now); err != nil {
				h.logger.Error().Err(err).Int64("id", sub.ID).Msg("error marking subscription")
			}
			sent++
		}
	}
	if sent > 0 {
		h.logger.Info().Int("sent", sent).Msg("subscriptions delivered")
	}
	return sent
}

func (h *Handler) subscriptionContent(ctx context.Context, subType string) (string, error) {
	switch subType {
	case "daily_joke":
		j, err := h.fetcher.RandomJoke(ctx)
		if err != nil {
			return "", err
		}
		return h.persona.Activity("jokes", "success", persona.Vars{"setup": j.Setup, "punchline": j.Punchline}), nil
	case "daily_catfact":
		fact, err := h.fetcher.CatFact(ctx)
		if err != nil {
			return "", err
		}
		return h.persona.Activity("cat_facts", "success", persona.Vars{"fact": fact}), nil
	default:
		fact, err := h.fetcher.RandomFact(ctx)
		if err != nil {
			return "", err
		}
		return h.persona.Activity("facts", "success", persona.Vars{"fact": fact}), nil
	}
}
