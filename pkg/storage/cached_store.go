package storage

import (
	"context"
	"encoding/json"

	"tsunbot/pkg/cache"

	"github.com/rs/zerolog/log"
)

// CachedStore serves recent conversation history from Redis and falls back
// to SQLite on any cache error.
type CachedStore struct {
	*SQLiteStore
	cache *cache.Cache
}

func NewCachedStore(store *SQLiteStore, c *cache.Cache) *CachedStore {
	return &CachedStore{
		SQLiteStore: store,
		cache:       c,
	}
}

func (c *CachedStore) conversationKey(userID, guildID string) string {
	if guildID == "" {
		guildID = "dm"
	}
	return c.cache.Key("conversation", guildID, userID)
}

func (c *CachedStore) RecentConversation(ctx context.Context, userID, guildID string, limit int) ([]ConversationMessage, error) {
	key := c.conversationKey(userID, guildID)

	data, err := c.cache.Newest(ctx, key, int64(limit))
	if err != nil {
		log.Warn().Err(err).Str("component", "cache").Msg("conversation cache read failed")
	}
	if err == nil && len(data) > 0 {
		msgs := make([]ConversationMessage, 0, len(data))
		for i := len(data) - 1; i >= 0; i-- {
			var m ConversationMessage
			if json.Unmarshal([]byte(data[i]), &m) != nil {
				continue
			}
			msgs = append(msgs, m)
		}
		if len(msgs) > 0 {
			return msgs, nil
		}
	}

	msgs, err := c.SQLiteStore.RecentConversation(ctx, userID, guildID, cache.ConversationCap)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		// Pushed oldest first so the list head ends up newest.
		values := make([]string, 0, len(msgs))
		for _, m := range msgs {
			b, err := json.Marshal(m)
			if err != nil {
				continue
			}
			values = append(values, string(b))
		}
		if err := c.cache.PushCapped(ctx, key, cache.ConversationCap, cache.ConversationTTL, values...); err != nil {
			log.Warn().Err(err).Str("component", "cache").Msg("conversation cache fill failed")
		}
	}

	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (c *CachedStore) AddConversationMessage(ctx context.Context, msg ConversationMessage) (ConversationMessage, error) {
	saved, err := c.SQLiteStore.AddConversationMessage(ctx, msg)
	if err != nil {
		return saved, err
	}

	key := c.conversationKey(saved.UserID, saved.GuildID)
	b, err := json.Marshal(saved)
	if err != nil {
		return saved, nil
	}
	// Only extend a list that already exists; a cold list is filled from SQLite on read.
	existing, err := c.cache.Newest(ctx, key, 1)
	if err == nil && len(existing) > 0 {
		if err := c.cache.PushCapped(ctx, key, cache.ConversationCap, cache.ConversationTTL, string(b)); err != nil {
			log.Warn().Err(err).Str("component", "cache").Msg("conversation cache append failed")
		}
	}
	return saved, nil
}

func (c *CachedStore) ClearConversation(ctx context.Context, userID, guildID string) error {
	if err := c.SQLiteStore.ClearConversation(ctx, userID, guildID); err != nil {
		return err
	}
	if err := c.cache.Delete(ctx, c.conversationKey(userID, guildID)); err != nil {
		log.Warn().Err(err).Str("component", "cache").Msg("conversation cache delete failed")
	}
	return nil
}
