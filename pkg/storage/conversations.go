package storage

import (
	"context"
	"fmt"
	"time"
)

func (s *SQLiteStore) AddConversationMessage(ctx context.Context, msg ConversationMessage) (ConversationMessage, error) {
	if msg.ID == "" {
		msg.ID = s.newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, guild_id, channel_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.UserID, msg.GuildID, msg.ChannelID, msg.Role, msg.Content, toMillis(msg.CreatedAt),
	)
	if err != nil {
		return ConversationMessage{}, fmt.Errorf("insert conversation: %w", err)
	}
	return msg, nil
}

// RecentConversation returns the last limit messages for a user in a guild, oldest first.
func (s *SQLiteStore) RecentConversation(ctx context.Context, userID, guildID string, limit int) ([]ConversationMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, guild_id, channel_id, role, content, created_at
		 FROM conversations
		 WHERE user_id = ? AND guild_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, guildID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	var msgs []ConversationMessage
	for rows.Next() {
		var m ConversationMessage
		var created int64
		if err := rows.Scan(&m.ID, &m.UserID, &m.GuildID, &m.ChannelID, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		m.CreatedAt = fromMillis(created)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *SQLiteStore) ClearConversation(ctx context.Context, userID, guildID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE user_id = ? AND guild_id = ?`, userID, guildID)
	if err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}
