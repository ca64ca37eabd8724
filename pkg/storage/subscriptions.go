package storage

import (
	"context"
	"fmt"
	"time"
)

const subscriptionColumns = `id, user_id, guild_id, channel_id, subscription_type, is_active, created_at, last_triggered`

func scanSubscription(sc scanner) (Subscription, error) {
	var sub Subscription
	var active int
	var created, triggered int64
	if err := sc.Scan(&sub.ID, &sub.UserID, &sub.GuildID, &sub.ChannelID, &sub.Type, &active, &created, &triggered); err != nil {
		return Subscription{}, err
	}
	sub.Active = active != 0
	sub.CreatedAt = fromMillis(created)
	sub.LastTriggered = fromMillis(triggered)
	return sub, nil
}

func (s *SQLiteStore) querySubscriptions(ctx context.Context, query string, args ...any) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Subscribe creates the subscription or reactivates an existing one.
func (s *SQLiteStore) Subscribe(ctx context.Context, sub Subscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, guild_id, channel_id, subscription_type, is_active, created_at, last_triggered)
		 VALUES (?, ?, ?, ?, 1, ?, 0)
		 ON CONFLICT(user_id, channel_id, subscription_type) DO UPDATE SET is_active = 1`,
		sub.UserID, sub.GuildID, sub.ChannelID, sub.Type, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// Unsubscribe deactivates every matching subscription of the user and
// reports whether any was active.
func (s *SQLiteStore) Unsubscribe(ctx context.Context, userID, subType string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET is_active = 0
		 WHERE user_id = ? AND subscription_type = ? AND is_active = 1`, userID, subType)
	if err != nil {
		return false, fmt.Errorf("unsubscribe: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) UserSubscriptions(ctx context.Context, userID string) ([]Subscription, error) {
	return s.querySubscriptions(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = ? AND is_active = 1 ORDER BY subscription_type`, userID)
}

// DueSubscriptions returns active subscriptions of a type whose last trigger is before cutoff.
func (s *SQLiteStore) DueSubscriptions(ctx context.Context, subType string, cutoff time.Time) ([]Subscription, error) {
	return s.querySubscriptions(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE subscription_type = ? AND is_active = 1 AND last_triggered < ?
		 ORDER BY id`, subType, cutoff.UnixMilli())
}

func (s *SQLiteStore) MarkSubscriptionTriggered(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET last_triggered = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("mark subscription: %w", err)
	}
	return nil
}
