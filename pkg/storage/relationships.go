package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const relationshipColumns = `user_id, guild_id, interaction_count, relationship_level, last_interaction, created_at`

func scanRelationship(sc scanner) (Relationship, error) {
	var r Relationship
	var last, created int64
	if err := sc.Scan(&r.UserID, &r.GuildID, &r.InteractionCount, &r.Level, &last, &created); err != nil {
		return Relationship{}, err
	}
	r.LastInteraction = fromMillis(last)
	r.CreatedAt = fromMillis(created)
	return r, nil
}

// GetRelationship returns ErrNotFound when the user has never interacted in the guild.
func (s *SQLiteStore) GetRelationship(ctx context.Context, userID, guildID string) (Relationship, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE user_id = ? AND guild_id = ?`,
		userID, guildID)
	r, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Relationship{}, ErrNotFound
	}
	if err != nil {
		return Relationship{}, fmt.Errorf("get relationship: %w", err)
	}
	return r, nil
}

// UpdateRelationship loads (or initialises) the record, applies mutate and
// writes it back in a single transaction. It returns the record before and
// after the mutation.
func (s *SQLiteStore) UpdateRelationship(ctx context.Context, userID, guildID string, mutate func(*Relationship)) (Relationship, Relationship, error) {
	var before, after Relationship
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+relationshipColumns+` FROM relationships WHERE user_id = ? AND guild_id = ?`,
			userID, guildID)
		r, err := scanRelationship(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			now := time.Now().UTC()
			r = Relationship{UserID: userID, GuildID: guildID, CreatedAt: now, LastInteraction: now}
		case err != nil:
			return fmt.Errorf("load relationship: %w", err)
		}

		before = r
		after = r
		mutate(&after)
		after.UserID, after.GuildID = userID, guildID

		_, err = tx.ExecContext(ctx,
			`INSERT INTO relationships (`+relationshipColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id, guild_id) DO UPDATE SET
				interaction_count = excluded.interaction_count,
				relationship_level = excluded.relationship_level,
				last_interaction = excluded.last_interaction`,
			after.UserID, after.GuildID, after.InteractionCount, after.Level,
			toMillis(after.LastInteraction), toMillis(after.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("save relationship: %w", err)
		}
		return nil
	})
	if err != nil {
		return Relationship{}, Relationship{}, err
	}
	return before, after, nil
}

// TopRelationships returns the closest relationships in a guild.
func (s *SQLiteStore) TopRelationships(ctx context.Context, guildID string, limit int) ([]Relationship, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships
		 WHERE guild_id = ?
		 ORDER BY relationship_level DESC, interaction_count DESC
		 LIMIT ?`, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
