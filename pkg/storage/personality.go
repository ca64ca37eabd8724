package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// LoadPersonality returns ErrNotFound when the guild has no saved state.
func (s *SQLiteStore) LoadPersonality(ctx context.Context, guildID string) (PersonalityRecord, error) {
	var rec PersonalityRecord
	var traits string
	var lastDecay, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT guild_id, personality_type, mood, traits, last_decay, updated_at
		 FROM personality WHERE guild_id = ?`, guildID,
	).Scan(&rec.GuildID, &rec.Type, &rec.Mood, &traits, &lastDecay, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return PersonalityRecord{}, ErrNotFound
	}
	if err != nil {
		return PersonalityRecord{}, fmt.Errorf("load personality: %w", err)
	}

	rec.Traits = map[string]int{}
	if traits != "" {
		if err := json.Unmarshal([]byte(traits), &rec.Traits); err != nil {
			return PersonalityRecord{}, fmt.Errorf("decode traits: %w", err)
		}
	}
	rec.LastDecay = fromMillis(lastDecay)
	rec.UpdatedAt = fromMillis(updated)
	return rec, nil
}

func (s *SQLiteStore) SavePersonality(ctx context.Context, rec PersonalityRecord) error {
	traits, err := json.Marshal(rec.Traits)
	if err != nil {
		return fmt.Errorf("encode traits: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO personality (guild_id, personality_type, mood, traits, last_decay, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET
			personality_type = excluded.personality_type,
			mood = excluded.mood,
			traits = excluded.traits,
			last_decay = excluded.last_decay,
			updated_at = excluded.updated_at`,
		rec.GuildID, rec.Type, rec.Mood, string(traits), toMillis(rec.LastDecay), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save personality: %w", err)
	}
	return nil
}
