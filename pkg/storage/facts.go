package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const factColumns = `id, guild_id, key, content, created_by, created_at`

func scanFact(sc scanner) (Fact, error) {
	var f Fact
	var created int64
	if err := sc.Scan(&f.ID, &f.GuildID, &f.Key, &f.Content, &f.CreatedBy, &created); err != nil {
		return Fact{}, err
	}
	f.CreatedAt = fromMillis(created)
	return f, nil
}

// normalizeKey lowercases and trims fact keys so lookups are case-insensitive.
func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// SetFact stores a fact, replacing the content of an existing key.
func (s *SQLiteStore) SetFact(ctx context.Context, f Fact) error {
	key := normalizeKey(f.Key)
	if key == "" {
		return fmt.Errorf("set fact: empty key")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO facts (guild_id, key, content, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(guild_id, key) DO UPDATE SET
			content = excluded.content,
			created_by = excluded.created_by,
			created_at = excluded.created_at`,
		f.GuildID, key, f.Content, f.CreatedBy, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set fact: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetFact(ctx context.Context, guildID, key string) (Fact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+factColumns+` FROM facts WHERE guild_id = ? AND key = ?`, guildID, normalizeKey(key))
	f, err := scanFact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Fact{}, ErrNotFound
	}
	if err != nil {
		return Fact{}, fmt.Errorf("get fact: %w", err)
	}
	return f, nil
}

func (s *SQLiteStore) DeleteFact(ctx context.Context, guildID, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM facts WHERE guild_id = ? AND key = ?`, guildID, normalizeKey(key))
	if err != nil {
		return false, fmt.Errorf("delete fact: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) ListFacts(ctx context.Context, guildID string) ([]Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+factColumns+` FROM facts WHERE guild_id = ? ORDER BY key`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var out []Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SearchFacts returns the facts of a guild whose key is one of words.
func (s *SQLiteStore) SearchFacts(ctx context.Context, guildID string, words []string) ([]Fact, error) {
	all, err := s.ListFacts(ctx, guildID)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(words))
	for _, w := range words {
		wanted[normalizeKey(strings.Trim(w, ".,!?;:\"'()"))] = true
	}

	var out []Fact
	for _, f := range all {
		if wanted[f.Key] {
			out = append(out, f)
		}
	}
	return out, nil
}
