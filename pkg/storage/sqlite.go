package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// SQLiteStore persists bot state in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB

	entropyMu sync.Mutex
	entropy   *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: every read-modify-write is serialized by the driver.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) newID() string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		guild_id    TEXT NOT NULL DEFAULT '',
		channel_id  TEXT NOT NULL DEFAULT '',
		role        TEXT NOT NULL,
		content     TEXT NOT NULL,
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, guild_id, created_at);

	CREATE TABLE IF NOT EXISTS relationships (
		user_id            TEXT NOT NULL,
		guild_id           TEXT NOT NULL DEFAULT '',
		interaction_count  INTEGER NOT NULL DEFAULT 0,
		relationship_level INTEGER NOT NULL DEFAULT 0,
		last_interaction   INTEGER NOT NULL,
		created_at         INTEGER NOT NULL,
		UNIQUE(user_id, guild_id)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_guild ON relationships(guild_id, relationship_level DESC);

	CREATE TABLE IF NOT EXISTS reminders (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id        TEXT NOT NULL,
		guild_id       TEXT NOT NULL DEFAULT '',
		channel_id     TEXT NOT NULL DEFAULT '',
		message        TEXT NOT NULL,
		scheduled_time INTEGER NOT NULL,
		created_at     INTEGER NOT NULL,
		sent           INTEGER NOT NULL DEFAULT 0,
		recurrence     TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(sent, scheduled_time);
	CREATE INDEX IF NOT EXISTS idx_reminders_user ON reminders(user_id, sent);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id           TEXT NOT NULL,
		guild_id          TEXT NOT NULL DEFAULT '',
		channel_id        TEXT NOT NULL,
		subscription_type TEXT NOT NULL,
		is_active         INTEGER NOT NULL DEFAULT 1,
		created_at        INTEGER NOT NULL,
		last_triggered    INTEGER NOT NULL DEFAULT 0,
		UNIQUE(user_id, channel_id, subscription_type)
	);

	CREATE TABLE IF NOT EXISTS facts (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id    TEXT NOT NULL DEFAULT '',
		key         TEXT NOT NULL,
		content     TEXT NOT NULL,
		created_by  TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL,
		UNIQUE(guild_id, key)
	);

	CREATE TABLE IF NOT EXISTS personality (
		guild_id         TEXT PRIMARY KEY,
		personality_type TEXT NOT NULL,
		mood             INTEGER NOT NULL,
		traits           TEXT NOT NULL DEFAULT '{}',
		last_decay       INTEGER NOT NULL DEFAULT 0,
		updated_at       INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
