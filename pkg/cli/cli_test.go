package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsunbot/pkg/storage"
)

func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	s, err := storage.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.CreateReminder(ctx, storage.Reminder{UserID: "u1", GuildID: "g1", ChannelID: "c1", Message: "overdue", ScheduledTime: time.Now().Add(-time.Hour), CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = s.CreateReminder(ctx, storage.Reminder{UserID: "u1", GuildID: "g1", ChannelID: "c1", Message: "later", ScheduledTime: time.Now().Add(time.Hour), CreatedAt: time.Now(), Recurrence: "daily"})
	require.NoError(t, err)
	_, _, err = s.UpdateRelationship(ctx, "u1", "g1", func(r *storage.Relationship) { r.Level = 45; r.InteractionCount = 12 })
	require.NoError(t, err)
	require.NoError(t, s.SetFact(ctx, storage.Fact{GuildID: "g1", Key: "wifi", Content: "hunter2", CreatedBy: "u2"}))
	return path
}

func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--db", db, "--config", filepath.Join(t.TempDir(), "missing.yml")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRemindersCommands(t *testing.T) {
	db := seedStore(t)

	out, err := run(t, db, "reminders", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "overdue")
	assert.NotContains(t, out, "later")

	out, err = run(t, db, "reminders", "list", "--user", "u1", "--format", "json")
	require.NoError(t, err)
	var list []storage.Reminder
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list, 2)

	_, err = run(t, db, "reminders", "list")
	assert.Error(t, err)

	_, err = run(t, db, "reminders", "cancel", "2", "--user", "someone_else")
	assert.Error(t, err)

	out, err = run(t, db, "reminders", "cancel", "2", "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled reminder 2")

	out, err = run(t, db, "reminders", "list", "--user", "u1")
	require.NoError(t, err)
	assert.NotContains(t, out, "later")
}

func TestRelationshipCommands(t *testing.T) {
	db := seedStore(t)

	out, err := run(t, db, "relationship", "get", "--user", "u1", "--guild", "g1")
	require.NoError(t, err)
	assert.Contains(t, out, "level=45")
	assert.Contains(t, out, "tier=Friend")

	out, err = run(t, db, "relationship", "get", "--user", "nobody", "--guild", "g1")
	require.NoError(t, err)
	assert.Contains(t, out, "level=0")

	out, err = run(t, db, "relationship", "top", "--guild", "g1")
	require.NoError(t, err)
	assert.Contains(t, out, "1. u1")
}

func TestFactsAndMoodCommands(t *testing.T) {
	db := seedStore(t)

	out, err := run(t, db, "facts", "list", "--guild", "g1")
	require.NoError(t, err)
	assert.Contains(t, out, "wifi\thunter2")

	out, err = run(t, db, "mood", "--guild", "g1")
	require.NoError(t, err)
	assert.Contains(t, out, "type=tsundere")
	assert.Contains(t, out, "mood=50 (NEUTRAL)")
}

func TestUnknownFormat(t *testing.T) {
	db := seedStore(t)
	_, err := run(t, db, "facts", "list", "--format", "xml")
	assert.Error(t, err)
}
