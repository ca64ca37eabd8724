package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConversation_RecentOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, text := range []string{"one", "two", "three", "four"} {
		_, err := s.AddConversationMessage(ctx, ConversationMessage{
			UserID: "u1", GuildID: "g1", Role: "user", Content: text,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := s.AddConversationMessage(ctx, ConversationMessage{UserID: "u1", GuildID: "g2", Role: "user", Content: "other guild"})
	require.NoError(t, err)

	msgs, err := s.RecentConversation(ctx, "u1", "g1", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, "four", msgs[2].Content)
	assert.NotEmpty(t, msgs[0].ID)

	require.NoError(t, s.ClearConversation(ctx, "u1", "g1"))
	msgs, err = s.RecentConversation(ctx, "u1", "g1", 3)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = s.RecentConversation(ctx, "u1", "g2", 3)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestRelationship_UpdateCreatesAndMutates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetRelationship(ctx, "u1", "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	before, after, err := s.UpdateRelationship(ctx, "u1", "g1", func(r *Relationship) {
		r.InteractionCount++
		r.Level += 15
	})
	require.NoError(t, err)
	assert.Equal(t, 0, before.Level)
	assert.Equal(t, 0, before.InteractionCount)
	assert.Equal(t, 15, after.Level)
	assert.Equal(t, 1, after.InteractionCount)

	_, after, err = s.UpdateRelationship(ctx, "u1", "g1", func(r *Relationship) {
		r.InteractionCount++
		r.Level += 5
	})
	require.NoError(t, err)
	assert.Equal(t, 20, after.Level)

	got, err := s.GetRelationship(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, 20, got.Level)
	assert.Equal(t, 2, got.InteractionCount)
	assert.False(t, got.CreatedAt.IsZero())

	_, _, err = s.UpdateRelationship(ctx, "u2", "g1", func(r *Relationship) { r.Level = 90 })
	require.NoError(t, err)
	top, err := s.TopRelationships(ctx, "g1", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "u2", top[0].UserID)
}

func TestReminders_PendingLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	due := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	id1, err := s.CreateReminder(ctx, Reminder{UserID: "u1", GuildID: "g1", ChannelID: "c1", Message: "stretch", ScheduledTime: due})
	require.NoError(t, err)
	id2, err := s.CreateReminder(ctx, Reminder{UserID: "u2", GuildID: "g1", ChannelID: "c1", Message: "water", ScheduledTime: due})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	pending, err := s.PendingReminders(ctx, due.Add(-time.Second))
	require.NoError(t, err)
	assert.Empty(t, pending)

	pending, err = s.PendingReminders(ctx, due)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, id1, pending[0].ID)
	assert.Equal(t, id2, pending[1].ID)
	assert.True(t, pending[0].ScheduledTime.Equal(due))

	require.NoError(t, s.MarkReminderSent(ctx, id1))
	pending, err = s.PendingReminders(ctx, due.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id2, pending[0].ID)

	r, err := s.GetReminder(ctx, id1)
	require.NoError(t, err)
	assert.True(t, r.Sent)

	assert.ErrorIs(t, s.MarkReminderSent(ctx, 9999), ErrNotFound)
}

func TestReminders_DeleteOnlyOwnUnsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour)

	id, err := s.CreateReminder(ctx, Reminder{UserID: "u1", Message: "x", ScheduledTime: at})
	require.NoError(t, err)

	ok, err := s.DeleteReminder(ctx, id, "someone-else")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.DeleteReminder(ctx, id, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.GetReminder(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	sentID, err := s.CreateReminder(ctx, Reminder{UserID: "u1", Message: "y", ScheduledTime: at})
	require.NoError(t, err)
	require.NoError(t, s.MarkReminderSent(ctx, sentID))
	ok, err = s.DeleteReminder(ctx, sentID, "u1")
	require.NoError(t, err)
	assert.False(t, ok, "sent reminders are terminal")
}

func TestReminders_RescheduleAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	id, err := s.CreateReminder(ctx, Reminder{UserID: "u1", Message: "later", ScheduledTime: now.Add(-time.Minute)})
	require.NoError(t, err)
	require.NoError(t, s.RescheduleReminder(ctx, id, now.Add(time.Hour)))

	pending, err := s.PendingReminders(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, pending)

	list, err := s.UserReminders(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "later", list[0].Message)
}

func TestSubscriptions_UniqueAndDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sub := Subscription{UserID: "u1", GuildID: "g1", ChannelID: "c1", Type: "daily_fact"}

	require.NoError(t, s.Subscribe(ctx, sub))
	require.NoError(t, s.Subscribe(ctx, sub))

	subs, err := s.UserSubscriptions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, subs, 1)

	due, err := s.DueSubscriptions(ctx, "daily_fact", time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, s.MarkSubscriptionTriggered(ctx, due[0].ID, time.Now()))
	due, err = s.DueSubscriptions(ctx, "daily_fact", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	ok, err := s.Unsubscribe(ctx, "u1", "daily_fact")
	require.NoError(t, err)
	assert.True(t, ok)
	subs, err = s.UserSubscriptions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, subs)

	ok, err = s.Unsubscribe(ctx, "u1", "daily_fact")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFacts_KeyIsUniquePerGuild(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetFact(ctx, Fact{GuildID: "g1", Key: "Pizza", Content: "is round", CreatedBy: "u1"}))
	require.NoError(t, s.SetFact(ctx, Fact{GuildID: "g1", Key: "pizza", Content: "is great", CreatedBy: "u2"}))
	require.NoError(t, s.SetFact(ctx, Fact{GuildID: "g2", Key: "pizza", Content: "elsewhere"}))

	f, err := s.GetFact(ctx, "g1", "PIZZA")
	require.NoError(t, err)
	assert.Equal(t, "is great", f.Content)
	assert.Equal(t, "u2", f.CreatedBy)

	facts, err := s.ListFacts(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, facts, 1)

	found, err := s.SearchFacts(ctx, "g1", []string{"what", "about", "pizza?"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	ok, err := s.DeleteFact(ctx, "g1", "pizza")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = s.GetFact(ctx, "g1", "pizza")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.SetFact(ctx, Fact{GuildID: "g1", Key: "  "}))
}

func TestPersonality_SaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LoadPersonality(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	decay := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)
	require.NoError(t, s.SavePersonality(ctx, PersonalityRecord{
		GuildID: "g1", Type: "tsundere", Mood: 42,
		Traits: map[string]int{"pride": 80}, LastDecay: decay,
	}))

	rec, err := s.LoadPersonality(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "tsundere", rec.Type)
	assert.Equal(t, 42, rec.Mood)
	assert.Equal(t, 80, rec.Traits["pride"])
	assert.True(t, rec.LastDecay.Equal(decay))
}
