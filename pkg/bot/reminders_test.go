package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsunbot/pkg/storage"
)

func TestRemindCommand(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reply := env.send("!remind in 10 minutes to stretch")
	assert.Contains(t, reply, "\"stretch\"")
	assert.Contains(t, reply, "<t:")

	list, err := env.h.reminders.List(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "stretch", list[0].Message)
	assert.Equal(t, "chan1", list[0].ChannelID)
	assert.WithinDuration(t, env.clock.Add(10*time.Minute), list[0].ScheduledTime, time.Second)

	assert.Contains(t, env.send("!reminders"), "stretch")

	reply = env.send("!remind daily at 9am take vitamins")
	assert.Contains(t, reply, "daily")
	list, err = env.h.reminders.List(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "daily", list[1].Recurrence)
}

func TestRemindCommand_BadInput(t *testing.T) {
	env := newTestEnv(t)

	assert.Contains(t, env.send("!remind someday maybe"), "I don't understand when")
	assert.Contains(t, env.send("!remind in 5"), "!remind")

	// A time with nothing to remind about is a usage error.
	assert.Contains(t, env.send("!remind in 5 minutes"), "!remind")

	list, err := env.h.reminders.List(context.Background(), "user1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 0, env.level(t, "user1"))
}

func TestCancelReminder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.h.reminders.Create(ctx, "user1", "guild1", "chan1", "water plants", env.clock.Add(time.Hour), "")
	require.NoError(t, err)

	assert.Contains(t, env.sendAs("user2", "!cancelreminder 1"), "no reminder #1")
	assert.Contains(t, env.send("!cancelreminder #1"), "cancelled")
	assert.Equal(t, int64(1), id)

	assert.Contains(t, env.send("!reminders"), "no reminders")
	assert.Contains(t, env.send("!cancelreminder abc"), "!cancelreminder <id>")
}

func TestDeliverReminder(t *testing.T) {
	env := newTestEnv(t)
	r := storage.Reminder{ID: 7, UserID: "user1", ChannelID: "chan1", Message: "feed the cat"}

	require.NoError(t, env.h.DeliverReminder(context.Background(), r))
	sent := env.s.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "chan1", sent[0].ChannelID)
	assert.Contains(t, sent[0].Content, "<@user1>")
	assert.Contains(t, sent[0].Content, "📝 **Reminder:** feed the cat")
}

func TestDeliverReminder_FallsBackToDM(t *testing.T) {
	env := newTestEnv(t)
	env.s.ChannelMessageSendFunc = func(channelID, content string) (*discordgo.Message, error) {
		if channelID == "gone" {
			return nil, errors.New("unknown channel")
		}
		return nil, nil
	}

	r := storage.Reminder{ID: 8, UserID: "user1", ChannelID: "gone", Message: "call mom"}
	require.NoError(t, env.h.DeliverReminder(context.Background(), r))

	sent := env.s.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "dm_user1", sent[0].ChannelID)
}

func TestDeliverReminder_NoSession(t *testing.T) {
	env := newTestEnv(t)
	env.h.SetSession(nil)
	err := env.h.DeliverReminder(context.Background(), storage.Reminder{ID: 1, UserID: "user1", Message: "x"})
	assert.Error(t, err)
}

func TestSchedulerDeliversThroughHandler(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.h.reminders.SetDeliverer(env.h)

	_, err := env.h.reminders.Create(ctx, "user1", "guild1", "chan1", "due now", time.Now().Add(-time.Minute), "")
	require.NoError(t, err)

	assert.Equal(t, 1, env.h.reminders.Tick(ctx))
	assert.Contains(t, env.s.Last(), "due now")
	assert.Equal(t, 0, env.h.reminders.Tick(ctx))
}

func TestSubscriptions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.Contains(t, env.send("!subscribe daily_weather"), "daily_fact")
	assert.Contains(t, env.send("!subscribe DAILY_FACT"), "daily_fact")
	assert.Contains(t, env.send("!subscriptions"), "daily_fact in <#chan1>")

	env.clock = time.Now()
	before := len(env.s.Sent())
	assert.Equal(t, 1, env.h.deliverSubscriptions(ctx))
	sent := env.s.Sent()[before:]
	require.Len(t, sent, 1)
	assert.Equal(t, "chan1", sent[0].ChannelID)
	assert.Contains(t, sent[0].Content, "<@user1>")
	assert.Contains(t, sent[0].Content, "three hearts")

	// Already triggered within the period.
	assert.Equal(t, 0, env.h.deliverSubscriptions(ctx))
	env.clock = env.clock.Add(SubscriptionPeriod + time.Minute)
	assert.Equal(t, 1, env.h.deliverSubscriptions(ctx))
	assert.Equal(t, 2, env.fetcher.factCalls)

	assert.Contains(t, env.send("!unsubscribe daily_fact"), "Unsubscribed")
	assert.Contains(t, env.send("!unsubscribe daily_fact"), "weren't even subscribed")
	assert.Contains(t, env.send("!subscriptions"), "not subscribed to anything")
}

func slashInteraction(name string, opts map[string]string) *discordgo.InteractionCreate {
	data := discordgo.ApplicationCommandInteractionData{Name: name}
	for k, v := range opts {
		data.Options = append(data.Options, &discordgo.ApplicationCommandInteractionDataOption{
			Name:  k,
			Type:  discordgo.ApplicationCommandOptionString,
			Value: v,
		})
	}
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "int1",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "guild1",
		ChannelID: "chan1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "user1", Username: "alice"}},
		Data:      data,
	}}
}

func TestSlashRemindAndReminders(t *testing.T) {
	env := newTestEnv(t)

	env.h.HandleInteraction(env.s, slashInteraction("remind", map[string]string{
		"when":    "in 2 hours",
		"message": "submit report",
		"repeat":  "weekly",
	}))
	require.Len(t, env.s.responses, 1)
	assert.Contains(t, env.s.responses[0].Data.Content, "weekly")
	assert.Contains(t, env.s.responses[0].Data.Content, "submit report")
	assert.Equal(t, 1, env.level(t, "user1"))

	env.h.HandleInteraction(env.s, slashInteraction("reminders", nil))
	require.Len(t, env.s.responses, 2)
	assert.Contains(t, env.s.responses[1].Data.Content, "submit report")
	assert.Equal(t, discordgo.MessageFlagsEphemeral, env.s.responses[1].Data.Flags)

	env.h.HandleInteraction(env.s, slashInteraction("remind", map[string]string{"when": "whenever", "message": "x"}))
	require.Len(t, env.s.responses, 3)
	assert.Contains(t, env.s.responses[2].Data.Content, "I don't understand when")
}

func TestSlashReminders_LongListIsSplit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for n := range 40 {
		msg := fmt.Sprintf("task %02d %s", n, strings.Repeat("x", 60))
		_, err := env.h.reminders.Create(ctx, "user1", "guild1", "chan1", msg, env.clock.Add(time.Duration(n+1)*time.Hour), "")
		require.NoError(t, err)
	}

	env.h.HandleInteraction(env.s, slashInteraction("reminders", nil))
	require.Len(t, env.s.responses, 1)
	require.NotEmpty(t, env.s.followups)

	all := env.s.responses[0].Data.Content
	assert.LessOrEqual(t, utf8.RuneCountInString(all), MaxMessageLength)
	for _, f := range env.s.followups {
		assert.LessOrEqual(t, utf8.RuneCountInString(f.Content), MaxMessageLength)
		assert.Equal(t, discordgo.MessageFlagsEphemeral, f.Flags)
		all += "\n" + f.Content
	}
	for n := range 40 {
		assert.Contains(t, all, fmt.Sprintf("task %02d", n))
	}
}

func TestSlashRelationshipAndMood(t *testing.T) {
	env := newTestEnv(t)

	env.h.HandleInteraction(env.s, slashInteraction("relationship", nil))
	env.h.HandleInteraction(env.s, slashInteraction("mood", nil))
	env.h.HandleInteraction(env.s, slashInteraction("unknown", nil))

	require.Len(t, env.s.responses, 2)
	assert.Contains(t, env.s.responses[0].Data.Content, "Stranger")
	assert.Contains(t, env.s.responses[1].Data.Content, "NEUTRAL")
}

func TestGetUserFromInteraction(t *testing.T) {
	id, name, err := getUserFromInteraction(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "dm_user", Username: "bob", GlobalName: "Bobby"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "dm_user", id)
	assert.Equal(t, "Bobby", name)

	_, _, err = getUserFromInteraction(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}})
	assert.Error(t, err)
}
