package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tsunbot/pkg/persona"
	"tsunbot/pkg/reminder"
	"tsunbot/pkg/storage"
)

func (h *Handler) cmdRemind(c *cmdContext) (string, error) {
	recurrence := ""
	when := c.rest
	if len(c.args) > 0 {
		if rec, err := reminder.ParseRecurrence(c.args[0]); err == nil && rec != "" {
			recurrence = rec
			when = strings.TrimSpace(strings.TrimPrefix(c.rest, c.args[0]))
		}
	}
	reply, ok, err := h.createReminder(c.ctx, c.userID, c.guildID, c.channelID, when, "", recurrence)
	if !ok {
		c.kind = ""
	}
	return reply, err
}

// createReminder parses when (which may carry the message after the time
// expression when message is empty) and schedules the reminder. ok is false
// when nothing was scheduled.
func (h *Handler) createReminder(ctx context.Context, userID, guildID, channelID, when, message, recurrence string) (string, bool, error) {
	at, rest, err := reminder.ParseTime(when, h.now())
	if err != nil {
		return h.persona.Activity("reminders", "bad_time", nil), false, nil
	}
	if message == "" {
		message = rest
	}

	id, err := h.reminders.Create(ctx, userID, guildID, channelID, message, at, recurrence)
	if errors.Is(err, reminder.ErrEmptyMessage) {
		return "", false, errUsage("nothing to remind")
	}
	if err != nil {
		return "", false, err
	}

	vars := persona.Vars{
		"message": strings.TrimSpace(message),
		"when":    fmt.Sprintf("<t:%d:R>", at.Unix()),
		"id":      strconv.FormatInt(id, 10),
	}
	if recurrence != "" {
		vars["recurrence"] = recurrence
		return h.persona.Activity("reminders", "recurring", vars), true, nil
	}
	return h.persona.Activity("reminders", "created", vars), true, nil
}

func (h *Handler) cmdReminders(c *cmdContext) (string, error) {
	return h.remindersReply(c.ctx, c.userID)
}

func (h *Handler) remindersReply(ctx context.Context, userID string) (string, error) {
	list, err := h.reminders.List(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return h.persona.Activity("reminders", "none", nil), nil
	}
	var sb strings.Builder
	for _, r := range list {
		fmt.Fprintf(&sb, "`#%d` <t:%d:f> %s", r.ID, r.ScheduledTime.Unix(), r.Message)
		if r.Recurrence != "" {
			fmt.Fprintf(&sb, " (%s)", r.Recurrence)
		}
		sb.WriteString("\n")
	}
	return h.persona.Activity("reminders", "list", persona.Vars{"list": strings.TrimRight(sb.String(), "\n")}), nil
}

func (h *Handler) cmdCancelReminder(c *cmdContext) (string, error) {
	raw := strings.TrimPrefix(c.args[0], "#")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", errUsage("id must be a number")
	}
	ok, err := h.reminders.Cancel(c.ctx, id, c.userID)
	if err != nil {
		return "", err
	}
	vars := persona.Vars{"id": raw}
	if !ok {
		return h.persona.Activity("reminders", "not_found", vars), nil
	}
	return h.persona.Activity("reminders", "cancelled", vars), nil
}

// DeliverReminder posts a due reminder in the channel it was set in, or in
// the user's DMs when that channel is gone.
func (h *Handler) DeliverReminder(ctx context.Context, r storage.Reminder) error {
	s := h.getSession()
	if s == nil {
		return errors.New("no discord session")
	}

	intro := h.persona.Activity("reminders", "reminder_ping", persona.Vars{"mention": "<@" + r.UserID + ">"})
	content := fmt.Sprintf("%s\n\n📝 **Reminder:** %s", intro, r.Message)

	if r.ChannelID != "" {
		_, err := s.ChannelMessageSend(r.ChannelID, content)
		if err == nil {
			return nil
		}
		h.logger.Warn().Err(err).Int64("id", r.ID).Str("channel", r.ChannelID).Msg("channel delivery failed, trying DM")
	}

	ch, err := s.UserChannelCreate(r.UserID)
	if err != nil {
		return fmt.Errorf("error creating DM: %w", err)
	}
	if _, err := s.ChannelMessageSend(ch.ID, content); err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}
	h.logger.Info().Int64("id", r.ID).Str("user", r.UserID).Msg("reminder delivered by DM")
	return nil
}
