package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const reminderColumns = `id, user_id, guild_id, channel_id, message, scheduled_time, created_at, sent, recurrence`

func scanReminder(sc scanner) (Reminder, error) {
	var r Reminder
	var scheduled, created int64
	var sent int
	if err := sc.Scan(&r.ID, &r.UserID, &r.GuildID, &r.ChannelID, &r.Message, &scheduled, &created, &sent, &r.Recurrence); err != nil {
		return Reminder{}, err
	}
	r.ScheduledTime = fromMillis(scheduled)
	r.CreatedAt = fromMillis(created)
	r.Sent = sent != 0
	return r, nil
}

func (s *SQLiteStore) queryReminders(ctx context.Context, query string, args ...any) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateReminder stores an unsent reminder and returns its id.
func (s *SQLiteStore) CreateReminder(ctx context.Context, r Reminder) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (user_id, guild_id, channel_id, message, scheduled_time, created_at, sent, recurrence)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		r.UserID, r.GuildID, r.ChannelID, r.Message, toMillis(r.ScheduledTime), toMillis(r.CreatedAt), r.Recurrence,
	)
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) GetReminder(ctx context.Context, id int64) (Reminder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Reminder{}, ErrNotFound
	}
	if err != nil {
		return Reminder{}, fmt.Errorf("get reminder: %w", err)
	}
	return r, nil
}

// PendingReminders returns unsent reminders scheduled at or before now.
func (s *SQLiteStore) PendingReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE sent = 0 AND scheduled_time <= ?
		 ORDER BY scheduled_time, id`, now.UnixMilli())
}

func (s *SQLiteStore) MarkReminderSent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RescheduleReminder moves an unsent reminder to a new time.
func (s *SQLiteStore) RescheduleReminder(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET scheduled_time = ? WHERE id = ? AND sent = 0`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("reschedule reminder: %w", err)
	}
	return nil
}

// DeleteReminder removes an unsent reminder owned by userID. It reports
// whether a row was removed.
func (s *SQLiteStore) DeleteReminder(ctx context.Context, id int64, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND user_id = ? AND sent = 0`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UserReminders lists a user's reminders in schedule order. Sent reminders
// are included only when includeSent is set.
func (s *SQLiteStore) UserReminders(ctx context.Context, userID string, includeSent bool) ([]Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE user_id = ?`
	if !includeSent {
		query += ` AND sent = 0`
	}
	query += ` ORDER BY scheduled_time, id`
	return s.queryReminders(ctx, query, userID)
}
