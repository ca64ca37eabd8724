package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tsunbot/pkg/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrEmptyMessage = errors.New("reminder message is empty")

type Store interface {
	CreateReminder(ctx context.Context, r storage.Reminder) (int64, error)
	PendingReminders(ctx context.Context, now time.Time) ([]storage.Reminder, error)
	MarkReminderSent(ctx context.Context, id int64) error
	RescheduleReminder(ctx context.Context, id int64, at time.Time) error
	DeleteReminder(ctx context.Context, id int64, userID string) (bool, error)
	UserReminders(ctx context.Context, userID string, includeSent bool) ([]storage.Reminder, error)
}

// Deliverer sends a due reminder to its user.
type Deliverer interface {
	DeliverReminder(ctx context.Context, r storage.Reminder) error
}

type Config struct {
	PollInterval time.Duration
	RetryDelay   time.Duration
}

var DefaultConfig = Config{PollInterval: time.Minute, RetryDelay: time.Hour}

// Scheduler stores reminders and delivers them from a polling loop.
type Scheduler struct {
	store  Store
	cfg    Config
	now    func() time.Time
	logger zerolog.Logger

	mu        sync.RWMutex
	deliverer Deliverer
}

func NewScheduler(store Store, cfg Config) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig.PollInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig.RetryDelay
	}
	return &Scheduler{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: log.With().Str("component", "reminders").Logger(),
	}
}

// SetDeliverer wires the transport once it is connected. Ticks before that are skipped.
func (s *Scheduler) SetDeliverer(d Deliverer) {
	s.mu.Lock()
	s.deliverer = d
	s.mu.Unlock()
}

func (s *Scheduler) getDeliverer() Deliverer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deliverer
}

// Create persists a new unsent reminder and returns its id.
func (s *Scheduler) Create(ctx context.Context, userID, guildID, channelID, message string, at time.Time, recurrence string) (int64, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return 0, ErrEmptyMessage
	}
	rec, err := ParseRecurrence(recurrence)
	if err != nil {
		return 0, err
	}
	id, err := s.store.CreateReminder(ctx, storage.Reminder{
		UserID:        userID,
		GuildID:       guildID,
		ChannelID:     channelID,
		Message:       message,
		ScheduledTime: at.UTC(),
		CreatedAt:     s.now().UTC(),
		Recurrence:    rec,
	})
	if err != nil {
		return 0, fmt.Errorf("create reminder: %w", err)
	}
	s.logger.Info().Int64("id", id).Str("user", userID).Time("at", at).Str("recurrence", rec).Msg("reminder scheduled")
	return id, nil
}

// Pending returns every unsent reminder that is due.
func (s *Scheduler) Pending(ctx context.Context) ([]storage.Reminder, error) {
	return s.store.PendingReminders(ctx, s.now())
}

func (s *Scheduler) MarkSent(ctx context.Context, id int64) error {
	return s.store.MarkReminderSent(ctx, id)
}

// Cancel deletes an unsent reminder owned by userID.
func (s *Scheduler) Cancel(ctx context.Context, id int64, userID string) (bool, error) {
	return s.store.DeleteReminder(ctx, id, userID)
}

// List returns a user's unsent reminders.
func (s *Scheduler) List(ctx context.Context, userID string) ([]storage.Reminder, error) {
	return s.store.UserReminders(ctx, userID, false)
}

// Run polls for due reminders until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.cfg.PollInterval).Msg("reminder loop started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder loop stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick delivers every due reminder once and returns how many were sent.
// A reminder is marked sent only after delivery succeeds; a failed delivery
// is pushed back by the retry delay.
func (s *Scheduler) Tick(ctx context.Context) int {
	d := s.getDeliverer()
	if d == nil {
		return 0
	}

	due, err := s.Pending(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("error getting reminders")
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	batchStart := time.Now()
	sent := 0
	for _, r := range due {
		if ctx.Err() != nil {
			break
		}
		if err := d.DeliverReminder(ctx, r); err != nil {
			retryAt := s.now().Add(s.cfg.RetryDelay)
			s.logger.Warn().Err(err).Int64("id", r.ID).Time("retry_at", retryAt).Msg("delivery failed")
			if err := s.store.RescheduleReminder(ctx, r.ID, retryAt); err != nil {
				s.logger.Error().Err(err).Int64("id", r.ID).Msg("error rescheduling reminder")
			}
			continue
		}

		if err := s.MarkSent(ctx, r.ID); err != nil {
			s.logger.Error().Err(err).Int64("id", r.ID).Msg("error marking reminder sent")
			continue
		}
		sent++

		if r.Recurrence != "" {
			s.scheduleNext(ctx, r)
		}
	}

	s.logger.Info().Int("sent", sent).Int("due", len(due)).Dur("took", time.Since(batchStart)).Msg("batch complete")
	return sent
}

func (s *Scheduler) scheduleNext(ctx context.Context, r storage.Reminder) {
	next, ok := NextOccurrence(r.ScheduledTime, r.Recurrence, s.now())
	if !ok {
		s.logger.Warn().Int64("id", r.ID).Str("recurrence", r.Recurrence).Msg("unknown recurrence, not repeating")
		return
	}
	id, err := s.Create(ctx, r.UserID, r.GuildID, r.ChannelID, r.Message, next, r.Recurrence)
	if err != nil {
		s.logger.Error().Err(err).Int64("id", r.ID).Msg("error scheduling next occurrence")
		return
	}
	s.logger.Debug().Int64("from", r.ID).Int64("to", id).Time("at", next).Msg("recurring reminder rescheduled")
}
